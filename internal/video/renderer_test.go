package video

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectPrefersHardwareSurfaceWhenAdvertised(t *testing.T) {
	t.Setenv("CARBRIDGE_HW_SURFACE", "drm:/dev/dri/card0")

	r, err := Select(false, 640, 480)
	require.NoError(t, err)
	require.IsType(t, &HardwareRenderer{}, r)
}

func TestSelectPreferHardwareOverridesPlatformOrder(t *testing.T) {
	t.Setenv("CARBRIDGE_HW_SURFACE", "drm:/dev/dri/card0")

	// Even on a platform whose default priority probes GL2 first, passing
	// preferHardware=true must still land on the hardware renderer here
	// since its probe succeeds.
	r, err := Select(true, 640, 480)
	require.NoError(t, err)
	require.IsType(t, &HardwareRenderer{}, r)
}

func TestPlatformPriorityOrdersByTarget(t *testing.T) {
	want := []string{"gl2", "hardware"}
	switch {
	case runtime.GOOS == "darwin":
		want = []string{"hardware", "gl2"}
	case runtime.GOOS == "linux" && (runtime.GOARCH == "arm" || runtime.GOARCH == "arm64"):
		want = []string{"gl2"}
	}
	require.Equal(t, want, platformPriority())
	require.Equal(t, []string{"gl2"}, without([]string{"gl2", "hardware"}, "hardware"))
	require.Equal(t, []string{"gl2", "hardware"}, without([]string{"gl2", "hardware"}, "nonexistent"))
}

func TestWithoutRemovesEveryOccurrence(t *testing.T) {
	require.Equal(t, []string{"gl2"}, without([]string{"hardware", "gl2", "hardware"}, "hardware"))
}
