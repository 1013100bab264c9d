package video

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHardwareProbeFailsWithoutSurfaceEnv(t *testing.T) {
	t.Setenv("CARBRIDGE_HW_SURFACE", "")
	_, err := NewHardwareRenderer(640, 480)
	require.Error(t, err)
}

func TestHardwareProbeSucceedsWithSurfaceEnv(t *testing.T) {
	t.Setenv("CARBRIDGE_HW_SURFACE", "drm:/dev/dri/card0")
	r, err := NewHardwareRenderer(640, 480)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Draw(Frame{Width: 640, Height: 480, RGBA: make([]byte, 640*480*4)}))
	require.Error(t, r.Draw(Frame{Width: 640, Height: 480, RGBA: make([]byte, 10)}))
}
