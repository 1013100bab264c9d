package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultDongleConfigHasCarPlayHeartbeat(t *testing.T) {
	dc := DefaultDongleConfig()
	require.Equal(t, uint32(1280), dc.Width)
	require.Equal(t, uint32(720), dc.Height)
	require.Equal(t, Wifi5GHz, dc.WifiType)

	interval, ok := dc.PhoneFrameIntervalMs[1]
	require.True(t, ok, "CarPlay phone type must have a frame-heartbeat interval")
	require.Equal(t, uint32(5000), interval)
}

func TestDefaultDongleConfigOmitsHeartbeatForUnknownPhones(t *testing.T) {
	dc := DefaultDongleConfig()
	_, ok := dc.PhoneFrameIntervalMs[99]
	require.False(t, ok, "an unlisted phone type must get no heartbeat at all")
}
