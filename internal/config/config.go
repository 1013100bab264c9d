// Package config defines the host-pushed DongleConfig and the CLI-assembled
// runtime Config, mirroring the teacher's flag.FlagSet-based approach rather
// than pulling in a generic configuration framework.
package config

import "time"

// WifiBand selects the dongle's wifi radio for the phone-side link.
type WifiBand uint32

const (
	Wifi24GHz WifiBand = iota
	Wifi5GHz
)

// DongleConfig is pushed to the dongle once per session, during the
// Initialised -> Configured transition. Field values mirror what real
// CarPlay gateways negotiate with the dongle (resolution, frame rate, DPI,
// and the audio transfer mode the dongle should use for PCM delivery).
type DongleConfig struct {
	Width             uint32
	Height            uint32
	FPS               uint32
	DPI               uint32
	Format            uint32
	IBoxVersion       uint32
	PhoneWorkMode     uint32
	PacketMax         uint32
	MediaDelayMs      uint32
	AudioTransferMode bool
	WifiType          WifiBand
	WifiChannel       uint32
	CarName           string
	OEMName           string
	// PhoneFrameIntervalMs maps a wire.PhoneType to its frame-heartbeat
	// cadence in ms (§4.3); a phone type absent from the map gets no
	// heartbeat at all, per spec.md's "absence does nothing".
	PhoneFrameIntervalMs map[uint32]uint32
	// IconBlobs carries the opaque vendor icon images pushed alongside the
	// config; the core never interprets their contents.
	IconBlobs map[string][]byte
}

// DefaultDongleConfig returns the configuration CarBridge pushes when the
// host hasn't overridden anything, matching the values real gateways use.
func DefaultDongleConfig() DongleConfig {
	return DongleConfig{
		Width:             1280,
		Height:            720,
		FPS:               30,
		DPI:               160,
		Format:            5,
		IBoxVersion:       2,
		PhoneWorkMode:     2,
		PacketMax:         49152,
		MediaDelayMs:      300,
		AudioTransferMode: false,
		WifiType:          Wifi5GHz,
		WifiChannel:       36,
		CarName:           "CarBridge",
		OEMName:           "CarBridge",
		PhoneFrameIntervalMs: map[uint32]uint32{
			1: 5000, // CarPlay: real gateways observe a 5s frame-heartbeat
		},
	}
}

// Config is the top-level runtime configuration assembled by cmd/carbridge
// from CLI flags.
type Config struct {
	LogLevel       string
	USBVendorID    uint16
	USBProductIDs  []uint16
	PairTimeout    time.Duration
	WriterDrain    time.Duration
	PreferHardware bool
	Dongle         DongleConfig
}
