package input

import "github.com/dashlink/carbridge/internal/wire"

// Key codes for the dongle's remote-button vocabulary, drawn from the
// closed set §4.8 names: navigation, media transport, Siri, host UI, wifi
// pair, and frame heartbeat. Distinct from any host keyboard scancode
// space.
const (
	KeyHome uint32 = iota + 1
	KeyBack

	// Navigation
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeySelect

	// Media transport
	KeyPlay
	KeyPause
	KeyNext
	KeyPrevious
	KeyVolumeUp
	KeyVolumeDown
	KeyMute

	// Siri / voice assistant
	KeySiri

	// Host UI
	KeyMenu
	KeyPhone

	// Driver-originated protocol signals routed through the same key
	// vocabulary as a host-visible command.
	KeyWifiPair
	KeyFrameHeartbeat
)

// EncodeKey builds a wire.Key message for the given button code.
func EncodeKey(code uint32) wire.Key {
	return wire.Key{Code: code}
}
