// Package control exposes the upward event stream (Plugged/Unplugged/
// Phase/MediaData/BoxSettings surfaced to the host) and the downward
// command sink (touch/multi-touch/key/command/volume pushed toward the
// dongle, plus a USB-level ForceReset) that together form the Control
// Surface the rest of the host application uses. The Surface has no config
// push; DongleConfig reaches the dongle only through the session driver's
// handshake.
package control

import (
	"context"

	"github.com/dashlink/carbridge/internal/audio"
	"github.com/dashlink/carbridge/internal/input"
	"github.com/dashlink/carbridge/internal/wire"
)

// Event is anything surfaced upward to the host: a connection-phase change,
// a now-playing update, or a raw passthrough message the host wants to
// observe but CarBridge doesn't otherwise interpret.
type Event struct {
	Message wire.Message
}

// Surface is the single entry point host applications use to both receive
// upward events and issue downward commands.
type Surface struct {
	events     chan Event
	send       func(wire.Message) error
	forceReset func(context.Context) error
}

// NewSurface creates a Surface whose downward wire commands are delivered
// via send (typically the session Driver's writer-queue submit function)
// and whose ForceReset calls are delivered via forceReset (typically the
// session Driver's own ForceReset, a transport-level operation rather than
// a framed wire message).
func NewSurface(send func(wire.Message) error, forceReset func(context.Context) error) *Surface {
	return &Surface{events: make(chan Event, 256), send: send, forceReset: forceReset}
}

// Events returns the upward event stream. The channel is closed when the
// session ends.
func (s *Surface) Events() <-chan Event { return s.events }

// Publish delivers an upward event, dropping it with no error if the
// channel is full rather than blocking the demultiplexer.
func (s *Surface) Publish(msg wire.Message) {
	select {
	case s.events <- Event{Message: msg}:
	default:
	}
}

// Close signals no further events will be published.
func (s *Surface) Close() { close(s.events) }

// Touch issues a downward touch event.
func (s *Surface) Touch(t wire.Touch) error { return s.send(t) }

// Key issues a downward key event.
func (s *Surface) Key(code uint32) error { return s.send(input.EncodeKey(code)) }

// MultiTouch issues a downward full-frame multi-touch snapshot.
func (s *Surface) MultiTouch(points []wire.TouchPoint) error {
	return s.send(wire.MultiTouch{Points: points})
}

// Command issues a downward command event (e.g. the driver's own
// wifiPair/frame-heartbeat, or a host-initiated UI command).
func (s *Surface) Command(value wire.CommandValue) error {
	return s.send(wire.Command{Value: value})
}

// Volume issues a downward volume command for the given PCM stream.
func (s *Surface) Volume(cmd audio.VolumeCommand) error {
	clamped := cmd.Clamp()
	return s.send(wire.AudioData{
		DecodeType: clamped.DecodeType, AudioType: clamped.AudioType,
		Volume: clamped.Volume, HasVolume: true, VolumeDuration: clamped.VolumeDuration,
	})
}

// ForceReset issues the §6 downward ForceReset command: a full USB-level
// device reset and re-enumeration, distinct from every other Surface
// command in that it never travels over the wire codec (the device isn't
// listening to anything until it's re-enumerated).
func (s *Surface) ForceReset(ctx context.Context) error { return s.forceReset(ctx) }
