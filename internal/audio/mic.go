package audio

import (
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// MicSampleRate is the fixed capture rate §4.7 specifies for upstream
// microphone audio.
const MicSampleRate = 16000

// Microphone captures the host's default input device and writes samples
// into a Ring for the upward SendAudio framer to drain, mirroring the
// teacher pack's portaudio producer pattern (richinsley-goshadertoy's
// audio.Microphone) but writing into our atomic ring instead of a channel,
// since the framer pulls on its own cadence rather than selecting on a
// channel per callback.
//
// Start is idempotent: a re-entrant call replaces the previous capture
// stream rather than erroring, per §4.7. If the backend has no capture
// device, Start is a no-op and Running reports false, letting the Session
// continue with audioTransferMode behavior instead of failing outright.
type Microphone struct {
	log  *slog.Logger
	ring *Ring

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewMicrophone creates a Microphone that writes captured samples into
// ring.
func NewMicrophone(ring *Ring, log *slog.Logger) *Microphone {
	return &Microphone{ring: ring, log: log.With("component", "microphone")}
}

// Start begins capture at MicSampleRate, mono. A call while already
// running stops the previous stream first and opens a fresh one.
func (m *Microphone) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		m.closeLocked()
	}

	if err := portaudio.Initialize(); err != nil {
		m.log.Warn("no capture backend available, mic start is a no-op", "error", err)
		return nil
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil || host.DefaultInputDevice == nil {
		portaudio.Terminate()
		m.log.Warn("no default input device, mic start is a no-op")
		return nil
	}

	params := portaudio.HighLatencyParameters(host.DefaultInputDevice, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(MicSampleRate)

	stream, err := portaudio.OpenStream(params, m.callback)
	if err != nil {
		portaudio.Terminate()
		return carerrors.NewMediaError("audio.mic.open", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return carerrors.NewMediaError("audio.mic.start", err)
	}
	m.stream = stream
	return nil
}

// Running reports whether a capture stream is currently active.
func (m *Microphone) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

// callback is invoked on portaudio's audio thread; it must never block, so
// when the ring is full Ring.Write keeps the unread samples, discards the
// incoming ones that don't fit, and adds them to its drop counter.
func (m *Microphone) callback(in []int16) {
	if n := m.ring.Write(in); n < len(in) {
		m.log.Warn("microphone ring overrun, samples dropped", "dropped", len(in)-n)
	}
}

// Stop terminates capture and releases portaudio resources. Idempotent: a
// call with no active stream is a no-op. A capture error surfaces as a log
// line and an internal Stop, never a session-level failure (§4.7).
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Microphone) closeLocked() error {
	if m.stream == nil {
		return nil
	}
	err := m.stream.Close()
	m.stream = nil
	portaudio.Terminate()
	if err != nil {
		return carerrors.NewMediaError("audio.mic.stop", err)
	}
	return nil
}
