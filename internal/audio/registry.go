package audio

import (
	"fmt"
	"sync"
)

// StreamFormat describes the PCM format a decode type carries: sample rate,
// channel count, and bit depth.
type StreamFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// decodeTypeFormat maps the wire protocol's DecodeType enum to a
// StreamFormat, mirroring the dongle's documented audio decode-type table
// (§3 "DecodeTypeRegistry").
var decodeTypeFormat = map[uint32]StreamFormat{
	1: {SampleRate: 44100, Channels: 2, BitDepth: 16},
	2: {SampleRate: 44100, Channels: 2, BitDepth: 16},
	3: {SampleRate: 8000, Channels: 1, BitDepth: 16},
	4: {SampleRate: 48000, Channels: 2, BitDepth: 16},
	5: {SampleRate: 16000, Channels: 1, BitDepth: 16},
	6: {SampleRate: 24000, Channels: 1, BitDepth: 16},
	7: {SampleRate: 16000, Channels: 2, BitDepth: 16},
}

// FormatForDecodeType resolves a wire AudioData.DecodeType to its
// StreamFormat, returning false for an unrecognized decode type (§7: "audio
// decode metadata missing -> stream dropped, reported once").
func FormatForDecodeType(decodeType uint32) (StreamFormat, bool) {
	f, ok := decodeTypeFormat[decodeType]
	return f, ok
}

// PcmStreamKey identifies one logical PCM stream as the pair spec.md §3
// defines: (decodeType, audioType). Two AudioData blocks sharing a
// decodeType but different audioType (e.g. music vs. a navigation prompt)
// are distinct streams with independent rings, players, and volume
// channels.
type PcmStreamKey struct {
	DecodeType uint32
	AudioType  uint32
}

// IsNav reports whether this stream is a navigation stream (§4.6:
// audioType in {2, 3}), which gets its own volume channel.
func (k PcmStreamKey) IsNav() bool { return k.AudioType == 2 || k.AudioType == 3 }

// String renders the key the way internal/logger's WithStream expects it.
func (k PcmStreamKey) String() string { return fmt.Sprintf("%d/%d", k.DecodeType, k.AudioType) }

// Registry tracks the active Ring per PcmStreamKey, creating rings lazily
// on first use and letting callers route samples without re-negotiating
// buffers on every format or stream switch.
type Registry struct {
	mu    sync.Mutex
	rings map[PcmStreamKey]*Ring
	cap   int
}

// NewRegistry creates a Registry whose rings each hold ringCapacity
// samples.
func NewRegistry(ringCapacity int) *Registry {
	return &Registry{rings: make(map[PcmStreamKey]*Ring), cap: ringCapacity}
}

// RingFor returns the Ring for key, creating it if necessary. created
// reports whether this call created a new ring (the caller's cue to also
// construct and start a Player for it).
func (reg *Registry) RingFor(key PcmStreamKey) (ring *Ring, created bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rings[key]
	if !ok {
		r = NewRing(reg.cap)
		reg.rings[key] = r
		return r, true
	}
	return r, false
}
