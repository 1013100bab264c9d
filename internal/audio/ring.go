// Package audio implements the PCM ring buffer shared between the decode
// thread and the audio-driver thread, plus the portaudio-backed playback
// sink and microphone capture source.
package audio

import (
	"sync/atomic"
)

// Ring is a single-producer single-consumer ring buffer of interleaved
// int16 PCM samples. The write and read positions are tracked as separate
// atomic counters (not indices mod N) so the "samples available" and
// "space available" computations never need to special-case wrap-around;
// only the slice indexing does. The reader never advances past the writer,
// and (writer - reader) is always in [0, N].
type Ring struct {
	buf []int16
	n   int64 // capacity in samples, fixed at construction

	writePos atomic.Int64 // monotonically increasing count of samples written
	readPos  atomic.Int64 // monotonically increasing count of samples read
	dropped  atomic.Int64 // samples discarded at the writer because the ring was full
}

// NewRing creates a ring buffer holding capacity interleaved samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic("audio: ring capacity must be positive")
	}
	return &Ring{buf: make([]int16, capacity), n: int64(capacity)}
}

// Capacity returns the number of samples the ring can hold.
func (r *Ring) Capacity() int { return int(r.n) }

// Available returns the number of samples ready for the reader.
func (r *Ring) Available() int {
	w := r.writePos.Load()
	rd := r.readPos.Load()
	return int(w - rd)
}

// Free returns the number of samples that can be written without
// overwriting unread data.
func (r *Ring) Free() int {
	return int(r.n) - r.Available()
}

// Write copies as many samples from src as fit without overwriting unread
// data, returning the number written. The writer uses release ordering:
// sample data is fully copied into buf before writePos is advanced, so a
// reader that observes the new writePos is guaranteed to see the new data.
func (r *Ring) Write(src []int16) int {
	free := r.Free()
	toWrite := len(src)
	if toWrite > free {
		r.dropped.Add(int64(toWrite - free))
		toWrite = free
	}
	if toWrite == 0 {
		return 0
	}
	w := r.writePos.Load()
	start := int(w % r.n)
	first := int(r.n) - start
	if first > toWrite {
		first = toWrite
	}
	copy(r.buf[start:start+first], src[:first])
	if toWrite > first {
		copy(r.buf[0:toWrite-first], src[first:toWrite])
	}
	r.writePos.Store(w + int64(toWrite))
	return toWrite
}

// Read copies as many samples as are available into dst, returning the
// number read. The reader uses acquire ordering: readPos observes
// writePos's release before indexing buf, so it never reads a sample the
// writer hasn't finished copying.
func (r *Ring) Read(dst []int16) int {
	avail := r.Available()
	toRead := len(dst)
	if toRead > avail {
		toRead = avail
	}
	if toRead == 0 {
		return 0
	}
	rd := r.readPos.Load()
	start := int(rd % r.n)
	first := int(r.n) - start
	if first > toRead {
		first = toRead
	}
	copy(dst[:first], r.buf[start:start+first])
	if toRead > first {
		copy(dst[first:toRead], r.buf[0:toRead-first])
	}
	r.readPos.Store(rd + int64(toRead))
	return toRead
}

// Reset discards all buffered samples, e.g. on a decode discontinuity.
func (r *Ring) Reset() {
	r.readPos.Store(r.writePos.Load())
}

// Dropped returns the cumulative count of samples discarded at the writer
// because the ring had no free space for them (§4.6's "samples are dropped
// at the writer and a drop counter is incremented").
func (r *Ring) Dropped() int64 { return r.dropped.Load() }
