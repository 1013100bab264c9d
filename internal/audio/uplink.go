package audio

import (
	"context"
	"time"
)

// Uplink drains a Ring on a fixed cadence and hands whatever accumulated
// since the last drain to submit, the §4.7 "forward chunks as SendAudio
// frames to the driver" responsibility. It is deliberately dumb: framing
// the drained samples into a wire.AudioData and submitting it upward is the
// caller's job, since only the caller knows the session Driver's submit
// function.
type Uplink struct {
	ring   *Ring
	submit func([]int16) error
	buf    []int16
}

// NewUplink creates an Uplink draining ring into submit. bufFrames bounds
// how many samples are read per drain tick.
func NewUplink(ring *Ring, bufFrames int, submit func([]int16) error) *Uplink {
	return &Uplink{ring: ring, submit: submit, buf: make([]int16, bufFrames)}
}

// Run drains ring every interval until ctx is cancelled. A drain that finds
// nothing buffered is a no-op; an error returned by submit is ignored here
// (the submit closure is expected to log it), since a single dropped uplink
// chunk shouldn't tear down capture.
func (u *Uplink) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.drain()
		}
	}
}

func (u *Uplink) drain() {
	avail := u.ring.Available()
	if avail == 0 {
		return
	}
	if avail > len(u.buf) {
		avail = len(u.buf)
	}
	n := u.ring.Read(u.buf[:avail])
	if n == 0 {
		return
	}
	_ = u.submit(u.buf[:n])
}
