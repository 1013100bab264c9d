package audio

import "math"

// FramesPerQuantum is the audio-driver render block size the Worklet pulls
// once per callback (§4.6's "quantum").
const FramesPerQuantum = 128

// defaultPrerollMs / defaultRampMs / maxPrerollMs are the Worklet's default
// tuning constants (§4.6).
const (
	defaultPrerollMs = 8.0
	defaultRampMs    = 5.0
	maxPrerollMs     = 40.0
)

// WorkletEvent reports a priming/underrun/recovery transition the caller
// should surface upward (e.g. as a log line or a host-visible diagnostic),
// mirroring the audio-worklet "underrun"/"recovered" events of §4.6.
type WorkletEvent int

const (
	EventNone WorkletEvent = iota
	EventUnderrun
	EventRecovered
)

// Worklet is the audio-driver-thread consumer side of a Ring: it implements
// the priming/ramp/padding/adaptive-preroll contract of §4.6, the "hard
// part" of the Audio Pipeline. It is driven from the audio callback thread
// by calling Pull once per render quantum; the only state it shares with
// the writer side is the Ring's two atomic indices.
type Worklet struct {
	ring       *Ring
	channels   int
	sampleRate int

	basePrerollQuanta   int
	targetPrerollQuanta int
	maxPrerollQuanta    int

	rampMs     float64
	rampTotal  int // frames in the current ramp, fixed when the ramp starts
	rampLeft   int
	rampFrom   []int16

	priming         bool
	awaitingRecover bool
	softStreak      int
	stableStreak    int

	lastSample []int16 // one held sample per channel, for hold/ramp-from

	gain           float64
	gainTarget     float64
	gainStep       float64
	gainFramesLeft int
}

// NewWorklet creates a Worklet draining ring, assuming channels-interleaved
// samples at sampleRate, with the spec's default preroll/ramp tuning.
func NewWorklet(ring *Ring, channels, sampleRate int) *Worklet {
	w := &Worklet{
		ring:       ring,
		channels:   channels,
		sampleRate: sampleRate,
		rampMs:     defaultRampMs,
		priming:    true,
		lastSample: make([]int16, channels),
		gain:       1,
		gainTarget: 1,
	}
	w.basePrerollQuanta = quantaForMs(defaultPrerollMs, sampleRate)
	w.targetPrerollQuanta = w.basePrerollQuanta
	w.maxPrerollQuanta = quantaForMs(maxPrerollMs, sampleRate)
	return w
}

// quantaForMs implements basePrerollQuanta = ceil(ms * sampleRate / (1000 *
// framesPerQuantum)).
func quantaForMs(ms float64, sampleRate int) int {
	frames := ms * float64(sampleRate) / 1000
	q := int(math.Ceil(frames / FramesPerQuantum))
	if q < 1 {
		q = 1
	}
	return q
}

// TargetPrerollQuanta reports the current adaptive preroll target, for
// tests and diagnostics.
func (w *Worklet) TargetPrerollQuanta() int { return w.targetPrerollQuanta }

// BasePrerollQuanta reports the floor the adaptive target never drops below.
func (w *Worklet) BasePrerollQuanta() int { return w.basePrerollQuanta }

// Priming reports whether the worklet is still waiting to accumulate its
// preroll target before emitting anything but silence.
func (w *Worklet) Priming() bool { return w.priming }

// SetPrerollMs raises the working preroll target to at least ms worth of
// quanta; per §4.6 it never lowers the target below the base.
func (w *Worklet) SetPrerollMs(ms float64) {
	q := quantaForMs(ms, w.sampleRate)
	if q < w.basePrerollQuanta {
		q = w.basePrerollQuanta
	}
	if q > w.targetPrerollQuanta {
		w.targetPrerollQuanta = q
	}
}

// SetRampMs updates the crossfade duration applied on the next priming-end
// or post-underrun recovery.
func (w *Worklet) SetRampMs(ms float64) { w.rampMs = ms }

// SetGain schedules a linear volume ramp from the current gain to target
// over durationMs (§4.6: "a message carrying {volume, volumeDuration}
// applies a linear volume ramp over volumeDuration ms").
func (w *Worklet) SetGain(target float32, durationMs float32) {
	frames := int(float64(durationMs) * float64(w.sampleRate) / 1000)
	if frames < 1 {
		frames = 1
	}
	w.gainTarget = float64(target)
	w.gainFramesLeft = frames
	w.gainStep = (w.gainTarget - w.gain) / float64(frames)
}

// applyGain scales out by the current gain, stepping toward gainTarget one
// frame at a time while a ramp is in progress.
func (w *Worklet) applyGain(out []int16) {
	if w.gainFramesLeft == 0 && w.gain == 1 {
		return
	}
	frames := len(out) / w.channels
	for f := 0; f < frames; f++ {
		if w.gainFramesLeft > 0 {
			w.gain += w.gainStep
			w.gainFramesLeft--
			if w.gainFramesLeft == 0 {
				w.gain = w.gainTarget
			}
		}
		for c := 0; c < w.channels; c++ {
			idx := f*w.channels + c
			out[idx] = int16(float64(out[idx]) * w.gain)
		}
	}
}

// Pull fills out (one render quantum: FramesPerQuantum*channels samples)
// with the next block of audio, applying priming, channel-aligned reads,
// last-sample-hold padding, underrun-triggered ramps, and adaptive preroll
// retuning. It never blocks.
func (w *Worklet) Pull(out []int16) WorkletEvent {
	if len(out) == 0 || w.channels == 0 {
		return EventNone
	}

	if w.priming {
		needed := w.targetPrerollQuanta * FramesPerQuantum * w.channels
		if w.ring.Available() < needed {
			silence(out)
			return EventNone
		}
		w.priming = false
		w.startRamp()
	}

	avail := w.ring.Available()
	alignedAvail := (avail / w.channels) * w.channels
	toRead := len(out)
	if toRead > alignedAvail {
		toRead = alignedAvail
	}

	if toRead == 0 {
		w.holdLastSample(out)
		w.applyGain(out)
		w.onHardUnderrun()
		return EventUnderrun
	}

	w.ring.Read(out[:toRead])
	w.updateLastSample(out[:toRead])
	if toRead < len(out) {
		w.holdLastSample(out[toRead:])
	}
	if w.rampLeft > 0 {
		w.applyRamp(out)
	}
	w.applyGain(out)

	event := EventNone
	if toRead == len(out) {
		w.stableStreak++
		w.softStreak = 0
		if w.awaitingRecover {
			w.awaitingRecover = false
			event = EventRecovered
		}
		if w.stableStreak >= 128 && w.targetPrerollQuanta > w.basePrerollQuanta {
			w.targetPrerollQuanta--
			w.stableStreak = 0
		}
	} else {
		w.stableStreak = 0
		w.softStreak++
		if w.softStreak >= 4 {
			w.bumpTarget()
			w.softStreak = 0
		}
	}
	return event
}

// onHardUnderrun handles a zero-aligned-sample pull (§4.6): bump the
// adaptive target, drop back into priming so the next Pull re-establishes
// the (now larger) buffer before resuming, and arm a one-shot "recovered"
// event for whenever the buffer catches up.
func (w *Worklet) onHardUnderrun() {
	w.bumpTarget()
	w.priming = true
	w.awaitingRecover = true
	w.softStreak = 0
	w.stableStreak = 0
}

func (w *Worklet) bumpTarget() {
	if w.targetPrerollQuanta < w.maxPrerollQuanta {
		w.targetPrerollQuanta++
	}
}

// startRamp arms a linear crossfade from the last-held sample into whatever
// comes out of the ring next, run over rampMs of frames.
func (w *Worklet) startRamp() {
	w.rampTotal = int(w.rampMs * float64(w.sampleRate) / 1000)
	if w.rampTotal < 1 {
		w.rampTotal = 1
	}
	w.rampLeft = w.rampTotal
	w.rampFrom = append(w.rampFrom[:0], w.lastSample...)
}

// applyRamp blends the first rampLeft frames of out from rampFrom toward
// the real signal already written into out.
func (w *Worklet) applyRamp(out []int16) {
	frames := len(out) / w.channels
	for f := 0; f < frames && w.rampLeft > 0; f++ {
		alpha := 1 - float64(w.rampLeft)/float64(w.rampTotal)
		for c := 0; c < w.channels; c++ {
			idx := f*w.channels + c
			blended := float64(w.rampFrom[c])*(1-alpha) + float64(out[idx])*alpha
			out[idx] = int16(blended)
		}
		w.rampLeft--
	}
}

// holdLastSample fills out by repeating the last emitted sample per
// channel, the clickless hold used both for padding a partial quantum and
// for a hard underrun's output.
func (w *Worklet) holdLastSample(out []int16) {
	frames := len(out) / w.channels
	for f := 0; f < frames; f++ {
		copy(out[f*w.channels:(f+1)*w.channels], w.lastSample)
	}
}

// updateLastSample records the final frame of a just-read block as the new
// hold/ramp-from reference.
func (w *Worklet) updateLastSample(read []int16) {
	frames := len(read) / w.channels
	if frames == 0 {
		return
	}
	last := (frames - 1) * w.channels
	copy(w.lastSample, read[last:last+w.channels])
}

func silence(out []int16) {
	for i := range out {
		out[i] = 0
	}
}
