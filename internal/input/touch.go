// Package input adapts host pointer/button events into wire messages ready
// for the writer queue, applying the normalization the dongle expects
// (coordinates in [0, 1], monotonically increasing action codes).
package input

import (
	"math"
	"sort"

	"github.com/dashlink/carbridge/internal/wire"
)

// TouchAction mirrors the down/move/up action codes the dongle expects.
type TouchAction uint32

const (
	ActionDown TouchAction = iota
	ActionMove
	ActionUp
)

// Encoder converts normalized host coordinates into wire touch messages and
// tracks active multi-touch pointers for full-frame snapshot encoding.
type Encoder struct {
	screenWidth, screenHeight float64

	tracker multiTouchTracker
}

// NewEncoder creates an Encoder for a screen of the given pixel dimensions.
func NewEncoder(width, height int) *Encoder {
	return &Encoder{
		screenWidth:  float64(width),
		screenHeight: float64(height),
		tracker:      multiTouchTracker{slots: make(map[int]point)},
	}
}

// Touch converts a pixel-space coordinate and action into a wire.Touch
// message with X/Y normalized to [0, 1]. NaN/infinite inputs clamp to 0
// (§4.8).
func (e *Encoder) Touch(action TouchAction, px, py float64) wire.Touch {
	x := normalize(px, e.screenWidth)
	y := normalize(py, e.screenHeight)
	return wire.Touch{Action: uint32(action), X: float32(x), Y: float32(y)}
}

// MultiTouch records a pointer update identified by pointerID and returns
// the full-frame snapshot (§4.8) to send: every currently active pointer
// with its current coordinates, the changed pointer carrying action, and
// every other active pointer carrying ActionMove. A Down allocates (or
// reuses) a small non-negative slot id for pointerID; an Up releases it
// after the snapshot is built, making the slot available to the next Down.
func (e *Encoder) MultiTouch(pointerID int, action TouchAction, px, py float64) wire.MultiTouch {
	x := normalize(px, e.screenWidth)
	y := normalize(py, e.screenHeight)

	if action == ActionDown {
		e.tracker.acquire(pointerID)
	}
	e.tracker.update(pointerID, point{x: x, y: y})

	snapshot := e.tracker.snapshot(pointerID, action)

	if action == ActionUp {
		e.tracker.release(pointerID)
	}
	return snapshot
}

func normalize(v, extent float64) float64 {
	if extent == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return clamp01(v / extent)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

type point struct{ x, y float64 }

// multiTouchTracker assigns small, reusable, non-negative slot ids to
// concurrently active pointers and produces the full-frame snapshot each
// update requires (§4.8).
type multiTouchTracker struct {
	slots    map[int]point // slot id -> current position
	pointers map[int]int   // host pointer id -> slot id
}

func (t *multiTouchTracker) acquire(pointerID int) int {
	if t.pointers == nil {
		t.pointers = make(map[int]int)
	}
	if slot, ok := t.pointers[pointerID]; ok {
		return slot
	}
	slot := t.nextFreeSlot()
	t.pointers[pointerID] = slot
	t.slots[slot] = point{}
	return slot
}

// nextFreeSlot returns the smallest non-negative integer not currently
// assigned to an active pointer.
func (t *multiTouchTracker) nextFreeSlot() int {
	for slot := 0; ; slot++ {
		if _, taken := t.slots[slot]; !taken {
			return slot
		}
	}
}

func (t *multiTouchTracker) update(pointerID int, p point) {
	slot, ok := t.pointers[pointerID]
	if !ok {
		return
	}
	t.slots[slot] = p
}

func (t *multiTouchTracker) release(pointerID int) {
	slot, ok := t.pointers[pointerID]
	if !ok {
		return
	}
	delete(t.slots, slot)
	delete(t.pointers, pointerID)
}

// snapshot renders every active slot as a wire.TouchPoint, overriding
// action for the slot belonging to pointerID and reporting ActionMove for
// every other slot, in ascending slot-id order for deterministic framing.
func (t *multiTouchTracker) snapshot(pointerID int, action TouchAction) wire.MultiTouch {
	changedSlot, hasChanged := t.pointers[pointerID]

	ids := make([]int, 0, len(t.slots))
	for slot := range t.slots {
		ids = append(ids, slot)
	}
	sort.Ints(ids)

	points := make([]wire.TouchPoint, 0, len(ids))
	for _, slot := range ids {
		p := t.slots[slot]
		act := uint32(ActionMove)
		if hasChanged && slot == changedSlot {
			act = uint32(action)
		}
		points = append(points, wire.TouchPoint{ID: uint32(slot), X: float32(p.x), Y: float32(p.y), Action: act})
	}
	return wire.MultiTouch{Points: points}
}
