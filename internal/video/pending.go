package video

import "sync"

// PendingCell is the single-slot latest-wins hand-off between the video
// decode task and the render task (§4.4, §4.5): a frame that arrives before
// the previous one was drawn overwrites it ("closing the previous one"),
// and the render loop only ever presents the freshest decoded picture.
type PendingCell struct {
	mu    sync.Mutex
	frame *Frame
}

// Set stores f, discarding whatever frame (if any) hadn't yet been drawn.
func (c *PendingCell) Set(f Frame) {
	c.mu.Lock()
	c.frame = &f
	c.mu.Unlock()
}

// TakeIfPresent returns the pending frame and clears the slot, reporting
// ok=false if nothing is pending.
func (c *PendingCell) TakeIfPresent() (f Frame, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return Frame{}, false
	}
	f, c.frame = *c.frame, nil
	return f, true
}
