// Package demux implements the Media Demultiplexer: it routes decoded wire
// messages to per-category subscriber sinks (video, audio, media metadata,
// command/control), fanning out to every registered sink the way the
// teacher's relay.DestinationManager fans a chunk.Message out to every
// registered Destination.
package demux

import (
	"log/slog"
	"sync"

	"github.com/dashlink/carbridge/internal/wire"
)

// Category distinguishes the four sink kinds a Message can be routed to.
type Category int

const (
	CategoryVideo Category = iota
	CategoryAudio
	CategoryMedia
	CategoryCommand
)

// Sink receives every message routed to its category. Implementations must
// not block indefinitely: Route runs each sink in its own goroutine but
// waits for all of them before returning, so a slow sink delays every later
// Route call, whatever its category.
type Sink interface {
	Dispatch(msg wire.Message)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(wire.Message)

// Dispatch implements Sink.
func (f SinkFunc) Dispatch(msg wire.Message) { f(msg) }

// Demultiplexer fans out decoded messages to all sinks registered for the
// message's category.
type Demultiplexer struct {
	mu    sync.RWMutex
	sinks map[Category][]Sink
	log   *slog.Logger
}

// New creates an empty Demultiplexer.
func New(log *slog.Logger) *Demultiplexer {
	return &Demultiplexer{
		sinks: make(map[Category][]Sink),
		log:   log.With("component", "demux"),
	}
}

// Register adds a sink for the given category. Safe to call concurrently
// with Route.
func (d *Demultiplexer) Register(cat Category, s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[cat] = append(d.sinks[cat], s)
}

// categoryOf maps a decoded message to its demux category.
func categoryOf(msg wire.Message) (Category, bool) {
	switch msg.(type) {
	case wire.VideoData:
		return CategoryVideo, true
	case wire.AudioData:
		return CategoryAudio, true
	case wire.MediaData, wire.BoxSettings:
		return CategoryMedia, true
	case wire.Plugged, wire.Unplugged, wire.Phase, wire.Opened, wire.Ack, wire.BoxInfo,
		wire.Command, wire.Touch, wire.MultiTouch, wire.Key, wire.Heartbeat:
		return CategoryCommand, true
	default:
		return 0, false
	}
}

// Route dispatches msg to every sink registered for its category, in
// parallel, waiting for all of them before returning so message ordering
// within a category is preserved across Route calls (mirroring the
// teacher's synchronous wg.Wait() relay fan-out).
func (d *Demultiplexer) Route(msg wire.Message) {
	cat, ok := categoryOf(msg)
	if !ok {
		d.log.Debug("dropping message with no demux category", "type", msg.FrameType())
		return
	}

	d.mu.RLock()
	sinks := append([]Sink(nil), d.sinks[cat]...)
	d.mu.RUnlock()

	if len(sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()
			sink.Dispatch(msg)
		}(s)
	}
	wg.Wait()
}
