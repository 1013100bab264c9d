package usb

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports a coarse attach/detach transition observed by a hotplug
// watcher backend.
type Event int

const (
	EventAttached Event = iota
	EventDetached
)

// Watcher emits Event values as devices come and go from the bus.
type Watcher interface {
	Events() <-chan Event
	Close() error
}

// FSWatcher watches /dev/bus/usb for filesystem changes as a fallback
// hotplug signal on platforms that expose the USB device tree as files
// (notably Linux). It is deliberately poll-free, reusing the teacher's
// fsnotify dependency instead of a libusb hotplug callback, which gousb
// does not expose.
type FSWatcher struct {
	w      *fsnotify.Watcher
	events chan Event
	log    *slog.Logger
}

// NewFSWatcher starts watching root (typically "/dev/bus/usb") for create
// and remove events, translating them into coarse attach/detach signals.
func NewFSWatcher(root string, log *slog.Logger) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	fw := &FSWatcher{w: w, events: make(chan Event, 16), log: log.With("component", "usb_hotplug")}
	go fw.loop()
	return fw, nil
}

func (fw *FSWatcher) loop() {
	defer close(fw.events)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			switch {
			case ev.Has(fsnotify.Create):
				fw.emit(EventAttached)
			case ev.Has(fsnotify.Remove):
				fw.emit(EventDetached)
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.log.Warn("hotplug watcher error", "error", err)
		}
	}
}

func (fw *FSWatcher) emit(e Event) {
	select {
	case fw.events <- e:
	default:
		fw.log.Warn("hotplug event dropped, channel full")
	}
}

// Events implements Watcher.
func (fw *FSWatcher) Events() <-chan Event { return fw.events }

// Close implements Watcher.
func (fw *FSWatcher) Close() error { return fw.w.Close() }

// PollWatcher is the other Watcher backend: a bare retry loop against
// Transport.Open, matching real gateways (cybernik-gocarplay's usbConnect
// retried every two seconds). Used where no filesystem hotplug signal is
// available.
type PollWatcher struct {
	events chan Event
	cancel context.CancelFunc
}

// NewPollWatcher starts WaitForDevice against t, emitting EventAttached each
// time a device is (re)claimed. Between attaches it waits for t to report
// itself closed again before re-probing: Transport.Open assumes it's
// claiming a fresh handle, so calling it again while t is still open would
// either double-claim the interface or leak the existing one.
func NewPollWatcher(ctx context.Context, t *Transport, interval time.Duration) *PollWatcher {
	ctx, cancel := context.WithCancel(ctx)
	pw := &PollWatcher{events: make(chan Event, 4), cancel: cancel}
	go func() {
		defer close(pw.events)
		for {
			if err := WaitForDevice(ctx, t, interval); err != nil {
				return
			}
			select {
			case pw.events <- EventAttached:
			case <-ctx.Done():
				return
			}
			if !pw.waitForClose(ctx, t, interval) {
				return
			}
		}
	}()
	return pw
}

// waitForClose polls t.IsOpen at interval until it reports false (the
// Session has detected a detach and released the device) or ctx is
// cancelled. Returns false if ctx was cancelled first.
func (pw *PollWatcher) waitForClose(ctx context.Context, t *Transport, interval time.Duration) bool {
	for t.IsOpen() {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return true
}

// Events implements Watcher.
func (pw *PollWatcher) Events() <-chan Event { return pw.events }

// Close implements Watcher.
func (pw *PollWatcher) Close() error {
	pw.cancel()
	return nil
}

// usbfsRoot is the Linux usbfs device tree FSWatcher needs; it doesn't
// exist (or isn't a meaningful hotplug signal) on other platforms, so
// OpenWatcher falls back to PollWatcher there.
func usbfsRoot() string {
	if runtime.GOOS == "linux" {
		return "/dev/bus/usb"
	}
	return ""
}

// OpenWatcher selects the lowest-latency hot-plug watcher this host can
// support (§4.2): an fsnotify watch on the usbfs device tree where one
// exists, falling back to the bare-retry PollWatcher everywhere else. This
// mirrors the Video Pipeline's renderer capability probe (internal/video's
// Select): try the better backend first, fall back to the one that always
// works.
func OpenWatcher(ctx context.Context, t *Transport, pollInterval time.Duration, log *slog.Logger) Watcher {
	if root := usbfsRoot(); root != "" {
		if w, err := NewFSWatcher(root, log); err == nil {
			return w
		}
	}
	return NewPollWatcher(ctx, t, pollInterval)
}
