package usb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFSWatcherEmitsAttachAndDetach(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFSWatcher(dir, nopLogger())
	require.NoError(t, err)
	defer w.Close()

	f := dir + "/device0"
	require.NoError(t, writeFile(f))

	select {
	case ev := <-w.Events():
		require.Equal(t, EventAttached, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for attach event")
	}

	require.NoError(t, removeFile(f))

	select {
	case ev := <-w.Events():
		require.Equal(t, EventDetached, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for detach event")
	}
}

func TestPollWatcherStopsOnClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := New()
	defer tr.Close()

	pw := NewPollWatcher(ctx, tr, 10*time.Millisecond)
	require.NoError(t, pw.Close())

	// Events channel should close promptly once cancelled.
	select {
	case _, ok := <-pw.Events():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("expected events channel to close after Close")
	}
}
