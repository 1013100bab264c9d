package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlink/carbridge/internal/wire"
)

func nopForceReset(context.Context) error { return nil }

func TestSurfacePublishAndDrain(t *testing.T) {
	s := NewSurface(func(wire.Message) error { return nil }, nopForceReset)
	s.Publish(wire.Plugged{Phone: wire.PhoneTypeCarPlay})

	ev := <-s.Events()
	plugged, ok := ev.Message.(wire.Plugged)
	require.True(t, ok)
	require.Equal(t, wire.PhoneTypeCarPlay, plugged.Phone)
}

func TestSurfacePublishDropsWhenFull(t *testing.T) {
	s := NewSurface(func(wire.Message) error { return nil }, nopForceReset)
	for i := 0; i < cap(s.events)+8; i++ {
		s.Publish(wire.Unplugged{})
	}
	require.Len(t, s.events, cap(s.events), "Publish must drop rather than block when the event channel is full")
}

func TestSurfaceCommandsInvokeSend(t *testing.T) {
	var sent []wire.Message
	s := NewSurface(func(m wire.Message) error {
		sent = append(sent, m)
		return nil
	}, nopForceReset)

	require.NoError(t, s.Touch(wire.Touch{X: 0.25, Y: 0.5, Action: 0}))
	require.NoError(t, s.Key(uint32(1)))
	require.NoError(t, s.Command(wire.CommandWifiPair))
	require.Len(t, sent, 3)
}

func TestSurfaceCloseClosesEventChannel(t *testing.T) {
	s := NewSurface(func(wire.Message) error { return nil }, nopForceReset)
	s.Close()

	_, ok := <-s.Events()
	require.False(t, ok)
}

func TestSurfaceForceResetInvokesCallback(t *testing.T) {
	called := false
	s := NewSurface(func(wire.Message) error { return nil }, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, s.ForceReset(context.Background()))
	require.True(t, called)
}
