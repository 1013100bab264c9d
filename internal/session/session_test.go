package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dashlink/carbridge/internal/config"
	"github.com/dashlink/carbridge/internal/demux"
	"github.com/dashlink/carbridge/internal/wire"
)

func nopLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestAdvanceFSMDrivesFullHandshake(t *testing.T) {
	cfg := config.Config{PairTimeout: 15 * time.Second, Dongle: config.DefaultDongleConfig()}
	d := New(cfg, demux.New(nopLogger()), nopLogger())
	require.NoError(t, d.fsm.Open())
	require.Equal(t, StateOpened, d.fsm.State())

	ctx := context.Background()

	d.advanceFSM(ctx, wire.Plugged{Phone: wire.PhoneTypeCarPlay})
	require.Equal(t, StateOpened, d.fsm.State())
	require.EqualValues(t, wire.PhoneTypeCarPlay, d.phone.Load())

	d.advanceFSM(ctx, wire.Opened{})
	require.Equal(t, StateInitialised, d.fsm.State())
	select {
	case item := <-d.writeQueue:
		require.Equal(t, wire.TypeConfig, item.frameType)
	default:
		t.Fatal("expected a config push on the write queue")
	}

	d.advanceFSM(ctx, wire.BoxInfo{Serial: "SN1"})
	require.Equal(t, StateConfigured, d.fsm.State())
	select {
	case item := <-d.writeQueue:
		require.Equal(t, wire.TypeCommand, item.frameType)
		cmd, err := wire.DecodeCommand(item.payload)
		require.NoError(t, err)
		require.Equal(t, wire.CommandStart, cmd.Value)
	default:
		t.Fatal("expected a start command on the write queue")
	}

	d.advanceFSM(ctx, wire.VideoData{Width: 1280, Height: 720})
	require.Equal(t, StateStreaming, d.fsm.State())
	require.True(t, d.mediaSeen.Load())
}

func TestAdvanceFSMIgnoresBoxInfoBeforeInitialised(t *testing.T) {
	cfg := config.Config{PairTimeout: 15 * time.Second, Dongle: config.DefaultDongleConfig()}
	d := New(cfg, demux.New(nopLogger()), nopLogger())
	require.NoError(t, d.fsm.Open())

	d.advanceFSM(context.Background(), wire.BoxInfo{})
	require.Equal(t, StateOpened, d.fsm.State())
}

func TestAdvanceFSMUnpluggedClosesFromAnyState(t *testing.T) {
	cfg := config.Config{PairTimeout: 15 * time.Second, Dongle: config.DefaultDongleConfig()}
	d := New(cfg, demux.New(nopLogger()), nopLogger())
	require.NoError(t, d.fsm.Open())

	d.advanceFSM(context.Background(), wire.Unplugged{})
	require.Equal(t, StateClosed, d.fsm.State())
}
