package video

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlink/carbridge/internal/wire"
)

func annexB(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, n...)
	}
	return out
}

// tinySPS is a real baseline-profile SPS NALU (captured from a live H.264
// stream, reused verbatim as a known-good fixture) so ParseSPS exercises
// the actual mediacommon bitstream reader rather than a fabricated blob.
func tinySPS() []byte {
	return []byte{0x67, 0x42, 0x00, 0x1e, 0x96, 0x54, 0x05, 0x01, 0xed, 0x80}
}

func TestDecoderDropsDeltaFramesBeforeKeyframe(t *testing.T) {
	d := NewDecoder()

	// A P-slice only (NALU type 1) with no SPS yet: nothing decoded.
	present, err := d.Observe(wire.VideoData{Data: annexB([]byte{0x41, 0xaa})})
	require.NoError(t, err)
	require.False(t, present)
	require.False(t, d.Configured())
	require.False(t, d.Ready())

	// SPS arrives, then a delta (non-IDR) frame: still not presentable.
	present, err = d.Observe(wire.VideoData{Data: annexB(tinySPS())})
	require.NoError(t, err)
	require.False(t, present)
	require.True(t, d.Configured())
	require.False(t, d.Ready())

	present, err = d.Observe(wire.VideoData{Data: annexB([]byte{0x41, 0xbb})})
	require.NoError(t, err)
	require.False(t, present, "delta frame before the first keyframe must be dropped")
	require.False(t, d.Ready())

	// IDR (NALU type 5) arrives: exactly this access unit is presentable.
	present, err = d.Observe(wire.VideoData{Data: annexB([]byte{0x65, 0xcc})})
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, d.Ready())

	// Every subsequent access unit, including deltas, now presents.
	present, err = d.Observe(wire.VideoData{Data: annexB([]byte{0x41, 0xdd})})
	require.NoError(t, err)
	require.True(t, present)
}

func TestDecoderResetAwaitsFreshSPSIDR(t *testing.T) {
	d := NewDecoder()
	_, _ = d.Observe(wire.VideoData{Data: annexB(tinySPS())})
	_, _ = d.Observe(wire.VideoData{Data: annexB([]byte{0x65, 0xcc})})
	require.True(t, d.Ready())

	d.Reset()
	require.False(t, d.Configured())
	require.False(t, d.Ready())

	present, err := d.Observe(wire.VideoData{Data: annexB([]byte{0x41, 0xee})})
	require.NoError(t, err)
	require.False(t, present, "delta before a new SPS+IDR pair must still be dropped after reset")
}

func TestPendingCellLatestWins(t *testing.T) {
	var cell PendingCell
	_, ok := cell.TakeIfPresent()
	require.False(t, ok)

	cell.Set(Frame{Width: 1})
	cell.Set(Frame{Width: 2}) // overwrites the unread frame

	f, ok := cell.TakeIfPresent()
	require.True(t, ok)
	require.Equal(t, 2, f.Width)

	_, ok = cell.TakeIfPresent()
	require.False(t, ok, "slot must be cleared after a take")
}
