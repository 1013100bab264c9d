package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	touch := EncodeTouch(Touch{Action: 1, X: 0.5, Y: 0.25})
	require.NoError(t, w.WriteFrame(TypeTouch, touch))

	r := NewReader(&buf)
	frame, err := r.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, TypeTouch, FrameTypeOf(frame.Header))
	require.Equal(t, uint32(len(touch)), frame.Header.Length)

	got, err := DecodeTouch(frame.Payload)
	require.NoError(t, err)
	require.Equal(t, uint32(1), got.Action)
	require.InDelta(t, 0.5, got.X, 1e-6)
	require.InDelta(t, 0.25, got.Y, 1e-6)
	r.Release(frame)
}

func TestReaderPropagatesShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3}))
	_, err := r.ReadFrame()
	require.Error(t, err)
}

func TestReaderRejectsOversizedPayload(t *testing.T) {
	hdr := NewFrameHeader(TypeVideoData, MaxPayload+1)
	hb, err := hdr.Encode()
	require.NoError(t, err)
	r := NewReader(bytes.NewReader(hb))
	_, err = r.ReadFrame()
	require.Error(t, err)
}

func TestReaderSurfacesEOFOnEmptyStream(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}
