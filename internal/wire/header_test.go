package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	hdr := NewFrameHeader(TypeVideoData, 1400)
	b, err := hdr.Encode()
	require.NoError(t, err)
	require.Len(t, b, HeaderSize)

	got, err := DecodeFrameHeader(b)
	require.NoError(t, err)
	require.Equal(t, hdr, got)
	require.Equal(t, TypeVideoData, FrameTypeOf(got))
}

func TestFrameHeaderGoldenBytes(t *testing.T) {
	// magic=0x55AA55AA, type=8 (TypeVideoData), length=0, checksum=^8, all little-endian.
	golden := []byte{
		0xAA, 0x55, 0xAA, 0x55,
		0x08, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0xF7, 0xFF, 0xFF, 0xFF,
	}
	got, err := DecodeFrameHeader(golden)
	require.NoError(t, err)
	require.Equal(t, uint32(HeaderMagic), got.Magic)
	require.Equal(t, uint32(TypeVideoData), got.Type)
	require.Equal(t, uint32(0), got.Length)
}

func TestFrameHeaderRejectsBadMagic(t *testing.T) {
	b := make([]byte, HeaderSize)
	_, err := DecodeFrameHeader(b)
	require.Error(t, err)
}

func TestFrameHeaderRejectsBadChecksum(t *testing.T) {
	hdr := NewFrameHeader(TypeTouch, 12)
	b, err := hdr.Encode()
	require.NoError(t, err)
	b[12] ^= 0xFF // corrupt checksum byte
	_, err = DecodeFrameHeader(b)
	require.Error(t, err)
}

func TestFrameHeaderRejectsShortInput(t *testing.T) {
	_, err := DecodeFrameHeader([]byte{1, 2, 3})
	require.Error(t, err)
}
