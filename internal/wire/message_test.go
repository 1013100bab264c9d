package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVideoDataRoundTrip(t *testing.T) {
	v := VideoData{Width: 1280, Height: 720, Flags: 1, Timestamp: 42, Data: []byte{0, 0, 0, 1, 0x65, 0xAA}}
	encoded := EncodeVideoData(v)
	decoded, err := DecodeVideoData(encoded)
	require.NoError(t, err)
	require.Equal(t, v, decoded)
}

func TestDecodeVideoDataToleratesShortPayload(t *testing.T) {
	decoded, err := DecodeVideoData([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, uint32(0), decoded.Width)
	require.Equal(t, []byte{1, 2, 3}, decoded.Data)
}

func TestAudioDataRoundTripWithoutControlBlock(t *testing.T) {
	ad := AudioData{DecodeType: 1, AudioType: 0, Data: []byte{1, 2, 3, 4}}
	decoded, err := DecodeAudioData(EncodeAudioData(ad))
	require.NoError(t, err)
	require.Equal(t, ad, decoded)
	require.False(t, decoded.HasCommand)
	require.False(t, decoded.HasVolume)
}

func TestAudioDataRoundTripWithControlBlock(t *testing.T) {
	ad := AudioData{
		DecodeType: 5, AudioType: uint32(AudioTypeSiri),
		Command: AudioSiriStart, HasCommand: true,
		Volume: 0.75, HasVolume: true,
		VolumeDuration: 250,
		Data:           []byte{9, 9},
	}
	decoded, err := DecodeAudioData(EncodeAudioData(ad))
	require.NoError(t, err)
	require.Equal(t, ad, decoded)
}

func TestDecodeAudioDataRejectsTruncatedControlBlock(t *testing.T) {
	b := []byte{1, 0, audioControlFlag, 0, 1, 2, 3}
	_, err := DecodeAudioData(b)
	require.Error(t, err)
}

func TestMultiTouchRoundTrip(t *testing.T) {
	mt := MultiTouch{Points: []TouchPoint{
		{ID: 0, X: 0.1, Y: 0.2, Action: 0},
		{ID: 1, X: 0.9, Y: 0.8, Action: 1},
	}}
	decoded, err := DecodeMultiTouch(EncodeMultiTouch(mt))
	require.NoError(t, err)
	require.Equal(t, mt, decoded)
}

func TestDecodeMultiTouchRejectsLengthMismatch(t *testing.T) {
	b := EncodeMultiTouch(MultiTouch{Points: []TouchPoint{{ID: 0}}})
	_, err := DecodeMultiTouch(b[:len(b)-1])
	require.Error(t, err)
}

func TestCommandRoundTrip(t *testing.T) {
	c := Command{Value: CommandWifiPair}
	decoded, err := DecodeCommand(EncodeCommand(c))
	require.NoError(t, err)
	require.Equal(t, c, decoded)
}

func TestDecodeAckToleratesEmptyPayload(t *testing.T) {
	ack, err := DecodeAck(nil)
	require.NoError(t, err)
	require.Equal(t, Ack{}, ack)
}

func TestEncodeTouchMatchesByteExactLayout(t *testing.T) {
	b := EncodeTouch(Touch{X: 0.25, Y: 0.5, Action: 0})
	require.Equal(t, []byte{
		0x00, 0x00, 0x80, 0x3E, // 0.25f
		0x00, 0x00, 0x00, 0x3F, // 0.5f
		0x00, 0x00, 0x00, 0x00, // Down=0
	}, b)

	decoded, err := DecodeTouch(b)
	require.NoError(t, err)
	require.Equal(t, Touch{X: 0.25, Y: 0.5, Action: 0}, decoded)
}

func TestEncodeDispatchesDownwardMessageKinds(t *testing.T) {
	ft, payload, err := Encode(Touch{Action: 0, X: 0.25, Y: 0.5})
	require.NoError(t, err)
	require.Equal(t, TypeTouch, ft)
	require.Len(t, payload, 12)

	_, _, err = Encode(Plugged{})
	require.Error(t, err)
}
