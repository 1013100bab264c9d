// Package wire implements the dongle's byte-exact framing protocol: a fixed
// 16-byte frame header followed by a type-specific payload.
package wire

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/struc"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// HeaderMagic is the constant marker every frame begins with.
const HeaderMagic uint32 = 0x55AA55AA

// HeaderSize is the number of bytes occupied by FrameHeader on the wire.
const HeaderSize = 16

// FrameType identifies the payload that follows a FrameHeader.
type FrameType uint32

const (
	TypeOpened FrameType = iota + 1
	TypeAck
	TypeBoxInfo
	TypeConfig
	TypePlugged
	TypeUnplugged
	TypePhase
	TypeVideoData
	TypeAudioData
	TypeMediaData
	TypeBoxSettings
	TypeCommand
	TypeTouch
	TypeMultiTouch
	TypeKey
	TypeHeartbeat
	TypeBluetooth
	TypeUnknown = FrameType(0xFFFF)
)

// FrameHeader is the fixed-size preamble of every frame on the wire. The
// layout mirrors the vendor protocol observed in real dongle gateways: a
// magic marker, a message type, the payload length, and a checksum that is
// the bitwise complement of Type (a cheap framing sanity check, not a CRC).
type FrameHeader struct {
	Magic    uint32 `struc:"uint32,little"`
	Type     uint32 `struc:"uint32,little"`
	Length   uint32 `struc:"uint32,little"`
	Checksum uint32 `struc:"uint32,little"`
}

// computeChecksum returns the expected checksum for a given frame type.
func computeChecksum(frameType uint32) uint32 {
	return ^frameType
}

// NewFrameHeader builds a header for a payload of the given type and length,
// computing the checksum.
func NewFrameHeader(t FrameType, length uint32) FrameHeader {
	ft := uint32(t)
	return FrameHeader{Magic: HeaderMagic, Type: ft, Length: length, Checksum: computeChecksum(ft)}
}

// Encode serializes the header into exactly HeaderSize bytes.
func (h FrameHeader) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &h); err != nil {
		return nil, carerrors.NewProtocolError("header.encode", err)
	}
	if buf.Len() != HeaderSize {
		return nil, carerrors.NewProtocolError("header.encode", fmt.Errorf("unexpected header size %d", buf.Len()))
	}
	return buf.Bytes(), nil
}

// DecodeFrameHeader parses a HeaderSize-byte slice into a FrameHeader,
// validating the magic marker and checksum.
func DecodeFrameHeader(b []byte) (FrameHeader, error) {
	var h FrameHeader
	if len(b) != HeaderSize {
		return h, carerrors.NewProtocolError("header.decode", fmt.Errorf("short header: %d bytes", len(b)))
	}
	if err := struc.Unpack(bytes.NewReader(b), &h); err != nil {
		return h, carerrors.NewProtocolError("header.decode", err)
	}
	if h.Magic != HeaderMagic {
		return h, carerrors.NewProtocolError("header.decode", fmt.Errorf("bad magic 0x%08x", h.Magic))
	}
	if h.Checksum != computeChecksum(h.Type) {
		return h, carerrors.NewProtocolError("header.decode", fmt.Errorf("checksum mismatch for type %d", h.Type))
	}
	return h, nil
}

// FrameTypeOf reports the typed FrameType, or TypeUnknown for any value this
// build doesn't recognize. The session driver drops frames of an unknown
// type without reporting an error; no frame type is treated as mandatory.
func FrameTypeOf(h FrameHeader) FrameType {
	switch FrameType(h.Type) {
	case TypeOpened, TypeAck, TypeBoxInfo, TypeConfig, TypePlugged, TypeUnplugged, TypePhase, TypeVideoData, TypeAudioData,
		TypeMediaData, TypeBoxSettings, TypeCommand, TypeTouch, TypeMultiTouch, TypeKey, TypeHeartbeat, TypeBluetooth:
		return FrameType(h.Type)
	default:
		return TypeUnknown
	}
}
