package wire

import (
	"encoding/binary"
	"fmt"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// DongleConfigPayload is the subset of config.DongleConfig's fields needed
// on the wire for SendConfig (§4.3): the scalar fields fixed-width, then
// CarName and OEMName as length-prefixed UTF-8 strings. Icon blobs and the
// per-phone frame-interval table are host-side scheduling state, not part
// of the dongle-facing config push.
type DongleConfigPayload struct {
	Width, Height         uint32
	FPS, DPI              uint32
	Format, IBoxVersion   uint32
	PhoneWorkMode         uint32
	PacketMax             uint32
	MediaDelayMs          uint32
	AudioTransferMode     bool
	WifiType, WifiChannel uint32
	CarName, OEMName      string
}

// EncodeDongleConfig serializes a DongleConfigPayload into the SendConfig
// frame body: 11 little-endian uint32 scalars, a bool byte, then two
// length-prefixed (u32 length + UTF-8 bytes) strings.
func EncodeDongleConfig(c DongleConfigPayload) []byte {
	scalars := []uint32{
		c.Width, c.Height, c.FPS, c.DPI, c.Format, c.IBoxVersion,
		c.PhoneWorkMode, c.PacketMax, c.MediaDelayMs, c.WifiType, c.WifiChannel,
	}
	size := 4*len(scalars) + 1 + 4 + len(c.CarName) + 4 + len(c.OEMName)
	out := make([]byte, size)
	off := 0
	for _, v := range scalars {
		binary.LittleEndian.PutUint32(out[off:off+4], v)
		off += 4
	}
	if c.AudioTransferMode {
		out[off] = 1
	}
	off++
	off = putString(out, off, c.CarName)
	off = putString(out, off, c.OEMName)
	return out
}

func putString(out []byte, off int, s string) int {
	binary.LittleEndian.PutUint32(out[off:off+4], uint32(len(s)))
	off += 4
	copy(out[off:], s)
	return off + len(s)
}

// getString reads a length-prefixed (u32 length + UTF-8 bytes) string
// starting at off, returning the string and the offset of the byte
// following it.
func getString(b []byte, off int) (string, int, error) {
	if off+4 > len(b) {
		return "", 0, fmt.Errorf("truncated string length at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	if off+n > len(b) {
		return "", 0, fmt.Errorf("truncated string body at offset %d (want %d bytes)", off, n)
	}
	return string(b[off : off+n]), off + n, nil
}

// EncodeBoxInfo serializes a BoxInfo payload, the inverse of DecodeBoxInfo.
// Only used by tests; the dongle, not CarBridge, originates BoxInfo on the
// wire.
func EncodeBoxInfo(bi BoxInfo) []byte {
	size := 4 + len(bi.Serial) + 4 + len(bi.Manufacturer) + 4 + len(bi.Product) + 4 + len(bi.FWVersion)
	out := make([]byte, size)
	off := putString(out, 0, bi.Serial)
	off = putString(out, off, bi.Manufacturer)
	off = putString(out, off, bi.Product)
	putString(out, off, bi.FWVersion)
	return out
}

// DecodeBoxInfo parses a BoxInfo payload: four length-prefixed UTF-8
// strings (serial, manufacturer, product, firmware version), in that
// order, mirroring EncodeDongleConfig's string framing.
func DecodeBoxInfo(b []byte) (BoxInfo, error) {
	var bi BoxInfo
	off := 0
	var err error
	if bi.Serial, off, err = getString(b, off); err != nil {
		return BoxInfo{}, carerrors.NewProtocolError("boxinfo.decode", err)
	}
	if bi.Manufacturer, off, err = getString(b, off); err != nil {
		return BoxInfo{}, carerrors.NewProtocolError("boxinfo.decode", err)
	}
	if bi.Product, off, err = getString(b, off); err != nil {
		return BoxInfo{}, carerrors.NewProtocolError("boxinfo.decode", err)
	}
	if bi.FWVersion, _, err = getString(b, off); err != nil {
		return BoxInfo{}, carerrors.NewProtocolError("boxinfo.decode", err)
	}
	return bi, nil
}
