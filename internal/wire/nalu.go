package wire

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// SplitAnnexB iterates the Annex-B NALUs contained in an access unit's raw
// bytes, using mediacommon's iterator instead of hand-rolled start-code
// scanning.
func SplitAnnexB(data []byte) ([][]byte, error) {
	nalus, err := h264.AnnexBUnmarshal(data)
	if err != nil {
		return nil, carerrors.NewMediaError("nalu.split", err)
	}
	return nalus, nil
}

// IsIDR reports whether any NALU in the access unit is an IDR slice,
// signalling a decoder-reset point.
func IsIDR(nalus [][]byte) bool {
	for _, n := range nalus {
		if len(n) == 0 {
			continue
		}
		if h264.NALUType(n[0]&0x1F) == h264.NALUTypeIDR {
			return true
		}
	}
	return false
}

// ParseSPS extracts width/height from the first SPS NALU found, if any.
func ParseSPS(nalus [][]byte) (width, height int, ok bool) {
	for _, n := range nalus {
		if len(n) == 0 {
			continue
		}
		if h264.NALUType(n[0]&0x1F) != h264.NALUTypeSPS {
			continue
		}
		var sps h264.SPS
		if err := sps.Unmarshal(n); err != nil {
			return 0, 0, false
		}
		return sps.Width(), sps.Height(), true
	}
	return 0, 0, false
}
