package video

import (
	"github.com/dashlink/carbridge/internal/wire"
)

// Decoder tracks H.264 configuration state across video access units and
// gates presentation per §4.5: nothing is handed to the renderer until an
// SPS has been observed and the first subsequent IDR arrives; delta frames
// before that point are dropped, and a failed decode resets back to
// awaiting the next SPS+IDR pair. The core itself never performs the
// actual pixel decode: decoding to RGBA is the host's job, mirroring the
// dongle's "encoded video out, host decodes" contract in the original
// system (the platform VideoToolbox/MediaCodec-class decoder Select()'s
// renderer probe stands in for here).
type Decoder struct {
	width, height int
	configured    bool
	ready         bool
}

// NewDecoder creates an unconfigured Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Configured reports whether SPS dimensions have been observed yet.
func (d *Decoder) Configured() bool { return d.configured }

// Dimensions returns the last SPS-derived width/height.
func (d *Decoder) Dimensions() (int, int) { return d.width, d.height }

// Ready reports whether the first SPS+IDR pair has been observed, i.e.
// whether the decoder has a valid point to start presenting frames from.
func (d *Decoder) Ready() bool { return d.ready }

// Reset drops back to awaiting a fresh SPS+IDR pair, the recovery path for
// a decode failure on what should have been the first keyframe (§4.5).
func (d *Decoder) Reset() {
	d.configured = false
	d.ready = false
}

// Observe inspects one access unit, updating SPS-derived configuration
// state, and reports whether the pipeline should hand this access unit to
// the renderer: false while awaiting configuration, false for any delta
// frame before the first keyframe after configuration, true for the
// qualifying IDR and everything after.
func (d *Decoder) Observe(msg wire.VideoData) (present bool, err error) {
	nalus, err := wire.SplitAnnexB(msg.Data)
	if err != nil {
		return false, err
	}
	if w, h, ok := wire.ParseSPS(nalus); ok {
		d.width, d.height = w, h
		d.configured = true
	}
	if !d.configured {
		return false, nil
	}
	isIDR := wire.IsIDR(nalus)
	if !d.ready {
		if !isIDR {
			return false, nil
		}
		d.ready = true
	}
	return true, nil
}
