package wire

// Reader/Writer reassemble whole frames from the dongle's byte stream. Unlike
// the teacher's RTMP dechunker, the dongle protocol has no interleaved
// chunk-size negotiation: every frame is a fixed header followed by its
// complete payload, so framing reduces to "read 16 bytes, then Length bytes".

import (
	"fmt"
	"io"

	carerrors "github.com/dashlink/carbridge/internal/errors"
	"github.com/dashlink/carbridge/internal/bufpool"
)

// MaxPayload bounds a single frame's payload to guard against a corrupt
// length field wedging the reader on an enormous allocation.
const MaxPayload = 8 << 20 // 8 MiB, comfortably above one 1080p access unit

// Frame is a decoded header plus its raw payload bytes.
type Frame struct {
	Header  FrameHeader
	Payload []byte
}

// Reader reassembles frames from an underlying byte stream (the USB bulk-in
// endpoint). Not safe for concurrent use; intended for a single reader task.
type Reader struct {
	r       io.Reader
	hdrBuf  [HeaderSize]byte
	pool    *bufpool.Pool
}

// NewReader wraps r for frame-at-a-time decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, pool: bufpool.New()}
}

// ReadFrame blocks until a complete frame has been read, or returns an error.
// A malformed header and an oversized or truncated payload surface as a
// ProtocolError; an IO error while reading the header (a short header or
// io.EOF included) is returned unwrapped so callers can distinguish
// EOF/device-gone conditions at the transport layer.
func (rd *Reader) ReadFrame() (Frame, error) {
	if _, err := io.ReadFull(rd.r, rd.hdrBuf[:]); err != nil {
		return Frame{}, err
	}
	hdr, err := DecodeFrameHeader(rd.hdrBuf[:])
	if err != nil {
		return Frame{}, err
	}
	if hdr.Length > MaxPayload {
		return Frame{}, carerrors.NewProtocolError("frame.read", fmt.Errorf("payload length %d exceeds maximum %d", hdr.Length, MaxPayload))
	}
	payload := rd.pool.Get(int(hdr.Length))
	if hdr.Length > 0 {
		if _, err := io.ReadFull(rd.r, payload); err != nil {
			return Frame{}, carerrors.NewProtocolError("frame.read", err)
		}
	}
	return Frame{Header: hdr, Payload: payload}, nil
}

// Release returns a frame's payload buffer to the pool. Callers must not
// retain references to Payload after calling Release.
func (rd *Reader) Release(f Frame) {
	rd.pool.Put(f.Payload)
}

// Writer serializes frames onto an underlying byte stream (the USB bulk-out
// endpoint).
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for frame-at-a-time encoding.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteFrame encodes and writes a header+payload pair as a single frame.
func (wr *Writer) WriteFrame(t FrameType, payload []byte) error {
	hdr := NewFrameHeader(t, uint32(len(payload)))
	hb, err := hdr.Encode()
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(hb)+len(payload))
	buf = append(buf, hb...)
	buf = append(buf, payload...)
	if _, err := wr.w.Write(buf); err != nil {
		return carerrors.NewTransportError("frame.write", err, false)
	}
	return nil
}
