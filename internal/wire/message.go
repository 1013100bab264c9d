package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// PhoneType classifies the connected handset, carried on Plugged.
type PhoneType uint32

const (
	PhoneTypeUnknown PhoneType = iota
	PhoneTypeCarPlay
	PhoneTypeIPhoneMirror
	PhoneTypeAndroidAuto
	PhoneTypeAndroidMirror
	PhoneTypeHiCar
)

// CommandValue enumerates the closed set of u32 command codes carried by a
// Command message, in either direction: dongle-reported UI events upward,
// or driver-issued commands downward (e.g. wifiPair on pair-timeout).
type CommandValue uint32

const (
	CommandUnknown CommandValue = iota
	CommandStart
	CommandStop
	CommandWifiPair
	CommandFrameHeartbeat
	CommandSiriStart
	CommandSiriStop
	CommandHome
	CommandBack
	CommandMute
)

// AudioCommand enumerates the in-band audio control codes carried in an
// AudioData control block (§4.6).
type AudioCommand uint32

const (
	AudioCommandNone AudioCommand = iota
	AudioSiriStart
	AudioSiriStop
	AudioPhonecallStart
	AudioPhonecallStop
	AudioNaviStart
	AudioNaviStop
	AudioMediaStart
	AudioMediaStop
)

// AudioType classifies the stream an AudioData block belongs to.
type AudioType uint32

const (
	AudioTypeMusic AudioType = iota
	AudioTypePrompt
	AudioTypeNavStart
	AudioTypeNavContinue
	AudioTypeCall
	AudioTypeSiri
)

// IsNav reports whether t is one of the navigation stream types, which get
// their own volume channel per §4.6.
func (t AudioType) IsNav() bool { return t == AudioTypeNavStart || t == AudioTypeNavContinue }

// Message is implemented by every typed payload this package decodes.
type Message interface {
	FrameType() FrameType
}

// Plugged reports a handset attach and its coarse identity.
type Plugged struct {
	Phone PhoneType
}

func (Plugged) FrameType() FrameType { return TypePlugged }

// Unplugged reports a handset detach. It carries no fields.
type Unplugged struct{}

func (Unplugged) FrameType() FrameType { return TypeUnplugged }

// Phase is a coarse connection-phase signal distinct from the session FSM's
// own states, passed through for host diagnostics.
type Phase struct {
	Value uint32
}

func (Phase) FrameType() FrameType { return TypePhase }

// Opened acknowledges the driver's "initialise" opcode sequence, the
// handshake signal the FSM awaits for Opened -> Initialised.
type Opened struct{}

func (Opened) FrameType() FrameType { return TypeOpened }

// Ack is a generic acknowledgement the dongle sends for a subset of
// driver-issued control frames during the handshake.
type Ack struct {
	Value uint32
}

func (Ack) FrameType() FrameType { return TypeAck }

// BoxInfo reports the dongle's identity, awaited by the FSM for
// Initialised -> Configured once SendConfig has been pushed.
type BoxInfo struct {
	Serial       string
	Manufacturer string
	Product      string
	FWVersion    string
}

func (BoxInfo) FrameType() FrameType { return TypeBoxInfo }

// VideoData is one encoded access unit (commonly one or more Annex-B NALUs),
// decoded from the wire's [vendorHeader:20][Annex-B NALUs] payload layout.
type VideoData struct {
	Width, Height uint32
	Flags         uint32
	Timestamp     uint32
	Data          []byte
}

func (VideoData) FrameType() FrameType { return TypeVideoData }

// videoHeaderSize is the vendor's fixed preamble before the Annex-B stream:
// width, height, flags, timestamp, and one reserved uint32 (§4.1, §6).
const videoHeaderSize = 20

// DecodeVideoData parses a VideoData payload, stripping the 20-byte vendor
// header. A payload shorter than the header is taken as a bare NALU stream
// and returned with zeroed dimensions rather than failing; any longer
// payload is assumed to start with the header.
func DecodeVideoData(b []byte) (VideoData, error) {
	if len(b) < videoHeaderSize {
		return VideoData{Data: append([]byte(nil), b...)}, nil
	}
	return VideoData{
		Width:     binary.LittleEndian.Uint32(b[0:4]),
		Height:    binary.LittleEndian.Uint32(b[4:8]),
		Flags:     binary.LittleEndian.Uint32(b[8:12]),
		Timestamp: binary.LittleEndian.Uint32(b[12:16]),
		Data:      b[videoHeaderSize:],
	}, nil
}

// EncodeVideoData serializes a VideoData back into its wire layout
// (vendor header plus NALU stream), the inverse of DecodeVideoData.
func EncodeVideoData(v VideoData) []byte {
	out := make([]byte, videoHeaderSize+len(v.Data))
	binary.LittleEndian.PutUint32(out[0:4], v.Width)
	binary.LittleEndian.PutUint32(out[4:8], v.Height)
	binary.LittleEndian.PutUint32(out[8:12], v.Flags)
	binary.LittleEndian.PutUint32(out[12:16], v.Timestamp)
	copy(out[videoHeaderSize:], v.Data)
	return out
}

// audioControlFlag marks the presence of the optional command/volume/
// duration control block in an AudioData payload (§6: "optional control
// block"). CarBridge resolves the layout ambiguity left open by spec.md by
// reserving byte 2 of the fixed header as this flag, following the same
// "byte-exact §6 wins, firmware variants are noted, not silently adopted"
// convention SPEC_FULL.md applies to the touch coordinate convention.
const audioControlFlag = 0x01

// audioFixedHeaderSize is decodeType + audioType + flags + reserved.
const audioFixedHeaderSize = 4

// audioControlBlockSize is command:u32 + volume:f32 + durationMs:u32.
const audioControlBlockSize = 12

// AudioData is one block of audio frames, tagged with its decode format and
// carrying an optional in-band command/volume control block.
type AudioData struct {
	DecodeType     uint32
	AudioType      uint32
	Command        AudioCommand
	HasCommand     bool
	Volume         float32
	HasVolume      bool
	VolumeDuration uint32
	Data           []byte
}

func (AudioData) FrameType() FrameType { return TypeAudioData }

// DecodeAudioData parses an AudioData payload per §6's byte layout.
func DecodeAudioData(b []byte) (AudioData, error) {
	if len(b) < audioFixedHeaderSize {
		return AudioData{}, carerrors.NewProtocolError("audio.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	ad := AudioData{
		DecodeType: uint32(b[0]),
		AudioType:  uint32(b[1]),
	}
	flags := b[2]
	rest := b[audioFixedHeaderSize:]
	if flags&audioControlFlag != 0 {
		if len(rest) < audioControlBlockSize {
			return AudioData{}, carerrors.NewProtocolError("audio.decode", fmt.Errorf("truncated control block: %d bytes", len(rest)))
		}
		ad.Command = AudioCommand(binary.LittleEndian.Uint32(rest[0:4]))
		ad.HasCommand = true
		ad.Volume = math.Float32frombits(binary.LittleEndian.Uint32(rest[4:8]))
		ad.HasVolume = true
		ad.VolumeDuration = binary.LittleEndian.Uint32(rest[8:12])
		rest = rest[audioControlBlockSize:]
	}
	ad.Data = rest
	return ad, nil
}

// EncodeAudioData serializes an AudioData back into its wire layout, the
// inverse of DecodeAudioData.
func EncodeAudioData(ad AudioData) []byte {
	hasControl := ad.HasCommand || ad.HasVolume
	size := audioFixedHeaderSize + len(ad.Data)
	if hasControl {
		size += audioControlBlockSize
	}
	out := make([]byte, size)
	out[0] = byte(ad.DecodeType)
	out[1] = byte(ad.AudioType)
	if hasControl {
		out[2] = audioControlFlag
	}
	off := audioFixedHeaderSize
	if hasControl {
		binary.LittleEndian.PutUint32(out[off:off+4], uint32(ad.Command))
		binary.LittleEndian.PutUint32(out[off+4:off+8], math.Float32bits(ad.Volume))
		binary.LittleEndian.PutUint32(out[off+8:off+12], ad.VolumeDuration)
		off += audioControlBlockSize
	}
	copy(out[off:], ad.Data)
	return out
}

// MediaData carries now-playing metadata (title/artist/app) as an opaque
// passthrough envelope; the core never parses or persists it.
type MediaData struct {
	Payload []byte
}

func (MediaData) FrameType() FrameType { return TypeMediaData }

// BoxSettings is an opaque settings blob emitted by the dongle, distinct
// from the host-pushed DongleConfig.
type BoxSettings struct {
	Payload []byte
}

func (BoxSettings) FrameType() FrameType { return TypeBoxSettings }

// Command is a single u32 enum event, carried in either direction (§4.8,
// §6). The driver emits CommandWifiPair downward on pair-timeout; the
// dongle reports UI/media-transport events upward using the same shape.
type Command struct {
	Value CommandValue
}

func (Command) FrameType() FrameType { return TypeCommand }

// Touch is a single pointer event. X/Y are normalized to [0, 1] per the
// wire's byte-exact f32 layout (see SPEC_FULL.md on the uint32*10000
// convention some firmware variants use instead).
type Touch struct {
	Action uint32
	X, Y   float32
}

func (Touch) FrameType() FrameType { return TypeTouch }

// TouchPoint is one pointer's state within a MultiTouch full-frame
// snapshot.
type TouchPoint struct {
	ID     uint32
	X, Y   float32
	Action uint32
}

// MultiTouch is a full-frame snapshot of every currently active pointer
// (§4.8): every update carries all active pointers, not just the one whose
// state changed.
type MultiTouch struct {
	Points []TouchPoint
}

func (MultiTouch) FrameType() FrameType { return TypeMultiTouch }

// Key is a single button/remote event.
type Key struct {
	Code uint32
}

func (Key) FrameType() FrameType { return TypeKey }

// Heartbeat carries no payload; it exists purely to keep the link alive.
type Heartbeat struct{}

func (Heartbeat) FrameType() FrameType { return TypeHeartbeat }

// EncodeTouch serializes a Touch payload (12 bytes: x, y, action per §6).
func EncodeTouch(t Touch) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(t.X))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(t.Y))
	binary.LittleEndian.PutUint32(b[8:12], t.Action)
	return b
}

// DecodeTouch parses a Touch payload.
func DecodeTouch(b []byte) (Touch, error) {
	if len(b) != 12 {
		return Touch{}, carerrors.NewProtocolError("touch.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	return Touch{
		X:      math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Y:      math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		Action: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// EncodeMultiTouch serializes a MultiTouch payload: {count:u32,
// [{id:u32, x:f32, y:f32, action:u32}]}.
func EncodeMultiTouch(mt MultiTouch) []byte {
	b := make([]byte, 4+16*len(mt.Points))
	binary.LittleEndian.PutUint32(b[0:4], uint32(len(mt.Points)))
	off := 4
	for _, p := range mt.Points {
		binary.LittleEndian.PutUint32(b[off:off+4], p.ID)
		binary.LittleEndian.PutUint32(b[off+4:off+8], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(b[off+8:off+12], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(b[off+12:off+16], p.Action)
		off += 16
	}
	return b
}

// DecodeMultiTouch parses a MultiTouch payload.
func DecodeMultiTouch(b []byte) (MultiTouch, error) {
	if len(b) < 4 {
		return MultiTouch{}, carerrors.NewProtocolError("multitouch.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	count := binary.LittleEndian.Uint32(b[0:4])
	want := 4 + 16*int(count)
	if len(b) != want {
		return MultiTouch{}, carerrors.NewProtocolError("multitouch.decode", fmt.Errorf("length mismatch: have %d want %d", len(b), want))
	}
	points := make([]TouchPoint, count)
	off := 4
	for i := range points {
		points[i] = TouchPoint{
			ID:     binary.LittleEndian.Uint32(b[off : off+4]),
			X:      math.Float32frombits(binary.LittleEndian.Uint32(b[off+4 : off+8])),
			Y:      math.Float32frombits(binary.LittleEndian.Uint32(b[off+8 : off+12])),
			Action: binary.LittleEndian.Uint32(b[off+12 : off+16]),
		}
		off += 16
	}
	return MultiTouch{Points: points}, nil
}

// EncodeKey serializes a Key payload (4 bytes).
func EncodeKey(k Key) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, k.Code)
	return b
}

// DecodeKey parses a Key payload.
func DecodeKey(b []byte) (Key, error) {
	if len(b) != 4 {
		return Key{}, carerrors.NewProtocolError("key.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	return Key{Code: binary.LittleEndian.Uint32(b)}, nil
}

// EncodeCommand serializes a Command payload (4 bytes).
func EncodeCommand(c Command) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(c.Value))
	return b
}

// DecodeCommand parses a Command payload.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) != 4 {
		return Command{}, carerrors.NewProtocolError("command.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	return Command{Value: CommandValue(binary.LittleEndian.Uint32(b))}, nil
}

// DecodePlugged parses a Plugged payload (4-byte phone type). An empty
// legacy payload implies PhoneTypeCarPlay; a non-empty payload shorter than
// 4 bytes is a ProtocolError.
func DecodePlugged(b []byte) (Plugged, error) {
	if len(b) == 0 {
		return Plugged{Phone: PhoneTypeCarPlay}, nil
	}
	if len(b) < 4 {
		return Plugged{}, carerrors.NewProtocolError("plugged.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	return Plugged{Phone: PhoneType(binary.LittleEndian.Uint32(b[0:4]))}, nil
}

// DecodePhase parses a Phase payload.
func DecodePhase(b []byte) (Phase, error) {
	if len(b) != 4 {
		return Phase{}, carerrors.NewProtocolError("phase.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	return Phase{Value: binary.LittleEndian.Uint32(b)}, nil
}

// DecodeAck parses an Ack payload, tolerant of a zero-length ack with no
// value (some handshake acks carry no body).
func DecodeAck(b []byte) (Ack, error) {
	if len(b) == 0 {
		return Ack{}, nil
	}
	if len(b) != 4 {
		return Ack{}, carerrors.NewProtocolError("ack.decode", fmt.Errorf("short payload: %d bytes", len(b)))
	}
	return Ack{Value: binary.LittleEndian.Uint32(b)}, nil
}

// Encode serializes a downward Message into its wire frame type and
// payload, the inverse of the Driver's decodeMessage. Only the message
// kinds the host ever pushes downward (touch, multi-touch, key, command,
// audio control) are supported; anything else is a programmer error.
func Encode(msg Message) (FrameType, []byte, error) {
	switch m := msg.(type) {
	case Touch:
		return TypeTouch, EncodeTouch(m), nil
	case MultiTouch:
		return TypeMultiTouch, EncodeMultiTouch(m), nil
	case Key:
		return TypeKey, EncodeKey(m), nil
	case Command:
		return TypeCommand, EncodeCommand(m), nil
	case AudioData:
		return TypeAudioData, EncodeAudioData(m), nil
	default:
		return 0, nil, carerrors.NewProtocolError("wire.encode", fmt.Errorf("unsupported downward message type %T", msg))
	}
}
