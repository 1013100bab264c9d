package audio

import (
	"log/slog"

	"github.com/gordonklaus/portaudio"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// Player drains a Ring into the host's default output device through a
// Worklet, mirroring the callback-driven portaudio setup the teacher pack
// uses for microphone capture (richinsley-goshadertoy's audio.Microphone),
// but as a consumer rather than a producer, and with the priming/ramp/
// adaptive-preroll logic §4.6 specifies sitting between the ring and the
// portaudio callback.
type Player struct {
	stream  *portaudio.Stream
	worklet *Worklet
	key     PcmStreamKey
	log     *slog.Logger
}

// NewPlayer opens a portaudio output stream matching format, draining ring
// through a Worklet, and logging underrun/recovered transitions tagged
// with key.
func NewPlayer(key PcmStreamKey, format StreamFormat, ring *Ring, log *slog.Logger) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, carerrors.NewMediaError("audio.player.init", err)
	}
	p := &Player{
		worklet: NewWorklet(ring, format.Channels, format.SampleRate),
		key:     key,
		log:     log.With("component", "audio_player", "stream_key", key.String()),
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		portaudio.Terminate()
		return nil, carerrors.NewMediaError("audio.player.hostapi", err)
	}

	params := portaudio.LowLatencyParameters(nil, host.DefaultOutputDevice)
	params.Output.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = FramesPerQuantum

	stream, err := portaudio.OpenStream(params, p.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, carerrors.NewMediaError("audio.player.open", err)
	}
	p.stream = stream
	return p, nil
}

// callback is invoked on the audio-driver thread once per render quantum;
// it must never block, which Worklet.Pull guarantees.
func (p *Player) callback(out []int16) {
	switch p.worklet.Pull(out) {
	case EventUnderrun:
		p.log.Warn("audio underrun", "target_preroll_quanta", p.worklet.TargetPrerollQuanta())
	case EventRecovered:
		p.log.Debug("audio recovered after underrun")
	}
}

// Start begins playback.
func (p *Player) Start() error {
	if err := p.stream.Start(); err != nil {
		return carerrors.NewMediaError("audio.player.start", err)
	}
	return nil
}

// Stop halts playback and releases portaudio resources.
func (p *Player) Stop() error {
	if err := p.stream.Close(); err != nil {
		portaudio.Terminate()
		return carerrors.NewMediaError("audio.player.stop", err)
	}
	return portaudio.Terminate()
}

// SetVolume schedules a linear volume ramp over durationMs, applied inside
// the Worklet directly to the PCM samples it emits (portaudio itself has no
// per-stream gain control).
func (p *Player) SetVolume(target float32, durationMs float32) {
	p.worklet.SetGain(target, durationMs)
}

// SetPrerollMs and SetRampMs forward a volume-channel control message's
// preroll/ramp parameter change to the Worklet (§4.6's "Volume change
// message" case).
func (p *Player) SetPrerollMs(ms float64) { p.worklet.SetPrerollMs(ms) }
func (p *Player) SetRampMs(ms float64)    { p.worklet.SetRampMs(ms) }
