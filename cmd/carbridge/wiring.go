package main

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/dashlink/carbridge/internal/audio"
	"github.com/dashlink/carbridge/internal/config"
	"github.com/dashlink/carbridge/internal/control"
	"github.com/dashlink/carbridge/internal/demux"
	"github.com/dashlink/carbridge/internal/session"
	"github.com/dashlink/carbridge/internal/video"
	"github.com/dashlink/carbridge/internal/wire"
)

// micDecodeType / micAudioType tag the wire.AudioData frames CarBridge
// frames itself and submits upward for the captured microphone stream
// (§4.7). DecodeType 5 is the registry's 16kHz/mono entry, matching
// audio.MicSampleRate.
const (
	micDecodeType = 5
	micAudioType  = uint32(wire.AudioTypeSiri)
)

// pipeline owns every sink wired to the demultiplexer plus the Control
// Surface handed to the rest of the host application. It exists so main can
// tear everything down in one call on shutdown.
type pipeline struct {
	surface *control.Surface
	players *audioSinks
	video   *videoSink
	cancel  context.CancelFunc
}

// buildPipeline registers the audio, video, and control sinks against
// demuxer and returns the Control Surface the host uses to observe and
// drive the session.
func buildPipeline(cfg config.Config, demuxer *demux.Demultiplexer, driver *session.Driver, log *slog.Logger) *pipeline {
	surface := control.NewSurface(func(msg wire.Message) error {
		t, payload, err := wire.Encode(msg)
		if err != nil {
			return err
		}
		return driver.Submit(t, payload)
	}, driver.ForceReset)
	demuxer.Register(demux.CategoryMedia, demux.SinkFunc(surface.Publish))

	ctx, cancel := context.WithCancel(context.Background())

	players := newAudioSinks(cfg, driver, log)
	demuxer.Register(demux.CategoryAudio, demux.SinkFunc(players.dispatch))
	demuxer.Register(demux.CategoryCommand, demux.SinkFunc(func(msg wire.Message) {
		surface.Publish(msg)
		players.dispatchCommand(ctx, msg)
	}))

	vsink := newVideoSink(cfg, log)
	demuxer.Register(demux.CategoryVideo, demux.SinkFunc(vsink.dispatch))

	return &pipeline{surface: surface, players: players, video: vsink, cancel: cancel}
}

// Close releases every audio/video resource the pipeline opened and closes
// the Control Surface's event stream.
func (p *pipeline) Close() {
	p.cancel()
	p.players.closeAll()
	p.video.close()
	p.surface.Close()
}

// audioSinks lazily opens one Player per PcmStreamKey the dongle switches
// to, routes per-channel volume (non-nav vs. nav per §4.6), and owns the
// microphone capture bridge AudioSiriStart/AudioPhonecallStart activate.
type audioSinks struct {
	log     *slog.Logger
	driver  *session.Driver
	ringReg *audio.Registry
	// audioTransferMode mirrors config.DongleConfig.AudioTransferMode:
	// when true the dongle handles upstream audio itself and in-band
	// Siri/Phonecall start commands must not also open the local
	// microphone (§8 edge case 6).
	audioTransferMode bool

	mu       sync.Mutex
	players  map[audio.PcmStreamKey]*audio.Player
	audioVol float32
	navVol   float32

	mic        *audio.Microphone
	micUplink  *audio.Uplink
	uplinkOnce sync.Once
}

func newAudioSinks(cfg config.Config, driver *session.Driver, log *slog.Logger) *audioSinks {
	micRing := audio.NewRing(1 << 14)
	a := &audioSinks{
		log:               log.With("component", "audio_sink"),
		driver:            driver,
		ringReg:           audio.NewRegistry(1 << 15),
		audioTransferMode: cfg.Dongle.AudioTransferMode,
		players:           make(map[audio.PcmStreamKey]*audio.Player),
		audioVol:          1,
		navVol:            1,
		mic:               audio.NewMicrophone(micRing, log),
	}
	a.micUplink = audio.NewUplink(micRing, 1024, a.submitMicChunk)
	return a
}

// submitMicChunk frames captured mic samples as a wire.AudioData and
// submits it upward through the session Driver's writer queue.
func (a *audioSinks) submitMicChunk(samples []int16) error {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	payload := wire.EncodeAudioData(wire.AudioData{
		DecodeType: micDecodeType,
		AudioType:  micAudioType,
		Data:       data,
	})
	if err := a.driver.Submit(wire.TypeAudioData, payload); err != nil {
		a.log.Warn("failed to submit microphone uplink chunk", "error", err)
		return err
	}
	return nil
}

func (a *audioSinks) dispatch(msg wire.Message) {
	ad, ok := msg.(wire.AudioData)
	if !ok {
		return
	}
	key := audio.PcmStreamKey{DecodeType: ad.DecodeType, AudioType: ad.AudioType}

	if ad.HasVolume {
		a.applyVolume(key, ad.Volume, float32(ad.VolumeDuration))
	}
	if ad.HasCommand {
		a.handleAudioCommand(ad.Command, key)
	}
	if len(ad.Data) == 0 {
		return
	}

	format, ok := audio.FormatForDecodeType(ad.DecodeType)
	if !ok {
		a.log.Warn("unrecognized audio decode type", "decode_type", ad.DecodeType)
		return
	}
	ring, created := a.ringReg.RingFor(key)
	ring.Write(bytesToSamples(ad.Data))

	if !created {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.players[key]; exists {
		return
	}
	player, err := audio.NewPlayer(key, format, ring, a.log)
	if err != nil {
		a.log.Error("failed to open audio player", "stream_key", key.String(), "error", err)
		return
	}
	if err := player.Start(); err != nil {
		a.log.Error("failed to start audio player", "stream_key", key.String(), "error", err)
		return
	}
	vol := a.audioVol
	if key.IsNav() {
		vol = a.navVol
	}
	player.SetVolume(vol, 0)
	a.players[key] = player
}

// applyVolume updates the nav or non-nav volume channel (§4.6: "non-nav
// streams honour audioVolume; nav streams honour navVolume") and applies
// the ramp to every player currently sharing that channel.
func (a *audioSinks) applyVolume(key audio.PcmStreamKey, volume float32, durationMs float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if key.IsNav() {
		a.navVol = volume
	} else {
		a.audioVol = volume
	}
	for k, p := range a.players {
		if k.IsNav() == key.IsNav() {
			p.SetVolume(volume, durationMs)
		}
	}
}

// handleAudioCommand routes an in-band AudioCommand per §4.6: Siri/call
// start-stop drives the microphone bridge, AudioNaviStart applies navVolume
// after a short delay.
func (a *audioSinks) handleAudioCommand(cmd wire.AudioCommand, key audio.PcmStreamKey) {
	switch cmd {
	case wire.AudioSiriStart, wire.AudioPhonecallStart:
		if a.audioTransferMode {
			return
		}
		a.startMicrophone()
	case wire.AudioSiriStop, wire.AudioPhonecallStop:
		if err := a.mic.Stop(); err != nil {
			a.log.Error("failed to stop microphone", "error", err)
		}
	case wire.AudioNaviStart:
		go a.applyNavVolumeDelayed()
	}
}

func (a *audioSinks) startMicrophone() {
	if err := a.mic.Start(); err != nil {
		a.log.Error("failed to start microphone", "error", err)
	}
}

// applyNavVolumeDelayed applies the current navVolume to every nav player
// after a short delay, letting the nav stream begin first (§4.6).
func (a *audioSinks) applyNavVolumeDelayed() {
	time.Sleep(10 * time.Millisecond)
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, p := range a.players {
		if k.IsNav() {
			p.SetVolume(a.navVol, 0)
		}
	}
}

// dispatchCommand handles command-category messages that affect the audio
// pipeline: starting the microphone uplink forwarder once, on the driver's
// own Start command, and stopping it on Unplugged.
func (a *audioSinks) dispatchCommand(ctx context.Context, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Command:
		if m.Value == wire.CommandStart {
			a.uplinkOnce.Do(func() { go a.micUplink.Run(ctx, 20*time.Millisecond) })
		}
	case wire.Unplugged:
		if err := a.mic.Stop(); err != nil {
			a.log.Error("failed to stop microphone on unplug", "error", err)
		}
	}
}

func (a *audioSinks) closeAll() {
	if err := a.mic.Stop(); err != nil {
		a.log.Error("failed to stop microphone", "error", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, p := range a.players {
		if err := p.Stop(); err != nil {
			a.log.Error("failed to stop audio player", "stream_key", key.String(), "error", err)
		}
	}
}

// bytesToSamples reinterprets a little-endian 16-bit PCM byte slice as
// int16 samples, truncating a trailing odd byte if present.
func bytesToSamples(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}

// videoSink feeds every VideoData access unit through the Decoder, hands
// SPS+IDR-gated frames to a single-slot PendingCell, and presents them from
// a dedicated render-loop goroutine paced to the configured frame rate
// (§4.4, §4.5, §5): the demux/reader thread that calls dispatch must never
// block on presentation, so dispatch only ever does a non-blocking Set.
type videoSink struct {
	log      *slog.Logger
	decoder  *video.Decoder
	renderer video.Renderer
	cell     video.PendingCell
	cancel   context.CancelFunc
	done     chan struct{}
}

func newVideoSink(cfg config.Config, log *slog.Logger) *videoSink {
	renderer, err := video.Select(cfg.PreferHardware, int(cfg.Dongle.Width), int(cfg.Dongle.Height))
	if err != nil {
		log.Error("failed to select a video renderer", "error", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	v := &videoSink{
		log:      log.With("component", "video_sink"),
		decoder:  video.NewDecoder(),
		renderer: renderer,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go v.renderLoop(ctx, cfg.Dongle.FPS)
	return v
}

// dispatch decodes one access unit's SPS/IDR state and, once the gating in
// §4.5 admits it, stores a frame in the pending cell. A decode failure
// resets the Decoder so it reattempts on the next SPS+IDR pair rather than
// wedging the pipeline in a bad state (§7 Media error kind).
func (v *videoSink) dispatch(msg wire.Message) {
	vd, ok := msg.(wire.VideoData)
	if !ok {
		return
	}
	present, err := v.decoder.Observe(vd)
	if err != nil {
		v.log.Warn("failed to observe video access unit, resetting decoder", "error", err)
		v.decoder.Reset()
		return
	}
	if !present || v.renderer == nil {
		return
	}

	width, height := v.decoder.Dimensions()
	if width == 0 || height == 0 {
		width, height = int(vd.Width), int(vd.Height)
	}
	if width == 0 || height == 0 {
		return
	}
	// Decoding the access unit's NALUs to RGB pixels is a platform codec's
	// job (VideoToolbox/MediaCodec-class HW or SW decode); this pipeline's
	// own responsibility per §4.5 is SPS/IDR gating, single-slot hand-off,
	// and pacing, so the presented frame carries a correctly sized but
	// blank picture until a platform decode backend is wired underneath it.
	v.cell.Set(video.Frame{Width: width, Height: height, RGBA: make([]byte, width*height*4)})
}

// renderLoop samples the pending cell at the configured cadence and draws
// whatever is present, clearing the slot, the "animation-timer loop" of
// §4.5. It never shares state with dispatch except through the cell, and
// reuses the same Pacer the spec's pacing language is grounded on rather
// than a second, ad hoc ticker.
func (v *videoSink) renderLoop(ctx context.Context, fps uint32) {
	defer close(v.done)
	pacer := video.NewPacer(fps)
	for ctx.Err() == nil {
		pacer.Wait(time.Now())
		if ctx.Err() != nil {
			return
		}
		frame, ok := v.cell.TakeIfPresent()
		if !ok || v.renderer == nil {
			continue
		}
		if err := v.renderer.Draw(frame); err != nil {
			v.log.Warn("failed to draw frame", "error", err)
		}
	}
}

func (v *videoSink) close() {
	v.cancel()
	<-v.done
	if v.renderer != nil {
		if err := v.renderer.Close(); err != nil {
			v.log.Error("failed to close renderer", "error", err)
		}
	}
}
