package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dashlink/carbridge/internal/config"
	"github.com/dashlink/carbridge/internal/demux"
	carerrors "github.com/dashlink/carbridge/internal/errors"
	"github.com/dashlink/carbridge/internal/usb"
	"github.com/dashlink/carbridge/internal/wire"
)

// writerQueueDepth bounds the outbound command queue. Submit treats every
// frame kind alike: when the queue is full the new frame is rejected with a
// ConcurrencyError. Nothing is coalesced, and no queued frame is dropped to
// make room.
const writerQueueDepth = 64

// initOpcodes is the fixed "initialise" sequence the driver sends once the
// device is opened, awaiting Opened/Ack before pushing config (§4.3). The
// exact vendor byte layout of these opcodes is device-specific and left
// unresolved by spec.md itself (§9, open question (a)); CarBridge sends a
// short fixed placeholder sequence rather than guess a richer format it has
// no reference capture to verify, and relies purely on the Opened/Ack
// handshake signal (not the opcode bodies) to advance the FSM.
var initOpcodes = [][]byte{{0x01}, {0x02}, {0x03}}

// outboundItem pairs a frame type with its encoded payload.
type outboundItem struct {
	frameType wire.FrameType
	payload   []byte
}

// Driver runs one dongle session end-to-end: it owns the USB transport,
// the wire codec reader/writer, the session FSM, and the media
// demultiplexer, mirroring the teacher's Server.Start/Stop accept-loop
// lifecycle but around a single long-lived device session instead of a TCP
// listener accepting many connections.
type Driver struct {
	cfg       config.Config
	transport *usb.Transport
	fsm       *FSM
	demux     *demux.Demultiplexer
	log       *slog.Logger

	writeQueue chan outboundItem

	mediaSeen atomic.Bool
	phone     atomic.Uint32

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watcher usb.Watcher
}

// New creates a Driver. cfg supplies pairing timeouts and the DongleConfig
// to push once the device is claimed.
func New(cfg config.Config, demuxer *demux.Demultiplexer, log *slog.Logger) *Driver {
	return &Driver{
		cfg:        cfg,
		transport:  usb.New(),
		fsm:        NewFSM(),
		demux:      demuxer,
		log:        log.With("component", "session_driver"),
		writeQueue: make(chan outboundItem, writerQueueDepth),
	}
}

// Start claims the device, transitions the FSM to Opened, launches the
// reader/writer tasks, and kicks off the initialise handshake. It returns
// once the device is claimed or ctx is cancelled during discovery; the rest
// of the handshake (config push, Start, timers) runs asynchronously as the
// dongle's Opened/Ack/BoxInfo responses arrive.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return carerrors.NewLifecycleError("session.start", "running", "closed")
	}
	d.running = true
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	watcher := usb.OpenWatcher(runCtx, d.transport, 2*time.Second, d.log)
	if err := d.awaitFirstAttach(runCtx, watcher); err != nil {
		watcher.Close()
		return err
	}
	return d.launch(runCtx, watcher)
}

// launch claims the FSM's Opened state, starts the reader/writer/watch
// tasks against an already-open transport, and kicks off the initialise
// handshake. Shared by Start (after initial device discovery) and
// ForceReset (after Transport.Reset has already reopened the device).
func (d *Driver) launch(ctx context.Context, watcher usb.Watcher) error {
	d.watcher = watcher
	if err := d.fsm.Open(); err != nil {
		watcher.Close()
		return err
	}

	d.wg.Add(3)
	go d.readLoop(ctx)
	go d.writeLoop(ctx)
	go d.watchLoop(ctx, watcher)

	for _, op := range initOpcodes {
		if err := d.Submit(wire.TypeOpened, op); err != nil {
			d.log.Warn("failed to submit initialise opcode", "error", err)
		}
	}
	return nil
}

// Stop cancels the reader/writer tasks, waits for them to exit, and
// releases the USB device. Idempotent: a second call on an already-stopped
// Driver is a no-op.
//
// Per §5, in-flight USB writes are abandoned after a short grace (<=200ms)
// rather than waited on indefinitely: the reader/writer tasks block inside
// gousb bulk calls that don't observe ctx directly, so cancellation alone
// doesn't unblock them. Stop gives them cfg.WriterDrain (default 200ms) to
// exit on their own, then force-closes the transport, which makes any
// pending bulk read/write return an error and unblocks the goroutines.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	grace := d.cfg.WriterDrain
	if grace <= 0 {
		grace = 200 * time.Millisecond
	}
	drained := make(chan struct{})
	forcedClose := false
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(grace):
		d.log.Warn("writer/reader tasks still running after grace period, force-closing transport")
		forcedClose = true
		if err := d.transport.Close(); err != nil {
			d.log.Warn("failed to force-close transport", "error", err)
		}
		<-drained
	}

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.log.Warn("failed to close hotplug watcher", "error", err)
		}
	}
	d.fsm.Close()
	if forcedClose {
		return nil
	}
	return d.transport.Close()
}

// ForceReset drives the §6 downward ForceReset command: it tears down the
// running reader/writer/watch tasks, forces the device closed and reopened
// on the same libusb context via Transport.Reset (§4.2: "reset must
// succeed even when the device reports no device mid-call"), resets the
// FSM back to Closed, and relaunches the session exactly as Start does,
// resending the initialise handshake. This is the host-reachable path for
// §8 scenario 1 ("host requests ForceReset ... Detached -> re-enumerate ->
// Attached -> Plugged"): the Detached/Attached edges are the transport's
// own hotplug-watcher events around the Reset call, and Plugged follows
// once the re-enumerated dongle resumes talking to the relaunched read
// loop.
func (d *Driver) ForceReset(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return carerrors.NewLifecycleError("session.forcereset", "closed", "running")
	}
	oldCancel := d.cancel
	oldWatcher := d.watcher
	d.mu.Unlock()

	d.log.Info("force reset requested, re-enumerating device")
	if oldCancel != nil {
		oldCancel()
	}
	d.wg.Wait()
	if oldWatcher != nil {
		if err := oldWatcher.Close(); err != nil {
			d.log.Warn("failed to close hotplug watcher during reset", "error", err)
		}
	}

	d.fsm.Reset()
	d.mediaSeen.Store(false)
	d.phone.Store(0)

	if err := d.transport.Reset(ctx); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		d.fsm.Fail()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	watcher := usb.OpenWatcher(runCtx, d.transport, 2*time.Second, d.log)
	if err := d.launch(runCtx, watcher); err != nil {
		cancel()
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return err
	}
	return nil
}

// awaitFirstAttach blocks until the device is present, backed by whichever
// Watcher OpenWatcher selected. A PollWatcher already opens the transport
// as the side effect of its own internal retry loop, so the first emitted
// event is sufficient; FSWatcher only signals that something changed on
// the usbfs tree, so that case still drives the actual open via
// WaitForDevice (cheap: by the time FSWatcher fires, the device is already
// enumerable).
func (d *Driver) awaitFirstAttach(ctx context.Context, watcher usb.Watcher) error {
	if _, isPoll := watcher.(*usb.PollWatcher); isPoll {
		select {
		case <-watcher.Events():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return usb.WaitForDevice(ctx, d.transport, 2*time.Second)
}

// watchLoop drains subsequent hotplug events for the session's lifetime as
// a diagnostic signal. The authoritative detach detection remains the read
// loop's own DeviceGone classification of a failed bulk read (§4.2: "duplicates
// filtered by current last known connected flag" is this classification,
// not a second notification path racing against it).
func (d *Driver) watchLoop(ctx context.Context, watcher usb.Watcher) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}
			switch ev {
			case usb.EventAttached:
				d.log.Debug("hotplug watcher observed attach")
			case usb.EventDetached:
				d.log.Debug("hotplug watcher observed detach")
			}
		}
	}
}

// Submit enqueues an outbound command frame. It returns a ConcurrencyError
// if the queue is full, since the writer is expected to keep up with
// latency-sensitive input events.
func (d *Driver) Submit(t wire.FrameType, payload []byte) error {
	select {
	case d.writeQueue <- outboundItem{frameType: t, payload: payload}:
		return nil
	default:
		return carerrors.NewConcurrencyError("session.submit", nil)
	}
}

func (d *Driver) readLoop(ctx context.Context) {
	defer d.wg.Done()
	r := wire.NewReader(d.transport.Reader())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := r.ReadFrame()
		if err != nil {
			if carerrors.IsDeviceGone(err) {
				d.fsm.Reset()
				return
			}
			d.log.Error("read loop failed", "error", err)
			d.fsm.Fail()
			return
		}

		msg, ok := decodeMessage(frame)
		r.Release(frame)
		if !ok {
			continue
		}

		d.advanceFSM(ctx, msg)
		d.demux.Route(msg)
	}
}

// advanceFSM drives the handshake forward on receipt of the signal each
// transition awaits (§4.3): Opened/Ack complete Opened -> Initialised and
// trigger the config push; BoxInfo completes Initialised -> Configured and
// triggers Start plus the pair-timeout/frame-heartbeat timers; the first
// media message completes Configured -> Streaming. A received Plugged or
// Unplugged is informational only (the transport's own Attach/Detach is
// authoritative per §4.3's contract) except that Plugged records the phone
// type used to look up the frame-heartbeat cadence, and Unplugged closes
// the FSM as a convenience for hosts that don't also watch the transport.
func (d *Driver) advanceFSM(ctx context.Context, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Plugged:
		d.phone.Store(uint32(m.Phone))
	case wire.Opened, wire.Ack:
		if d.fsm.State() == StateOpened {
			if err := d.fsm.Initialise(); err != nil {
				d.log.Warn("fsm transition rejected", "error", err)
				return
			}
			d.sendConfig()
		}
	case wire.BoxInfo:
		if d.fsm.State() == StateInitialised {
			if err := d.fsm.Configure(); err != nil {
				d.log.Warn("fsm transition rejected", "error", err)
				return
			}
			d.sendStart()
			d.startPairTimeout(ctx)
			d.startFrameHeartbeat(ctx)
		}
	case wire.VideoData, wire.AudioData, wire.MediaData:
		d.mediaSeen.Store(true)
		if d.fsm.State() == StateConfigured {
			if err := d.fsm.Stream(); err != nil {
				d.log.Warn("fsm transition rejected", "error", err)
			}
		}
	case wire.Unplugged:
		d.fsm.Close()
	}
}

// sendConfig pushes the DongleConfig and key strings, the driver's half of
// Initialised -> Configured (§4.3).
func (d *Driver) sendConfig() {
	dc := d.cfg.Dongle
	payload := wire.EncodeDongleConfig(wire.DongleConfigPayload{
		Width: dc.Width, Height: dc.Height, FPS: dc.FPS, DPI: dc.DPI,
		Format: dc.Format, IBoxVersion: dc.IBoxVersion, PhoneWorkMode: dc.PhoneWorkMode,
		PacketMax: dc.PacketMax, MediaDelayMs: dc.MediaDelayMs,
		AudioTransferMode: dc.AudioTransferMode,
		WifiType:          uint32(dc.WifiType), WifiChannel: dc.WifiChannel,
		CarName: dc.CarName, OEMName: dc.OEMName,
	})
	if err := d.Submit(wire.TypeConfig, payload); err != nil {
		d.log.Error("failed to submit config push", "error", err)
	}
}

// sendStart pushes the Start command once BoxInfo confirms configuration.
func (d *Driver) sendStart() {
	if err := d.Submit(wire.TypeCommand, wire.EncodeCommand(wire.Command{Value: wire.CommandStart})); err != nil {
		d.log.Error("failed to submit start command", "error", err)
	}
}

// startPairTimeout schedules the 15s pair-timeout (§4.3, §8 scenario 3): if
// no Video/Audio/Media has arrived by the deadline, the driver emits
// SendCommand(wifiPair) exactly once.
func (d *Driver) startPairTimeout(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		timer := time.NewTimer(d.cfg.PairTimeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			if !d.mediaSeen.Load() {
				d.log.Warn("pair timeout elapsed with no media, requesting wifi pair")
				cmd := wire.EncodeCommand(wire.Command{Value: wire.CommandWifiPair})
				if err := d.Submit(wire.TypeCommand, cmd); err != nil {
					d.log.Error("failed to submit wifiPair command", "error", err)
				}
			}
		}
	}()
}

// startFrameHeartbeat starts a per-phone heartbeat tick at
// PhoneFrameIntervalMs[phone], if the config specifies one for the
// connected phone type; absence does nothing (§4.3, §5).
func (d *Driver) startFrameHeartbeat(ctx context.Context) {
	interval, ok := d.cfg.Dongle.PhoneFrameIntervalMs[d.phone.Load()]
	if !ok || interval == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cmd := wire.EncodeCommand(wire.Command{Value: wire.CommandFrameHeartbeat})
				if err := d.Submit(wire.TypeCommand, cmd); err != nil {
					d.log.Warn("failed to submit frame heartbeat", "error", err)
				}
			}
		}
	}()
}

func (d *Driver) writeLoop(ctx context.Context) {
	defer d.wg.Done()
	w := wire.NewWriter(writerSink{d.transport})

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.writeQueue:
			if err := w.WriteFrame(item.frameType, item.payload); err != nil {
				if carerrors.IsDeviceGone(err) {
					d.fsm.Reset()
					return
				}
				d.log.Error("write loop failed", "error", err)
				d.fsm.Fail()
				return
			}
		}
	}
}

// writerSink adapts Transport.Write to io.Writer.
type writerSink struct{ t *usb.Transport }

func (s writerSink) Write(p []byte) (int, error) { return s.t.Write(p) }

// decodeMessage maps a raw frame to a typed wire.Message, returning false
// for a frame type this build doesn't recognize (tolerated, not an error).
func decodeMessage(f wire.Frame) (wire.Message, bool) {
	switch wire.FrameTypeOf(f.Header) {
	case wire.TypePlugged:
		m, err := wire.DecodePlugged(f.Payload)
		return m, err == nil
	case wire.TypeUnplugged:
		return wire.Unplugged{}, true
	case wire.TypePhase:
		m, err := wire.DecodePhase(f.Payload)
		return m, err == nil
	case wire.TypeVideoData:
		m, err := wire.DecodeVideoData(f.Payload)
		return m, err == nil
	case wire.TypeAudioData:
		m, err := wire.DecodeAudioData(f.Payload)
		return m, err == nil
	case wire.TypeMediaData:
		return wire.MediaData{Payload: clonePayload(f.Payload)}, true
	case wire.TypeBoxSettings:
		return wire.BoxSettings{Payload: clonePayload(f.Payload)}, true
	case wire.TypeOpened:
		return wire.Opened{}, true
	case wire.TypeAck:
		m, err := wire.DecodeAck(f.Payload)
		return m, err == nil
	case wire.TypeBoxInfo:
		m, err := wire.DecodeBoxInfo(f.Payload)
		if err != nil {
			// A malformed identity payload still advances the handshake
			// (§4.3 only requires BoxInfo's arrival, not its contents).
			return wire.BoxInfo{}, true
		}
		return m, true
	case wire.TypeCommand:
		m, err := wire.DecodeCommand(f.Payload)
		return m, err == nil
	default:
		return nil, false
	}
}

// clonePayload copies a frame payload out of the bufpool-backed transport
// buffer r.Release returns to the pool right after decodeMessage runs.
// MediaData/BoxSettings carry that payload onward as a message field rather
// than parsing it into fixed-size fields the way every other decoder here
// does, so without a copy they'd alias a buffer the pool can hand to a
// later frame at any point after Release -- corrupting whatever queued
// further downstream (notably the Control Surface's buffered event
// channel, which outlives a single readLoop iteration). §3: "Frames are
// borrowed across Codec->Demux and only cloned where a consumer must
// outlive the transport buffer."
func clonePayload(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
