// Package usb implements the USB bulk transport to the dongle: device
// discovery against the known VID/PID set, claim, bulk in/out endpoint IO,
// and reset. The structure mirrors real CarPlay gateway implementations
// (cybernik-gocarplay's usblink.USBLink) built on google/gousb.
package usb

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/gousb"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// VendorID is the USB vendor ID every supported dongle reports.
const VendorID = 0x1314

// ProductIDs lists the product IDs observed across dongle firmware
// revisions.
var ProductIDs = []uint16{0x1520, 0x1521}

// Transport owns the libusb context and the claimed device's default
// interface and bulk endpoints.
type Transport struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	stream io.ReadCloser

	// open reports whether a device is currently claimed, set atomically
	// so a watcher goroutine can poll it without racing the Session's own
	// reads of dev/intf/stream (§5: the handle is exclusively owned by
	// the Session; a watcher only observes this flag, never the fields).
	open atomic.Bool
}

// New creates an unopened Transport. Call Open to discover and claim a
// device.
func New() *Transport {
	return &Transport{ctx: gousb.NewContext()}
}

// Open discovers a dongle matching VendorID/ProductIDs, claims its default
// interface, and resolves the bulk in/out endpoints. It returns a
// TransportError with DeviceGone=true if no matching device is present
// (a normal, retryable condition while the hotplug watcher polls), and a
// plain TransportError for any other failure.
func (t *Transport) Open(ctx context.Context) error {
	vid := gousb.ID(VendorID)
	devs, err := t.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != vid {
			return false
		}
		for _, pid := range ProductIDs {
			if desc.Product == gousb.ID(pid) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return carerrors.NewTransportError("usb.open", err, false)
	}
	if len(devs) == 0 {
		return carerrors.NewTransportError("usb.open", fmt.Errorf("no matching device"), true)
	}
	// Keep the first match, close the rest (mirrors real gateways, which
	// never expect more than one dongle attached at a time).
	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return carerrors.NewTransportError("usb.claim", err, false)
	}

	outEP, err := intf.OutEndpoint(1)
	if err != nil {
		done()
		dev.Close()
		return carerrors.NewTransportError("usb.endpoint.out", err, false)
	}
	inEP, err := intf.InEndpoint(1)
	if err != nil {
		done()
		dev.Close()
		return carerrors.NewTransportError("usb.endpoint.in", err, false)
	}

	stream, err := inEP.NewStream(512*9600, 8)
	if err != nil {
		done()
		dev.Close()
		return carerrors.NewTransportError("usb.stream.in", err, false)
	}

	t.dev, t.intf, t.done, t.in, t.out, t.stream = dev, intf, done, inEP, outEP, stream
	t.open.Store(true)
	return nil
}

// IsOpen reports whether a device is currently claimed. Safe to poll from
// a watcher goroutine that must not call Open again until the device has
// actually gone away (Open assumes it's claiming a fresh handle and would
// otherwise double-claim or leak the existing one).
func (t *Transport) IsOpen() bool { return t.open.Load() }

// Reader returns a stream suitable for wire.Reader, wrapping the bulk-in
// endpoint.
func (t *Transport) Reader() io.Reader { return t.stream }

// Write sends a fully framed buffer on the bulk-out endpoint.
func (t *Transport) Write(p []byte) (int, error) {
	n, err := t.out.Write(p)
	if err != nil {
		return n, carerrors.NewTransportError("usb.write", err, false)
	}
	return n, nil
}

// Reset closes and reopens the device, forcing re-enumeration. A successful
// reset always returns nil even if no device was currently open, matching
// the contract that reset() succeeds on a "no device" mid-call condition so
// the caller can simply retry discovery afterward.
func (t *Transport) Reset(ctx context.Context) error {
	t.closeDevice()
	if err := t.Open(ctx); err != nil {
		if carerrors.IsDeviceGone(err) {
			return nil
		}
		return err
	}
	return nil
}

// Close releases the device and the libusb context.
func (t *Transport) Close() error {
	t.closeDevice()
	return t.ctx.Close()
}

func (t *Transport) closeDevice() {
	t.open.Store(false)
	if t.stream != nil {
		t.stream.Close()
		t.stream = nil
	}
	if t.done != nil {
		t.done()
		t.done = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	t.intf, t.in, t.out = nil, nil, nil
}

// WaitForDevice polls Open until it succeeds or ctx is cancelled, waiting
// interval between attempts. This is the concrete retry loop behind the
// "hot-plug watcher" design note: real gateways retry discovery every two
// seconds after a failed or absent probe.
func WaitForDevice(ctx context.Context, t *Transport, interval time.Duration) error {
	for {
		err := t.Open(ctx)
		if err == nil {
			return nil
		}
		if !carerrors.IsDeviceGone(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
