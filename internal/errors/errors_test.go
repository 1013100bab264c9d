package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

// fakeTimeoutErr simulates a net.Error with Timeout semantics.
type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string { return "fake timeout" }
func (fakeTimeoutErr) Timeout() bool { return true }

func TestIsCoreErrorClassification(t *testing.T) {
	root := stdErrors.New("root")
	wrapped := fmt.Errorf("adding context: %w", root)
	tr := NewTransportError("usb.read", wrapped, false)
	if !IsCoreError(tr) {
		t.Fatalf("expected IsCoreError=true for transport error")
	}
	if !stdErrors.Is(tr, root) {
		t.Fatalf("expected errors.Is to find root cause")
	}
	var te *TransportError
	if !stdErrors.As(tr, &te) {
		t.Fatalf("expected errors.As to *TransportError")
	}
	if te.Op != "usb.read" {
		t.Fatalf("unexpected op: %s", te.Op)
	}

	mErr := NewMediaError("decode.configure", nil)
	if !IsCoreError(mErr) {
		t.Fatalf("expected media error classified as core")
	}
	cErr := NewConcurrencyError("writer.queue", nil)
	if !IsCoreError(cErr) {
		t.Fatalf("expected concurrency error classified as core")
	}
	p := NewProtocolError("frame.checksum", stdErrors.New("bad checksum"))
	if !IsCoreError(p) {
		t.Fatalf("expected protocol error classified as core")
	}
	l := NewLifecycleError("session.configure", "streaming", "opened")
	if !IsCoreError(l) {
		t.Fatalf("expected lifecycle error classified as core")
	}
}

func TestIsDeviceGone(t *testing.T) {
	gone := NewTransportError("usb.reset", nil, true)
	if !IsDeviceGone(gone) {
		t.Fatalf("expected DeviceGone=true to be recognized")
	}
	notGone := NewTransportError("usb.write", stdErrors.New("io error"), false)
	if IsDeviceGone(notGone) {
		t.Fatalf("expected DeviceGone=false error not classified as device gone")
	}
	if IsDeviceGone(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be device gone")
	}
}

func TestIsTimeout(t *testing.T) {
	root := fakeTimeoutErr{}
	to := NewTimeoutError("session.pairTimeout", 5*time.Second, root)
	if !IsTimeout(to) {
		t.Fatalf("expected TimeoutError recognized")
	}
	if IsCoreError(to) {
		t.Fatalf("timeout should not be classified as a core kind")
	}
	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatalf("expected context deadline recognized")
	}
	var ne error = root
	if !IsTimeout(ne) {
		t.Fatalf("expected net-like timeout recognized")
	}
}

func TestUnwrapChains(t *testing.T) {
	base := stdErrors.New("io EOF")
	l1 := fmt.Errorf("read: %w", base)
	l2 := NewTransportError("usb.read", l1, false)
	if !stdErrors.Is(l2, base) {
		t.Fatalf("errors.Is should reach base cause")
	}
	var cm coreMarker
	if !stdErrors.As(l2, &cm) {
		t.Fatalf("expected to match coreMarker via As")
	}
}

func TestNilSafety(t *testing.T) {
	if IsCoreError(nil) {
		t.Fatalf("nil should not be a core error")
	}
	if IsTimeout(nil) {
		t.Fatalf("nil should not be timeout")
	}
	if IsDeviceGone(nil) {
		t.Fatalf("nil should not be device gone")
	}
}

func TestConstructorWithoutCause(t *testing.T) {
	m := NewMediaError("decode.frame", nil)
	if m == nil {
		t.Fatalf("constructor returned nil")
	}
	if errStr := m.Error(); errStr == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestNilErrBranchesAndStrings(t *testing.T) {
	p := NewProtocolError("op1", nil)
	if p == nil {
		t.Fatalf("nil protocol error")
	}
	if !IsCoreError(p) {
		t.Fatalf("expected core classification")
	}
	if s := p.Error(); s == "" {
		t.Fatalf("unexpected protocol error string: %q", s)
	}

	tr := NewTransportError("op2", nil, false)
	if s := tr.Error(); s == "" {
		t.Fatalf("bad transport error string: %q", s)
	}

	c := NewConcurrencyError("op3", nil)
	if s := c.Error(); s == "" {
		t.Fatalf("empty concurrency error string")
	}

	mErr := NewMediaError("op4", nil)
	if s := mErr.Error(); s == "" {
		t.Fatalf("empty media error string")
	}

	l := NewLifecycleError("op5", "opened", "")
	if s := l.Error(); s == "" {
		t.Fatalf("empty lifecycle error string")
	}
	lw := NewLifecycleError("op6", "opened", "configured")
	if s := lw.Error(); s == "" {
		t.Fatalf("empty lifecycle error string with wanted state")
	}

	to := NewTimeoutError("op7", 100*time.Millisecond, nil)
	if !IsTimeout(to) {
		t.Fatalf("timeout classification failed")
	}
	if IsCoreError(to) {
		t.Fatalf("timeout misclassified as core")
	}
	if s := to.Error(); s == "" {
		t.Fatalf("empty timeout error string")
	}
}

func TestNegativePredicates(t *testing.T) {
	if IsCoreError(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be core")
	}
	if IsTimeout(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be timeout")
	}
}
