// Package session implements the dongle driver's session state machine and
// the task that drives it: validating the USB device identity, pushing
// configuration, and tracking the Closed -> Opened -> Initialised ->
// Configured -> Streaming progression (with Failed reachable from any state).
package session

import (
	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// State is the dongle session's lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpened
	StateInitialised
	StateConfigured
	StateStreaming
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpened:
		return "Opened"
	case StateInitialised:
		return "Initialised"
	case StateConfigured:
		return "Configured"
	case StateStreaming:
		return "Streaming"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// FSM tracks the session's lifecycle state and validates transitions. It
// mirrors the teacher's handshake FSM: each transition method checks the
// current state and returns a LifecycleError rather than mutating state on
// an invalid call.
type FSM struct {
	state State
}

// NewFSM creates an FSM in StateClosed.
func NewFSM() *FSM { return &FSM{state: StateClosed} }

// State returns the current state.
func (f *FSM) State() State { return f.state }

// Open transitions Closed -> Opened, after the USB device has been claimed.
func (f *FSM) Open() error {
	if f.state != StateClosed {
		return carerrors.NewLifecycleError("session.open", f.state.String(), StateClosed.String())
	}
	f.state = StateOpened
	return nil
}

// Initialise transitions Opened -> Initialised, after the dongle has
// answered the initialise sequence with Opened or Ack.
func (f *FSM) Initialise() error {
	if f.state != StateOpened {
		return carerrors.NewLifecycleError("session.initialise", f.state.String(), StateOpened.String())
	}
	f.state = StateInitialised
	return nil
}

// Configure transitions Initialised -> Configured, after DongleConfig has
// been pushed downstream and acknowledged.
func (f *FSM) Configure() error {
	if f.state != StateInitialised {
		return carerrors.NewLifecycleError("session.configure", f.state.String(), StateInitialised.String())
	}
	f.state = StateConfigured
	return nil
}

// Stream transitions Configured -> Streaming, after the first media frame
// has arrived.
func (f *FSM) Stream() error {
	if f.state != StateConfigured {
		return carerrors.NewLifecycleError("session.stream", f.state.String(), StateConfigured.String())
	}
	f.state = StateStreaming
	return nil
}

// Close transitions any state to Closed, e.g. on Unplugged or a clean
// shutdown. It is always legal.
func (f *FSM) Close() {
	f.state = StateClosed
}

// Fail transitions any state to Failed, e.g. on a fatal transport error.
// Once Failed, every forward transition is rejected until Reset or Close
// returns the FSM to Closed.
func (f *FSM) Fail() {
	f.state = StateFailed
}

// Reset forces the FSM back to Closed regardless of current state,
// mirroring the USB transport's reset() contract: a successful reset
// forces re-enumeration even if the session had already failed.
func (f *FSM) Reset() {
	f.state = StateClosed
}
