// Package video implements the Video Pipeline: H.264 access-unit decoding
// (via the Wire Codec's NALU helpers), a pacer that paces presentation to
// the configured frame rate, and a capability-interface renderer selection
// (GL2 vs a hardware-accelerated path), the way richinsley-goshadertoy
// selects a platform-specific Renderer behind a single constructor.
package video

import (
	"fmt"
	"runtime"
)

// Frame is one decoded picture ready for presentation.
type Frame struct {
	Width, Height int
	// RGBA is a tightly packed Width*Height*4 byte buffer. Decoding to RGBA
	// at the pipeline boundary keeps both renderer variants' upload paths
	// identical regardless of the source pixel format.
	RGBA []byte
}

// Renderer is the capability interface both renderer variants satisfy: the
// caller never branches on which is active. Select chooses which one to
// construct by trying each variant's constructor in priority order.
type Renderer interface {
	Draw(f Frame) error
	Resize(width, height int) error
	Close() error
}

// Capability describes one optional renderer feature by name and whether
// it is supported. Select does not consult it.
type Capability struct {
	Name      string
	Supported bool
}

// platformPriority returns the probe order §4.5 specifies per platform:
// mac probes the hardware-accelerated surface first, falling back to GL2;
// Linux on amd64/386 probes GL2 first, falling back to hardware; Linux on
// arm/arm64 probes GL2 only (no accelerated surface is assumed present on
// embedded head units).
func platformPriority() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"hardware", "gl2"}
	case "linux":
		switch runtime.GOARCH {
		case "arm", "arm64":
			return []string{"gl2"}
		default:
			return []string{"gl2", "hardware"}
		}
	default:
		return []string{"gl2", "hardware"}
	}
}

// Select picks a renderer by probing candidates in the platform's priority
// order (§4.5), returning the first one whose probe succeeds. preferHardware
// overrides the platform default by moving "hardware" to the front of the
// order, for hosts that know a surface is available regardless of GOOS/
// GOARCH. The "hardware" probe succeeds only when CARBRIDGE_HW_SURFACE is
// set; when a probe fails, Select moves on to the next candidate. If every
// candidate fails, Select returns a nil Renderer and the last probe error.
func Select(preferHardware bool, width, height int) (Renderer, error) {
	order := platformPriority()
	if preferHardware {
		order = append([]string{"hardware"}, without(order, "hardware")...)
	}

	var lastErr error
	for _, name := range order {
		switch name {
		case "hardware":
			if r, err := NewHardwareRenderer(width, height); err == nil {
				return r, nil
			} else {
				lastErr = err
			}
		case "gl2":
			if r, err := NewGL2Renderer(width, height); err == nil {
				return r, nil
			} else {
				lastErr = err
			}
		}
	}
	return nil, lastErr
}

// without returns a copy of order with every occurrence of name removed.
func without(order []string, name string) []string {
	out := make([]string, 0, len(order))
	for _, o := range order {
		if o != name {
			out = append(out, o)
		}
	}
	return out
}

func errUnsupportedSize(width, height int) error {
	return fmt.Errorf("video: unsupported frame size %dx%d", width, height)
}
