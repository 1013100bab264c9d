package audio

// VolumeCommand represents a host-issued volume change for a given PCM
// stream, ridden downward as an AudioData control block.
type VolumeCommand struct {
	DecodeType     uint32
	AudioType      uint32
	Volume         float32
	VolumeDuration uint32 // ms
}

// Clamp returns a copy of c with Volume restricted to [0, 1].
func (c VolumeCommand) Clamp() VolumeCommand {
	switch {
	case c.Volume < 0:
		c.Volume = 0
	case c.Volume > 1:
		c.Volume = 1
	}
	return c
}
