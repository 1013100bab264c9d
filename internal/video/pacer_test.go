package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacerFirstCallDoesNotBlock(t *testing.T) {
	p := NewPacer(30)
	start := time.Now()
	p.Wait(start)
	require.WithinDuration(t, start, time.Now(), 5*time.Millisecond)
}

func TestPacerEnforcesMinimumInterval(t *testing.T) {
	p := NewPacer(100) // 10ms interval
	first := time.Now()
	p.Wait(first)

	before := time.Now()
	p.Wait(before)
	require.GreaterOrEqual(t, time.Since(before), 8*time.Millisecond)
}
