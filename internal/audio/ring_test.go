package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingWriteReadRoundTrip(t *testing.T) {
	r := NewRing(8)
	n := r.Write([]int16{1, 2, 3, 4})
	require.Equal(t, 4, n)
	require.Equal(t, 4, r.Available())
	require.Equal(t, 4, r.Free())

	dst := make([]int16, 4)
	n = r.Read(dst)
	require.Equal(t, 4, n)
	require.Equal(t, []int16{1, 2, 3, 4}, dst)
	require.Equal(t, 0, r.Available())
}

func TestRingWrapAround(t *testing.T) {
	r := NewRing(4)
	require.Equal(t, 4, r.Write([]int16{1, 2, 3, 4}))
	require.Equal(t, 2, r.Read(make([]int16, 2)))

	n := r.Write([]int16{5, 6})
	require.Equal(t, 2, n)

	dst := make([]int16, 4)
	got := r.Read(dst)
	require.Equal(t, 4, got)
	require.Equal(t, []int16{3, 4, 5, 6}, dst)
}

func TestRingNeverOverwritesUnread(t *testing.T) {
	r := NewRing(4)
	n := r.Write([]int16{1, 2, 3, 4, 5, 6})
	require.Equal(t, 4, n, "write should be clamped to free space")
	require.Equal(t, 4, r.Available())
	require.Equal(t, 0, r.Free())
}

func TestRingReadClampedToAvailable(t *testing.T) {
	r := NewRing(4)
	r.Write([]int16{1, 2})
	dst := make([]int16, 10)
	n := r.Read(dst)
	require.Equal(t, 2, n)
}

func TestRingResetDropsBufferedSamples(t *testing.T) {
	r := NewRing(4)
	r.Write([]int16{1, 2, 3})
	r.Reset()
	require.Equal(t, 0, r.Available())
	require.Equal(t, 4, r.Free())
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	r := NewRing(256)
	var wg sync.WaitGroup
	wg.Add(2)

	const total = 10000
	go func() {
		defer wg.Done()
		written := 0
		chunk := make([]int16, 16)
		for written < total {
			n := r.Write(chunk)
			written += n
		}
	}()

	go func() {
		defer wg.Done()
		read := 0
		dst := make([]int16, 16)
		for read < total {
			read += r.Read(dst)
		}
	}()

	wg.Wait()
}
