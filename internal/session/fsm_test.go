package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

func TestFSMHappyPath(t *testing.T) {
	f := NewFSM()
	require.Equal(t, StateClosed, f.State())
	require.NoError(t, f.Open())
	require.Equal(t, StateOpened, f.State())
	require.NoError(t, f.Initialise())
	require.NoError(t, f.Configure())
	require.NoError(t, f.Stream())
	require.Equal(t, StateStreaming, f.State())
}

func TestFSMRejectsOutOfOrderTransitions(t *testing.T) {
	f := NewFSM()
	err := f.Configure()
	require.Error(t, err)
	require.True(t, carerrors.IsCoreError(err))
	require.Equal(t, StateClosed, f.State())
}

func TestFSMCloseIsAlwaysLegal(t *testing.T) {
	f := NewFSM()
	require.NoError(t, f.Open())
	f.Close()
	require.Equal(t, StateClosed, f.State())
}

func TestFSMFailThenReset(t *testing.T) {
	f := NewFSM()
	require.NoError(t, f.Open())
	require.NoError(t, f.Initialise())
	f.Fail()
	require.Equal(t, StateFailed, f.State())

	// A successful transport reset forces re-enumeration regardless of the
	// failed state.
	f.Reset()
	require.Equal(t, StateClosed, f.State())
	require.NoError(t, f.Open())
}
