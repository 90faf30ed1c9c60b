package kvstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKIsZeroCost(t *testing.T) {
	var s Status
	assert.True(t, s.IsOK())
	assert.Nil(t, s.ToError())
	assert.Equal(t, "OK", s.String())
}

func TestNotFound(t *testing.T) {
	s := NewNotFound("key missing")
	require.False(t, s.IsOK())
	assert.True(t, s.IsNotFound())
	assert.Equal(t, "NotFound: key missing", s.Error())
}

func TestWithCauseJoinsMessages(t *testing.T) {
	s := NewCorruption("footer decode failed").WithCause("bad magic")
	assert.Equal(t, "Corruption: footer decode failed: bad magic", s.Error())
	assert.True(t, s.IsCorruption())
}

func TestToErrorRoundTrips(t *testing.T) {
	s := NewIOError("short read")
	err := s.ToError()
	require.Error(t, err)
	assert.Equal(t, "IOError: short read", err.Error())
}
