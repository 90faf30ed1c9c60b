package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyList(t *testing.T) {
	l := New()
	assert.True(t, l.Empty())
	assert.Nil(t, l.Oldest())
	assert.Nil(t, l.Newest())
}

func TestNewLinksAtNewestEnd(t *testing.T) {
	l := New()
	s1 := l.New(1)
	s2 := l.New(2)
	s3 := l.New(3)

	require.False(t, l.Empty())
	assert.Equal(t, s1, l.Oldest())
	assert.Equal(t, s3, l.Newest())
	assert.Equal(t, uint64(2), s2.Sequence)
}

func TestDeleteUnlinksMiddle(t *testing.T) {
	l := New()
	s1 := l.New(1)
	s2 := l.New(2)
	s3 := l.New(3)

	l.Delete(s2)
	assert.Equal(t, s1, l.Oldest())
	assert.Equal(t, s3, l.Newest())
}

func TestDeleteAllEmptiesList(t *testing.T) {
	l := New()
	s1 := l.New(1)
	l.Delete(s1)
	assert.True(t, l.Empty())
}
