package comparator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOrdering(t *testing.T) {
	c := New()
	assert.Equal(t, -1, c.Compare([]byte("a"), []byte("b")))
	assert.Equal(t, 1, c.Compare([]byte("b"), []byte("a")))
	assert.Equal(t, 0, c.Compare([]byte("abc"), []byte("abc")))
	assert.Equal(t, -1, c.Compare([]byte("ab"), []byte("abc")))
}

func TestFindShortestSeparatorContract(t *testing.T) {
	c := New()
	cases := [][2]string{
		{"helloworld", "jellyfish"},
		{"abc", "abd"},
		{"", "abc"},
		{"abc", "abc"},
		{"abc", ""},
	}
	for _, tc := range cases {
		start, limit := []byte(tc[0]), []byte(tc[1])
		if c.Compare(start, limit) >= 0 {
			continue
		}
		got := c.FindShortestSeparator(append([]byte{}, start...), limit)
		assert.LessOrEqual(t, c.Compare(got, limit), 0, "case %v", tc)
		assert.LessOrEqual(t, c.Compare(start, got), 0, "case %v", tc)
	}
}

func TestFindShortSuccessorContract(t *testing.T) {
	c := New()
	for _, s := range []string{"hello", "", "\xff\xff", "a"} {
		key := []byte(s)
		got := c.FindShortSuccessor(append([]byte{}, key...))
		assert.LessOrEqual(t, c.Compare(key, got), 0)
	}
}

func TestFindShortSuccessorAllFF(t *testing.T) {
	c := New()
	key := []byte{0xff, 0xff}
	got := c.FindShortSuccessor(key)
	assert.Equal(t, key, got)
}
