package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	p := NewBloomFilterPolicy(10)
	keys := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i)))
	}
	f := p.CreateFilter(keys)
	for _, k := range keys {
		assert.True(t, p.KeyMayMatch(k, f), "false negative for %s", k)
	}
}

func TestBloomFilterLowFalsePositiveRate(t *testing.T) {
	p := NewBloomFilterPolicy(10)
	keys := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		keys = append(keys, []byte(fmt.Sprintf("present-%d", i)))
	}
	f := p.CreateFilter(keys)

	falsePositives := 0
	for i := 0; i < 1000; i++ {
		if p.KeyMayMatch([]byte(fmt.Sprintf("absent-%d", i)), f) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, 50) // well under 5% for 10 bits/key
}

func TestEmptyKeysYieldZeroLengthFilter(t *testing.T) {
	p := NewBloomFilterPolicy(10)
	f := p.CreateFilter(nil)
	assert.Empty(t, f)
	assert.False(t, p.KeyMayMatch([]byte("anything"), f))
}
