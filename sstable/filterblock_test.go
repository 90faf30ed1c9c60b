package sstable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/filter"
)

func TestFilterBlockRoundTripAndEmptyBucketsStayEmpty(t *testing.T) {
	policy := filter.NewBloomFilterPolicy(10)
	b := NewFilterBlockBuilder(policy)

	b.StartBlock(0)
	b.AddKey([]byte("foo"))
	b.AddKey([]byte("bar"))
	b.StartBlock(FilterBase) // crosses into bucket 1
	b.AddKey([]byte("box"))
	b.StartBlock(3 * FilterBase) // bucket 2 gets no keys, so its filter is empty

	data := b.Finish()
	r, err := NewFilterBlockReader(policy, data)
	require.NoError(t, err)

	assert.True(t, r.KeyMayMatch(0, []byte("foo")))
	assert.True(t, r.KeyMayMatch(0, []byte("bar")))
	assert.True(t, r.KeyMayMatch(FilterBase, []byte("box")))
	assert.False(t, r.KeyMayMatch(2*FilterBase, []byte("box")))

	// An index past every recorded bucket is "possibly present" per spec
	// §4.G.3: filters are never authoritative.
	assert.True(t, r.KeyMayMatch(100*FilterBase, []byte("anything")))
}

func TestFilterBlockNeverFalseNegative(t *testing.T) {
	policy := filter.NewBloomFilterPolicy(10)
	b := NewFilterBlockBuilder(policy)
	b.StartBlock(0)

	var keys [][]byte
	for i := 0; i < 500; i++ {
		k := []byte{byte(i), byte(i >> 8), byte(i % 251)}
		keys = append(keys, k)
		b.AddKey(k)
	}
	data := b.Finish()
	r, err := NewFilterBlockReader(policy, data)
	require.NoError(t, err)

	for _, k := range keys {
		assert.True(t, r.KeyMayMatch(0, k), "false negative for inserted key %v", k)
	}
}
