package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateDistinctRegions(t *testing.T) {
	a := New()
	b1 := a.Allocate(16)
	b2 := a.Allocate(16)
	require.Len(t, b1, 16)
	require.Len(t, b2, 16)
	b1[0] = 0xAA
	assert.NotEqual(t, b1[0], b2[0])
}

func TestAllocateOversizedGetsDedicatedChunk(t *testing.T) {
	a := New()
	big := a.Allocate(blockSize) // larger than a quarter of blockSize
	require.Len(t, big, blockSize)
	before := a.MemoryUsage()
	small := a.Allocate(8)
	require.Len(t, small, 8)
	assert.Greater(t, a.MemoryUsage(), before)
}

func TestAllocateAlignedStaysAligned(t *testing.T) {
	a := New()
	a.Allocate(3) // misalign the cursor
	aligned := a.AllocateAligned(16)
	require.Len(t, aligned, 16)
	assert.Zero(t, uintptr(unsafe.Pointer(&aligned[0]))%pointerSize)
}

func TestMemoryUsageGrows(t *testing.T) {
	a := New()
	start := a.MemoryUsage()
	a.Allocate(100)
	assert.Greater(t, a.MemoryUsage(), start)
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	a := New()
	assert.Nil(t, a.Allocate(0))
}
