package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeap(t *testing.T, size int) (*Bytes, *Heap) {
	mem := NewBytes(size)
	h, err := NewHeap(mem, 0, size)
	require.NoError(t, err, "must construct heap")
	return mem, h
}

func TestHeap_singleBlockInit(t *testing.T) {
	_, h := newTestHeap(t, 64)
	assert.Equal(t, 0, h.HP(), "expected the whole region as one free block")
}

func TestHeap_allocateExact(t *testing.T) {
	_, h := newTestHeap(t, 64)
	addr, err := h.Allocate(56)
	require.NoError(t, err)
	assert.Equal(t, headerSize, addr, "data starts right after the header")
	assert.Equal(t, HeapEndSentinel, h.HP(), "no leftover block when the request exactly fits")
}

func TestHeap_allocateSplitsLeftover(t *testing.T) {
	_, h := newTestHeap(t, 64)
	addr, err := h.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, headerSize, addr)
	// leftover = 64 - headerSize - 16 - headerSize = 32, split off as a new
	// free block right after the allocated one.
	assert.NotEqual(t, HeapEndSentinel, h.HP())
	assert.Equal(t, addr+16, h.HP())
}

func TestHeap_outOfMemory(t *testing.T) {
	_, h := newTestHeap(t, 32)
	_, err := h.Allocate(1024)
	assert.ErrorAs(t, err, &OutOfMemoryError{})
}

func TestHeap_freeRestoresSingleBlock(t *testing.T) {
	_, h := newTestHeap(t, 64)
	addr, err := h.Allocate(56)
	require.NoError(t, err)
	require.NoError(t, h.Free(addr))
	assert.Equal(t, 0, h.HP(), "freeing the only block restores the initial single free region")

	addr2, err := h.Allocate(56)
	require.NoError(t, err)
	assert.Equal(t, addr, addr2, "the reclaimed block is reused")
}

func TestHeap_freeCoalescesNeighbors(t *testing.T) {
	_, h := newTestHeap(t, 3*headerSize+48)
	a, err := h.Allocate(16)
	require.NoError(t, err)
	b, err := h.Allocate(16)
	require.NoError(t, err)
	c, err := h.Allocate(16)
	require.NoError(t, err)

	require.NoError(t, h.Free(a))
	require.NoError(t, h.Free(c))
	// a and c are not adjacent (b sits between them), so the free list should
	// have two entries until b is freed too.
	require.NoError(t, h.Free(b))

	// freeing the middle block should merge all three back into one region
	// starting at a's header.
	assert.Equal(t, a-headerSize, h.HP())
	full, err := h.Allocate(3*16 + 2*headerSize)
	require.NoError(t, err)
	assert.Equal(t, a, full, "the fully coalesced block satisfies a request spanning all three original allocations")
}

func TestHeap_freeListStaysSortedByAddress(t *testing.T) {
	_, h := newTestHeap(t, 4*headerSize+64)
	a, err := h.Allocate(8)
	require.NoError(t, err)
	b, err := h.Allocate(8)
	require.NoError(t, err)
	c, err := h.Allocate(8)
	require.NoError(t, err)
	require.Less(t, a, b)
	require.Less(t, b, c)

	// free out of address order; the list must still walk in ascending
	// address order afterward (Free's insertion point search relies on it).
	require.NoError(t, h.Free(c))
	require.NoError(t, h.Free(a))

	var addrs []int
	for cur := h.HP(); cur != HeapEndSentinel; {
		addrs = append(addrs, cur)
		_, next, err := h.header(cur)
		require.NoError(t, err)
		cur = next
	}
	for i := 1; i < len(addrs); i++ {
		assert.Less(t, addrs[i-1], addrs[i], "free list must stay sorted by address")
	}
}
