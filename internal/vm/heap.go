package vm

import (
	"fmt"

	"github.com/f12lang/f12/internal/bytecode"
)

// headerSize is the free-list block header: (data_size:int, next:int).
const headerSize = bytecode.HeapHeaderSize

// HeapEndSentinel marks the tail of the free list (spec.md §4.6: "next =
// heap_end_sentinel ... marks the list tail"), chosen as the all-ones
// 32-bit pattern so it can never collide with a real in-region offset.
const HeapEndSentinel = -1 // int32 bit pattern 0xFFFFFFFF

// OutOfMemoryError is raised when no free block can satisfy a request.
type OutOfMemoryError struct{ Requested int }

func (e OutOfMemoryError) Error() string {
	return fmt.Sprintf("heap: out of memory (requested %d bytes)", e.Requested)
}

// Heap is a first-fit, coalescing free-list allocator over a sub-region of
// a Bytes buffer (spec.md §4.6).
type Heap struct {
	mem  *Bytes
	base int
	size int
	hp   int // header address of the leftmost free block, or HeapEndSentinel
}

// NewHeap carves out [base, base+size) as a single free block.
func NewHeap(mem *Bytes, base, size int) (*Heap, error) {
	h := &Heap{mem: mem, base: base, size: size, hp: base}
	if err := h.writeHeader(base, size-headerSize, HeapEndSentinel); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Heap) HP() int { return h.hp }

func (h *Heap) header(addr int) (dataSize, next int, err error) {
	dataSize, err = h.mem.Int(addr)
	if err != nil {
		return 0, 0, err
	}
	next, err = h.mem.Int(addr + 4)
	return dataSize, next, err
}

func (h *Heap) writeHeader(addr, dataSize, next int) error {
	if err := h.mem.SetInt(addr, dataSize); err != nil {
		return err
	}
	return h.mem.SetInt(addr+4, next)
}

func (h *Heap) setNext(addr, next int) error {
	return h.mem.SetInt(addr+4, next)
}

// Allocate reserves requested bytes, returning the data address (past the
// header) of the reserved block. First-fit: the first free block large
// enough is used, split if the leftover would itself hold a useful block.
func (h *Heap) Allocate(requested int) (int, error) {
	prev := -1
	cur := h.hp
	for cur != HeapEndSentinel {
		dataSize, next, err := h.header(cur)
		if err != nil {
			return 0, err
		}
		if dataSize >= requested {
			leftover := dataSize - requested
			if leftover > headerSize {
				freeAddr := cur + headerSize + requested
				if err := h.writeHeader(freeAddr, leftover-headerSize, next); err != nil {
					return 0, err
				}
				if err := h.writeHeader(cur, requested, 0); err != nil {
					return 0, err
				}
				next = freeAddr
			} else {
				if err := h.writeHeader(cur, dataSize, 0); err != nil {
					return 0, err
				}
			}
			if prev == -1 {
				h.hp = next
			} else {
				if err := h.setNext(prev, next); err != nil {
					return 0, err
				}
			}
			return cur + headerSize, nil
		}
		prev = cur
		cur = next
	}
	return 0, OutOfMemoryError{Requested: requested}
}

// Free returns the block at dataAddr to the free list, inserted at its
// sorted position and coalesced with either neighbor it now abuts.
func (h *Heap) Free(dataAddr int) error {
	header := dataAddr - headerSize
	dataSize, _, err := h.header(header)
	if err != nil {
		return err
	}

	prev := -1
	cur := h.hp
	for cur != HeapEndSentinel && cur < header {
		prev = cur
		_, next, err := h.header(cur)
		if err != nil {
			return err
		}
		cur = next
	}

	mergedSize, mergedNext := dataSize, cur
	if cur != HeapEndSentinel && header+headerSize+dataSize == cur {
		curSize, curNext, err := h.header(cur)
		if err != nil {
			return err
		}
		mergedSize += headerSize + curSize
		mergedNext = curNext
	}
	if err := h.writeHeader(header, mergedSize, mergedNext); err != nil {
		return err
	}

	if prev == -1 {
		h.hp = header
		return nil
	}
	prevSize, _, err := h.header(prev)
	if err != nil {
		return err
	}
	if prev+headerSize+prevSize == header {
		if err := h.writeHeader(prev, prevSize+headerSize+mergedSize, mergedNext); err != nil {
			return err
		}
		return nil
	}
	return h.setNext(prev, header)
}
