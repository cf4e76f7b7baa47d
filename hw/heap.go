// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// DMA descriptor and packet memory lives outside of regular Go object
// lifetime: the device holds raw addresses into it, so blocks must sit
// at stable addresses until explicitly freed.  MemHeap is a slab backed
// arena with a free list; it hands out address-stable aligned blocks
// identified by an Index for later Put.
//
// On a hosted system the heap grows by allocating new slabs.  On bare
// metal call InitData with the (uncached) DMA region once at startup;
// the heap is then fixed and allocation can fail.

var ErrNoMemory = errors.New("hw: dma heap exhausted")

type Index uint32

const IndexNil = ^Index(0)

const (
	log2MinBlockBytes = 3 // hardware drops low 3 address bits
	minBlockBytes     = 1 << log2MinBlockBytes
	slabBytes         = 1 << 16
)

type block struct {
	slab   uint32
	off    uint32
	size   uint32 // zero means slot is dead and recyclable
	in_use bool
}

type slab struct {
	data []byte
	base uint32 // first 8 byte aligned offset into data
	size uint32 // usable bytes starting at base
}

type MemHeap struct {
	mu       sync.Mutex
	slabs    []slab
	blocks   []block
	free_ids []Index
	fixed    bool
}

func round_up(x, m uint32) uint32 { return (x + m - 1) &^ (m - 1) }

// InitData gives the heap a fixed memory region; no further slabs will
// be allocated.
func (h *MemHeap) InitData(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slabs = nil
	h.blocks = nil
	h.free_ids = nil
	h.fixed = true
	h.add_slab(b)
}

func (h *MemHeap) add_slab(b []byte) {
	a := uintptr(unsafe.Pointer(&b[0]))
	// Distance from &b[0] to the next 8 byte boundary.
	base := uint32((minBlockBytes - a&(minBlockBytes-1)) & (minBlockBytes - 1))
	s := slab{data: b, base: base, size: (uint32(len(b)) - base) &^ (minBlockBytes - 1)}
	h.slabs = append(h.slabs, s)
	h.new_block(block{slab: uint32(len(h.slabs) - 1), off: 0, size: s.size})
}

func (h *MemHeap) new_block(b block) (id Index) {
	if n := len(h.free_ids); n > 0 {
		id = h.free_ids[n-1]
		h.free_ids = h.free_ids[:n-1]
		h.blocks[id] = b
		return
	}
	h.blocks = append(h.blocks, b)
	return Index(len(h.blocks) - 1)
}

func (h *MemHeap) kill_block(id Index) {
	h.blocks[id] = block{}
	h.free_ids = append(h.free_ids, id)
}

func (h *MemHeap) addr(b *block) uintptr {
	s := &h.slabs[b.slab]
	return uintptr(unsafe.Pointer(&s.data[s.base+b.off]))
}

// GetAligned returns an n byte block whose address has its low
// log2Align bits zero.  Alignments below 8 are rounded up to 8.
func (h *MemHeap) GetAligned(n, log2Align uint) (b []byte, id Index, err error) {
	if log2Align < log2MinBlockBytes {
		log2Align = log2MinBlockBytes
	}
	align := uint32(1) << log2Align
	size := round_up(uint32(n), minBlockBytes)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		for i := range h.blocks {
			blk := &h.blocks[i]
			if blk.in_use || blk.size == 0 {
				continue
			}
			a := h.addr(blk)
			pad := uint32((uintptr(align) - a&uintptr(align-1)) & uintptr(align-1))
			if blk.size < pad+size {
				continue
			}
			id = Index(i)
			if pad > 0 {
				// Split the unaligned front off as its own free block.
				front := *blk
				front.size = pad
				h.new_block(front)
				blk = &h.blocks[id] // new_block may move h.blocks
				blk.off += pad
				blk.size -= pad
			}
			if rest := blk.size - size; rest >= minBlockBytes {
				h.new_block(block{slab: blk.slab, off: blk.off + size, size: rest})
				blk = &h.blocks[id]
				blk.size = size
			}
			blk.in_use = true
			s := &h.slabs[blk.slab]
			o := s.base + blk.off
			b = s.data[o : o+size : o+size]
			return
		}
		if h.fixed {
			err = ErrNoMemory
			return
		}
		sb := slabBytes
		if want := int(size + align); want > sb {
			sb = want
		}
		h.add_slab(make([]byte, sb))
	}
}

// Put returns a block to the heap, coalescing it with free neighbors.
func (h *MemHeap) Put(id Index) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := &h.blocks[id]
	b.in_use = false
	for i := range h.blocks {
		n := &h.blocks[i]
		if Index(i) == id || n.in_use || n.size == 0 || n.slab != b.slab {
			continue
		}
		if n.off+n.size == b.off {
			b.off = n.off
			b.size += n.size
			h.kill_block(Index(i))
		} else if b.off+b.size == n.off {
			b.size += n.size
			h.kill_block(Index(i))
		}
	}
}

func (h *MemHeap) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	used, free := uint32(0), uint32(0)
	for i := range h.blocks {
		if b := &h.blocks[i]; b.in_use {
			used += b.size
		} else {
			free += b.size
		}
	}
	return fmt.Sprintf("%d slabs, %d bytes used, %d bytes free",
		len(h.slabs), used, free)
}

var heap = &MemHeap{}

func DmaInit(b []byte) { heap.InitData(b) }

func DmaAllocAligned(n, log2Align uint) ([]byte, Index, error) {
	return heap.GetAligned(n, log2Align)
}

func DmaAlloc(n uint) ([]byte, Index, error) { return heap.GetAligned(n, 0) }

func DmaFree(id Index) { heap.Put(id) }

func DmaHeapUsage() string { return heap.String() }
