// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"unsafe"

	"github.com/platinasystems/stm32eth/hw"
)

// The DMA engine truncates the low 3 bits of buffer and descriptor
// addresses, so everything handed to it is 8 byte aligned.
const log2BufferAlignBytes = 3

// Buffer is one frame's worth of DMA reachable memory: a fixed
// capacity block plus the logical length of the data inside it.
//
// A Buffer referenced by a hardware owned descriptor belongs to the
// DMA engine; software must not touch it until ownership returns.
type Buffer struct {
	b   []byte
	id  hw.Index
	len uint
}

// NewBuffer allocates an aligned Buffer of the given capacity from the
// DMA heap.  Fails only when the heap is a fixed region and exhausted.
func NewBuffer(capacity uint) (*Buffer, error) {
	b, id, err := hw.DmaAllocAligned(capacity, log2BufferAlignBytes)
	if err != nil {
		return nil, err
	}
	return &Buffer{b: b[:capacity], id: id}, nil
}

// Addr is the bus address programmed into descriptors.
func (b *Buffer) Addr() uintptr { return uintptr(unsafe.Pointer(&b.b[0])) }

func (b *Buffer) Cap() uint { return uint(len(b.b)) }
func (b *Buffer) Len() uint { return b.len }

// SetLen sets the logical data length.  n must not exceed Cap.
func (b *Buffer) SetLen(n uint) {
	if n > b.Cap() {
		panic("stm32eth: buffer length exceeds capacity")
	}
	b.len = n
}

// Bytes is the payload view: the first Len bytes of the block.
func (b *Buffer) Bytes() []byte { return b.b[:b.len] }

// Free returns the block to the DMA heap.  The Buffer must not be
// referenced by any hardware owned descriptor.
func (b *Buffer) Free() {
	if b.b != nil {
		hw.DmaFree(b.id)
		b.b = nil
	}
}
