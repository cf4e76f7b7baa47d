// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Hardware register and DMA memory primitives.
package hw

import (
	"sync/atomic"
	"unsafe"
)

// Reg32 is a 32 bit hardware register cell.  All accesses go through
// atomic loads and stores so reads and writes are never reordered,
// elided or torn by the compiler.  A register block is a Go struct of
// Reg32 fields laid out at the device's offsets; tests may allocate
// such a struct in plain RAM.
type Reg32 uint32

func (r *Reg32) addr() *uint32 { return (*uint32)(unsafe.Pointer(r)) }

func (r *Reg32) Get() uint32  { return atomic.LoadUint32(r.addr()) }
func (r *Reg32) Set(v uint32) { atomic.StoreUint32(r.addr(), v) }

func (r *Reg32) Or(v uint32) (x uint32) {
	x = r.Get() | v
	r.Set(x)
	return
}

func (r *Reg32) Andnot(v uint32) (x uint32) {
	x = r.Get() &^ v
	r.Set(x)
	return
}

// Replace sets the bits selected by mask to v, leaving others alone.
func (r *Reg32) Replace(v, mask uint32) (x uint32) {
	x = (r.Get() &^ mask) | (v & mask)
	r.Set(x)
	return
}

func (r *Reg32) Has(v uint32) bool { return r.Get()&v == v }

var barrier uint32

// MemoryBarrier orders descriptor/buffer memory writes before the
// register write that hands them to the DMA engine.
func MemoryBarrier() {
	atomic.AddUint32(&barrier, 0)
}
