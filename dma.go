// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"unsafe"

	"github.com/platinasystems/stm32eth/hw"
)

// descriptor is the 4 word control record the DMA engine reads and
// writes.  It lives in the DMA heap at a stable 8 byte aligned address
// for the lifetime of its ring; the words are register cells since the
// engine updates them concurrently with the CPU.
//
// Word usage (second address chained mode):
//   w[0] status: OWN plus rx/tx specific flags
//   w[1] control: buffer size, chained/end-of-ring flags
//   w[2] buffer address
//   w[3] next descriptor address
type descriptor struct {
	w [4]reg
}

func new_descriptor() (*descriptor, hw.Index, error) {
	b, id, err := hw.DmaAllocAligned(uint(unsafe.Sizeof(descriptor{})), log2BufferAlignBytes)
	if err != nil {
		return nil, hw.IndexNil, err
	}
	d := (*descriptor)(unsafe.Pointer(&b[0]))
	for i := range d.w {
		d.w[i].Set(0)
	}
	return d, id, nil
}

func (d *descriptor) addr() uintptr { return uintptr(unsafe.Pointer(d)) }

// Exactly one side may access a descriptor and its buffer at any
// instant; the OWN bit in w[0] is the sole arbiter.  owner names the
// side a ring slot currently belongs to.
type owner int

const (
	software_owned owner = iota
	hardware_owned
)

func (o owner) String() string {
	if o == hardware_owned {
		return "hw"
	}
	return "sw"
}
