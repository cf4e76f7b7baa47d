// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"errors"

	"github.com/platinasystems/stm32eth/hw"
)

// ErrRingFull reports a send into a ring whose cursor slot is still
// hardware owned.  The caller may retry after the engine drains.
var ErrRingFull = errors.New("stm32eth: tx ring full")

const (
	// w[0] status/control
	tx_desc0_owned_by_dma      = 1 << 31
	tx_desc0_irq_on_completion = 1 << 30
	tx_desc0_last_segment      = 1 << 29
	tx_desc0_first_segment     = 1 << 28
	tx_desc0_end_of_ring       = 1 << 21
	tx_desc0_chained           = 1 << 20
	tx_desc0_error_summary     = 1 << 15

	// w[1] control
	tx_desc1_buffer_size_mask = 0x1fff
)

type tx_descriptor struct {
	d  *descriptor
	id hw.Index
}

func new_tx_descriptor() (t tx_descriptor, err error) {
	t.d, t.id, err = new_descriptor()
	if err != nil {
		return
	}
	t.d.w[0].Set(tx_desc0_chained)
	return
}

func (t tx_descriptor) addr() uintptr { return t.d.addr() }

func (t tx_descriptor) owner() owner {
	if t.d.w[0].Has(tx_desc0_owned_by_dma) {
		return hardware_owned
	}
	return software_owned
}

func (t tx_descriptor) give_to_dma() {
	hw.MemoryBarrier()
	t.d.w[0].Or(tx_desc0_owned_by_dma)
}

func (t tx_descriptor) has_error() bool { return t.d.w[0].Has(tx_desc0_error_summary) }

// set_buffer programs one whole frame: no fragmentation, so every
// frame is both first and last segment.
func (t tx_descriptor) set_buffer(b *Buffer) {
	t.d.w[2].Set(uint32(b.Addr()))
	t.d.w[1].Replace(uint32(b.Len()), tx_desc1_buffer_size_mask)
	t.d.w[0].Or(tx_desc0_first_segment | tx_desc0_last_segment)
}

func (t tx_descriptor) clear() {
	t.d.w[0].Set(tx_desc0_chained)
	t.d.w[1].Set(0)
	t.d.w[2].Set(0)
}

func (t tx_descriptor) chain_to(next uintptr) {
	t.d.w[3].Set(uint32(next))
	if next == 0 {
		t.d.w[0].Or(tx_desc0_end_of_ring)
	} else {
		t.d.w[0].Andnot(tx_desc0_end_of_ring)
	}
}

type tx_ring_entry struct {
	desc   tx_descriptor
	buffer *Buffer
}

// reclaim releases the buffer of a transmitted entry.  Only valid once
// hardware has cleared OWN.
func (e *tx_ring_entry) reclaim() {
	if e.buffer != nil {
		e.buffer.Free()
		e.buffer = nil
	}
}

// tx_ring is the transmit half.  next_entry is the send cursor; the
// slot under it must be reclaimed before reuse or the engine would
// read freed memory.
type tx_ring struct {
	entries    []tx_ring_entry
	next_entry uint
}

func new_tx_ring(ring_len uint) *tx_ring {
	return &tx_ring{entries: make([]tx_ring_entry, 0, ring_len)}
}

// start initializes every descriptor to software owned, chained and
// empty, links the chain, registers the head pointer and enables the
// transmit engine.
func (t *tx_ring) start(dma *DmaRegs) error {
	for uint(len(t.entries)) < uint(cap(t.entries)) {
		d, err := new_tx_descriptor()
		if err != nil {
			return err
		}
		t.entries = append(t.entries, tx_ring_entry{desc: d})
	}

	for i := range t.entries {
		e := &t.entries[i]
		e.reclaim()
		e.desc.clear()
		next := uintptr(0)
		if i+1 < len(t.entries) {
			next = t.entries[i+1].desc.addr()
		}
		e.desc.chain_to(next)
	}
	t.next_entry = 0

	hw.MemoryBarrier()
	dma.tx_list_address.Set(uint32(t.entries[0].desc.addr()))
	dma.operation_mode.Or(operation_start_transmit)
	return nil
}

// send takes ownership of b and hands it to the engine at the cursor.
// The previously transmitted buffer in that slot is reclaimed lazily
// here.  Returns ErrRingFull when the slot is still hardware owned.
func (t *tx_ring) send(b *Buffer) error {
	e := &t.entries[t.next_entry]
	if e.desc.owner() == hardware_owned {
		return ErrRingFull
	}
	e.reclaim()

	e.buffer = b
	e.desc.set_buffer(b)
	e.desc.give_to_dma()

	t.next_entry++
	if t.next_entry >= uint(len(t.entries)) {
		t.next_entry = 0
	}
	return nil
}

// reap releases the buffers of all entries hardware has completed.
// send reclaims lazily, so calling this is optional; it bounds how
// long transmitted buffers linger.
func (t *tx_ring) reap() (n uint) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.buffer != nil && e.desc.owner() == software_owned {
			e.reclaim()
			n++
		}
	}
	return
}

// queue_len approximates the in flight backlog: entries the engine has
// not yet completed.
func (t *tx_ring) queue_len() (n uint) {
	for i := range t.entries {
		if t.entries[i].desc.owner() == hardware_owned {
			n++
		}
	}
	return
}

func (t *tx_ring) demand_poll(dma *DmaRegs) { dma.tx_poll_demand.Set(1) }

func (t *tx_ring) running_state(dma *DmaRegs) RunningState {
	switch dma.tx_process_state() {
	case 0b000: // reset or stop transmit issued
		return Stopped
	case 0b110: // suspended, descriptor unavailable
		return Stopped
	case 0b001: // fetching descriptor
		return Running
	case 0b010: // waiting for status
		return Running
	case 0b011: // reading packet data from memory
		return Running
	case 0b111: // closing descriptor
		return Running
	}
	return Unknown
}

func (t *tx_ring) is_running(dma *DmaRegs) bool { return t.running_state(dma).IsRunning() }
