// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"github.com/platinasystems/log"

	"github.com/platinasystems/stm32eth/hw"
)

const (
	// w[0] status
	rx_desc0_owned_by_dma       = 1 << 31
	rx_desc0_error_summary      = 1 << 15
	rx_desc0_first_segment      = 1 << 9
	rx_desc0_last_segment       = 1 << 8
	rx_desc0_frame_length_shift = 16
	rx_desc0_frame_length_mask  = 0x3fff

	// w[1] control
	rx_desc1_end_of_ring      = 1 << 15
	rx_desc1_chained          = 1 << 14
	rx_desc1_buffer_size_mask = 0xfff
)

type rx_descriptor struct {
	d  *descriptor
	id hw.Index
}

func new_rx_descriptor() (r rx_descriptor, err error) {
	r.d, r.id, err = new_descriptor()
	if err != nil {
		return
	}
	r.d.w[1].Set(rx_desc1_chained)
	return
}

func (r rx_descriptor) addr() uintptr { return r.d.addr() }

func (r rx_descriptor) owner() owner {
	if r.d.w[0].Has(rx_desc0_owned_by_dma) {
		return hardware_owned
	}
	return software_owned
}

// give_to_dma is the single ownership transfer operation: everything
// written to the descriptor and its buffer must be visible before the
// OWN bit flips.
func (r rx_descriptor) give_to_dma() {
	hw.MemoryBarrier()
	r.d.w[0].Or(rx_desc0_owned_by_dma)
}

func (r rx_descriptor) has_error() bool { return r.d.w[0].Has(rx_desc0_error_summary) }
func (r rx_descriptor) is_first() bool  { return r.d.w[0].Has(rx_desc0_first_segment) }
func (r rx_descriptor) is_last() bool   { return r.d.w[0].Has(rx_desc0_last_segment) }

func (r rx_descriptor) frame_length() uint {
	return uint((r.d.w[0].Get() >> rx_desc0_frame_length_shift) & rx_desc0_frame_length_mask)
}

func (r rx_descriptor) set_buffer(b *Buffer) {
	r.d.w[2].Set(uint32(b.Addr()))
	r.d.w[1].Replace(uint32(b.Cap()), rx_desc1_buffer_size_mask)
}

func (r rx_descriptor) buffer_addr() uintptr { return uintptr(r.d.w[2].Get()) }

// chain_to links this descriptor to next, or marks it as the ring's
// end when next is zero.  Relinking an old end entry clears its
// end-of-ring flag.
func (r rx_descriptor) chain_to(next uintptr) {
	r.d.w[3].Set(uint32(next))
	if next == 0 {
		r.d.w[1].Or(rx_desc1_end_of_ring)
	} else {
		r.d.w[1].Andnot(rx_desc1_end_of_ring)
	}
}

type rx_ring_entry struct {
	desc   rx_descriptor
	buffer *Buffer
}

func new_rx_ring_entry(capacity uint) (e rx_ring_entry, err error) {
	e.desc, err = new_rx_descriptor()
	if err != nil {
		return
	}
	e.buffer, err = NewBuffer(capacity)
	if err != nil {
		return
	}
	e.desc.set_buffer(e.buffer)
	e.desc.give_to_dma()
	return
}

// take_received inspects a completed entry.  pkt is non nil only for a
// whole single descriptor frame; advance reports whether the cursor
// slot was consumed.
func (e *rx_ring_entry) take_received() (pkt *Buffer, advance bool) {
	d := e.desc
	switch {
	case d.owner() == hardware_owned:
		// Nothing ready.
	case d.has_error():
		// Drop the frame; re-offer the slot with its buffer pointer
		// untouched so hardware can overwrite the bad frame in place.
		log.Print("stm32eth: rx: skipping error frame")
		d.give_to_dma()
	case d.is_first() && d.is_last():
		fresh, err := NewBuffer(e.buffer.Cap())
		if err != nil {
			// DMA heap exhausted: drop the frame, keep the old
			// buffer armed.  The slot still cycles.
			log.Print("stm32eth: rx: ", err, ", dropping frame")
			d.give_to_dma()
			advance = true
			return
		}
		pkt = e.buffer
		pkt.SetLen(d.frame_length())
		e.buffer = fresh
		d.set_buffer(fresh)
		d.give_to_dma()
		advance = true
	default:
		// Frames spanning more than one descriptor are not
		// reassembled; they are discarded by design.
		log.Print("stm32eth: rx: skipping fragmented frame first=",
			d.is_first(), " last=", d.is_last())
		d.give_to_dma()
		advance = true
	}
	return
}

// rx_ring is the receive half: a circular chain of descriptors the DMA
// engine fills, and a cursor at the next entry due for software.
type rx_ring struct {
	buffer_bytes uint
	entries      []rx_ring_entry
	next_entry   uint
}

func new_rx_ring(buffer_bytes uint) *rx_ring {
	return &rx_ring{buffer_bytes: buffer_bytes}
}

// start grows the ring to at least ring_len entries, links the chain,
// registers the head with the engine and starts reception.  Rings only
// grow; existing entries keep their descriptors and buffers.
func (r *rx_ring) start(ring_len uint, dma *DmaRegs) error {
	for uint(len(r.entries)) < ring_len {
		e, err := new_rx_ring_entry(r.buffer_bytes)
		if err != nil {
			return err
		}
		r.entries = append(r.entries, e)
	}

	for i := range r.entries {
		next := uintptr(0)
		if i+1 < len(r.entries) {
			next = r.entries[i+1].desc.addr()
		}
		r.entries[i].desc.chain_to(next)
	}
	r.next_entry = 0

	hw.MemoryBarrier()
	dma.rx_list_address.Set(uint32(r.entries[0].desc.addr()))
	dma.operation_mode.Or(operation_start_receive)
	r.demand_poll(dma)
	return nil
}

// demand_poll prompts a suspended engine to re-check the descriptor it
// is pointed at.
func (r *rx_ring) demand_poll(dma *DmaRegs) { dma.rx_poll_demand.Set(1) }

func (r *rx_ring) running_state(dma *DmaRegs) RunningState {
	switch dma.rx_process_state() {
	case 0b000: // reset or stop receive issued
		return Stopped
	case 0b100: // descriptor unavailable
		return Stopped
	case 0b001: // fetching descriptor
		return Running
	case 0b011: // waiting for packet
		return Running
	case 0b101: // closing descriptor
		return Running
	case 0b111: // transferring packet data to memory
		return Running
	}
	return Unknown
}

// recv_next returns the next completed frame, or nil immediately when
// nothing is ready.  A ring that stalled with no free descriptor self
// heals here: as soon as a slot is freed a stopped engine is demand
// polled.
func (r *rx_ring) recv_next(dma *DmaRegs) *Buffer {
	pkt, advance := r.entries[r.next_entry].take_received()
	if advance {
		r.next_entry++
		if r.next_entry >= uint(len(r.entries)) {
			r.next_entry = 0
		}
	}

	if !r.running_state(dma).IsRunning() {
		r.demand_poll(dma)
	}
	return pkt
}
