// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// complete_rx plays the device side: hardware wrote a whole frame of n
// bytes into the entry's buffer and passed the descriptor back.
func complete_rx(e *rx_ring_entry, n uint) {
	copy(e.buffer.b, frame_pattern(n))
	e.desc.d.w[0].Set(rx_desc0_first_segment |
		rx_desc0_last_segment |
		uint32(n)<<rx_desc0_frame_length_shift)
}

func frame_pattern(n uint) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func start_rx_ring(t *testing.T, ring_len uint) (*rx_ring, *DmaRegs) {
	dma := new(DmaRegs)
	r := new_rx_ring(MTU)
	require.NoError(t, r.start(ring_len, dma))
	return r, dma
}

func TestRxRingStart(t *testing.T) {
	r, dma := start_rx_ring(t, 4)

	require.Len(t, r.entries, 4)
	for i, e := range r.entries {
		assert.Equal(t, hardware_owned, e.desc.owner(), "entry %d", i)
		assert.True(t, e.desc.d.w[1].Has(rx_desc1_chained), "entry %d", i)
		assert.Equal(t, uint32(e.buffer.Addr()), e.desc.d.w[2].Get(), "entry %d", i)

		last := i == len(r.entries)-1
		assert.Equal(t, last, e.desc.d.w[1].Has(rx_desc1_end_of_ring), "entry %d", i)
		if last {
			assert.Zero(t, e.desc.d.w[3].Get())
		} else {
			assert.Equal(t, uint32(r.entries[i+1].desc.addr()), e.desc.d.w[3].Get())
		}
	}

	assert.Equal(t, uint32(r.entries[0].desc.addr()), dma.rx_list_address.Get())
	assert.True(t, dma.operation_mode.Has(operation_start_receive))
	assert.Equal(t, uint32(1), dma.rx_poll_demand.Get())
}

func TestRxRingSingleEntry(t *testing.T) {
	r, dma := start_rx_ring(t, 1)

	e := &r.entries[0]
	assert.True(t, e.desc.d.w[1].Has(rx_desc1_end_of_ring))
	assert.Zero(t, e.desc.d.w[3].Get())

	complete_rx(e, 64)
	pkt := r.recv_next(dma)
	require.NotNil(t, pkt)
	assert.Equal(t, uint(64), pkt.Len())
	assert.Equal(t, uint(0), r.next_entry)
	pkt.Free()
}

func TestRxReceiveSwapsBuffer(t *testing.T) {
	r, dma := start_rx_ring(t, 2)

	assert.Nil(t, r.recv_next(dma), "nothing completed yet")
	assert.Equal(t, uint(0), r.next_entry)

	old := r.entries[0].buffer
	complete_rx(&r.entries[0], 100)

	pkt := r.recv_next(dma)
	require.NotNil(t, pkt)
	assert.Same(t, old, pkt)
	assert.Equal(t, uint(100), pkt.Len())
	assert.Equal(t, frame_pattern(100), pkt.Bytes())

	// The slot was re-armed with a fresh buffer and handed back.
	e := &r.entries[0]
	assert.NotSame(t, old, e.buffer)
	assert.Equal(t, hardware_owned, e.desc.owner())
	assert.Equal(t, e.buffer.Addr(), e.desc.buffer_addr())
	assert.Equal(t, uint(1), r.next_entry)
	pkt.Free()
}

func TestRxErrorFrameDoesNotAdvance(t *testing.T) {
	r, dma := start_rx_ring(t, 2)

	e := &r.entries[0]
	old_addr := e.desc.buffer_addr()
	e.desc.d.w[0].Set(rx_desc0_error_summary |
		rx_desc0_first_segment | rx_desc0_last_segment)

	assert.Nil(t, r.recv_next(dma))
	assert.Equal(t, uint(0), r.next_entry, "cursor stays on re-armed slot")
	assert.Equal(t, hardware_owned, e.desc.owner())
	assert.Equal(t, old_addr, e.desc.buffer_addr(), "buffer reused in place")
}

func TestRxFragmentDropped(t *testing.T) {
	r, dma := start_rx_ring(t, 2)

	// First segment of a frame spanning descriptors.
	r.entries[0].desc.d.w[0].Set(rx_desc0_first_segment)

	assert.Nil(t, r.recv_next(dma))
	assert.Equal(t, uint(1), r.next_entry, "fragment slot is consumed")
	assert.Equal(t, hardware_owned, r.entries[0].desc.owner())
}

func TestRxCursorWraps(t *testing.T) {
	r, dma := start_rx_ring(t, 2)

	for i := uint(0); i < 5; i++ {
		want := i % 2
		complete_rx(&r.entries[want], 60)
		pkt := r.recv_next(dma)
		require.NotNil(t, pkt, "frame %d", i)
		assert.Equal(t, (want+1)%2, r.next_entry)
		pkt.Free()
	}
}

func TestRxRingGrow(t *testing.T) {
	r, dma := start_rx_ring(t, 2)

	keep := [2]uintptr{r.entries[0].desc.addr(), r.entries[1].desc.addr()}
	require.NoError(t, r.start(5, dma))

	require.Len(t, r.entries, 5)
	assert.Equal(t, keep[0], r.entries[0].desc.addr())
	assert.Equal(t, keep[1], r.entries[1].desc.addr())

	// Old end entry is now interior; exactly the new end carries the flag.
	ends := 0
	for _, e := range r.entries {
		if e.desc.d.w[1].Has(rx_desc1_end_of_ring) {
			ends++
		}
	}
	assert.Equal(t, 1, ends)
	assert.False(t, r.entries[1].desc.d.w[1].Has(rx_desc1_end_of_ring))
	assert.True(t, r.entries[4].desc.d.w[1].Has(rx_desc1_end_of_ring))
	assert.Equal(t, uint32(keep[0]), dma.rx_list_address.Get())
}

func TestRxRunningState(t *testing.T) {
	dma := new(DmaRegs)
	r := new_rx_ring(MTU)

	for code, want := range map[uint32]RunningState{
		0b000: Stopped,
		0b100: Stopped,
		0b001: Running,
		0b011: Running,
		0b101: Running,
		0b111: Running,
		0b010: Unknown,
		0b110: Unknown,
	} {
		dma.status.Set(code << status_rx_process_state_shift)
		assert.Equal(t, want, r.running_state(dma), "state code %03b", code)
	}
}

func TestRxDemandPollWhenStopped(t *testing.T) {
	r, dma := start_rx_ring(t, 2)

	// Engine suspended on descriptor unavailable; draining a slot must
	// prod it.
	dma.rx_poll_demand.Set(0)
	dma.status.Set(0b100 << status_rx_process_state_shift)
	complete_rx(&r.entries[0], 60)

	pkt := r.recv_next(dma)
	require.NotNil(t, pkt)
	assert.Equal(t, uint32(1), dma.rx_poll_demand.Get())
	pkt.Free()

	// A running engine is left alone.
	dma.rx_poll_demand.Set(0)
	dma.status.Set(0b011 << status_rx_process_state_shift)
	assert.Nil(t, r.recv_next(dma))
	assert.Zero(t, dma.rx_poll_demand.Get())
}
