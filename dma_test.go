// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/stm32eth/hw"
)

func TestBufferAlignment(t *testing.T) {
	for i := 0; i < 8; i++ {
		b, err := NewBuffer(MTU)
		require.NoError(t, err)
		assert.Zero(t, b.Addr()&7, "low 3 address bits must be zero")
		assert.Equal(t, uint(MTU), b.Cap())
		assert.Zero(t, b.Len())
		b.Free()
	}
}

func TestBufferLen(t *testing.T) {
	b, err := NewBuffer(64)
	require.NoError(t, err)
	defer b.Free()

	b.SetLen(64)
	assert.Len(t, b.Bytes(), 64)
	b.SetLen(10)
	assert.Len(t, b.Bytes(), 10)

	assert.Panics(t, func() { b.SetLen(65) })
}

func TestBufferDoubleFree(t *testing.T) {
	b, err := NewBuffer(64)
	require.NoError(t, err)
	b.Free()
	assert.NotPanics(t, b.Free)
}

func TestDescriptorAlignment(t *testing.T) {
	d, id, err := new_descriptor()
	require.NoError(t, err)
	assert.Zero(t, d.addr()&7, "low 3 address bits must be zero")
	for i := range d.w {
		assert.Zero(t, d.w[i].Get())
	}
	assert.NotEqual(t, hw.IndexNil, id, "valid heap index")
}

func TestOwnerString(t *testing.T) {
	assert.Equal(t, "sw", software_owned.String())
	assert.Equal(t, "hw", hardware_owned.String())
}

func TestRunningStateString(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", Unknown.String())
	assert.True(t, Running.IsRunning())
	assert.False(t, Stopped.IsRunning())
}

func TestDescriptorStrings(t *testing.T) {
	r, err := new_rx_descriptor()
	require.NoError(t, err)
	r.give_to_dma()
	assert.Contains(t, r.String(), "hw:")

	r.d.w[0].Set(rx_desc0_first_segment | rx_desc0_last_segment |
		64<<rx_desc0_frame_length_shift)
	s := r.String()
	assert.Contains(t, s, "64 bytes")
	assert.Contains(t, s, "first")
	assert.Contains(t, s, "last")

	x, err := new_tx_descriptor()
	require.NoError(t, err)
	assert.Contains(t, x.String(), "sw:")
	x.d.w[0].Or(tx_desc0_error_summary)
	assert.Contains(t, x.String(), "error")
}
