// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"testing"

	"github.com/platinasystems/fdt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ethernet_tree(props map[string][]byte) *fdt.Tree {
	eth := &fdt.Node{
		Name:       "ethernet@40028000",
		Depth:      2,
		Properties: props,
	}
	soc := &fdt.Node{
		Name:     "soc",
		Depth:    1,
		Children: map[string]*fdt.Node{eth.Name: eth},
	}
	root := &fdt.Node{
		Name:     "/",
		Depth:    0,
		Children: map[string]*fdt.Node{soc.Name: soc},
	}
	return &fdt.Tree{RootNode: root}
}

func TestConfigFromDeviceTree(t *testing.T) {
	tree := ethernet_tree(map[string][]byte{
		"compatible":        []byte("st,stm32f429-dwmac\x00st,stm32-dwmac\x00"),
		"local-mac-address": {0x02, 0x00, 0x11, 0x22, 0x33, 0x44},
		"phy-addr":          {0, 0, 0, 1},
		"clock-frequency":   {0x0a, 0x03, 0x7a, 0x00}, // 168 MHz, big endian
	})

	c, err := ConfigFromDeviceTree(tree)
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0x02, 0x00, 0x11, 0x22, 0x33, 0x44}, c.Address)
	assert.Equal(t, uint8(1), c.PhyAddr)
	assert.Equal(t, uint8(ClockRangeHclkDiv102), c.ClockRange)
}

func TestConfigFromDeviceTreeFallbacks(t *testing.T) {
	tree := ethernet_tree(map[string][]byte{
		"compatible":  []byte("st,stm32-dwmac\x00"),
		"mac-address": {0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
	})

	c, err := ConfigFromDeviceTree(tree)
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0x02, 0, 0, 0, 0, 1}, c.Address)

	// Missing properties keep the defaults.
	d := DefaultConfig()
	assert.Equal(t, d.PhyAddr, c.PhyAddr)
	assert.Equal(t, d.ClockRange, c.ClockRange)
}

func TestConfigFromDeviceTreeNoNode(t *testing.T) {
	tree := ethernet_tree(map[string][]byte{
		"compatible": []byte("fsl,imx6q-fec\x00"),
	})

	_, err := ConfigFromDeviceTree(tree)
	assert.ErrorIs(t, err, ErrNoEthernetNode)
}

func TestClockRangeForHclk(t *testing.T) {
	for hz, want := range map[uint]uint8{
		25000000:  ClockRangeHclkDiv16,
		35000000:  ClockRangeHclkDiv26,
		50000000:  ClockRangeHclkDiv26,
		60000000:  ClockRangeHclkDiv42,
		84000000:  ClockRangeHclkDiv42,
		100000000: ClockRangeHclkDiv62,
		120000000: ClockRangeHclkDiv62,
		150000000: ClockRangeHclkDiv102,
		168000000: ClockRangeHclkDiv102,
	} {
		assert.Equal(t, want, ClockRangeForHclk(hz), "%d Hz", hz)
	}
}
