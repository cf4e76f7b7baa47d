// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"errors"

	"github.com/platinasystems/fdt"
)

// Board parameters come from the flattened device tree most boot
// chains already carry: the station address, the PHY's management bus
// address and the bus clock the MII divider is derived from.

var ErrNoEthernetNode = errors.New("stm32eth: no ethernet node in device tree")

// ConfigFromDTB parses a device tree blob and extracts the Ethernet
// configuration.
func ConfigFromDTB(b []byte) (Config, error) {
	t := &fdt.Tree{IsLittleEndian: false}
	if err := t.Parse(b); err != nil {
		return DefaultConfig(), err
	}
	return ConfigFromDeviceTree(t)
}

// ConfigFromDeviceTree reads the first node compatible with
// st,stm32-dwmac.  Missing properties keep their defaults.
func ConfigFromDeviceTree(t *fdt.Tree) (c Config, err error) {
	c = DefaultConfig()

	var node *fdt.Node
	t.EachProperty("compatible", "st,stm32-dwmac",
		func(n *fdt.Node, name, value string) {
			if node == nil {
				node = n
			}
		})
	if node == nil {
		err = ErrNoEthernetNode
		return
	}

	if v, ok := node.Properties["local-mac-address"]; ok && len(v) == 6 {
		copy(c.Address[:], v)
	} else if v, ok := node.Properties["mac-address"]; ok && len(v) == 6 {
		copy(c.Address[:], v)
	}
	if v, ok := node.Properties["phy-addr"]; ok && len(v) >= 4 {
		c.PhyAddr = uint8(t.PropUint32(v))
	}
	if v, ok := node.Properties["clock-frequency"]; ok && len(v) >= 4 {
		c.ClockRange = ClockRangeForHclk(uint(t.PropUint32(v)))
	}
	return
}

// ClockRangeForHclk maps the AHB clock frequency to the MII clock
// range code.
func ClockRangeForHclk(hz uint) uint8 {
	switch {
	case hz >= 150000000:
		return ClockRangeHclkDiv102
	case hz >= 100000000:
		return ClockRangeHclkDiv62
	case hz >= 60000000:
		return ClockRangeHclkDiv42
	case hz >= 35000000:
		return ClockRangeHclkDiv26
	}
	return ClockRangeHclkDiv16
}
