// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"errors"
	"time"
)

// Station management interface: PHY register access over MDIO through
// the mii_address/mii_data pair.  One operation at a time; the busy
// bit gates each cycle.

var ErrSmiTimeout = errors.New("stm32eth: MII management interface timeout")

const (
	smi_timeout    = 10 * time.Millisecond
	smi_poll_sleep = 10 * time.Microsecond

	// Fields rewritten per operation; the clock range bits persist.
	smi_op_mask = 0xffff &^ mii_address_clock_range_mask
)

func (p *Phy) wait_ready() error {
	start := time.Now()
	for p.mac.mii_address.Has(mii_address_busy) {
		if time.Since(start) > smi_timeout {
			return ErrSmiTimeout
		}
		time.Sleep(smi_poll_sleep)
	}
	return nil
}

func (p *Phy) read_reg(r uint8) (uint16, error) {
	if err := p.wait_ready(); err != nil {
		return 0, err
	}
	p.mac.mii_address.Replace(
		uint32(p.addr)<<mii_address_phy_shift|
			uint32(r)<<mii_address_reg_shift|
			mii_address_busy,
		smi_op_mask)
	if err := p.wait_ready(); err != nil {
		return 0, err
	}
	return uint16(p.mac.mii_data.Get()), nil
}

func (p *Phy) write_reg(r uint8, v uint16) error {
	if err := p.wait_ready(); err != nil {
		return err
	}
	p.mac.mii_data.Set(uint32(v))
	p.mac.mii_address.Replace(
		uint32(p.addr)<<mii_address_phy_shift|
			uint32(r)<<mii_address_reg_shift|
			mii_address_write|
			mii_address_busy,
		smi_op_mask)
	return p.wait_ready()
}
