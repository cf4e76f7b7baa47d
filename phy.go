// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"errors"
	"time"
)

// Driver for the LAN8742 style PHY found on Nucleo-144 boards,
// addressed over the station management interface.  Link negotiation
// itself runs inside the PHY; this only kicks it off and reads the
// result.

var ErrPhyResetTimeout = errors.New("stm32eth: phy reset did not complete")

const (
	phy_reg_control        = 0
	phy_reg_status         = 1
	phy_reg_special_status = 31

	phy_control_reset           = 1 << 15
	phy_control_autoneg_enable  = 1 << 12
	phy_control_restart_autoneg = 1 << 9

	phy_status_link_up = 1 << 2

	phy_special_autoneg_done = 1 << 12
	phy_special_speed_shift  = 2
	phy_special_speed_mask   = 0x7 << phy_special_speed_shift

	phy_reset_timeout = 500 * time.Millisecond
)

type Phy struct {
	mac  *MacRegs
	addr uint8
}

type LinkStatus struct {
	Up          bool
	Speed100    bool
	FullDuplex  bool
	AutonegDone bool
}

// Reset soft resets the PHY and waits for the self clearing reset bit.
func (p *Phy) Reset() error {
	if err := p.write_reg(phy_reg_control, phy_control_reset); err != nil {
		return err
	}
	start := time.Now()
	for {
		v, err := p.read_reg(phy_reg_control)
		if err != nil {
			return err
		}
		if v&phy_control_reset == 0 {
			return nil
		}
		if time.Since(start) > phy_reset_timeout {
			return ErrPhyResetTimeout
		}
		time.Sleep(smi_poll_sleep)
	}
}

// SetAutoneg enables and restarts autonegotiation.
func (p *Phy) SetAutoneg() error {
	return p.write_reg(phy_reg_control,
		phy_control_autoneg_enable|phy_control_restart_autoneg)
}

// Status reads the negotiated link state.
func (p *Phy) Status() (s LinkStatus, err error) {
	var bsr, ssr uint16

	if bsr, err = p.read_reg(phy_reg_status); err != nil {
		return
	}
	if s.Up = bsr&phy_status_link_up != 0; !s.Up {
		return
	}

	if ssr, err = p.read_reg(phy_reg_special_status); err != nil {
		return
	}
	s.AutonegDone = ssr&phy_special_autoneg_done != 0
	switch (ssr & phy_special_speed_mask) >> phy_special_speed_shift {
	case 0b001: // 10BASE-T half duplex
	case 0b101: // 10BASE-T full duplex
		s.FullDuplex = true
	case 0b010: // 100BASE-TX half duplex
		s.Speed100 = true
	case 0b110: // 100BASE-TX full duplex
		s.Speed100, s.FullDuplex = true, true
	}
	return
}
