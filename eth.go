// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
)

const (
	// Receive buffers hold a whole frame; fragmented frames are not
	// reassembled.
	MTU = 1518

	default_tx_ring_len = 8
	default_phy_addr    = 0
)

// MII clock range codes for the mii_address register, by HCLK band.
const (
	ClockRangeHclkDiv42  = 0 // HCLK 60-100 MHz
	ClockRangeHclkDiv62  = 1 // HCLK 100-150 MHz
	ClockRangeHclkDiv16  = 2 // HCLK 20-35 MHz
	ClockRangeHclkDiv26  = 3 // HCLK 35-60 MHz
	ClockRangeHclkDiv102 = 4 // HCLK 150-168 MHz
)

// ErrResetTimeout reports a DMA software reset that never completed;
// usually the clocks or pins are not up.
var ErrResetTimeout = errors.New("stm32eth: DMA reset did not complete")

type Config struct {
	// Station address for the address0 filter; the zero value leaves
	// the filter untouched (promiscuous mode receives regardless).
	Address [6]byte

	// Address of the PHY on the management bus.
	PhyAddr uint8

	// MII clock range code, one of the ClockRangeHclk values.
	ClockRange uint8
}

func DefaultConfig() Config {
	return Config{PhyAddr: default_phy_addr, ClockRange: ClockRangeHclkDiv16}
}

// Eth owns the MAC and DMA register blocks and both descriptor rings.
//
// No locking is done between normal execution and interrupt context;
// serializing ring access is the embedding application's job, e.g. by
// masking the Ethernet interrupt around non interrupt calls.
type Eth struct {
	mac *MacRegs
	dma *DmaRegs
	cfg Config
	rx  *rx_ring
	tx  *tx_ring
}

// New initializes the hardware and starts the transmit engine.  The
// receive engine starts too unless rx_ring_len is 0, which defers it
// to a later StartRx call.  Clock, pin and PHY wiring must already be
// up.
func New(mac *MacRegs, dma *DmaRegs, rx_ring_len uint, c ...Config) (*Eth, error) {
	e := &Eth{
		mac: mac,
		dma: dma,
		cfg: DefaultConfig(),
		rx:  new_rx_ring(MTU),
		tx:  new_tx_ring(default_tx_ring_len),
	}
	if len(c) > 0 {
		e.cfg = c[0]
	}
	if err := e.init(); err != nil {
		return nil, err
	}
	if err := e.tx.start(e.dma); err != nil {
		return nil, err
	}
	if rx_ring_len > 0 {
		if err := e.StartRx(rx_ring_len); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Eth) init() error {
	if err := e.reset_dma_and_wait(); err != nil {
		return err
	}

	// Clock range for the MII management interface.
	e.mac.mii_address.Replace(uint32(e.cfg.ClockRange)<<2, mii_address_clock_range_mask)

	// PHY trouble is not fatal here; the link just stays down until
	// the PHY responds.
	p := e.Phy()
	if err := p.Reset(); err != nil {
		log.Print("stm32eth: phy reset: ", err)
	} else if err = p.SetAutoneg(); err != nil {
		log.Print("stm32eth: phy autoneg: ", err)
	}

	if e.cfg.Address != [6]byte{} {
		e.set_station_address(e.cfg.Address)
	}

	e.mac.control.Or(mac_control_strip_type_crc |
		mac_control_speed_100 |
		mac_control_full_duplex |
		mac_control_strip_pad_crc |
		mac_control_retry_disable |
		mac_control_rx_enable |
		mac_control_tx_enable)

	e.mac.frame_filter.Or(mac_filter_receive_all | mac_filter_promiscuous)

	e.mac.flow_control.Replace(0x100<<mac_flow_pause_time_shift, mac_flow_pause_time_mask)

	e.dma.operation_mode.Or(operation_no_checksum_drop |
		operation_rx_store_and_forward |
		operation_no_rx_flush |
		operation_tx_store_and_forward |
		operation_forward_error_frames |
		operation_second_frame)

	e.dma.bus_mode.Or(bus_mode_address_aligned |
		bus_mode_fixed_burst |
		32<<bus_mode_rx_burst_shift |
		32<<bus_mode_burst_length_shift |
		1<<bus_mode_priority_ratio_shift | // rx:tx 2:1
		bus_mode_use_separate_pbl)

	return nil
}

// reset_dma_and_wait resets the whole MAC+DMA block and waits, with
// backoff, for hardware to clear the reset flag.  Bounded: a dead
// block surfaces as ErrResetTimeout instead of a hang.
func (e *Eth) reset_dma_and_wait() error {
	e.dma.bus_mode.Or(bus_mode_software_reset)

	b := &backoff.Backoff{
		Min:    10 * time.Microsecond,
		Max:    time.Millisecond,
		Factor: 2,
	}
	for e.dma.bus_mode.Has(bus_mode_software_reset) {
		if b.Attempt() >= 32 {
			return ErrResetTimeout
		}
		time.Sleep(b.Duration())
	}
	return nil
}

func (e *Eth) set_station_address(a [6]byte) {
	e.mac.address0_hi.Set(uint32(a[5])<<8 | uint32(a[4]))
	e.mac.address0_lo.Set(uint32(a[3])<<24 | uint32(a[2])<<16 |
		uint32(a[1])<<8 | uint32(a[0]))
}

// Phy returns a handle to the PHY at the configured management bus
// address.
func (e *Eth) Phy() *Phy { return &Phy{mac: e.mac, addr: e.cfg.PhyAddr} }

// Status queries the PHY's link state.
func (e *Eth) Status() (LinkStatus, error) { return e.Phy().Status() }

// StartRx starts (or grows) the receive ring to ring_len entries and
// starts the receive engine.
func (e *Eth) StartRx(ring_len uint) error { return e.rx.start(ring_len, e.dma) }

// RxIsRunning reports whether the receive engine is running.  It
// stops when the ring fills; RecvNext frees an entry and demand polls.
func (e *Eth) RxIsRunning() bool { return e.rx.running_state(e.dma).IsRunning() }

// RecvNext returns the next received frame, or nil immediately when
// none is ready.  The caller owns the returned Buffer.
func (e *Eth) RecvNext() *Buffer { return e.rx.recv_next(e.dma) }

// Send hands b to the transmit engine; DMA is asynchronous so the
// driver takes ownership of the buffer.  A stalled engine is demand
// polled so it picks the frame up immediately.
func (e *Eth) Send(b *Buffer) error {
	if err := e.tx.send(b); err != nil {
		return err
	}
	if !e.tx.is_running(e.dma) {
		e.tx.demand_poll(e.dma)
	}
	return nil
}

// QueueLen approximates the number of frames the transmit engine has
// not yet sent.
func (e *Eth) QueueLen() uint { return e.tx.queue_len() }

// Reap releases the buffers of all transmitted frames now, instead of
// waiting for the lazy reclaim in Send.
func (e *Eth) Reap() uint { return e.tx.reap() }
