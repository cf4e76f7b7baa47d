// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Driver for the STM32F4 Ethernet MAC with its DMA engine.
package stm32eth

import (
	"unsafe"

	"github.com/platinasystems/stm32eth/hw"
)

// Register blocks of the Ethernet peripheral.  Field access goes
// through hw.Reg32 so every read and write is a real, ordered access.
// On hardware the blocks sit at RegsBaseAddr; tests allocate them in
// RAM and play the device side themselves.

const (
	// AHB1 base of the Ethernet peripheral.
	RegsBaseAddr uintptr = 0x40028000

	// MAC block at +0x0000, DMA block at +0x1000.
	dmaRegsOffset = 0x1000

	// Position of the Ethernet interrupt in the vector table.
	IrqLine = 61
)

type MacRegs struct {
	/* [2] receiver enable
	   [3] transmitter enable
	   [7] automatic pad/CRC stripping
	   [9] retry disable
	   [11] duplex mode
	   [14] fast ethernet speed (100 Mbit/s)
	   [25] CRC stripping for Type frames */
	control reg

	/* [0] promiscuous mode
	   [31] receive all */
	frame_filter reg

	hash_table_hi reg
	hash_table_lo reg

	/* [0] MII busy
	   [1] MII write
	   [4:2] clock range
	   [10:6] MII register
	   [15:11] PHY address */
	mii_address reg
	mii_data    reg

	/* [31:16] pause time */
	flow_control reg

	vlan_tag reg
	_        [0x28 - 0x20]byte

	remote_wakeup_frame_filter reg
	pmt_control_status         reg
	_                          [0x34 - 0x30]byte

	debug            reg
	interrupt_status reg
	interrupt_mask   reg

	// Station address 0: hi holds bytes 5:4, lo bytes 3:0.
	address0_hi reg
	address0_lo reg
}

const (
	mac_control_rx_enable        = 1 << 2
	mac_control_tx_enable        = 1 << 3
	mac_control_strip_pad_crc    = 1 << 7
	mac_control_retry_disable    = 1 << 9
	mac_control_full_duplex      = 1 << 11
	mac_control_speed_100        = 1 << 14
	mac_control_strip_type_crc   = 1 << 25
	mac_filter_promiscuous       = 1 << 0
	mac_filter_receive_all       = 1 << 31
	mac_flow_pause_time_shift    = 16
	mac_flow_pause_time_mask     = 0xffff << mac_flow_pause_time_shift
	mii_address_busy             = 1 << 0
	mii_address_write            = 1 << 1
	mii_address_clock_range_mask = 0x7 << 2
	mii_address_reg_shift        = 6
	mii_address_phy_shift        = 11
)

type DmaRegs struct {
	/* [0] software reset
	   [7] enhanced descriptor format enable
	   [13:8] programmable burst length
	   [15:14] rx:tx priority ratio
	   [16] fixed burst
	   [22:17] rx dma programmable burst length
	   [23] use separate PBL
	   [25] address-aligned beats */
	bus_mode reg

	// Writing any value prompts a suspended engine to re-check its
	// current descriptor.
	tx_poll_demand reg
	rx_poll_demand reg

	// Descriptor ring head pointers, 32 bit bus addresses.
	rx_list_address reg
	tx_list_address reg

	/* [0] transmit status
	   [6] receive status
	   [15] abnormal interrupt summary
	   [16] normal interrupt summary
	   [19:17] receive process state
	   [22:20] transmit process state */
	status reg

	/* [1] start receive
	   [2] operate on second frame
	   [7] forward error frames
	   [13] start transmit
	   [21] transmit store and forward
	   [24] disable flushing of received frames
	   [25] receive store and forward
	   [26] drop TCP/IP checksum error frames disable */
	operation_mode reg

	/* [0] transmit interrupt enable
	   [6] receive interrupt enable
	   [16] normal interrupt summary enable */
	interrupt_enable reg

	/* [15:0] missed frames by the controller
	   [16] overflow of that count
	   [27:17] missed frames by the application
	   [28] overflow of that count */
	missed_frame_counter reg

	rx_status_watchdog reg
	_                  [0x48 - 0x28]byte

	// Diagnostic snapshots of the engine's current position.
	current_tx_descriptor reg
	current_rx_descriptor reg
	current_tx_buffer     reg
	current_rx_buffer     reg
}

const (
	bus_mode_software_reset       = 1 << 0
	bus_mode_burst_length_shift   = 8
	bus_mode_priority_ratio_shift = 14
	bus_mode_fixed_burst          = 1 << 16
	bus_mode_rx_burst_shift       = 17
	bus_mode_use_separate_pbl     = 1 << 23
	bus_mode_address_aligned      = 1 << 25

	status_tx_done                = 1 << 0
	status_rx_done                = 1 << 6
	status_normal_summary         = 1 << 16
	status_rx_process_state_shift = 17
	status_tx_process_state_shift = 20
	status_process_state_mask     = 0x7

	operation_start_receive        = 1 << 1
	operation_second_frame         = 1 << 2
	operation_forward_error_frames = 1 << 7
	operation_start_transmit       = 1 << 13
	operation_tx_store_and_forward = 1 << 21
	operation_no_rx_flush          = 1 << 24
	operation_rx_store_and_forward = 1 << 25
	operation_no_checksum_drop     = 1 << 26

	irq_enable_tx             = 1 << 0
	irq_enable_rx             = 1 << 6
	irq_enable_normal_summary = 1 << 16
)

type reg = hw.Reg32

// EthRegs maps the MAC and DMA register blocks of the peripheral at
// base (normally RegsBaseAddr).
func EthRegs(base uintptr) (*MacRegs, *DmaRegs) {
	return (*MacRegs)(unsafe.Pointer(base)),
		(*DmaRegs)(unsafe.Pointer(base + dmaRegsOffset))
}

// RunningState of a DMA engine as decoded from its 3 bit process state
// field in the status register.
type RunningState int

const (
	Unknown RunningState = iota
	Stopped
	Running
)

func (s RunningState) IsRunning() bool { return s == Running }

func (s RunningState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	}
	return "unknown"
}

func (d *DmaRegs) rx_process_state() uint32 {
	return (d.status.Get() >> status_rx_process_state_shift) & status_process_state_mask
}

func (d *DmaRegs) tx_process_state() uint32 {
	return (d.status.Get() >> status_tx_process_state_shift) & status_process_state_mask
}
