// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

// InterruptController unmasks device interrupt lines; on a Cortex-M
// this is the NVIC.
type InterruptController interface {
	EnableIRQ(irq uint)
}

// EnableInterrupt enables the summary, receive and transmit interrupt
// sources and unmasks the Ethernet line at the controller.
//
// The application's interrupt handler must call InterruptHandler (or
// EthInterruptHandler) to clear the pending bits; otherwise the
// interrupt re-fires immediately on return.
func (e *Eth) EnableInterrupt(ic InterruptController) {
	e.dma.interrupt_enable.Or(irq_enable_normal_summary |
		irq_enable_rx |
		irq_enable_tx)
	ic.EnableIRQ(IrqLine)
}

// InterruptHandler acknowledges the pending interrupt causes.  Call
// from the Ethernet interrupt context.
func (e *Eth) InterruptHandler() { EthInterruptHandler(e.dma) }

// EthInterruptHandler clears the summary, receive and transmit status
// bits (write 1 to clear).  Usable without an Eth instance when the
// handler only has the register block.
func EthInterruptHandler(dma *DmaRegs) {
	dma.status.Set(status_normal_summary | status_rx_done | status_tx_done)
}
