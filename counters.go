// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import "fmt"

// MissedFrameCounts decodes the DMA missed frame and buffer overflow
// counter.  Controller misses are frames lost because no receive
// descriptor was free; application misses are frames flushed before
// software read them.  Each count saturates and carries an overflow
// flag.
type MissedFrameCounts struct {
	ByController        uint
	ControllerOverflow  bool
	ByApplication       uint
	ApplicationOverflow bool
}

const (
	missed_controller_mask   = 0xffff
	missed_controller_ovf    = 1 << 16
	missed_application_shift = 17
	missed_application_mask  = 0x7ff
	missed_application_ovf   = 1 << 28
)

// MissedFrames reads the counter; the hardware register clears on
// read.
func (e *Eth) MissedFrames() (c MissedFrameCounts) {
	v := e.dma.missed_frame_counter.Get()
	c.ByController = uint(v & missed_controller_mask)
	c.ControllerOverflow = v&missed_controller_ovf != 0
	c.ByApplication = uint((v >> missed_application_shift) & missed_application_mask)
	c.ApplicationOverflow = v&missed_application_ovf != 0
	return
}

func (c MissedFrameCounts) String() (s string) {
	s = fmt.Sprintf("%d missed by controller, %d by application",
		c.ByController, c.ByApplication)
	if c.ControllerOverflow || c.ApplicationOverflow {
		s += " (overflowed)"
	}
	return
}
