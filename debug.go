// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stm32eth

import "fmt"

func (r rx_descriptor) String() (s string) {
	if r.owner() == hardware_owned {
		return fmt.Sprintf("hw: buffer %#x", r.buffer_addr())
	}
	s = fmt.Sprintf("sw: %d bytes", r.frame_length())
	if r.has_error() {
		s += ", error"
	}
	if r.is_first() {
		s += ", first"
	}
	if r.is_last() {
		s += ", last"
	}
	if r.d.w[1].Has(rx_desc1_end_of_ring) {
		s += ", end-of-ring"
	}
	return
}

func (t tx_descriptor) String() (s string) {
	s = fmt.Sprintf("%s: buffer %#x, %d bytes", t.owner(),
		uintptr(t.d.w[2].Get()), t.d.w[1].Get()&tx_desc1_buffer_size_mask)
	if t.has_error() {
		s += ", error"
	}
	if t.d.w[0].Has(tx_desc0_end_of_ring) {
		s += ", end-of-ring"
	}
	return
}
