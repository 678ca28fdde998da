// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package node

import "math/bits"

// childMask is a bitmap marking the occupied child slots of a branch.
type childMask uint16

// get returns true if the slot at the specified index is occupied.
func (m childMask) get(index byte) bool {
	return m&(1<<index) != 0
}

// set marks the slot at the specified index as occupied.
func (m *childMask) set(index byte) {
	*m |= 1 << index
}

// clear marks all slots as empty.
func (m *childMask) clear() {
	*m = 0
}

// any returns true if at least one slot is occupied.
func (m childMask) any() bool {
	return m != 0
}

// popCount returns the number of occupied slots.
func (m childMask) popCount() int {
	return bits.OnesCount16(uint16(m))
}

func maskOf(children *[16][]byte) childMask {
	var res childMask
	for i, child := range children {
		if child != nil {
			res.set(byte(i))
		}
	}
	return res
}
