// Copyright 2022 Sogang University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ttree

import "math/bits"

const (
	registryHalf = 32
	slotMask     = 1<<registryHalf - 1
)

// registry is the bookkeeping word of a node.  The low bits form an occupancy
// bitmap over the value slots and the high half caches the subtree height.
//
// Slots are always occupied as a contiguous run starting at bit 0, since every
// removal compacts the values of the node.
type registry uint64

// newRegistry returns the registry of a freshly allocated leaf: no slot in use
// and a height of one.
func newRegistry() registry {
	return 1 << registryHalf
}

// nextFree returns the index of the lowest unused slot, which is also the
// number of occupied slots.
func (r registry) nextFree() int {
	return bits.TrailingZeros32(^uint32(r))
}

func (r *registry) markUsed(i int) {
	*r |= 1 << uint(i)
}

func (r *registry) markUnused(i int) {
	*r &^= 1 << uint(i)
}

// full reports whether all capacity slots are in use.
func (r registry) full(capacity int) bool {
	mask := registry(1)<<uint(capacity) - 1
	return r&mask == mask
}

func (r registry) empty() bool {
	return r&slotMask == 0
}

func (r registry) height() int {
	return int(r >> registryHalf)
}

func (r *registry) setHeight(h int) {
	*r = *r&slotMask | registry(h)<<registryHalf
}
