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

// MaxNodeCapacity is the largest number of values a node may hold.  The
// occupancy bitmap shares a 64-bit registry word with the cached height, so it
// may use at most the low half of the word.
const MaxNodeCapacity = registryHalf

// DefaultCacheLineBudget is the byte budget a node is packed into unless
// Options says otherwise.
const DefaultCacheLineBudget = 64

// NodeCapacity returns the number of values that fit in a node of budget bytes
// once pointerCount links and one bookkeeping word of wordSize bytes have been
// set aside.  The result is always in the range [1, MaxNodeCapacity].
func NodeCapacity(valueSize, pointerCount, wordSize, budget uintptr) int {
	if valueSize == 0 {
		valueSize = 1
	}
	overhead := pointerCount*pointerSize + wordSize
	if budget <= overhead {
		return 1
	}
	capacity := int((budget - overhead) / valueSize)
	switch {
	case capacity < 1:
		return 1
	case MaxNodeCapacity < capacity:
		return MaxNodeCapacity
	}
	return capacity
}
