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

package alloc

import "sync/atomic"

// Default is the process-wide allocator used by containers that are not given
// one explicitly.
var Default = NewMallocator()

// Mallocator is an unbounded allocator.  Addresses grow monotonically and are
// never reused; the allocator only keeps count of the live blocks and bytes.
//
// A Mallocator is safe for concurrent use.
type Mallocator struct {
	next   atomic.Uintptr
	blocks atomic.Int64
	bytes  atomic.Int64
}

// NewMallocator creates a new unbounded allocator.
func NewMallocator() *Mallocator {
	m := new(Mallocator)
	m.next.Store(Alignment)
	return m
}

// Allocate reserves a block of size bytes.
func (m *Mallocator) Allocate(size int) (Block, error) {
	if size <= 0 {
		return Block{}, ErrInvalidSize
	}
	n := uintptr(align(size))
	addr := m.next.Add(n) - n
	m.blocks.Add(1)
	m.bytes.Add(int64(size))
	return Block{Addr: addr, Size: size}, nil
}

// Deallocate releases the given block.
func (m *Mallocator) Deallocate(b Block) bool {
	if b.Size <= 0 {
		return false
	}
	m.blocks.Add(-1)
	m.bytes.Add(-int64(b.Size))
	return true
}

// LiveBlocks returns the number of blocks currently allocated.
func (m *Mallocator) LiveBlocks() int {
	return int(m.blocks.Load())
}

// LiveBytes returns the number of bytes currently allocated.
func (m *Mallocator) LiveBytes() int {
	return int(m.bytes.Load())
}
