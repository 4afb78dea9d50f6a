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

import (
	"sync"

	"github.com/golang/glog"
)

// Region hands out blocks from a fixed number of bytes by bumping a pointer.
// Only the most recently allocated block can be given back; any other
// Deallocate call is ignored until the whole region is Reset.
type Region struct {
	mu       sync.Mutex
	base     uintptr
	capacity int
	offset   int
	last     Block
}

// NewRegion creates a new region of the given capacity in bytes.
func NewRegion(capacity int) *Region {
	if capacity <= 0 {
		panic("bad capacity")
	}
	return &Region{
		base:     Alignment,
		capacity: capacity,
	}
}

// Allocate reserves a block of size bytes, returning ErrOutOfMemory once the
// region cannot hold it.
func (r *Region) Allocate(size int) (Block, error) {
	if size <= 0 {
		return Block{}, ErrInvalidSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := align(size)
	if r.capacity-r.offset < n {
		return Block{}, ErrOutOfMemory
	}
	b := Block{Addr: r.base + uintptr(r.offset), Size: size}
	r.offset += n
	r.last = b
	return b, nil
}

// Deallocate rolls the region back if b is the most recently allocated block.
func (r *Region) Deallocate(b Block) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Size <= 0 || b != r.last {
		return false
	}
	r.offset = int(b.Addr - r.base)
	r.last = Block{}
	return true
}

// Reset makes the whole capacity available again.  Blocks handed out before
// the call must no longer be used.
func (r *Region) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	glog.V(2).Infof("region: reset after %d of %d bytes", r.offset, r.capacity)
	r.offset = 0
	r.last = Block{}
}

// Available returns the number of bytes that can still be allocated.
func (r *Region) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity - r.offset
}

// Owns reports whether b lies inside the region.
func (r *Region) Owns(b Block) bool {
	return r.base <= b.Addr && b.End() <= r.base+uintptr(r.capacity)
}
