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

import "sync"

// DefaultFreeListSize is the number of blocks a free list keeps by default.
const DefaultFreeListSize = 32

// FreeList caches released blocks of a single size in front of a parent
// allocator.  By default each container allocates straight from its parent,
// but multiple containers with the same node size can share one FreeList.
// Two containers using the same free list are safe for concurrent access.
type FreeList struct {
	mu       sync.Mutex
	parent   Allocator
	size     int
	freelist []Block
}

// NewFreeList creates a new free list that recycles blocks of size bytes.
// max is the maximum number of blocks the free list retains.
func NewFreeList(parent Allocator, size, max int) *FreeList {
	if size <= 0 || max < 0 {
		panic("bad free list")
	}
	return &FreeList{
		parent:   parent,
		size:     size,
		freelist: make([]Block, 0, max),
	}
}

// Allocate returns a cached block if size matches the free list's block size
// and one is available; otherwise the request is forwarded to the parent.
func (f *FreeList) Allocate(size int) (b Block, err error) {
	if size <= 0 {
		return Block{}, ErrInvalidSize
	}
	if size != f.size {
		return f.parent.Allocate(size)
	}
	f.mu.Lock()
	index := len(f.freelist) - 1
	if index < 0 {
		f.mu.Unlock()
		return f.parent.Allocate(size)
	}
	b = f.freelist[index]
	f.freelist[index] = Block{}
	f.freelist = f.freelist[:index]
	f.mu.Unlock()
	return
}

// Deallocate adds the given block to the list, handing it to the parent when
// it has a foreign size or the list is already full.
func (f *FreeList) Deallocate(b Block) bool {
	if b.Size != f.size {
		return f.parent.Deallocate(b)
	}
	f.mu.Lock()
	if len(f.freelist) < cap(f.freelist) {
		f.freelist = append(f.freelist, b)
		f.mu.Unlock()
		return true
	}
	f.mu.Unlock()
	return f.parent.Deallocate(b)
}

// Len returns the number of blocks currently cached.
func (f *FreeList) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.freelist)
}

// Release returns every cached block to the parent.
func (f *FreeList) Release() {
	f.mu.Lock()
	blocks := f.freelist
	f.freelist = make([]Block, 0, cap(blocks))
	f.mu.Unlock()
	for _, b := range blocks {
		f.parent.Deallocate(b)
	}
}
