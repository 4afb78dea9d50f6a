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

// Package alloc provides the allocation capability consumed by the containers
// in this module.
//
// A container never owns the memory behind its nodes; it asks an Allocator for
// a Block of its fixed node size and hands the Block back once the node is
// released.  Allocators may be shared between containers, and composed: a
// FreeList caches blocks in front of a parent allocator, an Instrumented
// allocator reports to a metrics set, and a Region caps the total number of
// bytes handed out.
//
// Containers optionally announce every block to a Tracker, which lets an
// external collector scan the address ranges that hold values.
package alloc

import "errors"

var (
	// ErrOutOfMemory is returned when an allocator cannot satisfy a request.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrInvalidSize is returned for requests of zero or negative size.
	ErrInvalidSize = errors.New("alloc: invalid size")
)

// Alignment is the boundary every block address is rounded up to.
const Alignment = 8

// Block is an address range handed out by an Allocator.  The address is opaque
// to the caller; it only identifies the block towards the allocator and any
// Tracker.
type Block struct {
	Addr uintptr
	Size int
}

// End returns the address one past the last byte of the block.
func (b Block) End() uintptr {
	return b.Addr + uintptr(b.Size)
}

// Allocator represents the allocation capability.
type Allocator interface {
	// Allocate reserves a block of size bytes.
	Allocate(size int) (Block, error)

	// Deallocate releases the given block, returning true if it was reclaimed
	// and false if the allocator ignored the request.
	Deallocate(b Block) bool
}

// Tracker is notified whenever a container starts or stops using a block.
type Tracker interface {
	// AddRange is called right after a block has been allocated.
	AddRange(b Block)

	// RemoveRange is called right before a block is deallocated.
	RemoveRange(b Block)
}

// NopTracker is a Tracker that ignores every notification.  It is the right
// choice whenever the stored values cannot hold references that need tracing.
type NopTracker struct{}

func (NopTracker) AddRange(Block)    {}
func (NopTracker) RemoveRange(Block) {}

// align rounds n up to the next multiple of Alignment.
func align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
