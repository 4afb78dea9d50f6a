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

// Package ttree implements an in-memory T-tree: a height-balanced binary
// search tree whose nodes each hold a sorted run of values.
//
// The number of values per node is not a tuning knob but derived from a byte
// budget, by default one 64-byte cache line: the node links and a single
// bookkeeping word are set aside, and as many values as fit into the remaining
// bytes make up the node capacity.  The bookkeeping word packs an occupancy
// bitmap over the value slots together with the cached height of the subtree.
//
// Every node that has a child is full; new values are pushed down by evicting
// the smallest or largest value of a full node into one of its children.  The
// tree is rebalanced with AVL-style rotations after each insertion.  Removal
// refills nodes from their subtrees but does not rotate, so the height bound
// holds after insertions only.
//
// Nodes are kept in an arena owned by the tree and addressed by index; the
// memory behind each node is requested from an alloc.Allocator, and may be
// announced to an alloc.Tracker.
//
// A Tree is not safe for concurrent use, and must not be mutated while a
// Cursor over it is in use.
package ttree

import (
	"iter"
	"slices"
	"unsafe"

	"github.com/9rum/containers/alloc"
	"golang.org/x/exp/constraints"
)

// Options configures a Tree.
type Options struct {
	// AllowDuplicates lets the tree hold several values that compare equal.
	AllowDuplicates bool

	// CacheLineBudget is the number of bytes a node is packed into
	// (0 = DefaultCacheLineBudget).
	CacheLineBudget int

	// Allocator supplies the memory of the nodes (nil = alloc.Default).
	Allocator alloc.Allocator

	// Tracker is told about every node allocation (nil = alloc.NopTracker).
	Tracker alloc.Tracker
}

// DefaultOptions returns the default tree options.
func DefaultOptions() *Options {
	return &Options{
		CacheLineBudget: DefaultCacheLineBudget,
		Allocator:       alloc.Default,
		Tracker:         alloc.NopTracker{},
	}
}

// noCopy may be embedded into structs which must not be copied after the
// first use; go vet reports copies of it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Tree is a T-tree of values of type T.
//
// A Tree must not be copied; use Clone to obtain an independent copy.
type Tree[T any] struct {
	noCopy noCopy

	less            func(a, b T) bool
	allowDuplicates bool
	capacity        int
	nodeSize        int
	alloc           alloc.Allocator
	tracker         alloc.Tracker

	nodes   []node // nodes[0] is the nil sentinel
	slab    []T    // values of nodes[n] at [n*capacity, (n+1)*capacity)
	free    []ref
	scratch []T // capacity+1 slots for merging a value into a full node
	root    ref
	length  int
}

// New creates a new tree ordered by the < operator of T.  A nil opts uses
// DefaultOptions.
func New[T constraints.Ordered](opts *Options) *Tree[T] {
	return NewFunc(func(a, b T) bool {
		return a < b
	}, opts)
}

// NewFunc creates a new tree ordered by less, which must define a strict weak
// ordering.  A nil opts uses DefaultOptions.
func NewFunc[T any](less func(a, b T) bool, opts *Options) *Tree[T] {
	if less == nil {
		panic("ttree: nil less function")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	budget := opts.CacheLineBudget
	switch {
	case budget < 0:
		panic("ttree: bad cache line budget")
	case budget == 0:
		budget = DefaultCacheLineBudget
	}
	a := opts.Allocator
	if a == nil {
		a = alloc.Default
	}
	tr := opts.Tracker
	if tr == nil {
		tr = alloc.NopTracker{}
	}

	var zero T
	valueSize := unsafe.Sizeof(zero)
	capacity := NodeCapacity(valueSize, pointerCount, wordSize, uintptr(budget))
	return &Tree[T]{
		less:            less,
		allowDuplicates: opts.AllowDuplicates,
		capacity:        capacity,
		nodeSize:        capacity*int(valueSize) + pointerCount*int(pointerSize) + int(wordSize),
		alloc:           a,
		tracker:         tr,
		nodes:           make([]node, 1),
		slab:            make([]T, capacity),
		scratch:         make([]T, capacity+1),
	}
}

// NodeCapacity returns the number of values each node of t holds.
func (t *Tree[T]) NodeCapacity() int {
	return t.capacity
}

// NodeSize returns the number of bytes t requests from its allocator per node.
func (t *Tree[T]) NodeSize() int {
	return t.nodeSize
}

// Insert adds v to the tree.  It returns false, leaving the tree unchanged, if
// duplicates are not allowed and an equal value is already present.
func (t *Tree[T]) Insert(v T) bool {
	if t.root == null {
		t.root = t.newNode(v, null)
		t.length++
		return true
	}
	if !t.insert(t.root, v) {
		return false
	}
	t.length++
	return true
}

// InsertAll adds every given value to the tree, returning true if at least one
// of them was inserted.
func (t *Tree[T]) InsertAll(values ...T) bool {
	return t.InsertSeq(slices.Values(values))
}

// InsertSeq adds every value of seq to the tree, returning true if at least
// one of them was inserted.
func (t *Tree[T]) InsertSeq(seq iter.Seq[T]) (out bool) {
	for v := range seq {
		if t.Insert(v) {
			out = true
		}
	}
	return
}

// ReplaceOrInsert adds v to the tree.  If duplicates are not allowed and a
// value equal to v is already present, that value is replaced by v and
// returned, and the second return value is true.  Otherwise, (zeroValue, false).
func (t *Tree[T]) ReplaceOrInsert(v T) (_ T, _ bool) {
	if !t.allowDuplicates {
		if n, i, found := t.find(v); found {
			s := t.values(n)
			out := s[i]
			s[i] = v
			return out, true
		}
	}
	t.Insert(v)
	return
}

// Remove removes one value equal to v from the tree, returning whether there
// was one.
func (t *Tree[T]) Remove(v T) bool {
	return t.RemoveFunc(v, nil)
}

// RemoveFunc removes one value equal to v from the tree, returning whether
// there was one.  If cleanup is not nil, it is called with the stored value
// before the value is dropped.  cleanup must not use the tree.
func (t *Tree[T]) RemoveFunc(v T, cleanup func(T)) bool {
	if t.root == null || !t.remove(t.root, v, cleanup) {
		return false
	}
	t.length--
	if t.nodes[t.root].reg.empty() {
		t.freeNode(t.root)
		t.root = null
	}
	return true
}

// Get looks for a value equal to key in the tree, returning it.  It returns
// (zeroValue, false) if unable to find that value.
func (t *Tree[T]) Get(key T) (_ T, _ bool) {
	n, i, found := t.find(key)
	if !found {
		return
	}
	return t.values(n)[i], true
}

// Contains returns true if a value equal to v is in the tree.
func (t *Tree[T]) Contains(v T) bool {
	_, _, found := t.find(v)
	return found
}

// Len returns the number of values currently in the tree.
func (t *Tree[T]) Len() int {
	return t.length
}

// Empty returns true if the tree holds no values.
func (t *Tree[T]) Empty() bool {
	return t.length == 0
}

// Min returns the smallest value in the tree, or (zeroValue, false) if the
// tree is empty.
func (t *Tree[T]) Min() (_ T, _ bool) {
	if t.root == null {
		return
	}
	return t.values(t.leftmost(t.root))[0], true
}

// Max returns the largest value in the tree, or (zeroValue, false) if the
// tree is empty.
func (t *Tree[T]) Max() (_ T, _ bool) {
	if t.root == null {
		return
	}
	n := t.root
	for t.nodes[n].right != null {
		n = t.nodes[n].right
	}
	s := t.occupied(n)
	return s[len(s)-1], true
}

func (t *Tree[T]) leftmost(n ref) ref {
	for t.nodes[n].left != null {
		n = t.nodes[n].left
	}
	return n
}

// Clear removes all values from the tree, handing every node back to the
// allocator.  Nodes are released from an explicit stack, so the call does not
// recurse however skewed the tree is.
func (t *Tree[T]) Clear() {
	if t.root != null {
		stack := []ref{t.root}
		for 0 < len(stack) {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if left := t.nodes[n].left; left != null {
				stack = append(stack, left)
			}
			if right := t.nodes[n].right; right != null {
				stack = append(stack, right)
			}
			t.freeNode(n)
		}
	}
	t.nodes = t.nodes[:1]
	t.slab = t.slab[:t.capacity]
	t.free = t.free[:0]
	t.root, t.length = null, 0
}

// Clone returns a deep copy of the tree.  Every node of the copy is backed by a
// fresh block from the same allocator and announced to the same tracker.
func (t *Tree[T]) Clone() *Tree[T] {
	out := &Tree[T]{
		less:            t.less,
		allowDuplicates: t.allowDuplicates,
		capacity:        t.capacity,
		nodeSize:        t.nodeSize,
		alloc:           t.alloc,
		tracker:         t.tracker,
		nodes:           slices.Clone(t.nodes),
		slab:            slices.Clone(t.slab),
		free:            slices.Clone(t.free),
		scratch:         make([]T, t.capacity+1),
		root:            t.root,
		length:          t.length,
	}
	for n := range out.nodes {
		// nodes on the free list are zeroed, live ones hold at least one value
		if out.nodes[n].reg.empty() {
			continue
		}
		out.nodes[n].block = out.allocBlock()
	}
	return out
}
