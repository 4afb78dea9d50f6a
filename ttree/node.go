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

import (
	"fmt"
	"math"
	"sort"
	"unsafe"

	"github.com/9rum/containers/alloc"
)

// ref addresses a node in the arena of its tree.  The zero ref is nil; the
// arena slot it names is never handed out.
type ref uint32

const null ref = 0

const (
	pointerCount = 3 // left, right and parent
	pointerSize  = unsafe.Sizeof(ref(0))
	wordSize     = unsafe.Sizeof(registry(0))
)

// node is a tree node.  Its values live in the value slab of the owning tree,
// at the slots [n*capacity, (n+1)*capacity).
//
// It must at all times maintain the invariant that either
//   - the node is full and has any number of children, or
//   - the node is not full and has no children.
type node struct {
	reg                 registry
	left, right, parent ref
	block               alloc.Block
}

// values returns all value slots of n, occupied or not.  The returned slice is
// invalidated by the next node allocation.
func (t *Tree[T]) values(n ref) []T {
	base := int(n) * t.capacity
	return t.slab[base : base+t.capacity : base+t.capacity]
}

// occupied returns the occupied prefix of the value slots of n.
func (t *Tree[T]) occupied(n ref) []T {
	return t.values(n)[:t.nodes[n].reg.nextFree()]
}

func (t *Tree[T]) full(n ref) bool {
	return t.nodes[n].reg.full(t.capacity)
}

func (t *Tree[T]) height(n ref) int {
	if n == null {
		return 0
	}
	return t.nodes[n].reg.height()
}

// calcHeight recomputes the cached height of n from its children.
func (t *Tree[T]) calcHeight(n ref) {
	t.nodes[n].reg.setHeight(1 + max(t.height(t.nodes[n].left), t.height(t.nodes[n].right)))
}

// balance returns the height of the right subtree of n minus the height of its
// left subtree.
func (t *Tree[T]) balance(n ref) int {
	return t.height(t.nodes[n].right) - t.height(t.nodes[n].left)
}

// lowerBound returns the index of the first value in s that is not less than v.
func (t *Tree[T]) lowerBound(s []T, v T) int {
	return sort.Search(len(s), func(i int) bool {
		return !t.less(s[i], v)
	})
}

// upperBound returns the index of the first value in s that is greater than v.
func (t *Tree[T]) upperBound(s []T, v T) int {
	return sort.Search(len(s), func(i int) bool {
		return t.less(v, s[i])
	})
}

// allocBlock reserves the memory of one node.  An allocator error cannot be
// recovered from at this layer, since the insertion that needs the node has
// already started to restructure the tree.
func (t *Tree[T]) allocBlock() alloc.Block {
	b, err := t.alloc.Allocate(t.nodeSize)
	if err != nil {
		panic(fmt.Errorf("ttree: allocating node: %w", err))
	}
	t.tracker.AddRange(b)
	return b
}

// newNode allocates a leaf holding the single value v.
func (t *Tree[T]) newNode(v T, parent ref) ref {
	b := t.allocBlock()
	var n ref
	if index := len(t.free) - 1; 0 <= index {
		n = t.free[index]
		t.free = t.free[:index]
	} else {
		if uint64(len(t.nodes)) == math.MaxUint32 {
			panic("ttree: arena exhausted")
		}
		n = ref(len(t.nodes))
		t.nodes = append(t.nodes, node{})
		var zero T
		for i := 0; i < t.capacity; i++ {
			t.slab = append(t.slab, zero)
		}
	}
	t.nodes[n] = node{
		reg:    newRegistry(),
		parent: parent,
		block:  b,
	}
	t.values(n)[0] = v
	t.nodes[n].reg.markUsed(0)
	return n
}

// freeNode returns n to the arena and its block to the allocator.
func (t *Tree[T]) freeNode(n ref) {
	b := t.nodes[n].block
	clear(t.values(n))
	t.nodes[n] = node{}
	t.free = append(t.free, n)
	t.tracker.RemoveRange(b)
	t.alloc.Deallocate(b)
}

// release frees child, which must be a child of n, once it holds no values.
func (t *Tree[T]) release(n, child ref) {
	if !t.nodes[child].reg.empty() {
		return
	}
	if t.nodes[n].left == child {
		t.nodes[n].left = null
	} else {
		t.nodes[n].right = null
	}
	t.freeNode(child)
}

// vacate clears slot i of n, which must be its last occupied slot.
func (t *Tree[T]) vacate(n ref, i int) {
	var zero T
	t.values(n)[i] = zero
	t.nodes[n].reg.markUnused(i)
}

// place puts v into the non-full node n, keeping its values sorted.  Values
// equal to v already in the node stay in front of it.
func (t *Tree[T]) place(n ref, v T) {
	k := t.nodes[n].reg.nextFree()
	s := t.values(n)
	i := t.upperBound(s[:k], v)
	copy(s[i+1:k+1], s[i:k])
	s[i] = v
	t.nodes[n].reg.markUsed(k)
}

func (t *Tree[T]) setLeft(n, child ref) {
	t.nodes[n].left = child
	if child != null {
		t.nodes[child].parent = n
	}
}

func (t *Tree[T]) setRight(n, child ref) {
	t.nodes[n].right = child
	if child != null {
		t.nodes[child].parent = n
	}
}

// replace links top into the place old used to hold below parent.
func (t *Tree[T]) replace(parent, old, top ref) {
	t.nodes[top].parent = parent
	switch {
	case parent == null:
		t.root = top
	case t.nodes[parent].left == old:
		t.nodes[parent].left = top
	default:
		t.nodes[parent].right = top
	}
}

// insert inserts v into the subtree rooted at n, returning whether the number
// of values in the tree grew.  Subtrees left out of balance by the insertion
// are rotated on the way back up.
func (t *Tree[T]) insert(n ref, v T) bool {
	if !t.full(n) {
		if !t.allowDuplicates {
			s := t.occupied(n)
			if i := t.lowerBound(s, v); i < len(s) && !t.less(v, s[i]) {
				return false
			}
		}
		t.place(n, v)
		return true
	}

	s := t.values(n)
	switch {
	case t.less(v, s[0]):
		return t.insertLeft(n, v)
	case t.less(s[t.capacity-1], v):
		return t.insertRight(n, v)
	}

	// v falls within the range of n: merge it in and evict one of the extremes
	i := t.upperBound(s, v)
	if !t.allowDuplicates && 0 < i && !t.less(s[i-1], v) {
		return false
	}
	buf := t.scratch
	copy(buf, s[:i])
	buf[i] = v
	copy(buf[i+1:], s[i:])

	left, right := t.nodes[n].left, t.nodes[n].right
	if right == null || (left != null && t.height(right) <= t.height(left)) {
		copy(s, buf[:t.capacity])
		return t.insertRight(n, buf[t.capacity])
	}
	copy(s, buf[1:])
	return t.insertLeft(n, buf[0])
}

func (t *Tree[T]) insertLeft(n ref, v T) bool {
	left := t.nodes[n].left
	if left == null {
		left = t.newNode(v, n)
		t.nodes[n].left = left
		t.calcHeight(n)
		return true
	}
	ok := t.insert(left, v)
	t.rebalance(n)
	return ok
}

func (t *Tree[T]) insertRight(n ref, v T) bool {
	right := t.nodes[n].right
	if right == null {
		right = t.newNode(v, n)
		t.nodes[n].right = right
		t.calcHeight(n)
		return true
	}
	ok := t.insert(right, v)
	t.rebalance(n)
	return ok
}

// rebalance rotates the subtree rooted at n if its children differ in height
// by more than one, and refreshes the cached height otherwise.
func (t *Tree[T]) rebalance(n ref) {
	switch b := t.balance(n); {
	case 1 < b:
		t.rotateLeft(n)
	case b < -1:
		t.rotateRight(n)
	default:
		t.calcHeight(n)
	}
}

// rotateLeft lifts the right child of n, or the right child's inner child if
// that one is taller than the outer child, into the place of n.
func (t *Tree[T]) rotateLeft(n ref) {
	parent := t.nodes[n].parent
	pivot := t.nodes[n].right
	top := pivot
	if inner := t.nodes[pivot].left; t.height(t.nodes[pivot].right) < t.height(inner) {
		top = inner
		t.setRight(n, t.nodes[top].left)
		t.setLeft(pivot, t.nodes[top].right)
		t.setRight(top, pivot)
	} else {
		t.setRight(n, t.nodes[pivot].left)
	}
	t.setLeft(top, n)
	t.replace(parent, n, top)
	t.fixup(top)
}

// rotateRight is the mirror image of rotateLeft.
func (t *Tree[T]) rotateRight(n ref) {
	parent := t.nodes[n].parent
	pivot := t.nodes[n].left
	top := pivot
	if inner := t.nodes[pivot].right; t.height(t.nodes[pivot].left) < t.height(inner) {
		top = inner
		t.setLeft(n, t.nodes[top].right)
		t.setRight(pivot, t.nodes[top].left)
		t.setLeft(top, pivot)
	} else {
		t.setLeft(n, t.nodes[pivot].right)
	}
	t.setRight(top, n)
	t.replace(parent, n, top)
	t.fixup(top)
}

// fixup runs after a rotation.  A leaf lifted to an inner position may not be
// full, so top and both of its children borrow values from below until they
// are, and the heights of the three nodes are recomputed bottom-up.
func (t *Tree[T]) fixup(top ref) {
	t.fill(top)
	if left := t.nodes[top].left; left != null {
		t.fill(left)
	}
	if right := t.nodes[top].right; right != null {
		t.fill(right)
	}
	if left := t.nodes[top].left; left != null {
		t.calcHeight(left)
	}
	if right := t.nodes[top].right; right != null {
		t.calcHeight(right)
	}
	t.calcHeight(top)
}

// fill pulls the largest values of the left subtree, then the smallest values
// of the right subtree, into n until n is full or has no children left.
func (t *Tree[T]) fill(n ref) {
	for !t.full(n) {
		if left := t.nodes[n].left; left != null {
			v := t.removeLargest(left)
			t.release(n, left)
			t.place(n, v)
		} else if right := t.nodes[n].right; right != null {
			v := t.removeSmallest(right)
			t.release(n, right)
			t.place(n, v)
		} else {
			return
		}
	}
}

// removeSmallest removes and returns the smallest value in the subtree rooted
// at n.  n stays full if it has children; the caller releases n if it ends up
// empty.
func (t *Tree[T]) removeSmallest(n ref) T {
	if t.nodes[n].reg.empty() {
		panic("ttree: removeSmallest on empty node")
	}
	if left := t.nodes[n].left; left != null {
		v := t.removeSmallest(left)
		t.release(n, left)
		t.calcHeight(n)
		return v
	}
	s := t.values(n)
	k := t.nodes[n].reg.nextFree()
	v := s[0]
	copy(s, s[1:k])
	if right := t.nodes[n].right; right != null {
		s[k-1] = t.removeSmallest(right)
		t.release(n, right)
		t.calcHeight(n)
	} else {
		t.vacate(n, k-1)
	}
	return v
}

// removeLargest is the mirror image of removeSmallest.
func (t *Tree[T]) removeLargest(n ref) T {
	if t.nodes[n].reg.empty() {
		panic("ttree: removeLargest on empty node")
	}
	if right := t.nodes[n].right; right != null {
		v := t.removeLargest(right)
		t.release(n, right)
		t.calcHeight(n)
		return v
	}
	s := t.values(n)
	k := t.nodes[n].reg.nextFree()
	v := s[k-1]
	if left := t.nodes[n].left; left != null {
		copy(s[1:k], s[:k-1])
		s[0] = t.removeLargest(left)
		t.release(n, left)
		t.calcHeight(n)
	} else {
		t.vacate(n, k-1)
	}
	return v
}

// remove removes one value equal to v from the subtree rooted at n, calling
// cleanup on it first.  The caller releases n if it ends up empty.
//
// Unlike insert, remove does not rotate: the subtree may be left out of
// balance, and only the cached heights are kept up to date.
func (t *Tree[T]) remove(n ref, v T, cleanup func(T)) bool {
	if t.nodes[n].reg.empty() {
		panic("ttree: remove on empty node")
	}
	s := t.values(n)
	if t.full(n) {
		switch {
		case t.less(v, s[0]):
			return t.removeBelow(n, t.nodes[n].left, v, cleanup)
		case t.less(s[t.capacity-1], v):
			return t.removeBelow(n, t.nodes[n].right, v, cleanup)
		}
	}

	k := t.nodes[n].reg.nextFree()
	i := t.lowerBound(s[:k], v)
	if i == k || t.less(v, s[i]) {
		return false
	}
	if cleanup != nil {
		cleanup(s[i])
	}

	switch left, right := t.nodes[n].left, t.nodes[n].right; {
	case right != null:
		copy(s[i:], s[i+1:k])
		s[k-1] = t.removeSmallest(right)
		t.release(n, right)
	case left != null:
		copy(s[1:i+1], s[:i])
		s[0] = t.removeLargest(left)
		t.release(n, left)
	default:
		copy(s[i:], s[i+1:k])
		t.vacate(n, k-1)
	}
	t.calcHeight(n)
	return true
}

func (t *Tree[T]) removeBelow(n, child ref, v T, cleanup func(T)) bool {
	if child == null {
		return false
	}
	ok := t.remove(child, v, cleanup)
	t.release(n, child)
	t.calcHeight(n)
	return ok
}

// find looks for a value equal to v, returning the node and slot holding it.
// If there is none, the returned node is the one v would be placed in.
func (t *Tree[T]) find(v T) (n ref, i int, found bool) {
	for n = t.root; n != null; {
		s := t.occupied(n)
		switch full := t.full(n); {
		case full && t.less(v, s[0]) && t.nodes[n].left != null:
			n = t.nodes[n].left
		case full && t.less(s[len(s)-1], v) && t.nodes[n].right != null:
			n = t.nodes[n].right
		default:
			i = t.lowerBound(s, v)
			return n, i, i < len(s) && !t.less(v, s[i])
		}
	}
	return
}
