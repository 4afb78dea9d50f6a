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

import "iter"

// bound selects which values of the tree a Cursor yields.
type bound int

const (
	boundAll   bound = iota // every value
	boundLower              // values less than the pivot
	boundEqual              // values equal to the pivot
	boundUpper              // values greater than the pivot
)

// Cursor walks the values of a tree in ascending order.
//
// A Cursor only refers to a node of the tree and a slot within it; copying a
// Cursor, or calling Save, yields an independent cursor at the same position.
// It is not safe to continue using a cursor after the tree has been modified.
type Cursor[T any] struct {
	t     *Tree[T]
	n     ref
	i     int
	kind  bound
	pivot T
	done  bool
}

// All returns a cursor over every value in the tree.
func (t *Tree[T]) All() Cursor[T] {
	return t.cursor(boundAll, *new(T))
}

// LowerBound returns a cursor over the values less than pivot.
func (t *Tree[T]) LowerBound(pivot T) Cursor[T] {
	return t.cursor(boundLower, pivot)
}

// EqualRange returns a cursor over the values equal to pivot.
func (t *Tree[T]) EqualRange(pivot T) Cursor[T] {
	return t.cursor(boundEqual, pivot)
}

// UpperBound returns a cursor over the values greater than pivot.
func (t *Tree[T]) UpperBound(pivot T) Cursor[T] {
	return t.cursor(boundUpper, pivot)
}

func (t *Tree[T]) cursor(kind bound, pivot T) Cursor[T] {
	c := Cursor[T]{t: t, kind: kind, pivot: pivot}
	if t.root == null {
		c.done = true
		return c
	}

	switch kind {
	case boundAll:
		c.n = t.leftmost(t.root)
	case boundLower:
		c.n = t.leftmost(t.root)
		if !t.less(c.Front(), pivot) {
			c.done = true
		}
	case boundEqual:
		// Descend to the deepest node whose subtree may hold pivot.  Equal
		// values may sit on both sides of a node that holds pivot itself.
		c.n = t.root
		for {
			s := t.occupied(c.n)
			if left := t.nodes[c.n].left; left != null && !t.less(s[0], pivot) {
				c.n = left
			} else if right := t.nodes[c.n].right; right != null && t.less(s[len(s)-1], pivot) {
				c.n = right
			} else {
				break
			}
		}
		for !c.done && t.less(c.Front(), pivot) {
			c.advance()
		}
		if !c.done && t.less(pivot, c.Front()) {
			c.done = true
		}
	case boundUpper:
		c.n = t.root
		for {
			s := t.occupied(c.n)
			if left := t.nodes[c.n].left; left != null && t.less(pivot, s[0]) {
				c.n = left
			} else if right := t.nodes[c.n].right; right != null && !t.less(pivot, s[len(s)-1]) {
				c.n = right
			} else {
				break
			}
		}
		for !c.done && !t.less(pivot, c.Front()) {
			c.advance()
		}
	}
	return c
}

// Empty returns true once the cursor has run out of values.
func (c Cursor[T]) Empty() bool {
	return c.done
}

// Front returns the current value.  It panics if the cursor is empty.
func (c Cursor[T]) Front() T {
	if c.done {
		panic("ttree: Front on empty cursor")
	}
	return c.t.values(c.n)[c.i]
}

// PopFront moves the cursor to the next value.  It panics if the cursor is
// empty.
func (c *Cursor[T]) PopFront() {
	if c.done {
		panic("ttree: PopFront on empty cursor")
	}
	c.advance()
	if c.done {
		return
	}
	switch c.kind {
	case boundLower:
		if !c.t.less(c.Front(), c.pivot) {
			c.done = true
		}
	case boundEqual:
		if c.t.less(c.pivot, c.Front()) {
			c.done = true
		}
	}
}

// Save returns a copy of the cursor that can be advanced independently.
func (c Cursor[T]) Save() Cursor[T] {
	return c
}

// Values returns an iterator over the remaining values.  Iterating does not
// advance c itself.
func (c Cursor[T]) Values() iter.Seq[T] {
	saved := c.Save()
	return func(yield func(T) bool) {
		for it := saved; !it.Empty(); it.PopFront() {
			if !yield(it.Front()) {
				return
			}
		}
	}
}

// advance steps to the in-order successor of the current value, without
// looking at the bound.
func (c *Cursor[T]) advance() {
	c.i++
	if c.i < c.t.nodes[c.n].reg.nextFree() {
		return
	}
	c.i = 0
	if right := c.t.nodes[c.n].right; right != null {
		c.n = c.t.leftmost(right)
		return
	}
	// climb while we come from a right child; the parent we reach from a
	// left child holds the successor
	for {
		parent := c.t.nodes[c.n].parent
		if parent == null {
			c.n, c.done = null, true
			return
		}
		if c.t.nodes[parent].left == c.n {
			c.n = parent
			return
		}
		c.n = parent
	}
}
