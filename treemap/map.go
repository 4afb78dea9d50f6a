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

// Package treemap provides an ordered map built on a T-tree.  Entries are
// kept in ascending key order and every key appears at most once.
package treemap

import (
	"iter"

	"github.com/9rum/containers/ttree"
	"golang.org/x/exp/constraints"
)

type entry[K, V any] struct {
	key   K
	value V
}

// Map is an ordered map from keys of type K to values of type V.
// A Map is not safe for concurrent use.
type Map[K, V any] struct {
	tree *ttree.Tree[entry[K, V]]
}

// New creates a new map ordered by the < operator of K.  A nil opts uses
// ttree.DefaultOptions.
func New[K constraints.Ordered, V any](opts *ttree.Options) *Map[K, V] {
	return NewFunc[K, V](func(a, b K) bool { return a < b }, opts)
}

// NewFunc creates a new map ordered by less.  opts.AllowDuplicates is ignored.
func NewFunc[K, V any](less func(a, b K) bool, opts *ttree.Options) *Map[K, V] {
	if less == nil {
		panic("treemap: nil less function")
	}
	o := ttree.DefaultOptions()
	if opts != nil {
		*o = *opts
	}
	o.AllowDuplicates = false
	return &Map[K, V]{
		tree: ttree.NewFunc(func(a, b entry[K, V]) bool {
			return less(a.key, b.key)
		}, o),
	}
}

func probe[K, V any](k K) (e entry[K, V]) {
	e.key = k
	return
}

// Set associates v with k, returning true if k was not in the map before.
func (m *Map[K, V]) Set(k K, v V) bool {
	_, replaced := m.tree.ReplaceOrInsert(entry[K, V]{key: k, value: v})
	return !replaced
}

// Get returns the value associated with k.  It returns (zeroValue, false) if
// k is not in the map.
func (m *Map[K, V]) Get(k K) (_ V, _ bool) {
	e, ok := m.tree.Get(probe[K, V](k))
	if !ok {
		return
	}
	return e.value, true
}

// GetOrDefault returns the value associated with k, or def if there is none.
func (m *Map[K, V]) GetOrDefault(k K, def V) V {
	if v, ok := m.Get(k); ok {
		return v
	}
	return def
}

// Remove deletes k from the map, returning whether it was present.
func (m *Map[K, V]) Remove(k K) bool {
	return m.tree.Remove(probe[K, V](k))
}

// RemoveFunc deletes k from the map, returning whether it was present.  If
// cleanup is not nil, it is called with the removed key and value.
func (m *Map[K, V]) RemoveFunc(k K, cleanup func(K, V)) bool {
	if cleanup == nil {
		return m.Remove(k)
	}
	return m.tree.RemoveFunc(probe[K, V](k), func(e entry[K, V]) {
		cleanup(e.key, e.value)
	})
}

// Contains returns true if k is in the map.
func (m *Map[K, V]) Contains(k K) bool {
	return m.tree.Contains(probe[K, V](k))
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// Empty returns true if the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.tree.Empty()
}

// Clear removes every entry from the map.
func (m *Map[K, V]) Clear() {
	m.tree.Clear()
}

// All returns an iterator over the entries in ascending key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return m.pairs(m.tree.All)
}

// Keys returns an iterator over the keys in ascending order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over the values in ascending key order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// LowerBound returns an iterator over the entries whose keys are less than k.
func (m *Map[K, V]) LowerBound(k K) iter.Seq2[K, V] {
	return m.pairs(func() ttree.Cursor[entry[K, V]] {
		return m.tree.LowerBound(probe[K, V](k))
	})
}

// UpperBound returns an iterator over the entries whose keys are greater
// than k.
func (m *Map[K, V]) UpperBound(k K) iter.Seq2[K, V] {
	return m.pairs(func() ttree.Cursor[entry[K, V]] {
		return m.tree.UpperBound(probe[K, V](k))
	})
}

// pairs positions the cursor when iteration starts, not when the iterator is
// created.
func (m *Map[K, V]) pairs(cursor func() ttree.Cursor[entry[K, V]]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range cursor().Values() {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}
