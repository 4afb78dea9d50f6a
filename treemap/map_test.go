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

package treemap

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/9rum/containers/alloc"
	"github.com/9rum/containers/ttree"
	"github.com/google/btree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kv struct {
	key   int
	value string
}

func collect[K, V any](m *Map[K, V]) (keys []K, values []V) {
	for k, v := range m.All() {
		keys = append(keys, k)
		values = append(values, v)
	}
	return
}

func TestMapBasics(t *testing.T) {
	m := New[string, int](nil)
	assert.True(t, m.Empty())

	assert.True(t, m.Set("b", 2))
	assert.True(t, m.Set("a", 1))
	assert.True(t, m.Set("c", 3))
	assert.False(t, m.Set("b", 20), "overwriting reports an existing key")
	assert.Equal(t, 3, m.Len())

	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 20, v)
	_, ok = m.Get("z")
	assert.False(t, ok)
	assert.Equal(t, -1, m.GetOrDefault("z", -1))
	assert.Equal(t, 1, m.GetOrDefault("a", -1))

	keys, values := collect(m)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []int{1, 20, 3}, values)
	assert.Equal(t, keys, slices.Collect(m.Keys()))
	assert.Equal(t, values, slices.Collect(m.Values()))

	assert.True(t, m.Contains("a"))
	assert.True(t, m.Remove("a"))
	assert.False(t, m.Remove("a"))
	assert.False(t, m.Contains("a"))
	assert.Equal(t, 2, m.Len())

	m.Clear()
	assert.True(t, m.Empty())
	assert.Empty(t, slices.Collect(m.Keys()))
}

func TestMapRemoveFunc(t *testing.T) {
	m := New[int, []byte](nil)
	m.Set(1, []byte("one"))
	m.Set(2, []byte("two"))

	var got []string
	cleanup := func(k int, v []byte) {
		got = append(got, fmt.Sprintf("%d=%s", k, v))
	}
	assert.True(t, m.RemoveFunc(2, cleanup))
	assert.False(t, m.RemoveFunc(3, cleanup))
	assert.True(t, m.RemoveFunc(1, nil))
	assert.Equal(t, []string{"2=two"}, got)
	assert.True(t, m.Empty())
}

func TestMapBounds(t *testing.T) {
	m := New[int, int](nil)
	for i := 0; i < 100; i += 2 {
		m.Set(i, i*i)
	}

	var below []int
	for k, v := range m.LowerBound(7) {
		assert.Equal(t, k*k, v)
		below = append(below, k)
	}
	assert.Equal(t, []int{0, 2, 4, 6}, below)

	var above []int
	for k := range m.UpperBound(92) {
		above = append(above, k)
	}
	assert.Equal(t, []int{94, 96, 98}, above)

	// the bound is resolved when iteration starts
	seq := m.UpperBound(96)
	m.Set(97, 0)
	var late []int
	for k := range seq {
		late = append(late, k)
	}
	assert.Equal(t, []int{97, 98}, late)

	// breaking out early stops the walk
	var first []int
	for k := range m.All() {
		if len(first) == 3 {
			break
		}
		first = append(first, k)
	}
	assert.Equal(t, []int{0, 2, 4}, first)
}

func TestMapCustomOrder(t *testing.T) {
	m := NewFunc[string, int](func(a, b string) bool {
		return strings.ToLower(a) < strings.ToLower(b)
	}, &ttree.Options{AllowDuplicates: true})

	assert.True(t, m.Set("Go", 1))
	assert.False(t, m.Set("go", 2), "keys stay unique whatever the options say")
	assert.Equal(t, 1, m.Len())
	keys, values := collect(m)
	assert.Equal(t, []string{"go"}, keys)
	assert.Equal(t, []int{2}, values)

	assert.Panics(t, func() { NewFunc[int, int](nil, nil) })
}

func TestMapAllocator(t *testing.T) {
	mal := alloc.NewMallocator()
	m := New[int, string](&ttree.Options{Allocator: mal, CacheLineBudget: 128})
	for i := range 500 {
		m.Set(i, fmt.Sprint(i))
	}
	assert.Positive(t, mal.LiveBlocks())
	m.Clear()
	assert.Zero(t, mal.LiveBlocks())
}

func TestMapOracle(t *testing.T) {
	const n = 5000
	r := rand.New(rand.NewSource(42))
	m := New[int, string](nil)
	oracle := btree.NewG(8, func(a, b kv) bool { return a.key < b.key })

	for i := 0; i < n; i++ {
		k := r.Intn(n / 2)
		switch r.Intn(3) {
		case 0, 1:
			e := kv{key: k, value: fmt.Sprint(i)}
			_, replaced := oracle.ReplaceOrInsert(e)
			require.Equal(t, !replaced, m.Set(e.key, e.value), "set %d", k)
		default:
			_, removed := oracle.Delete(kv{key: k})
			require.Equal(t, removed, m.Remove(k), "remove %d", k)
		}
	}
	require.Equal(t, oracle.Len(), m.Len())

	var want []kv
	oracle.Ascend(func(e kv) bool {
		want = append(want, e)
		return true
	})
	var got []kv
	for k, v := range m.All() {
		got = append(got, kv{k, v})
	}
	assert.Equal(t, want, got)

	pivot := n / 4
	var wantBelow, gotBelow []int
	oracle.AscendLessThan(kv{key: pivot}, func(e kv) bool {
		wantBelow = append(wantBelow, e.key)
		return true
	})
	for k := range m.LowerBound(pivot) {
		gotBelow = append(gotBelow, k)
	}
	assert.Equal(t, wantBelow, gotBelow)

	for k := 0; k < n/2; k++ {
		want, ok := oracle.Get(kv{key: k})
		got, found := m.Get(k)
		require.Equal(t, ok, found, "get %d", k)
		require.Equal(t, want.value, got, "get %d", k)
	}
}
