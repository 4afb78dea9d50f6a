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
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMallocator(t *testing.T) {
	m := NewMallocator()
	a, err := m.Allocate(60)
	require.NoError(t, err)
	b, err := m.Allocate(3)
	require.NoError(t, err)

	assert.Zero(t, a.Addr%Alignment)
	assert.Zero(t, b.Addr%Alignment)
	assert.LessOrEqual(t, a.End(), b.Addr, "blocks must not overlap")
	assert.Equal(t, 2, m.LiveBlocks())
	assert.Equal(t, 63, m.LiveBytes())

	assert.True(t, m.Deallocate(a))
	assert.Equal(t, 1, m.LiveBlocks())
	assert.Equal(t, 3, m.LiveBytes())
	assert.False(t, m.Deallocate(Block{}))

	_, err = m.Allocate(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMallocatorConcurrent(t *testing.T) {
	m := NewMallocator()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				b, err := m.Allocate(16)
				if err == nil {
					m.Deallocate(b)
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, m.LiveBlocks())
	assert.Zero(t, m.LiveBytes())
}

func TestRegion(t *testing.T) {
	r := NewRegion(64)
	a, err := r.Allocate(20)
	require.NoError(t, err)
	assert.True(t, r.Owns(a))
	assert.Equal(t, 40, r.Available())

	b, err := r.Allocate(30)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Available())

	_, err = r.Allocate(9)
	assert.True(t, errors.Is(err, ErrOutOfMemory))

	// only the most recent block rolls the region back
	assert.False(t, r.Deallocate(a))
	assert.True(t, r.Deallocate(b))
	assert.Equal(t, 40, r.Available())
	assert.False(t, r.Deallocate(b))

	r.Reset()
	assert.Equal(t, 64, r.Available())
	c, err := r.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, a.Addr, c.Addr)
	assert.False(t, r.Owns(Block{Addr: c.End(), Size: 8}))

	assert.Panics(t, func() { NewRegion(0) })
}

func TestFreeList(t *testing.T) {
	m := NewMallocator()
	f := NewFreeList(m, 32, 2)

	blocks := make([]Block, 3)
	for i := range blocks {
		b, err := f.Allocate(32)
		require.NoError(t, err)
		blocks[i] = b
	}
	assert.Equal(t, 3, m.LiveBlocks())

	for _, b := range blocks {
		assert.True(t, f.Deallocate(b))
	}
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 2, m.LiveBlocks(), "the overflow goes back to the parent")

	b, err := f.Allocate(32)
	require.NoError(t, err)
	assert.Equal(t, blocks[1], b, "cached blocks are reused last in first out")
	assert.Equal(t, 1, f.Len())

	// foreign sizes bypass the cache
	odd, err := f.Allocate(8)
	require.NoError(t, err)
	assert.Equal(t, 3, m.LiveBlocks())
	assert.True(t, f.Deallocate(odd))
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 2, m.LiveBlocks())

	f.Release()
	assert.Zero(t, f.Len())
	assert.Equal(t, 1, m.LiveBlocks())

	assert.Panics(t, func() { NewFreeList(m, 0, 1) })
	assert.Panics(t, func() { NewFreeList(m, 8, -1) })
}

func TestInstrumented(t *testing.T) {
	set := metrics.NewSet()
	a := NewInstrumented(NewRegion(32), set, "test_alloc")

	b, err := a.Allocate(16)
	require.NoError(t, err)
	_, err = a.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, 32, a.LiveBytes())

	_, err = a.Allocate(16)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Contains(t, err.Error(), "test_alloc")

	a.Deallocate(b)
	assert.Equal(t, 16, a.LiveBytes())

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()
	assert.Contains(t, out, "test_alloc_allocations_total 2\n")
	assert.Contains(t, out, "test_alloc_deallocations_total 1\n")
	assert.Contains(t, out, "test_alloc_allocation_failures_total 1\n")
	assert.Contains(t, out, "test_alloc_live_bytes 16\n")
}

func TestRangeSet(t *testing.T) {
	s := NewRangeSet()
	a := Block{Addr: 64, Size: 16}
	b := Block{Addr: 8, Size: 24}
	s.AddRange(a)
	s.AddRange(b)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(70))
	assert.True(t, s.Contains(8))
	assert.False(t, s.Contains(32))
	assert.False(t, s.Contains(80))
	assert.Equal(t, []Block{b, a}, s.Ranges())

	s.RemoveRange(a)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Contains(70))
	assert.Panics(t, func() { s.RemoveRange(a) })

	var nop NopTracker
	nop.AddRange(a)
	nop.RemoveRange(a)
}
