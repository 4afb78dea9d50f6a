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
	"errors"
	"fmt"
	"testing"

	"github.com/9rum/containers/alloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorAccounting(t *testing.T) {
	m := alloc.NewMallocator()
	ranges := alloc.NewRangeSet()
	tr := New[int](&Options{Allocator: m, Tracker: ranges})

	for _, v := range perm(1000) {
		tr.Insert(v)
	}
	live := len(tr.nodes) - 1 - len(tr.free)
	assert.Equal(t, live, m.LiveBlocks())
	assert.Equal(t, live*tr.NodeSize(), m.LiveBytes())
	assert.Equal(t, live, ranges.Len())

	for v := 0; v < 500; v++ {
		tr.Remove(v)
	}
	live = len(tr.nodes) - 1 - len(tr.free)
	assert.Equal(t, live, m.LiveBlocks())
	assert.Equal(t, live, ranges.Len())

	tr.Clear()
	assert.Zero(t, m.LiveBlocks())
	assert.Zero(t, ranges.Len())
	assert.True(t, tr.Empty())
	assert.Empty(t, all(tr.All()))

	// the tree is usable again after Clear
	tr.InsertAll(3, 1, 2)
	assert.Equal(t, []int{1, 2, 3}, all(tr.All()))
	assert.Equal(t, 1, m.LiveBlocks())
}

func TestRemoveLastValueFreesRoot(t *testing.T) {
	m := alloc.NewMallocator()
	tr := New[int](&Options{Allocator: m})
	tr.Insert(1)
	assert.Equal(t, 1, m.LiveBlocks())
	assert.True(t, tr.Remove(1))
	assert.Zero(t, m.LiveBlocks())
	assert.False(t, tr.Remove(1))
	assert.True(t, tr.Empty())
}

func TestCloneAllocatesFreshBlocks(t *testing.T) {
	m := alloc.NewMallocator()
	ranges := alloc.NewRangeSet()
	tr := New[int](&Options{Allocator: m, Tracker: ranges})
	tr.InsertAll(perm(300)...)
	before := m.LiveBlocks()

	cl := tr.Clone()
	assert.Equal(t, 2*before, m.LiveBlocks())
	assert.Equal(t, 2*before, ranges.Len())

	tr.Clear()
	cl.Clear()
	assert.Zero(t, m.LiveBlocks())
	assert.Zero(t, ranges.Len())
}

func TestFreeListRecyclesNodes(t *testing.T) {
	m := alloc.NewMallocator()
	probe := New[int](nil)
	fl := alloc.NewFreeList(m, probe.NodeSize(), 16)
	a := New[int](&Options{Allocator: fl})
	b := New[int](&Options{Allocator: fl})

	a.InsertAll(rang(200)...)
	a.Clear()
	assert.Equal(t, 16, fl.Len())

	b.InsertAll(rang(200)...)
	assert.Zero(t, fl.Len(), "the second tree reuses the cached blocks")
	assert.Equal(t, rang(200), all(b.All()))
}

func TestAllocationFailureIsFatal(t *testing.T) {
	tr := New[int](nil)
	stride := (tr.NodeSize() + alloc.Alignment - 1) / alloc.Alignment * alloc.Alignment
	region := alloc.NewRegion(4 * stride)
	tr = New[int](&Options{Allocator: region})

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
				if e, ok := r.(error); ok {
					err = e
				}
			}
		}()
		for i := 0; ; i++ {
			tr.Insert(i)
		}
	}()
	require.Error(t, err)
	assert.True(t, errors.Is(err, alloc.ErrOutOfMemory), "got %v", err)
	assert.Equal(t, 4, len(tr.nodes)-1-len(tr.free))
	assert.LessOrEqual(t, tr.Len(), 4*tr.NodeCapacity())
	assert.Greater(t, tr.Len(), 3*tr.NodeCapacity())
}
