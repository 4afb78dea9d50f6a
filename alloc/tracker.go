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
	"sort"
	"sync"
)

// RangeSet is a Tracker that remembers every live range it has been told
// about, keyed by address.  It stands in for a collector that scans the memory
// of the containers it tracks.
type RangeSet struct {
	mu     sync.Mutex
	ranges map[uintptr]int
}

// NewRangeSet creates a new, empty range set.
func NewRangeSet() *RangeSet {
	return &RangeSet{ranges: make(map[uintptr]int)}
}

// AddRange records b as live.
func (s *RangeSet) AddRange(b Block) {
	s.mu.Lock()
	s.ranges[b.Addr] = b.Size
	s.mu.Unlock()
}

// RemoveRange forgets b.  Removing a range that is not live panics, since it
// means a container released a block twice.
func (s *RangeSet) RemoveRange(b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ranges[b.Addr]; !ok {
		panic("alloc: removing untracked range")
	}
	delete(s.ranges, b.Addr)
}

// Len returns the number of live ranges.
func (s *RangeSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ranges)
}

// Contains reports whether addr falls inside one of the live ranges.
func (s *RangeSet) Contains(addr uintptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for base, size := range s.ranges {
		if base <= addr && addr < base+uintptr(size) {
			return true
		}
	}
	return false
}

// Ranges returns a snapshot of the live ranges ordered by address.
func (s *RangeSet) Ranges() []Block {
	s.mu.Lock()
	out := make([]Block, 0, len(s.ranges))
	for addr, size := range s.ranges {
		out = append(out, Block{Addr: addr, Size: size})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Addr < out[j].Addr
	})
	return out
}
