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
	"fmt"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/golang/glog"
)

// Instrumented forwards every request to a parent allocator and reports the
// traffic to a metrics set.
type Instrumented struct {
	parent   Allocator
	prefix   string
	allocs   *metrics.Counter
	deallocs *metrics.Counter
	failures *metrics.Counter
	live     atomic.Int64
}

// NewInstrumented wraps parent and registers the following metrics in set:
//
//	<prefix>_allocations_total
//	<prefix>_deallocations_total
//	<prefix>_allocation_failures_total
//	<prefix>_live_bytes
//
// Registering the same prefix twice in one set panics, as metrics does.
func NewInstrumented(parent Allocator, set *metrics.Set, prefix string) *Instrumented {
	a := &Instrumented{
		parent:   parent,
		prefix:   prefix,
		allocs:   set.NewCounter(prefix + "_allocations_total"),
		deallocs: set.NewCounter(prefix + "_deallocations_total"),
		failures: set.NewCounter(prefix + "_allocation_failures_total"),
	}
	set.NewGauge(prefix+"_live_bytes", func() float64 {
		return float64(a.live.Load())
	})
	return a
}

// Allocate reserves a block of size bytes from the parent.
func (a *Instrumented) Allocate(size int) (Block, error) {
	b, err := a.parent.Allocate(size)
	if err != nil {
		a.failures.Inc()
		glog.Warningf("%s: allocation of %d bytes failed: %v", a.prefix, size, err)
		return Block{}, fmt.Errorf("%s: %w", a.prefix, err)
	}
	a.allocs.Inc()
	a.live.Add(int64(b.Size))
	glog.V(2).Infof("%s: allocated %d bytes at %#x", a.prefix, b.Size, b.Addr)
	return b, nil
}

// Deallocate releases the given block to the parent.
func (a *Instrumented) Deallocate(b Block) bool {
	a.deallocs.Inc()
	a.live.Add(-int64(b.Size))
	glog.V(2).Infof("%s: released %d bytes at %#x", a.prefix, b.Size, b.Addr)
	return a.parent.Deallocate(b)
}

// LiveBytes returns the number of bytes allocated through a and not yet
// released.
func (a *Instrumented) LiveBytes() int {
	return int(a.live.Load())
}
