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

// Package bench drives a T-tree through a fixed workload and reports how long
// each phase took.  It is the engine behind the bench command.
package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/9rum/containers/alloc"
	"github.com/9rum/containers/internal/data"
	"github.com/9rum/containers/ttree"
	"github.com/VictoriaMetrics/metrics"
	"github.com/golang/glog"
)

// Allocator names accepted by Config.Allocator.
const (
	Malloc   = "malloc"
	FreeList = "freelist"
	Region   = "region"
)

// Config describes one benchmark run.
type Config struct {
	Count        int        // number of keys
	Order        data.Order // order in which keys are inserted
	Seed         int64      // seed of shuffled orders
	Budget       int        // node byte budget (0 = ttree.DefaultCacheLineBudget)
	Duplicates   bool       // fold keys so that every value is inserted twice
	Allocator    string     // malloc, freelist or region
	RegionBytes  int        // capacity of the region allocator
	FreeListSize int        // blocks retained by the free list allocator
}

// DefaultConfig returns the default benchmark configuration.
func DefaultConfig() Config {
	return Config{
		Count:        100000,
		Order:        data.Shuffled,
		Seed:         1,
		Budget:       ttree.DefaultCacheLineBudget,
		Allocator:    Malloc,
		RegionBytes:  64 << 20,
		FreeListSize: alloc.DefaultFreeListSize,
	}
}

// Validate reports the first problem with c, if any.
func (c Config) Validate() error {
	switch {
	case c.Count <= 0:
		return fmt.Errorf("bench: count must be positive, got %d", c.Count)
	case c.Budget < 0:
		return fmt.Errorf("bench: budget must not be negative, got %d", c.Budget)
	}
	switch c.Allocator {
	case Malloc:
	case FreeList:
		if c.FreeListSize < 0 {
			return fmt.Errorf("bench: free list size must not be negative, got %d", c.FreeListSize)
		}
	case Region:
		if c.RegionBytes <= 0 {
			return fmt.Errorf("bench: region bytes must be positive, got %d", c.RegionBytes)
		}
	default:
		return fmt.Errorf("bench: unknown allocator %q", c.Allocator)
	}
	return nil
}

// Phase is the timing of one step of the workload.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	Config       Config
	NodeCapacity int
	NodeSize     int

	Inserted  int // values inserted
	Found     int // successful lookups
	Walked    int // values visited by a full walk
	Below     int // values less than the median
	Equal     int // values equal to the median
	Above     int // values greater than the median
	Removed   int // values removed
	Remaining int // values left before the tree was cleared

	Phases []Phase
}

// Total returns the time spent in all phases.
func (r Report) Total() (d time.Duration) {
	for _, p := range r.Phases {
		d += p.Duration
	}
	return
}

// Run executes the workload described by cfg.  If set is not nil, the
// allocator traffic and phase latencies are registered in it; a set can
// only serve one run.
//
// Running out of memory is reported as an error wrapping
// alloc.ErrOutOfMemory; the tree is abandoned in that case.
func Run(cfg Config, set *metrics.Set) (report Report, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	report.Config = cfg

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !errors.Is(e, alloc.ErrOutOfMemory) {
				panic(r)
			}
			glog.Errorf("bench: %v", e)
			err = fmt.Errorf("bench: %w", e)
		}
	}()

	opts := &ttree.Options{
		AllowDuplicates: cfg.Duplicates,
		CacheLineBudget: cfg.Budget,
	}
	// a throwaway tree tells us the node size the allocator will be asked for
	nodeSize := ttree.New[int](opts).NodeSize()
	opts.Allocator = newAllocator(cfg, nodeSize, set)
	tr := ttree.New[int](opts)
	report.NodeCapacity, report.NodeSize = tr.NodeCapacity(), tr.NodeSize()

	keys := data.Keys(cfg.Order, cfg.Count, cfg.Seed)
	if cfg.Duplicates {
		keys = data.Pairs(keys)
	}

	r := &runner{set: set, report: &report}
	if err = r.phase("insert", func() error {
		for _, k := range keys {
			if tr.Insert(k) {
				report.Inserted++
			}
		}
		if report.Inserted != len(keys) || tr.Len() != len(keys) {
			return fmt.Errorf("inserted %d of %d keys, tree holds %d", report.Inserted, len(keys), tr.Len())
		}
		return nil
	}); err != nil {
		return
	}

	if err = r.phase("lookup", func() error {
		for _, k := range keys {
			if tr.Contains(k) {
				report.Found++
			}
		}
		if report.Found != len(keys) {
			return fmt.Errorf("found %d of %d keys", report.Found, len(keys))
		}
		return nil
	}); err != nil {
		return
	}

	if err = r.phase("walk", func() error {
		prev, first := 0, true
		c := tr.All()
		for v := range c.Values() {
			if !first && v < prev {
				return fmt.Errorf("walk visited %d after %d", v, prev)
			}
			prev, first = v, false
			report.Walked++
		}
		if report.Walked != tr.Len() {
			return fmt.Errorf("walk visited %d of %d values", report.Walked, tr.Len())
		}
		return nil
	}); err != nil {
		return
	}

	if err = r.phase("bounds", func() error {
		hi, _ := tr.Max()
		median := hi / 2
		report.Below = count(tr.LowerBound(median))
		report.Equal = count(tr.EqualRange(median))
		report.Above = count(tr.UpperBound(median))
		if sum := report.Below + report.Equal + report.Above; sum != tr.Len() {
			return fmt.Errorf("bounds around %d cover %d of %d values", median, sum, tr.Len())
		}
		return nil
	}); err != nil {
		return
	}

	if err = r.phase("remove", func() error {
		for i := 0; i < len(keys); i += 2 {
			if !tr.Remove(keys[i]) {
				return fmt.Errorf("could not remove %d", keys[i])
			}
			report.Removed++
		}
		return nil
	}); err != nil {
		return
	}

	if err = r.phase("verify", func() error {
		for i := 1; i < len(keys); i += 2 {
			if !tr.Contains(keys[i]) {
				return fmt.Errorf("lost %d", keys[i])
			}
		}
		if !cfg.Duplicates {
			for i := 0; i < len(keys); i += 2 {
				if tr.Contains(keys[i]) {
					return fmt.Errorf("removed %d is still present", keys[i])
				}
			}
		}
		report.Remaining = tr.Len()
		if want := len(keys) - report.Removed; report.Remaining != want {
			return fmt.Errorf("tree holds %d values, want %d", report.Remaining, want)
		}
		return nil
	}); err != nil {
		return
	}

	err = r.phase("clear", func() error {
		tr.Clear()
		if !tr.Empty() {
			return errors.New("tree not empty after clear")
		}
		return nil
	})
	return
}

// newAllocator builds the allocator stack named by cfg.
func newAllocator(cfg Config, nodeSize int, set *metrics.Set) alloc.Allocator {
	var a alloc.Allocator
	switch cfg.Allocator {
	case FreeList:
		a = alloc.NewFreeList(alloc.NewMallocator(), nodeSize, cfg.FreeListSize)
	case Region:
		a = alloc.NewRegion(cfg.RegionBytes)
	default:
		a = alloc.NewMallocator()
	}
	if set != nil {
		a = alloc.NewInstrumented(a, set, "containers_alloc")
	}
	return a
}

type runner struct {
	set    *metrics.Set
	report *Report
}

// phase times fn, records it in the report and, if there is a metrics set,
// in a histogram labelled with the phase name.
func (r *runner) phase(name string, fn func() error) error {
	glog.Infof("bench: %s started", name)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.report.Phases = append(r.report.Phases, Phase{Name: name, Duration: d})
	if r.set != nil {
		r.set.GetOrCreateHistogram(fmt.Sprintf(`containers_bench_phase_seconds{phase=%q}`, name)).Update(d.Seconds())
	}
	if err != nil {
		return fmt.Errorf("bench: %s: %w", name, err)
	}
	glog.V(1).Infof("bench: %s took %v", name, d)
	glog.Infof("bench: %s finished", name)
	return nil
}

func count(c ttree.Cursor[int]) (n int) {
	for ; !c.Empty(); c.PopFront() {
		n++
	}
	return
}
