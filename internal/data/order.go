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

// Package data generates the deterministic key sequences that drive the
// containers under benchmark.
package data

import (
	"fmt"
	"math/rand"
	"strings"
)

// Order is the order in which keys are handed to a container.
type Order int

const (
	Ascending Order = iota
	Descending
	Shuffled
)

var orderNames = [...]string{
	Ascending:  "ascending",
	Descending: "descending",
	Shuffled:   "shuffled",
}

func (o Order) String() string {
	if o < 0 || int(o) >= len(orderNames) {
		return fmt.Sprintf("Order(%d)", int(o))
	}
	return orderNames[o]
}

// ParseOrder returns the order with the given name.  Matching is case
// insensitive; "asc", "desc" and "random" are accepted as well.
func ParseOrder(name string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ascending", "asc":
		return Ascending, nil
	case "descending", "desc":
		return Descending, nil
	case "shuffled", "random":
		return Shuffled, nil
	}
	return 0, fmt.Errorf("data: unknown order %q", name)
}

// Keys returns the integers [0, n) in the given order.  Shuffled sequences are
// reproducible for a given seed.
func Keys(order Order, n int, seed int64) []int {
	if n <= 0 {
		return nil
	}
	keys := make([]int, n)
	switch order {
	case Descending:
		for i := range keys {
			keys[i] = n - 1 - i
		}
	case Shuffled:
		copy(keys, rand.New(rand.NewSource(seed)).Perm(n))
	default:
		for i := range keys {
			keys[i] = i
		}
	}
	return keys
}

// Pairs halves every key of a sequence produced by Keys, so that each value
// occurs twice.  For an odd length the largest value occurs once.
func Pairs(keys []int) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k / 2
	}
	return out
}
