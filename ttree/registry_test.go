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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeCapacity(t *testing.T) {
	tests := []struct {
		name                              string
		valueSize, pointers, word, budget uintptr
		want                              int
	}{
		{"int64 in a cache line", 8, 3, 8, 64, 5},
		{"string in a cache line", 16, 3, 8, 64, 2},
		{"bytes capped at the bitmap width", 1, 3, 8, 64, MaxNodeCapacity},
		{"value larger than the budget", 128, 3, 8, 64, 1},
		{"budget smaller than the overhead", 8, 3, 8, 16, 1},
		{"zero-sized values", 0, 3, 8, 64, MaxNodeCapacity},
		{"two cache lines", 8, 3, 8, 128, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NodeCapacity(tt.valueSize, tt.pointers, tt.word, tt.budget))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := newRegistry()
	assert.True(t, r.empty())
	assert.Equal(t, 0, r.nextFree())
	assert.Equal(t, 1, r.height())

	for i := 0; i < 5; i++ {
		assert.False(t, r.full(5))
		r.markUsed(r.nextFree())
	}
	assert.True(t, r.full(5))
	assert.False(t, r.full(6))
	assert.Equal(t, 5, r.nextFree())

	r.setHeight(7)
	assert.Equal(t, 7, r.height())
	assert.Equal(t, 5, r.nextFree(), "height must not leak into the bitmap")

	r.markUnused(4)
	assert.Equal(t, 4, r.nextFree())
	assert.Equal(t, 7, r.height())

	for i := 0; i < MaxNodeCapacity; i++ {
		r.markUsed(i)
	}
	assert.True(t, r.full(MaxNodeCapacity))
	assert.Equal(t, MaxNodeCapacity, r.nextFree())
	assert.Equal(t, 7, r.height())
	for i := 0; i < MaxNodeCapacity; i++ {
		r.markUnused(i)
	}
	assert.True(t, r.empty())
}
