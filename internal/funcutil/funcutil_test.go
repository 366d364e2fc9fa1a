// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package funcutil

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceHelpers(t *testing.T) {
	a := []int{1, 2, 3, 4}
	assert.Equal(t, []string{"1", "2", "3", "4"}, Map(a, strconv.Itoa))
	assert.Equal(t, []int{2, 4}, Filter(a, func(x int) bool { return x%2 == 0 }))
	assert.True(t, Exists(a, func(x int) bool { return x > 3 }))
	assert.False(t, Exists(a, func(x int) bool { return x > 4 }))

	MapInPlace(a, func(x int) int { return x * 10 })
	assert.Equal(t, []int{10, 20, 30, 40}, a)
	Reverse(a)
	assert.Equal(t, []int{40, 30, 20, 10}, a)
	odd := []int{1, 2, 3}
	Reverse(odd)
	assert.Equal(t, []int{3, 2, 1}, odd)
}

func TestMapParallel(t *testing.T) {
	var running, peak int32
	square := func(_ context.Context, x int) (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&running, -1)
		return x * x, nil
	}
	res, err := MapParallel(context.Background(), []int{1, 2, 3, 4, 5}, square, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, res)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))

	boom := errors.New("boom")
	_, err = MapParallel(context.Background(), []int{1, 2, 3}, func(_ context.Context, x int) (int, error) {
		if x == 2 {
			return 0, boom
		}
		return x, nil
	}, 0)
	assert.ErrorIs(t, err, boom)
}
