/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package slidinghll

import (
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSketchDefaults(t *testing.T) {
	sk, err := NewSlidingHllSketchWithDefault()
	require.NoError(t, err)
	assert.Equal(t, 1024, sk.M())
	assert.True(t, sk.IsEmpty())
	assert.InDelta(t, 0.0325, sk.GetRelativeError(), 1e-9)
	assert.Equal(t, HasherSHA256, sk.Extractor().Hasher().Name())

	assert.NoError(t, sk.Update(1.0, nil))
	assert.NoError(t, sk.UpdateString(1.0, ""))
	assert.True(t, sk.IsEmpty())

	_, err = NewSlidingHllSketch(48)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSketchAccuracy(t *testing.T) {
	for _, name := range []string{HasherSHA256, HasherMurmur3, HasherXXHash} {
		t.Run(name, func(t *testing.T) {
			h, err := HasherByName(name)
			require.NoError(t, err)
			sk, err := NewSlidingHllSketch(1024, WithHasher(h))
			require.NoError(t, err)

			n := 20000
			for i := 0; i < n; i++ {
				require.NoError(t, sk.UpdateString(float64(i), "item_"+strconv.Itoa(i)))
			}
			tolerance := 4 * sk.GetRelativeError()
			now := float64(n - 1)

			res := sk.Estimate(now, Unbounded())
			assert.False(t, res.CorrectionApplied)
			assert.InEpsilon(t, float64(n), float64(res.Cardinality), tolerance)

			// the last 5000 timestamps
			w, err := Last(4999)
			require.NoError(t, err)
			res = sk.Estimate(now, w)
			assert.InEpsilon(t, 5000.0, float64(res.Cardinality), tolerance)

			// small window, linear counting territory: m * log2(m/V) ~ n * log2(e)
			w, err = Last(99)
			require.NoError(t, err)
			res = sk.Estimate(now, w)
			assert.True(t, res.CorrectionApplied)
			assert.InEpsilon(t, 100*math.Log2E, float64(res.Cardinality), 0.15)
		})
	}
}

func TestSketchDuplicatesCollapse(t *testing.T) {
	sk, err := NewSlidingHllSketch(256)
	require.NoError(t, err)
	for round := 0; round < 5; round++ {
		for i := 0; i < 50; i++ {
			require.NoError(t, sk.UpdateUInt64(float64(round), uint64(i)))
		}
	}
	res := sk.Estimate(4, Unbounded())
	assert.True(t, res.CorrectionApplied)
	assert.InEpsilon(t, 50*math.Log2E, float64(res.Cardinality), 0.2)
	assert.LessOrEqual(t, sk.Table().Len(), 250)
}

func TestSketchWindowMonotone(t *testing.T) {
	sk, err := NewSlidingHllSketch(128)
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		require.NoError(t, sk.UpdateUInt64(float64(i)/10, uint64(i)))
	}
	now := 499.9
	prev := uint64(0)
	for _, length := range []float64{0, 1, 10, 50, 100, 250, 500, 1000} {
		w, err := Last(length)
		require.NoError(t, err)
		res := sk.EstimateWithCorrection(now, w, false)
		assert.GreaterOrEqual(t, res.Cardinality, prev, "window %v", length)
		prev = res.Cardinality
	}
}

func TestSketchConcurrentWriters(t *testing.T) {
	sk, err := NewSlidingHllSketch(1024)
	require.NoError(t, err)

	writers := 8
	perWriter := 2500
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := uint64(w*perWriter + i)
				assert.NoError(t, sk.UpdateUInt64(float64(i), id))
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = sk.Estimate(float64(i), Unbounded())
		}
	}()
	wg.Wait()

	n := float64(writers * perWriter)
	res := sk.Estimate(float64(perWriter), Unbounded())
	assert.InEpsilon(t, n, float64(res.Cardinality), 4*sk.GetRelativeError())
}

func BenchmarkSketchUpdate(b *testing.B) {
	sk, err := NewSlidingHllSketch(1024)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		_ = sk.UpdateUInt64(float64(i), uint64(i))
	}
}

func BenchmarkSketchEstimate(b *testing.B) {
	sk, err := NewSlidingHllSketch(1024)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 100000; i++ {
		_ = sk.UpdateUInt64(float64(i), uint64(i))
	}
	w, _ := Last(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sk.Estimate(100000, w)
	}
}
