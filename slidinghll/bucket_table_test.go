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
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBucketTableRejectsBadM(t *testing.T) {
	for _, m := range []int{-16, 0, 1, 8, 15, 24, 1000} {
		_, err := NewBucketTable(m)
		assert.ErrorIs(t, err, ErrConfiguration, "m=%d", m)
	}
	for _, m := range []int{16, 32, 64, 1024, 1 << 16} {
		table, err := NewBucketTable(m)
		assert.NoError(t, err)
		assert.Equal(t, m, table.M())
	}
}

func TestInsertAtOutOfRange(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)

	assert.ErrorIs(t, table.InsertAt(16, 1.0, 3), ErrIndexOutOfRange)
	assert.ErrorIs(t, table.InsertAt(-1, 1.0, 3), ErrIndexOutOfRange)
	assert.ErrorIs(t, table.InsertAt(0, 1.0, -1), ErrInvalidRank)
	assert.ErrorIs(t, table.InsertAt(0, 1.0, maxRank+1), ErrInvalidRank)
	assert.True(t, table.IsEmpty())

	assert.NoError(t, table.InsertAt(15, 1.0, 3))
	assert.Equal(t, 1, table.Len())
}

func TestInsertAtRejectsNonFiniteTimestamp(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	require.NoError(t, table.InsertAt(0, 1.0, 2))

	for _, ts := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.ErrorIs(t, table.InsertAt(0, ts, 5), ErrInvalidTimestamp, "ts=%v", ts)
	}

	// the earlier observation is still there for bounded queries
	obs, err := table.Bucket(0)
	require.NoError(t, err)
	assert.Equal(t, []Observation{{Timestamp: 1.0, Rank: 2}}, obs)
	w, err := Last(5)
	require.NoError(t, err)
	assert.Equal(t, 2, table.RankSnapshot(2.0, w)[0])

	sk, err := NewSlidingHllSketch(16)
	require.NoError(t, err)
	assert.ErrorIs(t, sk.UpdateString(math.NaN(), "a"), ErrInvalidTimestamp)
	assert.True(t, sk.IsEmpty())
}

func TestEstimateEmptyTable(t *testing.T) {
	table, err := NewBucketTable(64)
	require.NoError(t, err)

	res := table.Estimate(100, Unbounded(), true)
	assert.Equal(t, uint64(0), res.Cardinality)
	assert.False(t, res.CorrectionApplied)

	w, _ := Last(10)
	res = table.Estimate(100, w, false)
	assert.Equal(t, uint64(0), res.Cardinality)
	assert.False(t, res.CorrectionApplied)
}

func TestEstimateSmallRangeCorrection(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	require.NoError(t, table.InsertAt(0, 1.0, 1))

	// Z = 15 + 1/2, raw = 0.673 * 256 / 15.5 ~ 11.1, linear counting = 16 * log2(16/15) ~ 1.49
	res := table.Estimate(1.0, Unbounded(), true)
	assert.Equal(t, uint64(1), res.Cardinality)
	assert.True(t, res.CorrectionApplied)

	res = table.Estimate(1.0, Unbounded(), false)
	assert.Equal(t, uint64(11), res.Cardinality)
	assert.False(t, res.CorrectionApplied)
}

func TestEstimateLinearCountingHalfEmpty(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, table.InsertAt(i, 1.0, 1))
	}

	// Z = 8 * 1/2 + 8 = 12, raw = 0.673 * 256 / 12 ~ 14.4 <= 40, V = 8, 16 * log2(16/8) = 16
	res := table.Estimate(1.0, Unbounded(), true)
	assert.Equal(t, uint64(16), res.Cardinality)
	assert.True(t, res.CorrectionApplied)

	res = table.Estimate(1.0, Unbounded(), false)
	assert.Equal(t, uint64(14), res.Cardinality)
	assert.False(t, res.CorrectionApplied)

	// V = 4, 16 * log2(16/4) = 32
	for i := 8; i < 12; i++ {
		require.NoError(t, table.InsertAt(i, 2.0, 1))
	}
	res = table.Estimate(2.0, Unbounded(), true)
	assert.Equal(t, uint64(32), res.Cardinality)
	assert.True(t, res.CorrectionApplied)
}

func TestEstimateNoEmptyBucketKeepsRaw(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		require.NoError(t, table.InsertAt(i, 1.0, 1))
	}

	// Z = 8, raw = 0.673 * 256 / 8 ~ 21.5, below 2.5m but no bucket is empty
	res := table.Estimate(1.0, Unbounded(), true)
	assert.Equal(t, uint64(22), res.Cardinality)
	assert.False(t, res.CorrectionApplied)
}

func TestEstimateLargeRawKeepsRaw(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	for i := 1; i < 16; i++ {
		require.NoError(t, table.InsertAt(i, 1.0, 10))
	}

	// one empty bucket, but raw = 0.673 * 256 / (1 + 15/1024) ~ 169.8 > 40
	res := table.Estimate(1.0, Unbounded(), true)
	assert.Equal(t, uint64(170), res.Cardinality)
	assert.False(t, res.CorrectionApplied)
}

func TestEstimateWindowed(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		require.NoError(t, table.InsertAt(i, 0.0, 1))
	}
	require.NoError(t, table.InsertAt(0, 100.0, 2))

	w, err := Last(10)
	require.NoError(t, err)
	res := table.Estimate(100.0, w, true)
	assert.Equal(t, uint64(1), res.Cardinality)
	assert.True(t, res.CorrectionApplied)

	// Z = 1/4 + 15/2, raw = 0.673 * 256 / 7.75 ~ 22.2
	res = table.Estimate(100.0, Unbounded(), true)
	assert.Equal(t, uint64(22), res.Cardinality)
	assert.False(t, res.CorrectionApplied)

	ranks := table.RankSnapshot(100.0, w)
	assert.Equal(t, 2, ranks[0])
	for _, r := range ranks[1:] {
		assert.Equal(t, noRank, r)
	}
}

func TestEstimateIdempotent(t *testing.T) {
	sk, err := NewSlidingHllSketch(256)
	require.NoError(t, err)
	for i := 0; i < 3000; i++ {
		require.NoError(t, sk.UpdateUInt64(float64(i), uint64(i)))
	}
	w, _ := Last(1000)
	table := sk.Table()
	assert.Equal(t, table.Estimate(2999, w, true), table.Estimate(2999, w, true))
	assert.Equal(t, table.Estimate(2999, Unbounded(), false), table.Estimate(2999, Unbounded(), false))
}

func TestBucketTableStatus(t *testing.T) {
	table, err := NewBucketTable(16)
	require.NoError(t, err)
	require.NoError(t, table.InsertAt(3, 1.5, 4))
	require.NoError(t, table.InsertAt(3, 2.25, 2))

	status := table.Status()
	lines := strings.Split(strings.TrimSuffix(status, "\n"), "\n")
	assert.Len(t, lines, 16)
	assert.Equal(t, "0:", lines[0])
	assert.Equal(t, "3: (rank 4, ts 1.5) (rank 2, ts 2.25)", lines[3])

	obs, err := table.Bucket(3)
	assert.NoError(t, err)
	assert.Equal(t, []Observation{{Timestamp: 1.5, Rank: 4}, {Timestamp: 2.25, Rank: 2}}, obs)
	_, err = table.Bucket(16)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	table.Reset()
	assert.True(t, table.IsEmpty())
}

func TestBucketTableConcurrentAccess(t *testing.T) {
	table, err := NewBucketTable(64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				assert.NoError(t, table.InsertAt((i*7+w)%64, float64(i), (i+w)%40+1))
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = table.Estimate(float64(i*25), Unbounded(), true)
			_ = table.Status()
		}
	}()
	wg.Wait()

	assert.False(t, table.IsEmpty())
	assert.Greater(t, table.Estimate(5000, Unbounded(), true).Cardinality, uint64(0))
}
