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
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// BucketTable owns m buckets and the single lock guarding all of them.
//
// InsertAt holds the lock only while mutating the addressed bucket. Estimate, Status,
// RankSnapshot and Len hold it across the whole scan, so an insert is either fully
// visible or fully invisible to any one of them.
type BucketTable struct {
	mu      sync.Mutex
	lgM     int
	alpha   float64
	buckets []lfpm
}

// NewBucketTable constructs a table of m buckets.
//
//   - m, the number of buckets. It must be a power of 2 and at least 16.
func NewBucketTable(m int) (*BucketTable, error) {
	lgM, err := checkM(m)
	if err != nil {
		return nil, err
	}
	alpha, err := AlphaM(m)
	if err != nil {
		return nil, err
	}
	return &BucketTable{
		lgM:     lgM,
		alpha:   alpha,
		buckets: make([]lfpm, m),
	}, nil
}

// M returns the number of buckets.
func (t *BucketTable) M() int {
	return len(t.buckets)
}

// LgM returns log2 of the number of buckets.
func (t *BucketTable) LgM() int {
	return t.lgM
}

// InsertAt records an observation of rank at timestamp in bucket index.
func (t *BucketTable) InsertAt(index int, timestamp float64, rank int) error {
	if index < 0 || index >= len(t.buckets) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(t.buckets))
	}
	if rank < 0 || rank > maxRank {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidRank, rank, maxRank)
	}
	// only finite timestamps can fall inside a bounded window
	if math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTimestamp, timestamp)
	}
	t.mu.Lock()
	t.buckets[index].insert(timestamp, rank)
	t.mu.Unlock()
	return nil
}

// Estimate returns the estimated number of distinct items observed within window,
// ending at now.
//
//   - smallRangeCorrection, whether linear counting may replace a raw estimate
//     that is at most 2.5 * m.
func (t *BucketTable) Estimate(now float64, window Window, smallRangeCorrection bool) EstimateResult {
	ranks := t.RankSnapshot(now, window)
	return estimateFromRanks(ranks, t.alpha, smallRangeCorrection)
}

// RankSnapshot returns, for every bucket, the maximum rank inside window, or -1 when the
// bucket has no observation inside it. All buckets are read under one lock acquisition.
func (t *BucketTable) RankSnapshot(now float64, window Window) []int {
	ranks := make([]int, len(t.buckets))
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.buckets {
		if rank, ok := t.buckets[i].maxRankWithin(now, window); ok {
			ranks[i] = rank
		} else {
			ranks[i] = noRank
		}
	}
	return ranks
}

// IsEmpty returns true if no bucket retains any observation.
func (t *BucketTable) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.buckets {
		if !t.buckets[i].isEmpty() {
			return false
		}
	}
	return true
}

// Len returns the total number of retained observations.
func (t *BucketTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i := range t.buckets {
		n += t.buckets[i].len()
	}
	return n
}

// Bucket returns a copy of the observations retained by bucket index, in insertion order.
func (t *BucketTable) Bucket(index int) ([]Observation, error) {
	if index < 0 || index >= len(t.buckets) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(t.buckets))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buckets[index].snapshot(), nil
}

// Reset drops every retained observation.
func (t *BucketTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.buckets {
		t.buckets[i].reset()
	}
}

// Status returns a human readable dump of every bucket, one line per bucket.
func (t *BucketTable) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sb strings.Builder
	for i := range t.buckets {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(":")
		for _, o := range t.buckets[i].observations {
			fmt.Fprintf(&sb, " (rank %d, ts %s)", o.Rank, strconv.FormatFloat(o.Timestamp, 'f', -1, 64))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
