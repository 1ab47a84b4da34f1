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

// Package slidinghll estimates the number of distinct items seen in a stream within a
// trailing time window chosen at query time.
//
// It follows "Sliding HyperLogLog: Estimating Cardinality in a Data Stream over a Sliding
// Window" by Y. Chabchoub and G. Hebrail, 2010. Each bucket keeps a list of future possible
// maxima (LFPM) instead of a single register: the observations that could still be the
// largest rank of some window ending in the future. Memory is bounded by m and the size
// of those lists, independently of the window length or the cardinality.
package slidinghll

import (
	"encoding/binary"
	"time"
	"unsafe"
)

// SlidingHllSketch routes identifiers through a RankExtractor into a BucketTable.
// It is safe for concurrent use.
type SlidingHllSketch struct {
	extractor *RankExtractor
	table     *BucketTable
}

// NewSlidingHllSketch constructs a sketch with m buckets.
//
//   - m, the number of buckets. It must be a power of 2 and at least 16.
//   - opts, extractor options such as WithHasher.
func NewSlidingHllSketch(m int, opts ...RankExtractorOption) (*SlidingHllSketch, error) {
	extractor, err := NewRankExtractor(m, opts...)
	if err != nil {
		return nil, err
	}
	table, err := NewBucketTable(m)
	if err != nil {
		return nil, err
	}
	return &SlidingHllSketch{
		extractor: extractor,
		table:     table,
	}, nil
}

// NewSlidingHllSketchWithDefault constructs a sketch with 1024 buckets and SHA-256.
func NewSlidingHllSketchWithDefault() (*SlidingHllSketch, error) {
	return NewSlidingHllSketch(defaultM)
}

// Update presents id, observed at timestamp seconds, as a potential unique item.
// An empty id is ignored.
func (s *SlidingHllSketch) Update(timestamp float64, id []byte) error {
	if len(id) == 0 {
		return nil
	}
	index, rank, err := s.extractor.ExtractID(id)
	if err != nil {
		return err
	}
	return s.table.InsertAt(index, timestamp, rank)
}

// UpdateString presents the given string as a potential unique item.
func (s *SlidingHllSketch) UpdateString(timestamp float64, id string) error {
	return s.Update(timestamp, unsafe.Slice(unsafe.StringData(id), len(id)))
}

// UpdateUInt64 presents the given unsigned 64-bit integer as a potential unique item.
func (s *SlidingHllSketch) UpdateUInt64(timestamp float64, id uint64) error {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], id)
	return s.Update(timestamp, scratch[:])
}

// Estimate returns the cardinality estimate for window ending at now, with small range
// correction enabled.
func (s *SlidingHllSketch) Estimate(now float64, window Window) EstimateResult {
	return s.table.Estimate(now, window, true)
}

// EstimateWithCorrection is Estimate with explicit control over small range correction.
func (s *SlidingHllSketch) EstimateWithCorrection(now float64, window Window, smallRangeCorrection bool) EstimateResult {
	return s.table.Estimate(now, window, smallRangeCorrection)
}

// Status returns the per bucket diagnostic dump.
func (s *SlidingHllSketch) Status() string {
	return s.table.Status()
}

// IsEmpty returns true if nothing has been retained.
func (s *SlidingHllSketch) IsEmpty() bool {
	return s.table.IsEmpty()
}

// M returns the number of buckets.
func (s *SlidingHllSketch) M() int {
	return s.table.M()
}

// GetRelativeError returns the relative standard error of the estimates, 1.04/sqrt(m).
func (s *SlidingHllSketch) GetRelativeError() float64 {
	return RelativeStandardError(s.table.M())
}

// Table returns the underlying bucket table.
func (s *SlidingHllSketch) Table() *BucketTable {
	return s.table
}

// Extractor returns the rank extractor.
func (s *SlidingHllSketch) Extractor() *RankExtractor {
	return s.extractor
}

// Seconds converts t into the fractional unix seconds used as timestamps.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
