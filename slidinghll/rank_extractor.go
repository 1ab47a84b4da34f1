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

	"github.com/flowsketch/slidinghll-go/internal"
)

// RankExtractor splits a digest into a bucket index and a rank.
//
// The leading log2(m) bits of the digest, read big-endian, select the bucket. The rank is
// one more than the number of zero bits that precede the first set bit of the remaining
// suffix; an all-zero suffix yields its length plus one. Rank 0 is therefore never
// produced, and stays reserved for buckets that have seen nothing.
type RankExtractor struct {
	lgM    int
	hasher Hasher
}

type RankExtractorOption func(*RankExtractor)

// WithHasher sets the hasher used by ExtractID. The default is SHA-256.
func WithHasher(h Hasher) RankExtractorOption {
	return func(r *RankExtractor) {
		r.hasher = h
	}
}

// NewRankExtractor constructs an extractor for m buckets.
func NewRankExtractor(m int, opts ...RankExtractorOption) (*RankExtractor, error) {
	lgM, err := checkM(m)
	if err != nil {
		return nil, err
	}
	r := &RankExtractor{
		lgM:    lgM,
		hasher: SHA256Hasher(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hasher == nil {
		return nil, fmt.Errorf("%w: hasher cannot be nil", ErrConfiguration)
	}
	if r.hasher.Size()*8 <= lgM {
		return nil, fmt.Errorf("%w: %s digest of %d bits leaves no suffix for %d index bits",
			ErrConfiguration, r.hasher.Name(), r.hasher.Size()*8, lgM)
	}
	return r, nil
}

// Extract returns the bucket index and rank encoded by digest.
func (r *RankExtractor) Extract(digest []byte) (index int, rank int, err error) {
	numBits := len(digest) * 8
	if numBits < r.lgM {
		return 0, 0, fmt.Errorf("%w: digest of %d bits is shorter than %d index bits", ErrConfiguration, numBits, r.lgM)
	}
	index = int(internal.ReadBits(digest, 0, r.lgM))
	rank = internal.LeadingZerosFrom(digest, r.lgM) + 1
	return index, rank, nil
}

// ExtractID hashes id with the configured hasher and extracts from the digest.
func (r *RankExtractor) ExtractID(id []byte) (index int, rank int, err error) {
	return r.Extract(r.hasher.Sum(id))
}

// Hasher returns the configured hasher.
func (r *RankExtractor) Hasher() Hasher {
	return r.hasher
}

// MaxRank returns the largest rank the configured hasher can produce.
func (r *RankExtractor) MaxRank() int {
	return r.hasher.Size()*8 - r.lgM + 1
}
