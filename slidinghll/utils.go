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
	"errors"
	"fmt"
	"math"

	"github.com/flowsketch/slidinghll-go/internal"
)

const (
	defaultM = 1024

	minM   = 16
	maxLgM = 128

	// maxRank is the largest rank whose weight 2^-rank is still a normal float64.
	maxRank = 1022

	// smallRangeFactor bounds the raw estimate below which linear counting is considered.
	smallRangeFactor = 2.5

	rseFactor = 1.04
)

var (
	// ErrConfiguration is returned when m or the hash width cannot support a sketch.
	ErrConfiguration = errors.New("invalid sliding hll configuration")

	// ErrIndexOutOfRange is returned when a bucket index is outside [0, m).
	ErrIndexOutOfRange = errors.New("bucket index out of range")

	// ErrInvalidRank is returned for ranks outside [0, 1022].
	ErrInvalidRank = errors.New("invalid rank")

	// ErrInvalidTimestamp is returned for NaN or infinite timestamps.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidWindow is returned for negative or NaN window lengths.
	ErrInvalidWindow = errors.New("invalid window")
)

// checkM validates the number of buckets and returns log2(m).
func checkM(m int) (int, error) {
	if m < minM {
		return 0, fmt.Errorf("%w: m must be at least %d: %d", ErrConfiguration, minM, m)
	}
	lgM, err := internal.ExactLog2(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if lgM > maxLgM {
		return 0, fmt.Errorf("%w: log2(m) may not exceed %d: %d", ErrConfiguration, maxLgM, lgM)
	}
	return lgM, nil
}

// AlphaM returns the bias correction constant of the harmonic mean estimator for m buckets.
func AlphaM(m int) (float64, error) {
	if m < minM {
		return 0, fmt.Errorf("%w: alpha_m is not calibrated below m=%d: %d", ErrConfiguration, minM, m)
	}
	switch m {
	case 16:
		return 0.673, nil
	case 32:
		return 0.697, nil
	case 64:
		return 0.709, nil
	default:
		return 0.7213 / (1.0 + (1.079 / float64(m))), nil
	}
}

// RelativeStandardError returns the asymptotic relative standard error for m buckets.
func RelativeStandardError(m int) float64 {
	return rseFactor / math.Sqrt(float64(m))
}
