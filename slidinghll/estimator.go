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

	"github.com/flowsketch/slidinghll-go/internal"
)

// noRank marks a bucket with no observation inside the queried window.
const noRank = -1

// EstimateResult is the outcome of a cardinality query.
type EstimateResult struct {
	Cardinality uint64

	// CorrectionApplied reports that the linear counting estimate replaced the raw one.
	CorrectionApplied bool
}

// estimateFromRanks combines per-bucket maxima into a cardinality estimate.
// ranks holds one entry per bucket, noRank for buckets empty within the window.
func estimateFromRanks(ranks []int, alpha float64, smallRangeCorrection bool) EstimateResult {
	m := len(ranks)
	zSum := 0.0
	numEmpty := 0
	for _, rank := range ranks {
		if rank == noRank {
			// an empty bucket weighs as if its best rank were 0
			numEmpty++
			zSum += 1.0
			continue
		}
		w, err := internal.InvPow2(rank)
		if err != nil {
			// unreachable for ranks accepted by InsertAt
			continue
		}
		zSum += w
	}

	if numEmpty == m || zSum == 0 {
		return EstimateResult{}
	}

	est := getRawEstimate(alpha, m, zSum)
	correctionApplied := false
	if smallRangeCorrection && est <= smallRangeFactor*float64(m) && numEmpty > 0 {
		est = getLinearCountingEstimate(m, numEmpty)
		correctionApplied = true
	}

	return EstimateResult{
		Cardinality:       uint64(math.Round(est)),
		CorrectionApplied: correctionApplied,
	}
}

// getRawEstimate is the harmonic mean estimator of Flajolet et al., 2007, Fig 3.
func getRawEstimate(alpha float64, m int, zSum float64) float64 {
	return (alpha * float64(m) * float64(m)) / zSum
}

// getLinearCountingEstimate is the estimator for small cardinalities, based on the number
// of buckets that saw nothing: m * log2(m / V).
func getLinearCountingEstimate(m int, numEmpty int) float64 {
	return float64(m) * math.Log2(float64(m)/float64(numEmpty))
}
