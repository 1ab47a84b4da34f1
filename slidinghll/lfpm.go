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

// Observation is one arrival routed to a bucket.
type Observation struct {
	Timestamp float64
	Rank      int
}

// lfpm is the list of future possible maxima of one bucket.
// Ranks are strictly decreasing in insertion order, so every retained
// observation is the maximum of some trailing window.
type lfpm struct {
	observations []Observation
}

// insert drops every observation whose rank is not greater than rank, then appends.
func (l *lfpm) insert(timestamp float64, rank int) {
	kept := l.observations[:0]
	for _, o := range l.observations {
		if o.Rank > rank {
			kept = append(kept, o)
		}
	}
	l.observations = append(kept, Observation{Timestamp: timestamp, Rank: rank})
}

// maxRankWithin returns the largest rank inside the window ending at now.
// ok is false when no observation falls in the window.
func (l *lfpm) maxRankWithin(now float64, window Window) (rank int, ok bool) {
	rank = -1
	// timestamps are not required to arrive in order, so scan everything
	for _, o := range l.observations {
		if window.contains(o.Timestamp, now) && o.Rank > rank {
			rank = o.Rank
			ok = true
		}
	}
	if !ok {
		return 0, false
	}
	return rank, true
}

func (l *lfpm) isEmpty() bool {
	return len(l.observations) == 0
}

func (l *lfpm) len() int {
	return len(l.observations)
}

// snapshot returns a copy of the retained observations in insertion order.
func (l *lfpm) snapshot() []Observation {
	out := make([]Observation, len(l.observations))
	copy(out, l.observations)
	return out
}

func (l *lfpm) reset() {
	l.observations = nil
}
