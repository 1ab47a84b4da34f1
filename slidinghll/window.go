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
	"time"
)

// Window is the trailing time span a query covers, ending at the query's "now".
// The zero value is the unbounded window.
type Window struct {
	seconds float64
	bounded bool
}

// Unbounded returns the window that covers every observation ever retained.
func Unbounded() Window {
	return Window{}
}

// Last returns the window covering the last seconds seconds, inclusive of both ends.
func Last(seconds float64) (Window, error) {
	if math.IsNaN(seconds) || seconds < 0 {
		return Window{}, fmt.Errorf("%w: window length must be a non-negative number of seconds: %v", ErrInvalidWindow, seconds)
	}
	if math.IsInf(seconds, 1) {
		return Unbounded(), nil
	}
	return Window{seconds: seconds, bounded: true}, nil
}

// LastDuration is Last for a time.Duration.
func LastDuration(d time.Duration) (Window, error) {
	return Last(d.Seconds())
}

// IsBounded returns false for the unbounded window.
func (w Window) IsBounded() bool {
	return w.bounded
}

// Seconds returns the window length, and false if the window is unbounded.
func (w Window) Seconds() (float64, bool) {
	return w.seconds, w.bounded
}

func (w Window) contains(timestamp float64, now float64) bool {
	return !w.bounded || timestamp >= now-w.seconds
}

func (w Window) String() string {
	if !w.bounded {
		return "all"
	}
	return strconv.FormatFloat(w.seconds, 'g', -1, 64) + "s"
}
