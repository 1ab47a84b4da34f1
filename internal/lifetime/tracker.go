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

// Package lifetime keeps a conventional HyperLogLog over every identifier ever seen,
// a reference for the unbounded window of a sliding sketch.
package lifetime

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// Tracker counts distinct identifiers since it was created. Timestamps are ignored.
type Tracker struct {
	mu     sync.Mutex
	sketch *hyperloglog.Sketch
}

func NewTracker() *Tracker {
	return &Tracker{sketch: hyperloglog.New14()}
}

func (t *Tracker) Update(_ float64, id []byte) error {
	if len(id) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch.Insert(id)
	return nil
}

// Count returns the estimated number of distinct identifiers.
// Estimate may merge the sparse representation, hence the full lock.
func (t *Tracker) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sketch.Estimate()
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch = hyperloglog.New14()
}
