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

package lifetime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()
	assert.Zero(t, tr.Count())

	for i := 0; i < 10000; i++ {
		require.NoError(t, tr.Update(float64(i), []byte(fmt.Sprintf("id_%d", i%5000))))
	}
	require.NoError(t, tr.Update(0, nil))
	assert.InDelta(t, 5000, tr.Count(), 5000*0.05)

	tr.Reset()
	assert.Zero(t, tr.Count())
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = tr.Update(0, []byte(fmt.Sprintf("w%d_%d", w, i)))
				if i%100 == 0 {
					tr.Count()
				}
			}
		}(w)
	}
	wg.Wait()
	assert.InDelta(t, 2000, tr.Count(), 2000*0.05)
}
