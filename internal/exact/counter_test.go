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

package exact

import (
	"testing"

	"github.com/flowsketch/slidinghll-go/slidinghll"
	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	c := NewCounter()
	assert.NoError(t, c.Update(1, []byte("a")))
	assert.NoError(t, c.Update(2, []byte("b")))
	assert.NoError(t, c.Update(10, []byte("a")))
	// older sighting does not move "a" back in time
	assert.NoError(t, c.Update(3, []byte("a")))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(2), c.Count(10, slidinghll.Unbounded()))

	w, _ := slidinghll.Last(8)
	assert.Equal(t, uint64(2), c.Count(10, w))
	w, _ = slidinghll.Last(5)
	assert.Equal(t, uint64(1), c.Count(10, w))
	w, _ = slidinghll.Last(0)
	assert.Equal(t, uint64(0), c.Count(20, w))
}
