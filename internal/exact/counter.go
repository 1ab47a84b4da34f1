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

// Package exact counts distinct identifiers exactly, to check sketch estimates against.
// Memory grows with the number of distinct identifiers.
package exact

import (
	"sync"

	"github.com/flowsketch/slidinghll-go/slidinghll"
)

// Counter remembers the latest timestamp of every identifier it has seen.
type Counter struct {
	mu       sync.Mutex
	lastSeen map[string]float64
}

func NewCounter() *Counter {
	return &Counter{lastSeen: make(map[string]float64)}
}

func (c *Counter) Update(timestamp float64, id []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.lastSeen[string(id)]; !ok || timestamp > last {
		c.lastSeen[string(id)] = timestamp
	}
	return nil
}

// Count returns the number of distinct identifiers seen within window, ending at now.
func (c *Counter) Count(now float64, window slidinghll.Window) uint64 {
	seconds, bounded := window.Seconds()
	cutoff := now - seconds
	c.mu.Lock()
	defer c.mu.Unlock()
	if !bounded {
		return uint64(len(c.lastSeen))
	}
	var n uint64
	for _, ts := range c.lastSeen {
		if ts >= cutoff {
			n++
		}
	}
	return n
}

// Len returns the number of distinct identifiers ever seen.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastSeen)
}
