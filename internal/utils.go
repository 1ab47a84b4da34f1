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

package internal

import (
	"fmt"
	"math"
	"math/bits"

	"golang.org/x/exp/constraints"
)

const (
	DEFAULT_UPDATE_SEED = uint64(9001)
)

// InvPow2 returns 2^(-e).
func InvPow2[T constraints.Integer](e T) (float64, error) {
	if e < 0 || int64(e) > 1022 {
		return 0, fmt.Errorf("e cannot be negative or greater than 1022: %d", e)
	}
	return math.Float64frombits((1023 - uint64(e)) << 52), nil
}

// ExactLog2 returns log2 of the given power of 2.
func ExactLog2[T constraints.Integer](powerOf2 T) (int, error) {
	if !IsPowerOf2(powerOf2) {
		return 0, fmt.Errorf("argument 'powerOf2' must be a positive power of 2: %d", powerOf2)
	}
	return bits.TrailingZeros64(uint64(powerOf2)), nil
}

// IsPowerOf2 returns true if the given number is a power of 2.
func IsPowerOf2[T constraints.Integer](powerOf2 T) bool {
	return powerOf2 > 0 && (powerOf2&(powerOf2-1)) == 0
}

// ReadBits interprets numBits bits of buf, starting at bit offset, as a big-endian
// unsigned integer. numBits must not exceed 64.
func ReadBits(buf []byte, offset int, numBits int) uint64 {
	var v uint64
	for i := offset; i < offset+numBits; i++ {
		v = (v << 1) | uint64((buf[i>>3]>>(7-uint(i&7)))&1)
	}
	return v
}

// LeadingZerosFrom counts the zero bits of buf from bit offset up to the first set bit.
// If no set bit follows offset, it returns the number of remaining bits.
func LeadingZerosFrom(buf []byte, offset int) int {
	total := len(buf) << 3
	n := 0
	i := offset
	for ; i < total && i&7 != 0; i++ {
		if (buf[i>>3]>>(7-uint(i&7)))&1 == 1 {
			return n
		}
		n++
	}
	for ; i < total; i += 8 {
		if b := buf[i>>3]; b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}
	return n
}
