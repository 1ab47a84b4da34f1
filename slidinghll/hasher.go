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
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/flowsketch/slidinghll-go/internal"
	"github.com/twmb/murmur3"
)

// Hasher turns an identifier into a fixed width digest whose bits are uniformly distributed.
type Hasher interface {
	// Sum returns the digest of data. It must be deterministic.
	Sum(data []byte) []byte

	// Size returns the digest length in bytes.
	Size() int

	Name() string
}

const (
	HasherSHA256  = "sha256"
	HasherMurmur3 = "murmur3"
	HasherXXHash  = "xxhash"
)

type sha256Hasher struct{}

// SHA256Hasher returns the 256-bit SHA-256 hasher. It is the default.
func SHA256Hasher() Hasher {
	return sha256Hasher{}
}

func (sha256Hasher) Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func (sha256Hasher) Size() int {
	return sha256.Size
}

func (sha256Hasher) Name() string {
	return HasherSHA256
}

type murmur3Hasher struct {
	seed uint64
}

// Murmur3Hasher returns a 128-bit MurmurHash3 hasher with the given seed.
func Murmur3Hasher(seed uint64) Hasher {
	return murmur3Hasher{seed: seed}
}

func (h murmur3Hasher) Sum(data []byte) []byte {
	h1, h2 := murmur3.SeedSum128(h.seed, h.seed, data)
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out, h1)
	binary.BigEndian.PutUint64(out[8:], h2)
	return out
}

func (murmur3Hasher) Size() int {
	return 16
}

func (murmur3Hasher) Name() string {
	return HasherMurmur3
}

type xxHasher struct {
	seed uint64
}

// XXHasher returns a 64-bit xxHash hasher with the given seed.
func XXHasher(seed uint64) Hasher {
	return xxHasher{seed: seed}
}

func (h xxHasher) Sum(data []byte) []byte {
	d := xxhash.NewWithSeed(h.seed)
	_, _ = d.Write(data)
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, d.Sum64())
	return out
}

func (xxHasher) Size() int {
	return 8
}

func (xxHasher) Name() string {
	return HasherXXHash
}

// HasherByName returns the hasher registered under name. Seeded hashers use the
// default update seed.
func HasherByName(name string) (Hasher, error) {
	switch name {
	case "", HasherSHA256:
		return SHA256Hasher(), nil
	case HasherMurmur3:
		return Murmur3Hasher(internal.DEFAULT_UPDATE_SEED), nil
	case HasherXXHash:
		return XXHasher(internal.DEFAULT_UPDATE_SEED), nil
	default:
		return nil, fmt.Errorf("%w: unknown hasher %q", ErrConfiguration, name)
	}
}
