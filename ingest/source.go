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

// Package ingest turns traffic traces and event logs into timestamped identifiers and
// feeds them to a sketch.
package ingest

import (
	"context"
	"errors"
)

// ErrMalformedLine is returned by TextSource for a line it cannot parse.
var ErrMalformedLine = errors.New("malformed event line")

// Event is one identifier observed at Timestamp, in fractional unix seconds.
type Event struct {
	Timestamp float64
	ID        []byte
}

// Source produces events. Next returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Sink consumes events. *slidinghll.SlidingHllSketch is a Sink.
type Sink interface {
	Update(timestamp float64, id []byte) error
}

type teeSink []Sink

// Tee returns a Sink that forwards every event to all sinks. Every sink sees every event,
// and the errors of all sinks are joined.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

func (t teeSink) Update(timestamp float64, id []byte) error {
	var errs []error
	for _, s := range t {
		if err := s.Update(timestamp, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
