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

package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
)

const maxLineBytes = 1 << 20

// TextSource reads events from lines of the form "<unix seconds> <identifier>".
// Blank lines and lines starting with '#' are skipped.
type TextSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewTextSource reads events from r. If r is an io.Closer, Close closes it.
func NewTextSource(r io.Reader) *TextSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	s := &TextSource{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *TextSource) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Event{}, fmt.Errorf("reading line %d: %w", s.line+1, err)
			}
			return Event{}, io.EOF
		}
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		return s.parse(line)
	}
}

func (s *TextSource) parse(line []byte) (Event, error) {
	fields := bytes.Fields(line)
	if len(fields) != 2 {
		return Event{}, fmt.Errorf("%w: line %d: expected 2 fields, got %d", ErrMalformedLine, s.line, len(fields))
	}
	ts, err := strconv.ParseFloat(string(fields[0]), 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return Event{}, fmt.Errorf("%w: line %d: bad timestamp %q", ErrMalformedLine, s.line, fields[0])
	}
	id := make([]byte, len(fields[1]))
	copy(id, fields[1])
	return Event{Timestamp: ts, ID: id}, nil
}

// Line returns the number of lines consumed so far.
func (s *TextSource) Line() int {
	return s.line
}

func (s *TextSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
