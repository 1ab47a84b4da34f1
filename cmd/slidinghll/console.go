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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"

	"github.com/flowsketch/slidinghll-go/ingest"
	"github.com/flowsketch/slidinghll-go/internal/exact"
	"github.com/flowsketch/slidinghll-go/slidinghll"
)

const consoleHelp = `commands:
  estimate <window>   estimated distinct identifiers, window is a duration, seconds or "all"
  exact <window>      exact distinct identifiers (needs --verify)
  status              dump every bucket
  help                this text
  quit                exit
`

// streamClock tracks the latest event timestamp, so that traces can be queried as if
// they were live.
type streamClock struct {
	wall func() float64
	bits atomic.Uint64
}

func newStreamClock(mode string, wall func() float64) *streamClock {
	c := &streamClock{}
	if mode == ClockWall {
		c.wall = wall
	}
	c.bits.Store(math.Float64bits(math.Inf(-1)))
	return c
}

func (c *streamClock) Now() float64 {
	if c.wall != nil {
		return c.wall()
	}
	now := math.Float64frombits(c.bits.Load())
	if math.IsInf(now, -1) {
		return 0
	}
	return now
}

func (c *streamClock) observe(ts float64) {
	for {
		old := c.bits.Load()
		if ts <= math.Float64frombits(old) {
			return
		}
		if c.bits.CompareAndSwap(old, math.Float64bits(ts)) {
			return
		}
	}
}

// Sink returns a sink that advances the clock and forwards to next.
func (c *streamClock) Sink(next ingest.Sink) ingest.Sink {
	return clockSink{clock: c, next: next}
}

type clockSink struct {
	clock *streamClock
	next  ingest.Sink
}

func (s clockSink) Update(ts float64, id []byte) error {
	s.clock.observe(ts)
	return s.next.Update(ts, id)
}

type console struct {
	sketch     *slidinghll.SlidingHllSketch
	exact      *exact.Counter
	now        func() float64
	correction bool
	out        io.Writer
}

// run reads commands from in until quit, end of input or ctx is done. Input is read on a
// separate goroutine, so a cancelled ctx ends the session without waiting for a line.
func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprint(c.out, "> ")
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(c.out, "\nclosing console: %v\n", context.Cause(ctx))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := c.execute(line); quit {
				return nil
			}
			fmt.Fprint(c.out, "> ")
		}
	}
}

func (c *console) execute(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(c.out, consoleHelp)
	case "status":
		fmt.Fprint(c.out, c.sketch.Status())
	case "estimate", "exact":
		if len(fields) != 2 {
			fmt.Fprintf(c.out, "usage: %s <window>\n", fields[0])
			return false
		}
		w, err := parseWindow(fields[1])
		if err != nil {
			fmt.Fprintln(c.out, err)
			return false
		}
		now := c.now()
		if fields[0] == "exact" {
			if c.exact == nil {
				fmt.Fprintln(c.out, "exact counting is disabled, restart with --verify")
				return false
			}
			fmt.Fprintf(c.out, "exact %s: %d\n", w, c.exact.Count(now, w))
			return false
		}
		res := c.sketch.EstimateWithCorrection(now, w, c.correction)
		fmt.Fprintf(c.out, "estimate %s: %d", w, res.Cardinality)
		if res.CorrectionApplied {
			fmt.Fprint(c.out, " (linear counting)")
		}
		fmt.Fprintln(c.out)
	default:
		fmt.Fprintf(c.out, "unknown command %q, try help\n", fields[0])
	}
	return false
}
