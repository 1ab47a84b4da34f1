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
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultBufferSize = 1024

// Stats counts what a pipeline run did.
type Stats struct {
	// Events is the number of events the sink accepted.
	Events int64
	// Rejected is the number of malformed events and events the sink refused.
	Rejected int64
}

type runConfig struct {
	bufferSize int
	logger     logrus.FieldLogger
	hook       func(Event, error)
}

type Option func(*runConfig)

// WithBufferSize sets the number of decoded events that may wait for the sink.
func WithBufferSize(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithEventHook registers fn, called after each event with the sink's error, if any.
// Malformed source lines are reported with a zero Event.
func WithEventHook(fn func(Event, error)) Option {
	return func(c *runConfig) {
		c.hook = fn
	}
}

// Run reads src until it is exhausted or ctx is done, feeding sink from a separate
// goroutine. A rejected event is logged and counted, and does not stop the run.
// Run returns nil when src reaches io.EOF.
func Run(ctx context.Context, src Source, sink Sink, opts ...Option) (Stats, error) {
	cfg := runConfig{
		bufferSize: defaultBufferSize,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var events, rejected atomic.Int64
	report := func(ev Event, err error) {
		if cfg.hook != nil {
			cfg.hook(ev, err)
		}
	}

	ch := make(chan Event, cfg.bufferSize)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ch)
		for {
			ev, err := src.Next(gCtx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, ErrMalformedLine) {
				rejected.Add(1)
				cfg.logger.WithError(err).Warn("Skipping malformed event")
				report(Event{}, err)
				continue
			}
			if err != nil {
				return err
			}
			select {
			case ch <- ev:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
	})

	g.Go(func() error {
		for ev := range ch {
			if err := sink.Update(ev.Timestamp, ev.ID); err != nil {
				rejected.Add(1)
				cfg.logger.WithError(err).WithField("timestamp", ev.Timestamp).Debug("Event rejected")
				report(ev, err)
				continue
			}
			events.Add(1)
			report(ev, nil)
		}
		return nil
	})

	err := g.Wait()
	stats := Stats{Events: events.Load(), Rejected: rejected.Load()}
	cfg.logger.WithFields(logrus.Fields{
		"events":   stats.Events,
		"rejected": stats.Rejected,
	}).Debug("Ingestion stopped")
	return stats, err
}
