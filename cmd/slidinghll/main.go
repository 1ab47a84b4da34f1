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

// Command slidinghll estimates the number of distinct QUIC connections, or flows, in a
// packet trace or event stream over sliding windows.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowsketch/slidinghll-go/ingest"
	"github.com/flowsketch/slidinghll-go/internal/exact"
	"github.com/flowsketch/slidinghll-go/internal/lifetime"
	"github.com/flowsketch/slidinghll-go/metrics"
	"github.com/flowsketch/slidinghll-go/slidinghll"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		logrus.WithError(err).Fatal("slidinghll failed")
	}
}

type app struct {
	cfg      *Config
	sketch   *slidinghll.SlidingHllSketch
	exact    *exact.Counter
	lifetime *lifetime.Tracker
	clock    *streamClock
	log      logrus.FieldLogger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(args, stdout)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logrus.SetLevel(cfg.LogLevel)

	a, err := newApp(cfg, logrus.StandardLogger())
	if err != nil {
		return err
	}
	src, err := openSource(cfg, stdin)
	if err != nil {
		return err
	}
	defer src.Close()

	return a.serve(ctx, src, stdin, stdout)
}

func newApp(cfg *Config, logger logrus.FieldLogger) (*app, error) {
	sketch, err := slidinghll.NewSlidingHllSketch(cfg.Memory, slidinghll.WithHasher(cfg.Hasher))
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		sketch: sketch,
		clock:  newStreamClock(cfg.Clock, func() float64 { return slidinghll.Seconds(time.Now()) }),
		log:    logger,
	}
	if cfg.Verify {
		a.exact = exact.NewCounter()
		a.lifetime = lifetime.NewTracker()
	}
	logger.WithFields(logrus.Fields{
		"buckets":        cfg.Memory,
		"hasher":         cfg.Hasher.Name(),
		"relative_error": sketch.GetRelativeError(),
		"verify":         cfg.Verify,
	}).Info("Sketch created")
	return a, nil
}

func openSource(cfg *Config, stdin io.Reader) (ingest.Source, error) {
	if cfg.TextFile == "-" {
		return ingest.NewTextSource(stdin), nil
	}
	if cfg.TextFile != "" {
		f, err := os.Open(cfg.TextFile)
		if err != nil {
			return nil, err
		}
		return ingest.NewTextSource(f), nil
	}
	f, err := os.Open(cfg.PcapFile)
	if err != nil {
		return nil, err
	}
	src, err := ingest.NewPcapSource(f, cfg.Pcap)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

func (a *app) sink() ingest.Sink {
	if a.exact != nil {
		return a.clock.Sink(ingest.Tee(a.sketch, a.exact, a.lifetime))
	}
	return a.clock.Sink(a.sketch)
}

func (a *app) estimate(now float64, w slidinghll.Window) slidinghll.EstimateResult {
	return a.sketch.EstimateWithCorrection(now, w, a.cfg.Correction)
}

// serve ingests src until it is exhausted, reporting periodically. With a console it keeps
// answering queries until the user quits.
func (a *app) serve(ctx context.Context, src ingest.Source, stdin io.Reader, stdout io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector(metrics.EstimatorFunc(a.estimate), a.cfg.Windows, a.clock.Now)
	g, gCtx := errgroup.WithContext(ctx)

	ingestDone := make(chan struct{})
	g.Go(func() error {
		defer close(ingestDone)
		stats, err := ingest.Run(gCtx, src, a.sink(),
			ingest.WithLogger(a.log),
			ingest.WithEventHook(func(_ ingest.Event, err error) { collector.ObserveEvent(err) }))
		a.log.WithFields(logrus.Fields{
			"events":   stats.Events,
			"rejected": stats.Rejected,
		}).Info("Ingestion finished")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			a.log.WithError(err).Error("Ingestion failed")
		}
		return err
	})

	if a.cfg.ReportInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(a.cfg.ReportInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					a.report()
				}
			}
		})
	}

	if a.cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := reg.Register(collector); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.log.WithField("addr", a.cfg.MetricsAddr).Info("Serving metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Interactive {
		c := &console{sketch: a.sketch, exact: a.exact, now: a.clock.Now, correction: a.cfg.Correction, out: stdout}
		if err := c.run(gCtx, stdin); err != nil {
			a.log.WithError(err).Warn("Console stopped")
		}
	} else {
		select {
		case <-ingestDone:
		case <-gCtx.Done():
		}
	}
	a.report()
	cancel()
	return g.Wait()
}

// report logs the estimate, and the exact count in verify mode, for every window. In verify
// mode it also logs the reference HyperLogLog over all identifiers seen.
func (a *app) report() {
	now := a.clock.Now()
	for _, w := range a.cfg.Windows {
		res := a.estimate(now, w)
		fields := logrus.Fields{
			"window":    w.String(),
			"estimate":  res.Cardinality,
			"corrected": res.CorrectionApplied,
		}
		if a.exact != nil {
			fields["exact"] = a.exact.Count(now, w)
		}
		a.log.WithFields(fields).Info("Cardinality")
	}
	if a.lifetime != nil {
		a.log.WithField("estimate", a.lifetime.Count()).Info("Lifetime cardinality")
	}
}
