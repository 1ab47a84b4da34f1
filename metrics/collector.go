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

// Package metrics exposes sliding window estimates as Prometheus metrics.
package metrics

import (
	"github.com/flowsketch/slidinghll-go/slidinghll"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slidinghll"

// Estimator is the query side of a sketch.
type Estimator interface {
	Estimate(now float64, window slidinghll.Window) slidinghll.EstimateResult
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(now float64, window slidinghll.Window) slidinghll.EstimateResult

func (f EstimatorFunc) Estimate(now float64, window slidinghll.Window) slidinghll.EstimateResult {
	return f(now, window)
}

// Collector computes one estimate per configured window at scrape time and counts the
// events fed to the sketch.
type Collector struct {
	estimator Estimator
	windows   []slidinghll.Window
	now       func() float64

	cardinality *prometheus.Desc
	corrected   *prometheus.Desc
	events      prometheus.Counter
	rejected    prometheus.Counter
}

// NewCollector builds a collector. now supplies the query time in unix seconds.
// Repeated windows are reported once.
func NewCollector(estimator Estimator, windows []slidinghll.Window, now func() float64) *Collector {
	unique := make([]slidinghll.Window, 0, len(windows))
	seen := make(map[string]bool, len(windows))
	for _, w := range windows {
		if label := w.String(); !seen[label] {
			seen[label] = true
			unique = append(unique, w)
		}
	}
	return &Collector{
		estimator: estimator,
		windows:   unique,
		now:       now,
		cardinality: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "estimated_cardinality"),
			"Estimated number of distinct identifiers within the trailing window",
			[]string{"window"}, nil,
		),
		corrected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "small_range_correction"),
			"1 if the estimate for the window used linear counting, 0 otherwise",
			[]string{"window"}, nil,
		),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events accepted by the sketch",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Events that were malformed or refused by the sketch",
		}),
	}
}

// ObserveEvent counts one ingested event, rejected if err is not nil.
func (c *Collector) ObserveEvent(err error) {
	if err != nil {
		c.rejected.Inc()
		return
	}
	c.events.Inc()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cardinality
	ch <- c.corrected
	c.events.Describe(ch)
	c.rejected.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	now := c.now()
	for _, w := range c.windows {
		res := c.estimator.Estimate(now, w)
		corrected := 0.0
		if res.CorrectionApplied {
			corrected = 1
		}
		ch <- prometheus.MustNewConstMetric(c.cardinality, prometheus.GaugeValue, float64(res.Cardinality), w.String())
		ch <- prometheus.MustNewConstMetric(c.corrected, prometheus.GaugeValue, corrected, w.String())
	}
	c.events.Collect(ch)
	c.rejected.Collect(ch)
}
