/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exports ClockPairing diagnostic state as Prometheus
// gauges, polling a session.Registry on an interval rather than hooking
// into Update directly, so the pairing core stays free of any metrics
// dependency.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/mlat-server/clocksync/pairing"
)

// PairingSource supplies the set of pairings to scrape. session.Registry
// satisfies this.
type PairingSource interface {
	Pairings() []*pairing.ClockPairing
}

// Exporter periodically snapshots every pairing reachable from a
// PairingSource into dynamically registered gauges, served over HTTP.
type Exporter struct {
	registry   *prometheus.Registry
	source     PairingSource
	listenPort int
	interval   time.Duration
}

// NewExporter constructs an Exporter that scrapes source every interval and
// serves /metrics on listenPort.
func NewExporter(source PairingSource, listenPort int, interval time.Duration) *Exporter {
	return &Exporter{
		registry:   prometheus.NewRegistry(),
		source:     source,
		listenPort: listenPort,
		interval:   interval,
	}
}

// Start runs the scrape loop and HTTP server. It blocks; call it in its own
// goroutine.
func (e *Exporter) Start() {
	go func() {
		for {
			e.scrape()
			time.Sleep(e.interval)
		}
	}()

	http.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", e.listenPort), nil))
}

// Scrape runs one collection pass immediately; exported for tests and for
// callers that want to drive the interval themselves.
func (e *Exporter) Scrape() { e.scrape() }

func (e *Exporter) scrape() {
	for _, p := range e.source.Pairings() {
		snap := p.Snapshot()
		labels := prometheus.Labels{"base": snap.Base, "peer": snap.Peer, "category": fmt.Sprintf("%d", snap.Category)}

		e.setGauge("clocksync_pair_valid", "1 if the pairing is usable by multilateration", labels, boolToFloat(snap.Valid))
		e.setGauge("clocksync_pair_n", "number of samples in the offset ring", labels, float64(snap.N))
		e.setGauge("clocksync_pair_drift_ppm", "current drift estimate in parts per million", labels, snap.Drift*1e6)
		e.setGauge("clocksync_pair_variance", "reported prediction-error variance in seconds squared", labels, snap.Variance)
		e.setGauge("clocksync_pair_outlier_percent", "outlier_total/update_total as a percentage", labels, snap.OutlierPercent)
		e.setGauge("clocksync_pair_outliers", "current outlier hysteresis score", labels, float64(snap.Outliers))
	}
}

func (e *Exporter) setGauge(name, help string, labels prometheus.Labels, value float64) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help, ConstLabels: labels})
	if err := e.registry.Register(g); err != nil {
		are := &prometheus.AlreadyRegisteredError{}
		if errors.As(err, are) {
			g = are.ExistingCollector.(prometheus.Gauge)
		} else {
			log.Errorf("clocksync: failed to register metric %s: %v", name, err)
			return
		}
	}
	g.Set(value)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
