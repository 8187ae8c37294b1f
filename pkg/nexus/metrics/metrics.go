/*
Copyright 2026 The OpenEBS Authors.

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

// Package metrics exposes Prometheus instrumentation for the nexus data plane.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// NexusComponent is the metrics subsystem name for the nexus data plane.
	NexusComponent = "nexus"
)

var (
	// NexusLabels label a metric with the logical device name.
	NexusLabels = []string{"nexus"}

	ioTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: NexusComponent,
			Name:      "io_total",
			Help:      "Counter of logical I/O requests, broken out by operation type and terminal outcome.",
		},
		[]string{"nexus", "op", "outcome"},
	)

	ioDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: NexusComponent,
			Name:      "io_duration_seconds",
			Help:      "Histogram of logical I/O request duration from admission to finalization.",
			Buckets: []float64{
				0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10,
			},
		},
		[]string{"nexus", "op"},
	)

	inFlightRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: NexusComponent,
			Name:      "inflight_requests",
			Help:      "Gauge of logical requests admitted but not yet finalized.",
		},
		NexusLabels,
	)

	childRetirements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: NexusComponent,
			Name:      "child_retirements_total",
			Help:      "Counter of replicas faulted and retired from service.",
		},
		NexusLabels,
	)

	channelRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: NexusComponent,
			Name:      "channel_rebuilds_total",
			Help:      "Counter of per-core channel view rebuilds, broken out by triggering event.",
		},
		[]string{"nexus", "event"},
	)
)

var registerMetrics sync.Once

// Register registers all nexus metrics with the given registerer. It is safe to call more than
// once; only the first call has effect.
func Register(r prometheus.Registerer) {
	registerMetrics.Do(func() {
		r.MustRegister(ioTotal)
		r.MustRegister(ioDuration)
		r.MustRegister(inFlightRequests)
		r.MustRegister(childRetirements)
		r.MustRegister(channelRebuilds)
	})
}

// RecordIO records the terminal outcome and duration of one logical request.
func RecordIO(nexus, op, outcome string, seconds float64) {
	ioTotal.WithLabelValues(nexus, op, outcome).Inc()
	ioDuration.WithLabelValues(nexus, op).Observe(seconds)
}

// IncInFlight records the admission of a logical request.
func IncInFlight(nexus string) {
	inFlightRequests.WithLabelValues(nexus).Inc()
}

// DecInFlight records the finalization of a logical request.
func DecInFlight(nexus string) {
	inFlightRequests.WithLabelValues(nexus).Dec()
}

// RecordRetirement records one replica retirement.
func RecordRetirement(nexus string) {
	childRetirements.WithLabelValues(nexus).Inc()
}

// RecordRebuild records one per-core channel rebuild.
func RecordRebuild(nexus, event string) {
	channelRebuilds.WithLabelValues(nexus, event).Inc()
}
