// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package statetrees

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "statetrees"

// Metrics collects counters of root commits and node garbage collection.
type Metrics struct {
	rootsCommitted prometheus.Counter
	versionsFreed  prometheus.Counter
	nodesDeleted   prometheus.Counter
	gcRuns         prometheus.Counter
	gcMarked       prometheus.Gauge
	gcDuration     prometheus.Histogram

	reg        prometheus.Registerer
	registered []prometheus.Collector
}

// NewMetrics creates the metrics of a StateTrees instance. If reg is nil,
// metrics are collected locally but not exported.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rootsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "roots_committed_total",
			Help:      "Total number of roots recorded in the roots index.",
		}),
		versionsFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "versions_released_total",
			Help:      "Total number of versions released in multi-version mode.",
		}),
		nodesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "nodes_deleted_total",
			Help:      "Total number of nodes removed by reference counting or garbage collection.",
		}),
		gcRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gc",
			Name:      "runs_total",
			Help:      "Total number of mark and sweep runs.",
		}),
		gcMarked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "gc",
			Name:      "marked_nodes",
			Help:      "Number of nodes reachable from the current root in the last run.",
		}),
		gcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "gc",
			Name:      "duration_seconds",
			Help:      "Duration of mark and sweep runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}
	m.reg = reg
	for _, c := range []prometheus.Collector{
		m.rootsCommitted, m.versionsFreed, m.nodesDeleted, m.gcRuns, m.gcMarked, m.gcDuration,
	} {
		if err := reg.Register(c); err != nil {
			m.unregister()
			return nil, err
		}
		m.registered = append(m.registered, c)
	}
	return m, nil
}

// unregister removes the collectors registered by this instance. Collectors
// of other instances with the same names are not affected.
func (m *Metrics) unregister() {
	for _, c := range m.registered {
		m.reg.Unregister(c)
	}
	m.registered = nil
}
