// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

// MetricKind is the shape of the value carried by a metric series.
type MetricKind int

const (
	// KindGauge absorbs both absolute-set and delta-add observations.
	KindGauge MetricKind = iota
	KindCount
	KindTime
)

func (k MetricKind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCount:
		return "count"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// MetricScope says whether a series is tagged by cluster only (kept in the
// cluster namespace) or by cluster and backend (kept in the backend
// namespace).
type MetricScope int

const (
	ScopeCluster MetricScope = iota
	ScopeClusterBackend
)

// ObservationKind discriminates the four ways a producer can push a sample.
type ObservationKind int

const (
	ObsGauge ObservationKind = iota
	ObsGaugeDelta
	ObsCount
	ObsTime
)

// Observation is a single measurement pushed through ReceiveMetric.
//
// Value holds a Gauge/Time sample (unsigned) and Delta a GaugeDelta/Count
// delta (signed); which field is meaningful is determined by Kind.
type Observation struct {
	Kind  ObservationKind
	Value uint64
	Delta int64
}

// GaugeSet builds a Gauge-set observation.
func GaugeSet(value uint64) Observation { return Observation{Kind: ObsGauge, Value: value} }

// GaugeAdd builds a Gauge-delta observation.
func GaugeAdd(delta int64) Observation { return Observation{Kind: ObsGaugeDelta, Delta: delta} }

// CountAdd builds a Count observation.
func CountAdd(delta int64) Observation { return Observation{Kind: ObsCount, Delta: delta} }

// TimeSample builds a Time observation (a single latency/duration sample).
func TimeSample(value uint64) Observation { return Observation{Kind: ObsTime, Value: value} }

// registryEntry is the (scope, kind) pair the registry keys by prefix.
type registryEntry struct {
	scope MetricScope
	kind  MetricKind
}

// timeSubfields are the ten per-statistic suffixes a Time prefix expands
// into.
var timeSubfields = []string{
	"count", "mean", "var",
	"p50", "p90", "p99", "p99.9", "p99.99", "p99.999", "p100",
}

// quantileOf maps a percentile sub-field name to its target quantile for
// the Percentile Estimator. p100 and non-percentile fields are handled by
// their callers, not through this table.
var quantileOf = map[string]float64{
	"p50":     0.5,
	"p90":     0.9,
	"p99":     0.99,
	"p99.9":   0.999,
	"p99.99":  0.9999,
	"p99.999": 0.99999,
}
