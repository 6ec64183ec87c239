// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/codahale/hdrhistogram"
)

// globalEntry is one un-tagged, process-global metric: a Gauge or Count
// value updated in place, or a Time histogram.
type globalEntry struct {
	kind  MetricKind
	gauge uint64
	count int64
	hist  *hdrhistogram.Histogram
}

// globalDrain is the in-memory map for un-tagged metrics. It holds no
// ordered-store rows at all: it is a flat name -> aggregated map, mutated
// in place.
type globalDrain struct {
	entries map[string]*globalEntry
	hist    histogramConfig
}

// histogramConfig carries the hdrhistogram range/precision Config exposes
// (see config.go).
type histogramConfig struct {
	lowest          int64
	highest         int64
	sigFigs         int
}

func newGlobalDrain(hc histogramConfig) *globalDrain {
	return &globalDrain{entries: make(map[string]*globalEntry), hist: hc}
}

// observe applies an observation to the named process-global metric,
// creating it on first sight and otherwise mutating it in place. A kind
// mismatch against an already-registered name is a fatal programmer error:
// a producer must never change kind for a given name.
func (g *globalDrain) observe(name string, obs Observation) {
	kind, ok := observationKindToMetricKind(obs.Kind)
	if !ok {
		cclog.Fatalf("[METRICDRAIN]> process-global metric %q: observation kind has no process-global home", name)
	}

	e, exists := g.entries[name]
	if !exists {
		e = &globalEntry{kind: kind}
		switch kind {
		case KindTime:
			e.hist = hdrhistogram.New(g.hist.lowest, g.hist.highest, g.hist.sigFigs)
		}
		g.entries[name] = e
	} else if e.kind != kind {
		cclog.Fatalf("[METRICDRAIN]> process-global metric %q: kind mismatch, registered as %s, got %s", name, e.kind, kind)
	}

	switch obs.Kind {
	case ObsGauge:
		e.gauge = obs.Value
	case ObsGaugeDelta:
		e.gauge = uint64(int64(e.gauge) + obs.Delta)
	case ObsCount:
		e.count += obs.Delta
	case ObsTime:
		if err := e.hist.RecordValue(int64(obs.Value)); err != nil {
			cclog.Warnf("[METRICDRAIN]> process-global metric %q: dropping sample, %s", name, err.Error())
		}
	}
}

// observationKindToMetricKind maps the wire-level ObservationKind onto the
// registry-level MetricKind it belongs to (Gauge absorbs both set and
// delta).
func observationKindToMetricKind(ok ObservationKind) (MetricKind, bool) {
	switch ok {
	case ObsGauge, ObsGaugeDelta:
		return KindGauge, true
	case ObsCount:
		return KindCount, true
	case ObsTime:
		return KindTime, true
	default:
		return 0, false
	}
}

// dump snapshots every process-global entry into a FilteredValue map,
// reading off percentiles {50, 90, 99, 99.9, 99.99, 99.999, 100} and the
// sample count from each Time entry's histogram.
func (g *globalDrain) dump() map[string]FilteredValue {
	out := make(map[string]FilteredValue, len(g.entries))
	for name, e := range g.entries {
		switch e.kind {
		case KindGauge:
			out[name] = FilteredValue{Kind: KindGauge, Gauge: e.gauge}
		case KindCount:
			out[name] = FilteredValue{Kind: KindCount, Count: e.count}
		case KindTime:
			out[name] = FilteredValue{
				Kind: KindTime,
				Percentiles: Percentiles{
					Samples: uint64(e.hist.TotalCount()),
					P50:     uint64(e.hist.ValueAtQuantile(50)),
					P90:     uint64(e.hist.ValueAtQuantile(90)),
					P99:     uint64(e.hist.ValueAtQuantile(99)),
					P999:    uint64(e.hist.ValueAtQuantile(99.9)),
					P9999:   uint64(e.hist.ValueAtQuantile(99.99)),
					P99999:  uint64(e.hist.ValueAtQuantile(99.999)),
					P100:    uint64(e.hist.ValueAtQuantile(100)),
				},
			}
		}
	}
	return out
}
