// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"strings"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Percentiles is the decoded shape of a Time metric's FilteredValue.
type Percentiles struct {
	Samples uint64
	P50     uint64
	P90     uint64
	P99     uint64
	P999    uint64
	P9999   uint64
	P99999  uint64
	P100    uint64
}

// FilteredValue is the answer the Query Engine attaches per (series,
// target); exactly one of Gauge/Count/Percentiles is meaningful, selected
// by Kind.
type FilteredValue struct {
	Kind        MetricKind
	Gauge       uint64
	Count       int64
	Percentiles Percentiles
}

// queryKind discriminates the three QueryMetricsType shapes.
type queryKind int

const (
	queryList queryKind = iota
	queryCluster
	queryBackend
)

// ClusterBackend names one (cluster_id, backend_id) pair for a Backend
// query.
type ClusterBackend struct {
	Cluster string
	Backend string
}

// QueryMetricsType is the tagged union of the three read queries this
// package answers. Build one with QueryList/QueryClusterMetrics/
// QueryBackendMetrics.
type QueryMetricsType struct {
	kind     queryKind
	metrics  []string
	clusters []string
	backends []ClusterBackend
}

// QueryList asks for the set of all currently registered prefixes.
func QueryList() QueryMetricsType { return QueryMetricsType{kind: queryList} }

// QueryClusterMetrics asks, for each (metric, cluster) pair, for the
// freshest value of that cluster-scoped series.
func QueryClusterMetrics(metrics, clusters []string) QueryMetricsType {
	return QueryMetricsType{kind: queryCluster, metrics: metrics, clusters: clusters}
}

// QueryBackendMetrics asks, for each (metric, cluster, backend) triple, for
// the freshest value of that backend-scoped series.
func QueryBackendMetrics(metrics []string, backends []ClusterBackend) QueryMetricsType {
	return QueryMetricsType{kind: queryBackend, metrics: metrics, backends: backends}
}

// QueryAnswerMetrics is the tagged-union answer matching the query's shape.
type QueryAnswerMetrics struct {
	Kind queryKind

	// List is populated when Kind == queryList.
	List []string

	// Cluster is populated when Kind == queryCluster:
	// cluster -> metric_prefix -> FilteredValue.
	Cluster map[string]map[string]FilteredValue

	// Backend is populated when Kind == queryBackend:
	// cluster -> backend -> metric_prefix -> FilteredValue.
	Backend map[string]map[string]map[string]FilteredValue
}

var percentileSubfieldOrder = []string{"count", "p50", "p90", "p99", "p99.9", "p99.99", "p99.999", "p100"}

// assignPercentileField writes a decoded sub-field sample into the matching
// Percentiles slot; "count" goes to the sample-count field.
func assignPercentileField(p *Percentiles, field string, v uint64) {
	switch field {
	case "count":
		p.Samples = v
	case "p50":
		p.P50 = v
	case "p90":
		p.P90 = v
	case "p99":
		p.P99 = v
	case "p99.9":
		p.P999 = v
	case "p99.99":
		p.P9999 = v
	case "p99.999":
		p.P99999 = v
	case "p100":
		p.P100 = v
	}
}

// readLatest answers one (prefix, kind) lookup against ns by finding the
// largest row strictly less than the sentinel, i.e. the freshest value of
// that series.
func readLatest(ns *namespace, prefix string, kind MetricKind) (FilteredValue, bool, error) {
	if kind == KindTime {
		var p Percentiles
		found := false
		for _, field := range percentileSubfieldOrder {
			subPrefix := timeSubfieldPrefix(prefix, field)
			row, ok, err := ns.getLT(sentinelKey(subPrefix))
			if err != nil {
				return FilteredValue{}, false, err
			}
			if !ok || !strings.HasPrefix(row.Key, subPrefix) {
				continue
			}
			v, derr := decodeUint(row.Value)
			if derr != nil {
				cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", row.Key, derr.Error())
			}
			assignPercentileField(&p, field, v)
			found = true
		}
		return FilteredValue{Kind: KindTime, Percentiles: p}, found, nil
	}

	row, ok, err := ns.getLT(sentinelKey(prefix))
	if err != nil {
		return FilteredValue{}, false, err
	}
	if !ok || !strings.HasPrefix(row.Key, prefix) {
		return FilteredValue{}, false, nil
	}

	switch kind {
	case KindGauge:
		v, derr := decodeUint(row.Value)
		if derr != nil {
			cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", row.Key, derr.Error())
		}
		return FilteredValue{Kind: KindGauge, Gauge: v}, true, nil
	case KindCount:
		v, derr := decodeInt(row.Value)
		if derr != nil {
			cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", row.Key, derr.Error())
		}
		return FilteredValue{Kind: KindCount, Count: v}, true, nil
	default:
		return FilteredValue{}, false, nil
	}
}

// runClusterQuery answers a QueryClusterMetrics request.
func runClusterQuery(store *orderedStore, reg *registry, metrics, clusters []string) (map[string]map[string]FilteredValue, error) {
	out := make(map[string]map[string]FilteredValue, len(clusters))
	for _, cluster := range clusters {
		series := make(map[string]FilteredValue, len(metrics))
		for _, name := range metrics {
			prefix := clusterPrefix(name, cluster)
			entry, ok := reg.lookup(prefix)
			if !ok {
				cclog.Warnf("[METRICDRAIN]> query: %s: %q", ErrUnknownMetric, prefix)
				continue
			}
			fv, found, err := readLatest(store.cluster, prefix, entry.kind)
			if err != nil {
				return nil, err
			}
			if found {
				series[prefix] = fv
			}
		}
		out[cluster] = series
	}
	return out, nil
}

// runBackendQuery answers a QueryBackendMetrics request. Time queries in
// this path are a documented gap: they are skipped entirely rather than
// attempting the sub-field reads runClusterQuery performs.
func runBackendQuery(store *orderedStore, reg *registry, metrics []string, backends []ClusterBackend) (map[string]map[string]map[string]FilteredValue, error) {
	out := make(map[string]map[string]map[string]FilteredValue)
	for _, cb := range backends {
		byBackend, ok := out[cb.Cluster]
		if !ok {
			byBackend = make(map[string]map[string]FilteredValue)
			out[cb.Cluster] = byBackend
		}
		series := make(map[string]FilteredValue, len(metrics))
		for _, name := range metrics {
			prefix := backendPrefix(name, cb.Cluster, cb.Backend)
			entry, ok := reg.lookup(prefix)
			if !ok {
				cclog.Warnf("[METRICDRAIN]> query: %s: %q", ErrUnknownMetric, prefix)
				continue
			}
			if entry.kind == KindTime {
				// Known gap: backend-scope Time queries never
				// populate Percentiles.
				continue
			}
			fv, found, err := readLatest(store.backend, prefix, entry.kind)
			if err != nil {
				return nil, err
			}
			if found {
				series[prefix] = fv
			}
		}
		byBackend[cb.Backend] = series
	}
	return out, nil
}
