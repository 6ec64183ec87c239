// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"context"
	"strings"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Clock supplies the UTC wall-clock seconds the aggregator and ingress
// router consult. Tests inject a deterministic one; production code leaves
// it at its default, time.Now.
type Clock func() time.Time

// ClusterDump is one cluster's slice of a DumpMetricsData snapshot.
type ClusterDump struct {
	Data     map[string]FilteredValue
	Backends map[string]map[string]FilteredValue
}

// DumpedMetrics is the answer shape of DumpMetricsData.
type DumpedMetrics struct {
	Proxy    map[string]FilteredValue
	Clusters map[string]ClusterDump
}

// Drain is the single object a reverse-proxy worker embeds to both receive
// observations and answer queries. It owns the registry, both ordered-store
// namespaces, and the process-global drain; nothing outside Drain touches
// them directly.
//
// The natural embedding is single-threaded cooperative (one Drain per
// worker, driven synchronously by that worker's event loop). mu exists so
// this package is also safe to embed from a goroutine-per-connection server
// without asking every caller to replicate that discipline.
type Drain struct {
	mu       sync.Mutex
	store    *orderedStore
	registry *registry
	global   *globalDrain
	clock    Clock
	cfg      Config

	sweepCancel context.CancelFunc
	sweepDone   *sync.WaitGroup
}

// New opens a Drain backed by a fresh Ordered Store and empty registry/
// process-global map.
func New(cfg Config) (*Drain, error) {
	store, err := openOrderedStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Drain{
		store:    store,
		registry: newRegistry(),
		global:   newGlobalDrain(cfg.histogramConfig()),
		clock:    time.Now,
		cfg:      cfg,
	}, nil
}

// SetClock overrides the wall-clock source; intended for tests.
func (d *Drain) SetClock(c Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = c
}

// StartSweep launches the background goroutine that periodically calls
// Clear on a ticker, stopping cleanly when StopSweep cancels its context.
func (d *Drain) StartSweep(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	d.sweepCancel = cancel
	d.sweepDone = wg

	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := d.cfg.sweepInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.Clear(d.clock()); err != nil {
					cclog.Errorf("[METRICDRAIN]> sweep failed: %s\n", err.Error())
				}
			}
		}
	}()
}

// StopSweep cancels the background sweep goroutine started by StartSweep,
// if any.
func (d *Drain) StopSweep() {
	if d.sweepCancel != nil {
		d.sweepCancel()
	}
}

// ReceiveMetric applies one push from the proxy producer.
// cluster == "" routes to the process-global drain; backend == "" writes
// the cluster prefix only. A name or id containing a reserved byte yields
// ErrReservedByte and an ordered-store failure an ErrStore-wrapped error;
// neither is logged here.
func (d *Drain) ReceiveMetric(name, cluster, backend string, obs Observation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return routeObservation(d.global, d.store, d.registry, name, cluster, backend, obs, d.clock())
}

// Query is the control plane's read path.
func (d *Drain) Query(q QueryMetricsType) (QueryAnswerMetrics, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch q.kind {
	case queryList:
		return QueryAnswerMetrics{Kind: queryList, List: d.registry.prefixes()}, nil
	case queryCluster:
		answer, err := runClusterQuery(d.store, d.registry, q.metrics, q.clusters)
		if err != nil {
			return QueryAnswerMetrics{}, err
		}
		return QueryAnswerMetrics{Kind: queryCluster, Cluster: answer}, nil
	case queryBackend:
		answer, err := runBackendQuery(d.store, d.registry, q.metrics, q.backends)
		if err != nil {
			return QueryAnswerMetrics{}, err
		}
		return QueryAnswerMetrics{Kind: queryBackend, Backend: answer}, nil
	default:
		return QueryAnswerMetrics{}, ErrUnknownMetric
	}
}

// DumpMetricsData snapshots every registered series plus the process-global
// map. Ordered-store failures are logged and that one series is left out of
// the snapshot rather than failing the whole dump.
func (d *Drain) DumpMetricsData() DumpedMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := DumpedMetrics{Proxy: d.global.dump(), Clusters: make(map[string]ClusterDump)}

	clusterOf := func(name string) ClusterDump {
		cd, ok := out.Clusters[name]
		if !ok {
			cd = ClusterDump{Data: make(map[string]FilteredValue), Backends: make(map[string]map[string]FilteredValue)}
		}
		return cd
	}

	for prefix, entry := range d.registry.snapshot() {
		fields := strings.Split(prefix, string(fieldSeparator))
		switch entry.scope {
		case ScopeCluster:
			if len(fields) != 2 {
				continue
			}
			name, cluster := fields[0], fields[1]
			fv, found, err := readLatest(d.store.cluster, prefix, entry.kind)
			if err != nil {
				cclog.Errorf("[METRICDRAIN]> dump: cluster series %q: %s\n", prefix, err.Error())
				continue
			}
			if !found {
				continue
			}
			cd := clusterOf(cluster)
			cd.Data[name] = fv
			out.Clusters[cluster] = cd
		case ScopeClusterBackend:
			if len(fields) != 3 {
				continue
			}
			name, cluster, backend := fields[0], fields[1], fields[2]
			fv, found, err := readLatest(d.store.backend, prefix, entry.kind)
			if err != nil {
				cclog.Errorf("[METRICDRAIN]> dump: backend series %q: %s\n", prefix, err.Error())
				continue
			}
			if !found {
				continue
			}
			cd := clusterOf(cluster)
			bm, ok := cd.Backends[backend]
			if !ok {
				bm = make(map[string]FilteredValue)
			}
			bm[name] = fv
			cd.Backends[backend] = bm
			out.Clusters[cluster] = cd
		}
	}

	return out
}

// Clear is the time-driven sweep: every registered prefix is aggregated
// against now, and prefixes left holding nothing but their sentinel(s) are
// evicted.
func (d *Drain) Clear(now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := now.Unix()
	retentionSeconds := int64(d.cfg.retention() / time.Second)
	for prefix, entry := range d.registry.snapshot() {
		ns := d.store.namespaceFor(entry.scope)
		if err := aggregatePrefix(ns, prefix, entry.kind, ts, retentionSeconds); err != nil {
			return err
		}
		empty, err := sweepEmpty(ns, prefix, entry.kind)
		if err != nil {
			return err
		}
		if !empty {
			continue
		}
		if err := evictPrefix(ns, prefix, entry.kind); err != nil {
			return err
		}
		d.registry.evict(prefix)
	}
	return nil
}

// evictPrefix removes the sentinel row(s) of a prefix sweepEmpty has
// reported as otherwise empty — the base-prefix sentinel for Gauge/Count,
// or the base-prefix sentinel plus all ten sub-field sentinels for Time
// (mirroring the writes ensureRegistered made on first sight).
func evictPrefix(ns *namespace, prefix string, kind MetricKind) error {
	if err := ns.remove(sentinelKey(prefix)); err != nil {
		return err
	}
	if kind != KindTime {
		return nil
	}
	for _, f := range timeSubfields {
		if err := ns.remove(sentinelKey(timeSubfieldPrefix(prefix, f))); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll is the diagnostic full reset: it drops every row in both
// namespaces and resets the registry and process-global map, without
// touching configuration or the clock.
func (d *Drain) ClearAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.cluster.dropAll(); err != nil {
		return err
	}
	if err := d.store.backend.dropAll(); err != nil {
		return err
	}
	d.registry = newRegistry()
	d.global = newGlobalDrain(d.cfg.histogramConfig())
	return nil
}

// Close releases the Ordered Store's badger handles. Callers should stop
// the sweep goroutine first via StopSweep.
func (d *Drain) Close() {
	d.store.close()
}
