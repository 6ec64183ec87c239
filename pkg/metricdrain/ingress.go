// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"math"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// routeObservation dispatches one incoming observation. cluster == "" means
// no cluster_id was supplied (routed to the process-global drain); backend
// == "" means no backend_id was supplied (cluster-only write).
func routeObservation(gd *globalDrain, store *orderedStore, reg *registry, name, cluster, backend string, obs Observation, now time.Time) error {
	if containsReservedByte(name) ||
		(cluster != "" && containsReservedByte(cluster)) ||
		(backend != "" && containsReservedByte(backend)) {
		return ErrReservedByte
	}

	if cluster == "" {
		gd.observe(name, obs)
		return nil
	}

	kind, ok := observationKindToMetricKind(obs.Kind)
	if !ok {
		cclog.Fatalf("[METRICDRAIN]> %q: observation kind has no storage path", name)
	}
	ts := now.Unix()

	cPrefix := clusterPrefix(name, cluster)
	if err := ensureRegistered(reg, store.cluster, cPrefix, ScopeCluster, kind); err != nil {
		return err
	}
	if err := writeObservation(store.cluster, cPrefix, kind, obs, ts); err != nil {
		return err
	}

	if backend != "" {
		bPrefix := backendPrefix(name, cluster, backend)
		if err := ensureRegistered(reg, store.backend, bPrefix, ScopeClusterBackend, kind); err != nil {
			return err
		}
		if err := writeObservation(store.backend, bPrefix, kind, obs, ts); err != nil {
			return err
		}
	}

	return nil
}

// ensureRegistered is the store-path first-write hook. A Gauge/Count prefix
// gets a single sentinel; a Time prefix gets that same base-prefix sentinel
// plus one sentinel per sub-field (sentinels exist for all ten sub-fields),
// since the base prefix itself never carries data rows for a Time series.
func ensureRegistered(reg *registry, ns *namespace, prefix string, scope MetricScope, kind MetricKind) error {
	if _, ok := reg.lookup(prefix); ok {
		return nil
	}

	if err := ns.insert(sentinelKey(prefix), zeroValue); err != nil {
		return err
	}
	if kind == KindTime {
		for _, f := range timeSubfields {
			if err := ns.insert(sentinelKey(timeSubfieldPrefix(prefix, f)), zeroValue); err != nil {
				return err
			}
		}
	}

	reg.register(prefix, registryEntry{scope: scope, kind: kind})
	return nil
}

// writeObservation dispatches one observation against an already-registered
// prefix according to its registered kind.
func writeObservation(ns *namespace, prefix string, kind MetricKind, obs Observation, ts int64) error {
	switch kind {
	case KindGauge:
		switch obs.Kind {
		case ObsGauge:
			return writeGaugeSet(ns, prefix, ts, obs.Value)
		case ObsGaugeDelta:
			return writeGaugeDelta(ns, prefix, ts, obs.Delta)
		default:
			cclog.Fatalf("[METRICDRAIN]> %q: kind mismatch, registered as gauge", prefix)
		}
	case KindCount:
		if obs.Kind != ObsCount {
			cclog.Fatalf("[METRICDRAIN]> %q: kind mismatch, registered as count", prefix)
		}
		return writeCount(ns, prefix, ts, obs.Delta)
	case KindTime:
		if obs.Kind != ObsTime {
			cclog.Fatalf("[METRICDRAIN]> %q: kind mismatch, registered as time", prefix)
		}
		return writeTimeDualWrite(ns, prefix, ts, obs.Value)
	}
	return nil
}

func writeGaugeSet(ns *namespace, prefix string, ts int64, value uint64) error {
	return ns.insert(rowKey(prefix, ts), encodeUint(value))
}

// writeGaugeDelta implements "read the most recent row in [ts-60, ts]
// (descending range, first hit)" by ranging ascending over the half-open
// window and taking the last row, which is equivalent.
func writeGaugeDelta(ns *namespace, prefix string, ts int64, delta int64) error {
	rows, err := ns.rangeScan(rowKey(prefix, ts-secondsPerMinute), rowKey(prefix, ts+1))
	if err != nil {
		return err
	}

	var newValue int64
	if len(rows) > 0 {
		current, derr := decodeUint(rows[len(rows)-1].Value)
		if derr != nil {
			cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", prefix, derr.Error())
		}
		newValue = int64(current) + delta
	} else {
		newValue = delta
	}
	return ns.insert(rowKey(prefix, ts), encodeUint(uint64(newValue)))
}

func writeCount(ns *namespace, prefix string, ts int64, delta int64) error {
	key := rowKey(prefix, ts)
	existing, ok, err := ns.get(key)
	if err != nil {
		return err
	}

	var newValue int64
	if ok {
		current, derr := decodeInt(existing)
		if derr != nil {
			cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", prefix, derr.Error())
		}
		newValue = current + delta
	} else {
		newValue = delta
	}
	return ns.insert(key, encodeInt(newValue))
}

// writeTimeDualWrite applies one Time sample at ts and, unless ts already
// is a minute boundary, again at the start of ts's minute, keeping a
// readable "current minute" bucket between roll-ups.
func writeTimeDualWrite(ns *namespace, prefix string, ts int64, sample uint64) error {
	if err := writeTimeSample(ns, prefix, ts, sample); err != nil {
		return err
	}
	minuteStart := ts - ts%secondsPerMinute
	if minuteStart == ts {
		return nil
	}
	return writeTimeSample(ns, prefix, minuteStart, sample)
}

// writeTimeSample applies Jambon's percentile update plus the online moment
// recurrence to one row.
func writeTimeSample(ns *namespace, prefix string, ts int64, sample uint64) error {
	countKey := rowKey(timeSubfieldPrefix(prefix, "count"), ts)
	existing, ok, err := ns.get(countKey)
	if err != nil {
		return err
	}

	t := float64(sample)

	if !ok {
		if err := ns.insert(countKey, encodeUint(1)); err != nil {
			return err
		}
		if err := ns.insert(rowKey(timeSubfieldPrefix(prefix, "mean"), ts), encodeFloat(t)); err != nil {
			return err
		}
		if err := ns.insert(rowKey(timeSubfieldPrefix(prefix, "var"), ts), encodeFloat(0)); err != nil {
			return err
		}
		for field := range quantileOf {
			if err := ns.insert(rowKey(timeSubfieldPrefix(prefix, field), ts), encodeUint(sample)); err != nil {
				return err
			}
		}
		return ns.insert(rowKey(timeSubfieldPrefix(prefix, "p100"), ts), encodeUint(sample))
	}

	n, derr := decodeUint(existing)
	if derr != nil {
		cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", countKey, derr.Error())
	}

	meanKey := rowKey(timeSubfieldPrefix(prefix, "mean"), ts)
	varKey := rowKey(timeSubfieldPrefix(prefix, "var"), ts)
	meanRaw, _, err := ns.get(meanKey)
	if err != nil {
		return err
	}
	varRaw, _, err := ns.get(varKey)
	if err != nil {
		return err
	}
	mean, derr := decodeFloat(meanRaw)
	if derr != nil {
		cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", meanKey, derr.Error())
	}
	variance, derr := decodeFloat(varRaw)
	if derr != nil {
		cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", varKey, derr.Error())
	}

	newN, newMean, newVariance := updateMoments(n, mean, variance, t)
	stddev := math.Sqrt(newVariance)

	if err := ns.insert(countKey, encodeUint(newN)); err != nil {
		return err
	}
	if err := ns.insert(meanKey, encodeFloat(newMean)); err != nil {
		return err
	}
	if err := ns.insert(varKey, encodeFloat(newVariance)); err != nil {
		return err
	}

	for field, q := range quantileOf {
		key := rowKey(timeSubfieldPrefix(prefix, field), ts)
		raw, ok, err := ns.get(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		old, derr := decodeUint(raw)
		if derr != nil {
			cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", key, derr.Error())
		}
		if err := ns.insert(key, encodeUint(updatePercentile(old, sample, stddev, q))); err != nil {
			return err
		}
	}

	p100Key := rowKey(timeSubfieldPrefix(prefix, "p100"), ts)
	raw, ok, err := ns.get(p100Key)
	if err != nil {
		return err
	}
	if ok {
		old, derr := decodeUint(raw)
		if derr != nil {
			cclog.Fatalf("[METRICDRAIN]> decode failure reading %q: %s", p100Key, derr.Error())
		}
		if sample > old {
			return ns.insert(p100Key, encodeUint(sample))
		}
	}
	return nil
}
