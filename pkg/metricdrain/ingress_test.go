// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *orderedStore {
	t.Helper()
	store, err := openOrderedStore(Config{})
	require.NoError(t, err)
	t.Cleanup(store.close)
	return store
}

func TestRouteObservationRejectsReservedBytes(t *testing.T) {
	store := newTestStore(t)
	reg := newRegistry()
	gd := newGlobalDrain(testHistogramConfig())

	err := routeObservation(gd, store, reg, "cpu\tload", "fritz", "", GaugeSet(1), time.Unix(0, 0))
	require.ErrorIs(t, err, ErrReservedByte)
}

func TestRouteObservationNoClusterGoesToGlobalDrain(t *testing.T) {
	store := newTestStore(t)
	reg := newRegistry()
	gd := newGlobalDrain(testHistogramConfig())

	require.NoError(t, routeObservation(gd, store, reg, "inflight_requests", "", "", GaugeSet(3), time.Unix(0, 0)))

	fv := gd.dump()["inflight_requests"]
	require.Equal(t, uint64(3), fv.Gauge)
	require.Empty(t, reg.prefixes())
}

func TestRouteObservationWithClusterAndBackendWritesBoth(t *testing.T) {
	store := newTestStore(t)
	reg := newRegistry()
	gd := newGlobalDrain(testHistogramConfig())

	now := time.Unix(1000, 0).UTC()
	require.NoError(t, routeObservation(gd, store, reg, "cpu_load", "fritz", "n1", GaugeSet(42), now))

	cPrefix := clusterPrefix("cpu_load", "fritz")
	bPrefix := backendPrefix("cpu_load", "fritz", "n1")

	_, ok := reg.lookup(cPrefix)
	require.True(t, ok)
	_, ok = reg.lookup(bPrefix)
	require.True(t, ok)

	fv, found, err := readLatest(store.cluster, cPrefix, KindGauge)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), fv.Gauge)

	fv, found, err = readLatest(store.backend, bPrefix, KindGauge)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), fv.Gauge)
}

func TestEnsureRegisteredWritesBaseAndSubfieldSentinelsForTime(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	reg := newRegistry()
	prefix := "req_latency\tfritz"
	require.NoError(t, ensureRegistered(reg, ns, prefix, ScopeCluster, KindTime))

	_, ok, err := ns.get(sentinelKey(prefix))
	require.NoError(t, err)
	require.True(t, ok, "the registered base prefix itself must have a sentinel")

	for _, f := range timeSubfields {
		_, ok, err := ns.get(sentinelKey(timeSubfieldPrefix(prefix, f)))
		require.NoError(t, err)
		require.True(t, ok, "sub-field %q must have a sentinel", f)
	}
}

func TestEnsureRegisteredIsIdempotent(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	reg := newRegistry()
	prefix := "cpu_load\tfritz"
	require.NoError(t, ensureRegistered(reg, ns, prefix, ScopeCluster, KindGauge))
	require.NoError(t, ensureRegistered(reg, ns, prefix, ScopeCluster, KindGauge))

	entry, ok := reg.lookup(prefix)
	require.True(t, ok)
	require.Equal(t, KindGauge, entry.kind)
}

func TestWriteGaugeDeltaAccumulatesWithinWindow(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "conn_count\tfritz"
	require.NoError(t, writeGaugeDelta(ns, prefix, 10, 5))
	require.NoError(t, writeGaugeDelta(ns, prefix, 20, 3))

	v, ok, err := ns.get(rowKey(prefix, 20))
	require.NoError(t, err)
	require.True(t, ok)
	got, err := decodeUint(v)
	require.NoError(t, err)
	require.Equal(t, uint64(8), got)
}

func TestWriteGaugeDeltaWithNoPriorRowInsertsDeltaItself(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "conn_count\tfritz"
	require.NoError(t, writeGaugeDelta(ns, prefix, 10, 5))

	v, ok, err := ns.get(rowKey(prefix, 10))
	require.NoError(t, err)
	require.True(t, ok)
	got, err := decodeUint(v)
	require.NoError(t, err)
	require.Equal(t, uint64(5), got)
}

func TestWriteCountInsertsThenAccumulates(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "requests\tfritz"
	require.NoError(t, writeCount(ns, prefix, 10, 2))
	require.NoError(t, writeCount(ns, prefix, 10, 3))

	v, ok, err := ns.get(rowKey(prefix, 10))
	require.NoError(t, err)
	require.True(t, ok)
	got, err := decodeInt(v)
	require.NoError(t, err)
	require.Equal(t, int64(5), got)
}

func TestWriteTimeSampleInitializesAllTenSubfieldsOnFirstSample(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "req_latency\tfritz"
	require.NoError(t, writeTimeSample(ns, prefix, 100, 50))

	countV, ok, err := ns.get(rowKey(timeSubfieldPrefix(prefix, "count"), 100))
	require.NoError(t, err)
	require.True(t, ok)
	n, err := decodeUint(countV)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	for _, f := range []string{"p50", "p90", "p99", "p99.9", "p99.99", "p99.999", "p100"} {
		v, ok, err := ns.get(rowKey(timeSubfieldPrefix(prefix, f), 100))
		require.NoError(t, err)
		require.True(t, ok)
		got, err := decodeUint(v)
		require.NoError(t, err)
		require.Equal(t, uint64(50), got, "sub-field %q should seed at the first sample", f)
	}
}

func TestWriteTimeSampleUpdatesMomentsOnSecondSample(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "req_latency\tfritz"
	require.NoError(t, writeTimeSample(ns, prefix, 100, 50))
	require.NoError(t, writeTimeSample(ns, prefix, 100, 150))

	countV, _, err := ns.get(rowKey(timeSubfieldPrefix(prefix, "count"), 100))
	require.NoError(t, err)
	n, err := decodeUint(countV)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	meanV, _, err := ns.get(rowKey(timeSubfieldPrefix(prefix, "mean"), 100))
	require.NoError(t, err)
	mean, err := decodeFloat(meanV)
	require.NoError(t, err)
	require.Equal(t, 100.0, mean)

	p100V, _, err := ns.get(rowKey(timeSubfieldPrefix(prefix, "p100"), 100))
	require.NoError(t, err)
	p100, err := decodeUint(p100V)
	require.NoError(t, err)
	require.Equal(t, uint64(150), p100, "p100 is max(old, sample)")
}

func TestWriteTimeDualWriteSkipsDuplicateAtMinuteBoundary(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "req_latency\tfritz"
	// ts == 120 is itself a minute boundary, so the dual-write must not
	// double-count the same sample into the same row.
	require.NoError(t, writeTimeDualWrite(ns, prefix, 120, 50))

	v, _, err := ns.get(rowKey(timeSubfieldPrefix(prefix, "count"), 120))
	require.NoError(t, err)
	n, err := decodeUint(v)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
}

func TestWriteTimeDualWriteAlsoUpdatesMinuteStart(t *testing.T) {
	ns, err := openNamespace("")
	require.NoError(t, err)
	defer ns.close()

	prefix := "req_latency\tfritz"
	require.NoError(t, writeTimeDualWrite(ns, prefix, 125, 50))

	_, ok, err := ns.get(rowKey(timeSubfieldPrefix(prefix, "count"), 125))
	require.NoError(t, err)
	require.True(t, ok, "per-second row must exist")

	_, ok, err = ns.get(rowKey(timeSubfieldPrefix(prefix, "count"), 120))
	require.NoError(t, err)
	require.True(t, ok, "current-minute bucket at 125-5=120 must also exist")
}
