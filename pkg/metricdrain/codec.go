// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"strconv"
	"strings"
)

// Reserved bytes in the key grammar.
const (
	fieldSeparator byte = '\t'
	sentinelByte   byte = 0x7F
)

// containsReservedByte reports whether s could corrupt the key grammar if
// used as a metric name or tag id.
func containsReservedByte(s string) bool {
	return strings.IndexByte(s, fieldSeparator) >= 0 || strings.IndexByte(s, sentinelByte) >= 0
}

// clusterPrefix builds the Cluster-scope registry prefix "{name}\t{cluster}".
func clusterPrefix(name, cluster string) string {
	return name + string(fieldSeparator) + cluster
}

// backendPrefix builds the ClusterBackend-scope registry prefix
// "{name}\t{cluster}\t{backend}".
func backendPrefix(name, cluster, backend string) string {
	return name + string(fieldSeparator) + cluster + string(fieldSeparator) + backend
}

// timeSubfieldPrefix builds "{prefix}.{field} ", the trailing space keeping
// each sub-field's row range lexicographically disjoint from its siblings.
func timeSubfieldPrefix(prefix, field string) string {
	return prefix + "." + field + " "
}

// rowKey builds "{prefix}\t{ts}", the key of one data row.
func rowKey(prefix string, ts int64) string {
	return prefix + string(fieldSeparator) + strconv.FormatInt(ts, 10)
}

// sentinelKey builds "{prefix}\x7F", the per-prefix upper-bound row.
func sentinelKey(prefix string) string {
	return prefix + string(sentinelByte)
}

// rowTimestamp decodes the trailing decimal-ASCII timestamp of a row key
// produced by rowKey for the given prefix. ok is false if k is not a data
// row under prefix (e.g. it is the sentinel, or belongs to another prefix).
func rowTimestamp(k, prefix string) (ts int64, ok bool) {
	want := prefix + string(fieldSeparator)
	if !strings.HasPrefix(k, want) {
		return 0, false
	}
	rest := k[len(want):]
	if rest == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
