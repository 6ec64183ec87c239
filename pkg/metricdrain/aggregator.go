// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

const (
	secondsPerMinute = int64(60)
	secondsPerHour   = int64(3600)
)

// rollupWindow collapses every row in [lo, hi) under rowPrefix into a
// single replacement row inserted at lo. Gauge keeps the most recent value,
// Count sums. Re-invoking on an already-collapsed (single-row) range is
// idempotent: one row in, the same one row out, reinserted at its own key.
func rollupWindow(ns *namespace, rowPrefix string, kind MetricKind, lo, hi int64) error {
	rows, err := ns.rangeScan(rowKey(rowPrefix, lo), rowKey(rowPrefix, hi))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	var replacement []byte
	switch kind {
	case KindGauge:
		// rangeScan returns ascending key order; the last row is the
		// most recent.
		replacement = rows[len(rows)-1].Value
	case KindCount:
		var sum int64
		for _, r := range rows {
			v, derr := decodeInt(r.Value)
			if derr != nil {
				cclog.Fatalf("[METRICDRAIN]> decode failure rolling up %q: %s", rowPrefix, derr.Error())
			}
			sum += v
		}
		replacement = encodeInt(sum)
	default:
		// Time never rolls up; rollupWindow is never called for a Time
		// sub-field prefix.
		return nil
	}

	for _, r := range rows {
		if err := ns.remove(r.Key); err != nil {
			return err
		}
	}
	return ns.insert(rowKey(rowPrefix, lo), replacement)
}

// removeOlderThan deletes every data row under rowPrefix with a timestamp
// strictly less than cutoff, leaving the sentinel untouched.
func removeOlderThan(ns *namespace, rowPrefix string, cutoff int64) error {
	rows, err := ns.rangeScan(rowPrefix+string(fieldSeparator), rowKey(rowPrefix, cutoff))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := ns.remove(r.Key); err != nil {
			return err
		}
	}
	return nil
}

// rowPrefixesFor returns the row-key prefixes that actually carry data rows
// for a registered prefix: itself for Gauge/Count, or its ten time
// sub-field prefixes for Time.
func rowPrefixesFor(prefix string, kind MetricKind) []string {
	if kind != KindTime {
		return []string{prefix}
	}
	out := make([]string, len(timeSubfields))
	for i, f := range timeSubfields {
		out[i] = timeSubfieldPrefix(prefix, f)
	}
	return out
}

// aggregatePrefix runs the boundary-crossing sweep for one registered
// prefix against wall-clock second now:
//
//   - at a minute boundary (now's second-of-minute == 0), the preceding 60
//     one-second rows collapse into one row at now-60.
//   - at an hour boundary (now's minute-of-hour == 0), the preceding 60
//     one-minute rows collapse into one row at now-3600, and retention
//     trims everything older than retentionSeconds.
//
// Time prefixes never roll up (their per-second percentile rows are read
// as "latest-before-sentinel"), but still receive the retention trim on
// each of their ten sub-field row ranges.
func aggregatePrefix(ns *namespace, prefix string, kind MetricKind, now, retentionSeconds int64) error {
	t := time.Unix(now, 0).UTC()
	atMinuteBoundary := t.Second() == 0
	atHourBoundary := t.Minute() == 0

	for _, rp := range rowPrefixesFor(prefix, kind) {
		if atMinuteBoundary && kind != KindTime {
			if err := rollupWindow(ns, rp, kind, now-secondsPerMinute, now); err != nil {
				return err
			}
		}
		if atHourBoundary {
			if kind != KindTime {
				if err := rollupWindow(ns, rp, kind, now-secondsPerHour, now-secondsPerMinute); err != nil {
					return err
				}
			}
			if err := removeOlderThan(ns, rp, now-retentionSeconds); err != nil {
				return err
			}
		}
	}

	return nil
}

// sweepEmpty reports whether, after aggregation, prefix holds nothing but
// its sentinel row(s) — in which case the caller evicts it from the
// registry.
func sweepEmpty(ns *namespace, prefix string, kind MetricKind) (bool, error) {
	for _, rp := range rowPrefixesFor(prefix, kind) {
		rows, err := ns.rangeScan(rp+string(fieldSeparator), sentinelKey(rp))
		if err != nil {
			return false, err
		}
		if len(rows) != 0 {
			return false, nil
		}
	}
	return true, nil
}
