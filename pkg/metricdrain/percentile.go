// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

// jambonStep is the fixed step size of Jambon's moving-percentile
// algorithm.
const jambonStep = 0.01

// updatePercentile applies one step of Jambon's moving-percentile
// estimator: it nudges old towards the q-quantile of the stream without
// retaining any raw samples. stddev is the running standard deviation of
// the series at the time of the update.
//
// The estimator can transiently violate strict ordering between adjacent
// quantiles on small samples; it is not clamped against its neighbors.
func updatePercentile(old, sample uint64, stddev, q float64) uint64 {
	switch {
	case sample == old:
		return old
	case sample < old:
		delta := stddev * jambonStep / q
		if delta >= float64(old) {
			return 0
		}
		return uint64(float64(old) - delta)
	default:
		delta := stddev * jambonStep / (1 - q)
		return old + uint64(delta)
	}
}
