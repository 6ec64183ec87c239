// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

// updateMoments folds one new sample x into a running (count, mean,
// variance) triple using a Welford-style recurrence.
//
// With n == 0 the incoming mean and variance are ignored and the
// first-sample seed (1, x, 0) is returned.
func updateMoments(n uint64, mean, variance, x float64) (newN uint64, newMean, newVariance float64) {
	if n == 0 {
		return 1, x, 0
	}
	newN = n + 1
	fn := float64(n)
	fnn := float64(newN)
	newMean = (mean*fn + x) / fnn
	newVariance = (variance*fn + (x-mean)*(x-mean)) / fnn
	return newN, newMean, newVariance
}
