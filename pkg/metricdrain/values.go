// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"encoding/binary"
	"math"
)

// Row values are always 8 bytes, little-endian: a usize for
// Gauge/percentile/count sub-fields, an i64 for Count, or an f64
// bit-pattern for mean/var.

var zeroValue = make([]byte, 8)

func encodeUint(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func encodeInt(v int64) []byte {
	return encodeUint(uint64(v))
}

func encodeFloat(v float64) []byte {
	return encodeUint(math.Float64bits(v))
}

func decodeUint(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, ErrInvalidDecode
	}
	return binary.LittleEndian.Uint64(b), nil
}

func decodeInt(b []byte) (int64, error) {
	u, err := decodeUint(b)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

func decodeFloat(b []byte) (float64, error) {
	u, err := decodeUint(b)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}
