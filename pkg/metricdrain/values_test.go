// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	if got, err := decodeUint(encodeUint(12345)); err != nil || got != 12345 {
		t.Errorf("uint round trip = (%d, %v), want (12345, nil)", got, err)
	}
	if got, err := decodeInt(encodeInt(-9876)); err != nil || got != -9876 {
		t.Errorf("int round trip = (%d, %v), want (-9876, nil)", got, err)
	}
	if got, err := decodeFloat(encodeFloat(3.14159)); err != nil || got != 3.14159 {
		t.Errorf("float round trip = (%f, %v), want (3.14159, nil)", got, err)
	}
}

func TestDecodeInvalidLength(t *testing.T) {
	if _, err := decodeUint([]byte{1, 2, 3}); err != ErrInvalidDecode {
		t.Errorf("decodeUint(short) error = %v, want ErrInvalidDecode", err)
	}
}

func TestZeroValueIsEightZeroBytes(t *testing.T) {
	if len(zeroValue) != 8 {
		t.Fatalf("len(zeroValue) = %d, want 8", len(zeroValue))
	}
	for _, b := range zeroValue {
		if b != 0 {
			t.Fatalf("zeroValue contains non-zero byte: %v", zeroValue)
		}
	}
}
