// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import "errors"

var (
	// ErrStore wraps any failure surfaced by the ordered store.
	ErrStore = errors.New("[METRICDRAIN]> store error")

	// ErrUnknownMetric is logged (never fatal, never returned) when a query
	// names a prefix that is absent from the registry; that entry is
	// skipped. Query returns it only for a query of unrecognized kind.
	ErrUnknownMetric = errors.New("[METRICDRAIN]> unknown metric")

	// ErrReservedByte is returned when a metric name or id contains a
	// byte (TAB or 0x7F) reserved by the key grammar.
	ErrReservedByte = errors.New("[METRICDRAIN]> name or id contains a reserved byte")

	// ErrInvalidDecode is returned when a stored row's value does not
	// match the length expected for its kind. Callers treat this as a
	// programmer bug and escalate through cclog.Fatalf rather than
	// propagating it.
	ErrInvalidDecode = errors.New("[METRICDRAIN]> stored value has unexpected length")
)
