// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metricdrain is an in-process time-series metrics drain meant to be
// embedded inside a single reverse-proxy worker.
//
// It accepts a stream of observations (gauges, counters, timing samples)
// tagged by an optional cluster id and an optional backend id, stores them in
// an ordered byte-string key space backed by badger, rolls them up across
// second/minute/hour windows with bounded retention, and answers structured
// read queries for administrative consumers.
//
// The drain does not talk to a network, a database, or a remote metrics
// sink: the producer side (how observations reach ReceiveMetric) and the
// consumer side (how Query answers are framed back onto the wire) are the
// caller's concern.
package metricdrain
