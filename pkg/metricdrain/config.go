// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"encoding/json"
	"time"

	"github.com/ClusterCockpit/cc-metric-drain/internal/config"
)

const (
	DefaultRetentionHours  = 24
	DefaultSweepInterval   = time.Second
	DefaultHistogramLowest = 1
	// DefaultHistogramHighest covers samples up to one day expressed in
	// nanoseconds.
	DefaultHistogramHighest = 24 * 3600 * 1e9
	DefaultHistogramSigFigs = 3
)

// Histogram configures the hdrhistogram range/precision backing
// process-global Time metrics.
type Histogram struct {
	Lowest  int64 `json:"lowest"`
	Highest int64 `json:"highest"`
	SigFigs int   `json:"significant-figures"`
}

// Config is the settings struct for a Drain, validated through
// internal/config.Validate against configSchema.
type Config struct {
	// RetentionHours bounds how long rolled-up rows stay in the Ordered
	// Store before the hourly sweep trims them. 0 means
	// DefaultRetentionHours.
	RetentionHours int `json:"retention-hours"`

	// SweepIntervalMillis is how often the background sweep goroutine
	// calls Clear, in milliseconds. 0 means DefaultSweepInterval.
	SweepIntervalMillis int `json:"sweep-interval-millis"`

	// DataDir, when non-empty, opens the Ordered Store as a persistent
	// on-disk badger directory instead of in-memory. Development-only;
	// not a durability guarantee.
	DataDir string `json:"data-dir"`

	// ProcessGlobalHistogram configures the Time histogram used by
	// un-tagged, process-global metrics.
	ProcessGlobalHistogram Histogram `json:"process-global-histogram"`
}

func (c Config) retention() time.Duration {
	if c.RetentionHours == 0 {
		return DefaultRetentionHours * time.Hour
	}
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c Config) sweepInterval() time.Duration {
	if c.SweepIntervalMillis == 0 {
		return DefaultSweepInterval
	}
	return time.Duration(c.SweepIntervalMillis) * time.Millisecond
}

func (c Config) histogramConfig() histogramConfig {
	h := c.ProcessGlobalHistogram
	if h.Lowest == 0 {
		h.Lowest = DefaultHistogramLowest
	}
	if h.Highest == 0 {
		h.Highest = DefaultHistogramHighest
	}
	if h.SigFigs == 0 {
		h.SigFigs = DefaultHistogramSigFigs
	}
	return histogramConfig{lowest: h.Lowest, highest: h.Highest, sigFigs: h.SigFigs}
}

// ValidateConfig runs instance through the JSON schema configSchema
// describes before the caller unmarshals it into Config.
func ValidateConfig(instance json.RawMessage) {
	config.Validate(configSchema, instance)
}
