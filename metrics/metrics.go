// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics collects the runtime counters exported by the node.  The
// instruments are registered once at package load so callers can update them
// without threading a registry through every constructor.
package metrics

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

// Registry holds every instrument the node exports.
var Registry = metrics.NewRegistry()

var (
	// MempoolSizeGauge tracks the number of pending transactions.
	MempoolSizeGauge = metrics.GetOrRegisterGauge("mempool/size", Registry)

	// BlockConnectedMeter measures the rate of blocks joining the
	// canonical chain.
	BlockConnectedMeter = metrics.GetOrRegisterMeter("chain/connected", Registry)

	// ReorgCounter counts chain reorganizations since startup.
	ReorgCounter = metrics.GetOrRegisterCounter("chain/reorgs", Registry)

	// BlockProcessTimer tracks how long full block validation and
	// connection takes.
	BlockProcessTimer = metrics.GetOrRegisterTimer("chain/process", Registry)

	// HashMeter measures the proof-of-work search rate in hashes per
	// second across all mining workers.
	HashMeter = metrics.GetOrRegisterMeter("miner/hashes", Registry)
)

// LogEvery periodically writes every registered instrument to the given
// printf-style sink until the stop channel closes.  It is meant to be run as
// a goroutine from the node.
func LogEvery(interval time.Duration, printf func(format string, v ...interface{}), stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			Registry.Each(func(name string, i interface{}) {
				switch m := i.(type) {
				case metrics.Gauge:
					printf("metric %s value=%d", name, m.Value())
				case metrics.Counter:
					printf("metric %s count=%d", name, m.Count())
				case metrics.Meter:
					printf("metric %s count=%d rate1m=%.2f",
						name, m.Count(), m.Rate1())
				case metrics.Timer:
					printf("metric %s count=%d mean=%v",
						name, m.Count(),
						time.Duration(m.Mean()))
				}
			})
		case <-stop:
			return
		}
	}
}
