/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package pairing implements the pairwise clock-synchronization core of a
// Mode-S multilateration server: for one ordered pair of receivers, it
// estimates the relative frequency drift between their local clocks and a
// time-varying offset function mapping a timestamp on one clock to the
// corresponding timestamp on the other.
//
// A ClockPairing is single-threaded cooperative: every mutating method is
// expected to run to completion on whatever goroutine the sync driver uses,
// with no internal locking. If a driver mutates pairings from more than one
// goroutine it must serialize access per pairing itself (a per-pairing
// mutex, or partitioning pairings across workers); readers that only call
// PredictPeer/PredictBase/CheckValid must be serialized with the writer too,
// since those read multi-field state that is not updated atomically.
package pairing

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mlat-server/clocksync/clock"
)

const (
	ringCapacity = 32
	pruneFloor   = ringCapacity - 12 // leave at most 20 samples after a prune

	maxAgeSeconds        = 45.0 // pruneOldData drops anything older than this
	eagerPruneAgeSeconds = 50.0 // Update triggers a prune eagerly past this age
	freshnessSeconds     = 35.0 // CheckValid staleness bound
	tailGuardSeconds     = 10.0 // predict: how close to the newest anchor counts as "tail"

	outlierThresholdSeconds = 0.9e-6 // stable-regime per-sample threshold
	outlierDecayPerUpdate   = 18
	outlierCrossedPenalty   = 10
	outlierCrossedGate      = 10
	outlierBigPenalty       = 20
	outlierSmallPenalty     = 8
	outlierResetGate        = 77

	driftOutlierResetThreshold = 30
	driftNStable               = 12.0
	driftKP                    = 0.03
	driftKI                    = 0.008

	cumulativeErrorClamp = 5e-5

	// syncSmoothingWeight bends an incoming sample toward the running
	// prediction once the pairing has enough history and a confident
	// drift estimate. Empirically chosen; deliberately not 0.5 (observed
	// to ring/oscillate). Do not re-derive this.
	syncSmoothingWeight = 0.38
	// syncSmoothingWeightColdStart is used before the pairing has enough
	// history or drift confidence for the full smoothing weight above.
	syncSmoothingWeightColdStart = 0.15

	initialOutlierResetCooldown = 5
	forcedOutlierResetCooldown  = 15

	undefinedStat = -1e-6

	validityVarianceBound = 1.6e-11
)

// ClockPairing is the state of a Kalman-like estimator specialized for
// piecewise-linear timebases, tracking one ordered (base, peer, category)
// triple. All mutation funnels through Update and ResetOffsets; reads go
// through PredictPeer, PredictBase and CheckValid.
type ClockPairing struct {
	base, peer ReceiverSession
	category   int

	baseClock, peerClock         clock.Clock
	baseFreq, peerFreq           float64
	relativeFreq, iRelativeFreq  float64

	tsBase [ringCapacity]int64
	tsPeer [ringCapacity]int64
	varr   [ringCapacity]float64
	varSum float64
	n      int

	rawDrift, drift, iDrift float64
	driftN                  int
	driftOutliers           int
	driftMax, driftMaxDelta float64
	cumulativeError         float64

	outliers             int
	outlierResetCooldown int
	outlierTotal         float64
	updateTotal          float64
	jumped               bool
	valid                bool
	updated              time.Time
	updateAttempted      time.Time
	variance, errorStat  float64

	log *log.Logger
}

// New constructs a ClockPairing tracking base and peer for the given
// opaque category tag. The ring starts empty and the pairing is invalid
// until enough samples and drift confidence have accumulated.
func New(base, peer ReceiverSession, category int) *ClockPairing {
	bc := base.Clock()
	pc := peer.Clock()
	relative := pc.Freq / bc.Freq

	p := &ClockPairing{
		base:                 base,
		peer:                 peer,
		category:             category,
		baseClock:            bc,
		peerClock:            pc,
		baseFreq:             bc.Freq,
		peerFreq:             pc.Freq,
		relativeFreq:         relative,
		iRelativeFreq:        1 / relative,
		driftMax:             0.75 * (bc.MaxFreqError + pc.MaxFreqError),
		outlierResetCooldown: initialOutlierResetCooldown,
		errorStat:            undefinedStat,
		variance:             undefinedStat,
		updateTotal:          1e-3, // sentinel != 0 so outlier_total/update_total stays defined
		log:                  log.StandardLogger(),
	}
	p.driftMaxDelta = p.driftMax / 10
	return p
}

// SetLogger overrides the logrus logger used for diagnostic warnings,
// primarily for tests that want to capture log output.
func (p *ClockPairing) SetLogger(l *log.Logger) {
	p.log = l
}

// String returns the "base:peer" identifier used in log messages.
func (p *ClockPairing) String() string {
	return fmt.Sprintf("%s:%s", p.base.User(), p.peer.User())
}

// Category returns the opaque category tag the pairing was created with.
func (p *ClockPairing) Category() int { return p.category }

// Valid reports whether the pairing may currently be used by downstream
// multilateration.
func (p *ClockPairing) Valid() bool { return p.valid }

// Updated returns the wall-clock time of the last accepted sample.
func (p *ClockPairing) Updated() time.Time { return p.updated }

// Variance returns the current reported variance (seconds²), or the
// undefined sentinel (-1e-6) if not yet computed.
func (p *ClockPairing) Variance() float64 { return p.variance }

// Error returns the current reported standard error (seconds), or the
// undefined sentinel (-1e-6) if not yet computed.
func (p *ClockPairing) Error() float64 { return p.errorStat }

// Drift returns the current drift used for predictions.
func (p *ClockPairing) Drift() float64 { return p.drift }

// RawDrift returns the unintegrated (proportional-only) drift estimate.
func (p *ClockPairing) RawDrift() float64 { return p.rawDrift }

// IDrift returns the inverse-direction drift used by PredictBase.
func (p *ClockPairing) IDrift() float64 { return p.iDrift }

// DriftN returns the number of drift samples integrated so far.
func (p *ClockPairing) DriftN() int { return p.driftN }

// N returns the current number of samples in the offset ring.
func (p *ClockPairing) N() int { return p.n }

// Outliers returns the current outlier hysteresis score.
func (p *ClockPairing) Outliers() int { return p.outliers }

// OutlierResetCooldown returns the number of updates remaining before the
// pairing may again be declared valid after a reset.
func (p *ClockPairing) OutlierResetCooldown() int { return p.outlierResetCooldown }

// OutlierTotal returns the running count of rejected-as-outlier samples,
// periodically halved by pruning.
func (p *ClockPairing) OutlierTotal() float64 { return p.outlierTotal }

// UpdateTotal returns the running count of attempted updates, periodically
// halved by pruning; initialized to a small sentinel so ratios stay defined.
func (p *ClockPairing) UpdateTotal() float64 { return p.updateTotal }

// Jumped reports whether a catastrophic reset has ever been credited to
// the receivers behind this pairing.
func (p *ClockPairing) Jumped() bool { return p.jumped }

// outlierPercent is the diagnostic ratio reported in reset log lines.
func (p *ClockPairing) outlierPercent() float64 {
	return p.outlierTotal / p.updateTotal * 100
}

// Snapshot is a plain-value copy of a ClockPairing's diagnostic state, used
// by the metrics exporter and the inspection CLI so they don't need to
// serialize access to the live pairing field by field.
type Snapshot struct {
	Base, Peer           string
	Category             int
	Valid                bool
	N                    int
	Drift                float64
	RawDrift             float64
	DriftN               int
	Variance             float64
	Error                float64
	Outliers             int
	OutlierResetCooldown int
	OutlierPercent       float64
	Jumped               bool
	Updated              time.Time
}

// Snapshot returns a point-in-time copy of the pairing's diagnostic state.
func (p *ClockPairing) Snapshot() Snapshot {
	return Snapshot{
		Base:                 p.base.User(),
		Peer:                 p.peer.User(),
		Category:             p.category,
		Valid:                p.valid,
		N:                    p.n,
		Drift:                p.drift,
		RawDrift:             p.rawDrift,
		DriftN:               p.driftN,
		Variance:             p.variance,
		Error:                p.errorStat,
		Outliers:             p.outliers,
		OutlierResetCooldown: p.outlierResetCooldown,
		OutlierPercent:       p.outlierPercent(),
		Jumped:               p.jumped,
		Updated:              p.updated,
	}
}

// ResetOffsets clears the offset ring and validity but keeps drift state.
// It is idempotent.
func (p *ClockPairing) ResetOffsets() {
	p.n = 0
	p.varSum = 0
	p.valid = false
	p.variance = undefinedStat
	p.errorStat = undefinedStat
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
