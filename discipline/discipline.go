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

// Package discipline is an optional extension, outside the clock-pairing
// core's contract: it steers a local OS clock toward the time implied by a
// ClockPairing's prediction, for deployments that co-locate the sync
// engine with one of the receivers it tracks and want that receiver's host
// clock disciplined from the best available pairing. Nothing in
// pairing.ClockPairing.Update calls into this package; it is a separate
// consumer of a pairing's PredictBase output.
package discipline

import (
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mlat-server/clocksync/pairing"
)

// ppbToTimexPPM converts parts-per-billion to the fixed-point parts-per-
// million CLOCK_ADJTIME expects (man clock_adjtime(2): freq carries ppm
// with a 16-bit fractional part, so 2^16 ppm units == 1 ppm).
const ppbToTimexPPM = 65.536

// steerKP/steerKI/steerNStable are the same shape of gains as the core
// drift loop's driftKP/driftKI/driftNStable (pairing/drift.go): a small
// proportional term, a slower-moving integral term, and a kp boost while
// still cold-starting, so a newly created Discipliner doesn't take the
// full driftNStable samples to find a reasonable correction. Disciplining
// a local clock from a ClockPairing's offset is the same kind of slow,
// noisy control problem as disciplining the pairing's own drift estimate,
// so it gets the same kind of loop.
const (
	steerKP      = 0.03
	steerKI      = 0.008
	steerNStable = 12.0

	// lockAfterSamples is how many offset samples the loop waits for
	// before it trusts its own correction enough to apply it.
	lockAfterSamples = 2
)

// State reports how far a Discipliner has progressed toward a trustworthy
// frequency correction.
type State uint8

const (
	// StateInit means the loop hasn't seen enough samples yet; Steer
	// computed no correction and touched no hardware.
	StateInit State = iota
	// StateLocked means the loop applied a frequency correction this call.
	StateLocked
)

func (s State) String() string {
	if s == StateLocked {
		return "LOCKED"
	}
	return "INIT"
}

// Discipliner steers a local CLOCK_ADJTIME-addressable OS clock toward the
// offset a ClockPairing reports between its own clock and a peer's, using
// a PI loop over the observed offset in nanoseconds.
type Discipliner struct {
	clockID int32

	maxFreqPPB float64
	integral   float64
	n          int
}

// New constructs a Discipliner for the given clock id (e.g.
// unix.CLOCK_REALTIME), seeding its frequency bound from the clock's
// currently reported tolerance.
func New(clockID int32) (*Discipliner, error) {
	maxFreq, err := readMaxFreqPPB(clockID)
	if err != nil {
		return nil, err
	}
	return &Discipliner{clockID: clockID, maxFreqPPB: maxFreq}, nil
}

// Steer feeds one offset observation (this clock's own reading minus the
// time the pairing predicts on the other receiver's clock, in nanoseconds)
// through the PI loop and,
// once locked, applies the resulting frequency correction.
func (d *Discipliner) Steer(offsetNanoseconds int64) (State, error) {
	offset := float64(offsetNanoseconds)

	kp := steerKP
	if float64(d.n) < steerNStable {
		kp *= 1 + (0.3/steerKP)*((steerNStable-float64(d.n))/steerNStable)
	}
	d.integral += steerKI * offset
	d.n++

	state := StateInit
	if d.n < lockAfterSamples {
		return state, nil
	}
	state = StateLocked

	ppb := kp*offset + d.integral
	if ppb > d.maxFreqPPB {
		ppb = d.maxFreqPPB
	} else if ppb < -d.maxFreqPPB {
		ppb = -d.maxFreqPPB
	}

	if err := adjFreqPPB(d.clockID, ppb); err != nil {
		return state, err
	}
	return state, nil
}

// SteerFromPairing predicts where the base clock should be for the given
// peer-clock reading peerTS (native ticks at peerFreqHz) and feeds the
// discrepancy, converted from ticks to nanoseconds, to Steer. The
// disciplined local clock is assumed to be the pairing's peer receiver.
func (d *Discipliner) SteerFromPairing(p *pairing.ClockPairing, peerTS int64, peerFreqHz float64) (State, error) {
	predictedBase, err := p.PredictBase(peerTS)
	if err != nil {
		log.Debugf("discipline: %s: cannot steer, pairing has no samples yet", p.String())
		return StateInit, err
	}
	offsetTicks := float64(peerTS) - predictedBase
	offsetNanoseconds := int64(offsetTicks / peerFreqHz * 1e9)
	return d.Steer(offsetNanoseconds)
}

// readMaxFreqPPB and adjFreqPPB are a narrow CLOCK_ADJTIME wrapper: only
// the two timex operations Steer actually needs (read the clock's
// tolerance to bound corrections, write a frequency correction), not a
// general-purpose adjtime binding.

func adjtime(clockID int32, tx *unix.Timex) error {
	_, _, errno := unix.Syscall(unix.SYS_CLOCK_ADJTIME, uintptr(clockID), uintptr(unsafe.Pointer(tx)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func readMaxFreqPPB(clockID int32) (float64, error) {
	tx := &unix.Timex{}
	if err := adjtime(clockID, tx); err != nil {
		return 0, err
	}
	freqPPB := float64(tx.Tolerance) / ppbToTimexPPM
	if freqPPB == 0 {
		freqPPB = 500000
	}
	return freqPPB, nil
}

func adjFreqPPB(clockID int32, freqPPB float64) error {
	tx := &unix.Timex{}
	tx.Freq = int64(freqPPB * ppbToTimexPPM)
	tx.Modes = unix.ADJ_FREQUENCY
	return adjtime(clockID, tx)
}
