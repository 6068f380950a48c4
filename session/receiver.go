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

// Package session provides a minimal, concrete reference implementation of
// the receiver-session and aircraft-tracker layers that pairing.ClockPairing
// treats as external collaborators. A real multilateration server has a
// much richer receiver and aircraft model; this package exists so the
// pairing core can be exercised end to end (tests, the inspection CLI, the
// metrics exporter) without pulling in that whole server.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/mlat-server/clocksync/clock"
)

// Receiver is a concrete pairing.ReceiverSession: per-receiver state the
// sync driver mutates as pairings involving this receiver are updated.
type Receiver struct {
	user  string
	clock clock.Clock

	numSyncs    int64
	numOutliers int64
	jumps       int64

	mu        sync.RWMutex
	focus     bool
	badSyncs  float64
}

// NewReceiver constructs a Receiver identified by user (used only for
// logging) with the given clock descriptor.
func NewReceiver(user string, c clock.Clock) *Receiver {
	return &Receiver{user: user, clock: c}
}

// Clock implements pairing.ReceiverSession.
func (r *Receiver) Clock() clock.Clock { return r.clock }

// User implements pairing.ReceiverSession.
func (r *Receiver) User() string { return r.user }

// Focus implements pairing.ReceiverSession.
func (r *Receiver) Focus() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focus
}

// SetFocus flags or unflags this receiver for verbose diagnostic logging.
func (r *Receiver) SetFocus(focus bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = focus
}

// BadSyncs implements pairing.ReceiverSession.
func (r *Receiver) BadSyncs() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.badSyncs
}

// SetBadSyncs updates the fraction (0..1) of recent syncs judged bad for
// this receiver. Computing that fraction from raw counters is the
// aircraft-tracker layer's job; the pairing core only reads the result.
func (r *Receiver) SetBadSyncs(frac float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badSyncs = frac
}

// IncrementSyncs implements pairing.ReceiverSession.
func (r *Receiver) IncrementSyncs() { atomic.AddInt64(&r.numSyncs, 1) }

// IncrementOutliers implements pairing.ReceiverSession.
func (r *Receiver) IncrementOutliers() { atomic.AddInt64(&r.numOutliers, 1) }

// IncrementJumps implements pairing.ReceiverSession.
func (r *Receiver) IncrementJumps() { atomic.AddInt64(&r.jumps, 1) }

// NumSyncs returns the running count of attempted syncs for this receiver.
func (r *Receiver) NumSyncs() int64 { return atomic.LoadInt64(&r.numSyncs) }

// NumOutliers returns the running count of syncs rejected as outliers.
func (r *Receiver) NumOutliers() int64 { return atomic.LoadInt64(&r.numOutliers) }

// Jumps returns the running count of catastrophic resets credited to this
// receiver.
func (r *Receiver) Jumps() int64 { return atomic.LoadInt64(&r.jumps) }
