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

package session

import "sync/atomic"

// Aircraft is a concrete pairing.AircraftContext: the per-aircraft sync
// quality counters the tracker maintains across all pairings that observe
// this aircraft's transmissions.
type Aircraft struct {
	address uint32

	syncGood int64
	syncBad  int64

	dontUse atomic.Bool
}

// NewAircraft constructs an Aircraft tracked by its ICAO address.
func NewAircraft(address uint32) *Aircraft {
	return &Aircraft{address: address}
}

// Address returns the aircraft's ICAO address.
func (a *Aircraft) Address() uint32 { return a.address }

// AddSyncGood implements pairing.AircraftContext.
func (a *Aircraft) AddSyncGood() { atomic.AddInt64(&a.syncGood, 1) }

// AddSyncBad implements pairing.AircraftContext.
func (a *Aircraft) AddSyncBad() { atomic.AddInt64(&a.syncBad, 1) }

// SyncDontUse implements pairing.AircraftContext.
func (a *Aircraft) SyncDontUse() bool { return a.dontUse.Load() }

// SetSyncDontUse lets the tracker veto use of this aircraft for clock sync,
// e.g. because its reported position is not yet trusted.
func (a *Aircraft) SetSyncDontUse(v bool) { a.dontUse.Store(v) }

// SyncGood returns the running count of syncs accepted within threshold.
func (a *Aircraft) SyncGood() int64 { return atomic.LoadInt64(&a.syncGood) }

// SyncBad returns the running count of syncs rejected as outliers.
func (a *Aircraft) SyncBad() int64 { return atomic.LoadInt64(&a.syncBad) }
