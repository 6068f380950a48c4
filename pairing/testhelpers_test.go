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

package pairing

import "github.com/mlat-server/clocksync/clock"

// fakeReceiver is a minimal ReceiverSession for white-box tests that need
// access to unexported ClockPairing fields and therefore can't import the
// session package (which imports pairing).
type fakeReceiver struct {
	user     string
	clock    clock.Clock
	focus    bool
	badSyncs float64

	numSyncs    int
	numOutliers int
	numJumps    int
}

func newFakeReceiver(user string, c clock.Clock) *fakeReceiver {
	return &fakeReceiver{user: user, clock: c}
}

func (r *fakeReceiver) Clock() clock.Clock { return r.clock }
func (r *fakeReceiver) User() string       { return r.user }
func (r *fakeReceiver) Focus() bool        { return r.focus }
func (r *fakeReceiver) BadSyncs() float64  { return r.badSyncs }
func (r *fakeReceiver) IncrementSyncs()    { r.numSyncs++ }
func (r *fakeReceiver) IncrementOutliers() { r.numOutliers++ }
func (r *fakeReceiver) IncrementJumps()    { r.numJumps++ }

// fakeAircraft is a minimal AircraftContext for white-box tests.
type fakeAircraft struct {
	syncGood int
	syncBad  int
	dontUse  bool
}

func (a *fakeAircraft) AddSyncGood()     { a.syncGood++ }
func (a *fakeAircraft) AddSyncBad()      { a.syncBad++ }
func (a *fakeAircraft) SyncDontUse() bool { return a.dontUse }

// dump1090Clock mirrors the clock preset of the same name: a cheap USB
// dongle's local oscillator, 12MHz nominal with loose tolerance.
func dump1090Clock() clock.Clock {
	c, err := clock.ForType("dump1090")
	if err != nil {
		panic(err)
	}
	return c
}

// newTestPairing builds a ClockPairing between two equal-frequency fake
// receivers, so relativeFreq == 1 and drift starts at exactly zero for
// perfectly linear input.
func newTestPairing() (*ClockPairing, *fakeReceiver, *fakeReceiver) {
	base := newFakeReceiver("base", dump1090Clock())
	peer := newFakeReceiver("peer", dump1090Clock())
	return New(base, peer, 0), base, peer
}
