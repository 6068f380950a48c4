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

// ReceiverSession is the narrow capability a ClockPairing needs from the
// surrounding receiver-session layer. It is expressed as an interface
// rather than an embedded pointer so that receiver ownership of pairings
// and pairing references to receivers don't form a cycle: the session
// layer owns both the receiver objects and the pairings, and hands the
// pairing a capability reference to each receiver it concerns.
type ReceiverSession interface {
	// Clock returns the receiver's timebase descriptor. Queried once at
	// pairing construction time; Clock values are immutable.
	Clock() clock.Clock
	// User is a human-readable identifier used only for logging.
	User() string
	// Focus reports whether this receiver is flagged for verbose logging.
	Focus() bool
	// BadSyncs reports the fraction (0..1) of recent syncs judged bad.
	BadSyncs() float64
	// IncrementSyncs credits one attempted sync to this receiver.
	IncrementSyncs()
	// IncrementOutliers credits one rejected-as-outlier sync to this receiver.
	IncrementOutliers()
	// IncrementJumps credits one catastrophic-reset event to this receiver.
	IncrementJumps()
}

// AircraftContext is the per-aircraft update context the tracker supplies
// for each sync event. sync_good/sync_bad are aggregate quality counters
// maintained by the tracker across all pairings observing this aircraft;
// sync_dont_use lets the tracker veto use of this aircraft for sync
// entirely (e.g. because its position is not yet trusted).
type AircraftContext interface {
	// AddSyncGood credits one sync accepted within the outlier threshold.
	AddSyncGood()
	// AddSyncBad credits one sync outside the outlier threshold.
	AddSyncBad()
	// SyncDontUse reports whether the tracker has opted this aircraft out
	// of clock synchronization entirely.
	SyncDontUse() bool
}
