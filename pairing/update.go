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

import (
	"time"
)

// Update ingests one synchronized observation: baseTS/peerTS are the
// absolute timestamps of the sync event on each clock in that clock's
// native ticks; baseInterval/peerInterval are the native-tick lengths of
// the interval between this sync event and the previous one observed for
// the same aircraft (used for drift estimation, independent of absolute
// offset); now is wall-clock time; ac is the per-aircraft update context.
// address is the aircraft's ICAO address, used only for logging.
//
// Returns true iff the sample was accepted into the offset ring.
func (p *ClockPairing) Update(address uint32, baseTS, peerTS, baseInterval, peerInterval int64, now time.Time, ac AircraftContext) bool {
	// Step 1: eager prune.
	if p.n > 31 || (p.n > 0 && float64(p.tsBase[p.n-1]-p.tsBase[0]) > eagerPruneAgeSeconds*p.baseFreq) {
		p.pruneOldData(now)
	}
	p.updateTotal++
	p.updateAttempted = now

	var predictionError float64
	doReset := false
	crossedReset := false

	// Step 2: monotonicity guard.
	if p.n > 0 {
		peerNotAfter := peerTS <= p.tsPeer[p.n-1]
		baseNotAfter := baseTS <= p.tsBase[p.n-1]
		if peerNotAfter || baseNotAfter {
			peerBefore := peerTS < p.tsPeer[p.n-1]
			baseBefore := baseTS < p.tsBase[p.n-1]
			switch {
			case peerBefore && baseBefore:
				return false // both regressed: possible transient, drop silently
			case peerTS == p.tsPeer[p.n-1] || baseTS == p.tsBase[p.n-1]:
				return false
			default:
				// clocks crossed: one axis regressed, the other advanced
				p.valid = false
				p.outliers += outlierCrossedPenalty
				p.outlierTotal++
				if p.outliers <= outlierCrossedGate {
					return false
				}
				crossedReset = true
			}
		}
	}

	// Steps 3-4: prediction, outlier classification and smoothing. Skipped
	// on the very first sample (no anchor yet to predict from) and when the
	// monotonicity guard has already forced a reset, since there is no
	// trustworthy prediction to bend the sample toward either way.
	if p.n > 0 && !crossedReset {
		prediction, _ := p.PredictPeer(baseTS)
		predictionError = (prediction - float64(peerTS)) / p.peerFreq

		threshold := outlierThresholdSeconds
		if p.n < 4 {
			threshold *= 2
		}

		p.base.IncrementSyncs()
		p.peer.IncrementSyncs()

		if absFloat(predictionError) > threshold {
			baseGood := p.base.BadSyncs() < 0.01
			peerGood := p.peer.BadSyncs() < 0.01
			if baseGood && peerGood {
				ac.AddSyncBad()
			}
			if ac.SyncDontUse() {
				return false
			}
			if peerGood {
				p.base.IncrementOutliers()
			}
			if baseGood {
				p.peer.IncrementOutliers()
			}
			p.outlierTotal++

			if absFloat(predictionError) > 2*threshold {
				p.outliers += outlierBigPenalty
				doReset = true
			} else {
				p.outliers += outlierSmallPenalty
			}

			if p.outliers <= outlierResetGate {
				return false
			}
			if doReset && !p.jumped {
				if peerGood {
					p.base.IncrementJumps()
				}
				if baseGood {
					p.peer.IncrementJumps()
				}
				p.jumped = true
			}
		} else {
			ac.AddSyncGood()
		}

		// Step 4: sync-point smoothing, only with enough history and no
		// reset in progress.
		if p.n >= 2 && !doReset {
			predictionBase, _ := p.PredictBase(peerTS)
			weight := syncSmoothingWeightColdStart
			if p.n >= 4 && p.driftN > 12 {
				weight = syncSmoothingWeight
			}
			peerTS += int64(weight * (prediction - float64(peerTS)))
			baseTS += int64(weight * (predictionBase - float64(baseTS)))
		}
	}

	// Step 5: final gate, independent of the path taken above.
	if ac.SyncDontUse() {
		return false
	}

	// Step 6: reset branch.
	if doReset || crossedReset {
		baseGood := p.base.BadSyncs() < 0.01
		peerGood := p.peer.BadSyncs() < 0.01
		if (p.base.Focus() && peerGood) || (p.peer.Focus() && baseGood) {
			p.log.Warningf("ac %06X step_us %.1f drift_ppm %.1f outlier_percent %.3f pair: %s",
				address, predictionError*1e6, p.drift*1e6, p.outlierPercent(), p.String())
		}
		p.ResetOffsets()
		p.outlierResetCooldown = forcedOutlierResetCooldown
		predictionError = 0
	}

	// Step 7: decay.
	p.outliers = maxInt(0, p.outliers-outlierDecayPerUpdate)
	p.cumulativeError = clamp(p.cumulativeError+predictionError, -cumulativeErrorClamp, cumulativeErrorClamp)
	p.outlierResetCooldown = maxInt(0, p.outlierResetCooldown-1)

	// Step 8: drift update.
	if !p.updateDrift(baseInterval, peerInterval) {
		p.CheckValid(now)
		return false
	}

	// Step 9: offset update. Monotonicity was enforced in step 2, and step 4
	// preserves it because the smoothing weight is always < 1, so no re-sort
	// is needed before appending at the tail.
	p.appendSample(baseTS, peerTS, predictionError*predictionError)
	p.updated = now
	p.CheckValid(now)
	return true
}
