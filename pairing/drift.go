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

// updateDrift is the drift PI control loop. It runs independently of the
// offset ring, using only the native-tick intervals between this sync
// event and the previous one for the same aircraft. Returns false if the
// sample was rejected (drift magnitude or delta out of bounds).
func (p *ClockPairing) updateDrift(baseInterval, peerInterval int64) bool {
	// Rescale before differencing to avoid catastrophic cancellation: computing
	// (peerInterval/baseInterval)/relativeFreq - 1 loses precision near zero drift.
	adjusted := float64(baseInterval) * p.relativeFreq
	newDrift := (float64(peerInterval) - adjusted) / adjusted

	if absFloat(newDrift) > p.driftMax {
		return false
	}

	if p.driftN <= 0 || p.driftOutliers > driftOutlierResetThreshold {
		p.rawDrift = newDrift
		p.drift = newDrift
		p.iDrift = -p.drift / (1 + p.drift)
		p.driftN = 0
		p.cumulativeError = 0
		p.driftOutliers = 0
	}

	if p.driftN <= 0 {
		p.driftN = 2 // seed confidence on the very first sample
		return true
	}

	driftError := newDrift - p.rawDrift
	if absFloat(driftError) > p.driftMaxDelta {
		p.driftOutliers++
		if p.base.Focus() || p.peer.Focus() {
			p.log.Warningf("%s: drift_error_ppm out of limits: %.1f", p.String(), driftError*1e6)
		}
		return false
	}
	p.driftOutliers = maxInt(0, p.driftOutliers-2)

	kp := driftKP
	if float64(p.driftN) < driftNStable {
		kp *= 1 + (0.3/driftKP)*((driftNStable-float64(p.driftN))/driftNStable)
	}
	p.driftN++

	p.rawDrift += kp * driftError
	p.drift = p.rawDrift - driftKI*p.cumulativeError
	p.iDrift = -p.drift / (1 + p.drift)
	return true
}
