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
	"errors"
	"sort"
)

// ErrEmptyPairing is returned by PredictPeer/PredictBase when the pairing
// has not yet accepted a single sample.
var ErrEmptyPairing = errors.New("pairing: no samples yet")

// PredictPeer maps a base-clock timestamp to the corresponding peer-clock
// timestamp, interpolating within the anchor ring or extrapolating from its
// nearest edge.
func (p *ClockPairing) PredictPeer(baseTS int64) (float64, error) {
	return predict(baseTS, p.tsBase[:p.n], p.tsPeer[:p.n], p.baseFreq, p.relativeFreq, p.drift)
}

// PredictBase maps a peer-clock timestamp to the corresponding base-clock
// timestamp. Symmetric with PredictPeer, using the inverse frequency ratio
// and inverse drift.
func (p *ClockPairing) PredictBase(peerTS int64) (float64, error) {
	return predict(peerTS, p.tsPeer[:p.n], p.tsBase[:p.n], p.peerFreq, p.iRelativeFreq, p.iDrift)
}

// predict implements the shared interpolation/extrapolation logic for both
// directions: fromTS/toTS are the query axis and the target axis anchors,
// fromFreq is the query axis's clock frequency (for the tail-guard age
// check), ratio/drift are the (possibly inverted) frequency ratio and
// drift to use when extrapolating.
//
// Interior interpolation never reads drift: the drift is implicitly
// encoded in the observed anchor slope. Only extrapolation (before the
// first anchor, or at/after the tail guard near the last anchor) applies
// the drifted nominal frequency ratio.
func predict(query int64, fromTS, toTS []int64, fromFreq, ratio, drift float64) (float64, error) {
	n := len(fromTS)
	if n == 0 {
		return 0, ErrEmptyPairing
	}

	if query < fromTS[0] || n == 1 {
		return float64(toTS[0]) + float64(query-fromTS[0])*ratio*(1+drift), nil
	}

	last := n - 1
	if float64(query) > float64(fromTS[last])-tailGuardSeconds*fromFreq {
		extrapLast := float64(toTS[last]) + float64(query-fromTS[last])*ratio*(1+drift)
		gap := float64(fromTS[last] - fromTS[last-1])
		if gap > tailGuardSeconds*fromFreq {
			return extrapLast, nil
		}
		extrapPrev := float64(toTS[last-1]) + float64(query-fromTS[last-1])*ratio*(1+drift)
		return (extrapLast + extrapPrev) / 2, nil
	}

	i := sort.Search(n, func(i int) bool { return fromTS[i] >= query })
	if i < 1 {
		i = 1
	}
	x0, x1 := fromTS[i-1], fromTS[i]
	y0, y1 := toTS[i-1], toTS[i]
	return float64(y0) + float64(y1-y0)*float64(query-x0)/float64(x1-x0), nil
}
