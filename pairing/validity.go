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
	"math"
	"time"
)

// CheckValid recomputes variance, Error and Valid from current state and
// returns the new Valid. It is pure with respect to everything else: two
// calls with the same now converge after the first.
//
// The variance bound (1.6e-11 s², i.e. ~4µs standard error) is looser than
// the 0.9µs per-sample outlier threshold. That asymmetry is intentional:
// validity reflects recent aggregate quality, not per-sample quality. It
// is pinned by tests, not "corrected".
func (p *ClockPairing) CheckValid(now time.Time) bool {
	if p.n < 2 || p.driftN < 2 {
		p.variance = undefinedStat
		p.errorStat = undefinedStat
		p.valid = false
		return p.valid
	}

	p.variance = p.varSum / float64(p.n)
	p.errorStat = math.Sqrt(p.variance)

	p.valid = p.outlierResetCooldown < 1 &&
		p.n > 4 &&
		p.driftN > 4 &&
		p.variance < validityVarianceBound &&
		now.Sub(p.updated) < freshnessSeconds*time.Second

	return p.valid
}
