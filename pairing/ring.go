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

import "time"

// pruneOldData halves the diagnostic counters (so outlier_total/update_total
// stays representative of recent behavior rather than the pairing's whole
// life) and drops the oldest ring entries, keeping at most pruneFloor
// samples and never keeping anything more than maxAgeSeconds of base-clock
// ticks behind the newest sample.
func (p *ClockPairing) pruneOldData(now time.Time) {
	if p.outlierTotal > 0 || p.updateTotal > 256 {
		p.outlierTotal /= 2
		p.updateTotal /= 2
	}

	if p.n == 0 {
		p.CheckValid(now)
		return
	}

	drop := p.n - pruneFloor
	if drop < 0 {
		drop = 0
	}
	for drop < p.n-1 && float64(p.tsBase[p.n-1]-p.tsBase[drop]) > maxAgeSeconds*p.baseFreq {
		drop++
	}

	if drop > 0 {
		kept := p.n - drop
		copy(p.tsBase[:kept], p.tsBase[drop:p.n])
		copy(p.tsPeer[:kept], p.tsPeer[drop:p.n])
		copy(p.varr[:kept], p.varr[drop:p.n])
		p.n = kept

		sum := 0.0
		for i := 0; i < p.n; i++ {
			sum += p.varr[i]
		}
		p.varSum = sum
	}

	p.CheckValid(now)
}

// appendSample inserts a new anchor at the tail. The caller must have
// already verified strict monotonicity; a prune must already have run if
// the ring is full.
func (p *ClockPairing) appendSample(baseTS, peerTS int64, sampleVar float64) {
	p.tsBase[p.n] = baseTS
	p.tsPeer[p.n] = peerTS
	p.varr[p.n] = sampleVar
	p.varSum += sampleVar
	p.n++
}
