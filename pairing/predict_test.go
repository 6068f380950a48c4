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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPredictEmptyPairingReturnsError(t *testing.T) {
	p, _, _ := newTestPairing()
	_, err := p.PredictPeer(1000)
	require.ErrorIs(t, err, ErrEmptyPairing)
	_, err = p.PredictBase(1000)
	require.ErrorIs(t, err, ErrEmptyPairing)
}

func TestPredictInteriorInterpolationUsesBinarySearch(t *testing.T) {
	p, _, _ := newTestPairing()
	// Anchors more than 10s of base ticks apart (base_freq = 1.2e7), so a
	// query against the first segment falls well outside the tail guard
	// and must go through the binary-search interpolation path rather than
	// tail-anchor extrapolation.
	p.appendSample(0, 0, 0)
	p.appendSample(150_000_000, 150_000_500, 0)
	p.appendSample(300_000_000, 300_000_900, 0)

	got, err := p.PredictPeer(75_000_000) // exact midpoint of the first segment
	require.NoError(t, err)
	require.InDelta(t, 75_000_250, got, 1e-6)
}

func TestPredictExtrapolatesBeforeFirstAnchor(t *testing.T) {
	p, _, _ := newTestPairing()
	p.drift = 0
	p.appendSample(1_000_000, 1_000_000, 0)

	got, err := p.PredictPeer(0)
	require.NoError(t, err)
	require.InDelta(t, 0, got, 1e-6)
}

func TestPredictSingleAnchorAlwaysExtrapolates(t *testing.T) {
	p, _, _ := newTestPairing()
	p.appendSample(1_000_000, 1_000_000, 0)

	// n == 1: even a query after the single anchor takes the
	// extrapolation branch (there's no second anchor to interpolate with).
	got, err := p.PredictPeer(2_000_000)
	require.NoError(t, err)
	require.InDelta(t, 2_000_000, got, 1e-6)
}

func TestPredictAveragesLastTwoAnchorsNearTail(t *testing.T) {
	p, _, _ := newTestPairing()
	// Anchors less than the 10s tail guard apart: a tail-region query
	// averages extrapolation from both of the last two anchors. The peer
	// anchors are nudged off the base-anchor line so the two extrapolations
	// actually disagree and the averaging is observable.
	p.appendSample(0, 0, 0)
	p.appendSample(1_200_000, 1_200_050, 0) // 0.1s later, peer 50 ticks ahead of the line
	// base_freq = 1.2e7, so the tail guard starts at ts_base[last]-10*freq,
	// deep in negative territory here; any query after the last anchor is
	// "near tail" for this short a ring.
	got, err := p.PredictPeer(2_400_000)
	require.NoError(t, err)

	extrapLast := float64(1_200_050) + float64(2_400_000-1_200_000)*1*(1+0)
	extrapPrev := float64(0) + float64(2_400_000-0)*1*(1+0)
	require.NotEqual(t, extrapLast, extrapPrev)
	require.InDelta(t, (extrapLast+extrapPrev)/2, got, 1e-6)
}

func TestPredictBaseIsInverseOfPredictPeer(t *testing.T) {
	p, _, _ := newTestPairing()
	p.appendSample(0, 0, 0)
	p.appendSample(150_000_000, 150_000_500, 0)
	p.appendSample(300_000_000, 300_000_900, 0)

	peerTS, err := p.PredictPeer(75_000_000)
	require.NoError(t, err)
	baseTS, err := p.PredictBase(int64(peerTS))
	require.NoError(t, err)
	require.InDelta(t, 75_000_000, baseTS, 1e-6)
}
