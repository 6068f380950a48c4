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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mlat-server/clocksync/clock"
	"github.com/mlat-server/clocksync/pairing"
	"github.com/mlat-server/clocksync/session"
)

type fakeSource struct {
	pairings []*pairing.ClockPairing
}

func (f *fakeSource) Pairings() []*pairing.ClockPairing { return f.pairings }

func newScrapedPairing(t *testing.T) *pairing.ClockPairing {
	t.Helper()
	c, err := clock.ForType("dump1090")
	require.NoError(t, err)
	base := session.NewReceiver("base", c)
	peer := session.NewReceiver("peer", c)
	return pairing.New(base, peer, 0)
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.Metric, 1, "expected exactly one series for %s", name)
		return mf.Metric[0].GetGauge().GetValue()
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestScrapePublishesPairingSnapshot(t *testing.T) {
	p := newScrapedPairing(t)
	e := NewExporter(&fakeSource{pairings: []*pairing.ClockPairing{p}}, 0, time.Second)

	e.Scrape()

	require.Equal(t, 0.0, gaugeValue(t, e.registry, "clocksync_pair_valid"))
	require.Equal(t, 0.0, gaugeValue(t, e.registry, "clocksync_pair_n"))
}

func TestScrapeReregistersExistingGaugeAcrossPasses(t *testing.T) {
	p := newScrapedPairing(t)
	e := NewExporter(&fakeSource{pairings: []*pairing.ClockPairing{p}}, 0, time.Second)

	e.Scrape()
	e.Scrape() // must reuse the already-registered gauge, not error out

	require.Equal(t, 0.0, gaugeValue(t, e.registry, "clocksync_pair_n"))
}

func TestBoolToFloat(t *testing.T) {
	require.Equal(t, 1.0, boolToFloat(true))
	require.Equal(t, 0.0, boolToFloat(false))
}
