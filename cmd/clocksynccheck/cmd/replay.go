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

package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mlat-server/clocksync/pairing"
	"github.com/mlat-server/clocksync/session"
)

// replay address is synthetic: replay doesn't model real aircraft addresses,
// it just needs one stable AircraftContext for the whole run.
const replayAircraftAddress = 0xABCDEF

var (
	replayCSVFlag       string
	replayBaseClockFlag string
	replayPeerClockFlag string
	replayCategoryFlag  int
)

func init() {
	RootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayCSVFlag, "csv", "f", "", "path to a CSV of base_ts,peer_ts,base_interval,peer_interval,now rows (required)")
	replayCmd.Flags().StringVar(&replayBaseClockFlag, "base-clock", "dump1090", "clock preset tag for the base receiver")
	replayCmd.Flags().StringVar(&replayPeerClockFlag, "peer-clock", "dump1090", "clock preset tag for the peer receiver")
	replayCmd.Flags().IntVar(&replayCategoryFlag, "category", 0, "pairing category")
	_ = replayCmd.MarkFlagRequired("csv")
}

func parseNow(field string) (time.Time, error) {
	secs, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing now %q: %w", field, err)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}

func replayRun() error {
	reg := loadRegistry()
	baseClock, err := reg.ForType(replayBaseClockFlag)
	if err != nil {
		return fmt.Errorf("resolving base clock %q: %w", replayBaseClockFlag, err)
	}
	peerClock, err := reg.ForType(replayPeerClockFlag)
	if err != nil {
		return fmt.Errorf("resolving peer clock %q: %w", replayPeerClockFlag, err)
	}

	baseRx := session.NewReceiver("base", baseClock)
	peerRx := session.NewReceiver("peer", peerClock)
	p := pairing.New(baseRx, peerRx, replayCategoryFlag)
	ac := session.NewAircraft(replayAircraftAddress)

	f, err := os.Open(replayCSVFlag)
	if err != nil {
		return fmt.Errorf("opening %q: %w", replayCSVFlag, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	log.Debugf("replay: csv columns %v", header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{"#", "result", "n", "drift_ppm", "variance", "valid"})

	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", row, err)
		}
		row++

		baseTS, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: parsing base_ts: %w", row, err)
		}
		peerTS, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: parsing peer_ts: %w", row, err)
		}
		baseInterval, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: parsing base_interval: %w", row, err)
		}
		peerInterval, err := strconv.ParseInt(record[3], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: parsing peer_interval: %w", row, err)
		}
		now, err := parseNow(record[4])
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}

		ok := p.Update(replayAircraftAddress, baseTS, peerTS, baseInterval, peerInterval, now, ac)
		snap := p.Snapshot()

		result := color.RedString("rejected")
		if ok {
			result = color.GreenString("updated")
		}
		table.Append([]string{
			fmt.Sprintf("%d", row),
			result,
			fmt.Sprintf("%d", snap.N),
			fmt.Sprintf("%.3f", snap.Drift*1e6),
			fmt.Sprintf("%.3g", snap.Variance),
			fmt.Sprintf("%v", snap.Valid),
		})
	}
	table.Render()

	final := p.Snapshot()
	fmt.Printf("\nfinal: %s n=%d drift_ppm=%.3f variance=%.3g outliers=%d outlier_percent=%.3f%% valid=%v jumped=%v\n",
		p.String(), final.N, final.Drift*1e6, final.Variance, final.Outliers, final.OutlierPercent, final.Valid, final.Jumped)
	return nil
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a CSV of paired timestamps through a ClockPairing",
	Long:  "Feed base_ts,peer_ts,base_interval,peer_interval,now rows from a CSV through a freshly constructed ClockPairing and print each Update outcome plus the final snapshot.",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := replayRun(); err != nil {
			log.Fatal(err)
		}
	},
}
