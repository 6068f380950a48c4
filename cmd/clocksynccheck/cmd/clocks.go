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
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mlat-server/clocksync/clock"
	"github.com/mlat-server/clocksync/config"
)

func init() {
	RootCmd.AddCommand(clocksCmd)
}

func loadRegistry() *clock.Registry {
	if rootConfigFlag == "" {
		return clock.NewRegistry()
	}
	cfg, err := config.ReadConfig(rootConfigFlag)
	if err != nil {
		log.Fatalf("reading config %q: %v", rootConfigFlag, err)
	}
	return cfg.ClockRegistry()
}

func clocksRun() error {
	reg := loadRegistry()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{"tag", "freq", "max_freq_error", "jitter", "delay_factor"})

	for _, tag := range reg.Tags() {
		c, err := reg.ForType(tag)
		if err != nil {
			// can't happen, tag came from the registry's own Tags()
			continue
		}
		label := tag
		if tag == "unknown" {
			label = color.YellowString(tag)
		}
		table.Append([]string{
			label,
			fmt.Sprintf("%.0f", c.Freq),
			fmt.Sprintf("%.3g", c.MaxFreqError),
			fmt.Sprintf("%.3g", c.Jitter),
			fmt.Sprintf("%.6g", c.DelayFactor),
		})
	}
	table.Render()
	return nil
}

var clocksCmd = &cobra.Command{
	Use:   "clocks",
	Short: "Print the resolved receiver clock factory table",
	Long:  "Print every clock preset known to the factory, including any extra or overridden presets loaded via --config.",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := clocksRun(); err != nil {
			log.Fatal(err)
		}
	},
}
