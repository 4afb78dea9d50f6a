// Copyright 2022 Sogang University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bench implements the bench command.
package bench

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/9rum/containers/cmd/util"
	"github.com/9rum/containers/internal/bench"
	"github.com/9rum/containers/internal/data"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BenchCmd runs the T-tree workload.
var BenchCmd = &cobra.Command{
	Use:     "bench",
	Short:   "Run an insert/lookup/remove workload against a T-tree",
	PreRunE: bindConfig,
	RunE:    run,
}

func init() {
	def := bench.DefaultConfig()
	flags := BenchCmd.Flags()

	flags.Int("count", def.Count, util.WrapString("Number of keys to insert"))
	flags.String("order", def.Order.String(), util.WrapString("Insertion order (ascending, descending, shuffled)"))
	flags.Int64("seed", def.Seed, util.WrapString("Seed of the shuffled order"))
	flags.Int("budget", def.Budget, util.WrapString("Bytes a tree node is packed into"))
	flags.Bool("duplicates", def.Duplicates, util.WrapString("Insert every value twice into a tree that allows duplicates"))
	flags.String("allocator", def.Allocator, util.WrapString("Node allocator (malloc, freelist, region)"))
	flags.Int("region-bytes", def.RegionBytes, util.WrapString("Capacity of the region allocator in bytes"))
	flags.Int("freelist-size", def.FreeListSize, util.WrapString("Number of blocks the free list allocator retains"))
	flags.Bool("metrics", false, util.WrapString("Print the collected metrics in Prometheus text format"))
}

func bindConfig(cmd *cobra.Command, _ []string) error {
	return util.BindFlags(cmd)
}

// Config reads the benchmark configuration from viper.
func Config() (cfg bench.Config, err error) {
	order, err := data.ParseOrder(viper.GetString("order"))
	if err != nil {
		return
	}
	cfg = bench.Config{
		Count:        viper.GetInt("count"),
		Order:        order,
		Seed:         viper.GetInt64("seed"),
		Budget:       viper.GetInt("budget"),
		Duplicates:   viper.GetBool("duplicates"),
		Allocator:    viper.GetString("allocator"),
		RegionBytes:  viper.GetInt("region-bytes"),
		FreeListSize: viper.GetInt("freelist-size"),
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := Config()
	if err != nil {
		return err
	}
	set := metrics.NewSet()
	report, err := bench.Run(cfg, set)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := Print(out, report); err != nil {
		return err
	}
	if viper.GetBool("metrics") {
		fmt.Fprintln(out)
		set.WritePrometheus(out)
	}
	return nil
}

// Print writes a human readable summary of report to w.
func Print(w io.Writer, report bench.Report) error {
	cfg := report.Config
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "keys\t%d (%s, seed %d)\n", cfg.Count, cfg.Order, cfg.Seed)
	fmt.Fprintf(tw, "allocator\t%s\n", cfg.Allocator)
	fmt.Fprintf(tw, "node\t%d values, %d bytes\n", report.NodeCapacity, report.NodeSize)
	fmt.Fprintf(tw, "bounds\t%d below, %d equal, %d above\n", report.Below, report.Equal, report.Above)
	fmt.Fprintf(tw, "removed\t%d, %d remaining\n", report.Removed, report.Remaining)
	for _, p := range report.Phases {
		fmt.Fprintf(tw, "%s\t%v\n", p.Name, p.Duration)
	}
	fmt.Fprintf(tw, "total\t%v\n", report.Total())
	return tw.Flush()
}
