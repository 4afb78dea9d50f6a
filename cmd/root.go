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

// Package cmd implements the command-line interface of the containers
// module.
//
// The package is organized into subpackages:
//
//   - bench: the T-tree workload driver
//   - util: configuration plumbing shared by the commands
//
// See containers --help for a list of all commands.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/9rum/containers/cmd/bench"
	"github.com/9rum/containers/cmd/util"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// Version is the version of the containers module.
const Version = "0.1.0"

var (
	// RootCmd represents the base command when called without any subcommands.
	RootCmd = &cobra.Command{
		Use:   "containers",
		Short: "cache-conscious in-memory containers",
		Long: fmt.Sprintf(`containers (v%s)

In-memory ordered containers built on a T-tree whose node size is derived
from a cache line budget.`, Version),
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// glog expects the standard flag set to be parsed
			return flag.CommandLine.Parse(nil)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of containers",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "containers v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// expose glog's -v, -logtostderr and friends
	RootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.  This is called by main.main().  It only needs to happen once
// to the RootCmd.
func Execute() {
	defer glog.Flush()
	if err := RootCmd.Execute(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}
