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

// Package util holds the configuration plumbing shared by the commands.
package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables read by the commands.
const EnvPrefix = "containers"

// Wrap is the number of characters help texts are wrapped at.
const Wrap = 50

// WrapString wraps text at Wrap characters.
func WrapString(text string) string {
	var (
		lines []string
		line  strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if 0 < line.Len() && Wrap < line.Len()+1+len(word) {
			lines = append(lines, line.String())
			line.Reset()
		}
		if 0 < line.Len() {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if 0 < line.Len() {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// InitConfig loads .env and .env.local, if present, and lets every key be
// overridden by a CONTAINERS_ prefixed environment variable with dashes
// replaced by underscores.
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindFlags makes the flags of cmd visible to viper under their own names.
func BindFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
