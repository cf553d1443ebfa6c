// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bakelite",
	Short: "Protocol compiler for embedded communication",
	Long: `Bakelite - A compiler for embedded communication protocols.

Compiles .bakelite protocol definitions to serialization and framing
code for constrained C and C++ targets and a Python host target, and
decodes live protocol traffic for analysis.

Typical usage:
  bakelite gen -l ctiny -i proto.bakelite -o proto.h
  bakelite runtime -l ctiny -o bakelite.h
  bakelite info -i proto.bakelite
  bakelite sniff -i proto.bakelite --port /dev/ttyUSB0

Defaults for language, output, and connection settings can be placed
in a YAML config file (--config, or .bakelite.yaml in the working
directory).`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
