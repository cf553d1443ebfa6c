// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/bakelite/pkg/generator"
	"github.com/spf13/cobra"
)

var (
	runtimeLanguage string
	runtimeOutput   string
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Write the runtime support code for a target language",
	Long: fmt.Sprintf(`Write the runtime support artifact for a target language.

The artifact is a single file (a C or C++ header, or a Python module)
containing the COBS codec, CRC tables, byte-stream buffer, and framer
that generated code calls into. Output depends only on the chosen
language, so regenerating is always safe.

Supported languages: %s`, strings.Join(generator.Languages(), ", ")),
	RunE: runRuntime,
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
	runtimeCmd.Flags().StringVarP(&runtimeLanguage, "language", "l", "", "Target language")
	runtimeCmd.Flags().StringVarP(&runtimeOutput, "output", "o", "", "Output file")
	runtimeCmd.MarkFlagRequired("output")
}

func runRuntime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	language := fallback(runtimeLanguage, cfg.Language)
	if language == "" {
		return fmt.Errorf("a target language is required (use --language or the config file)")
	}

	backend, err := generator.Lookup(language)
	if err != nil {
		return err
	}
	out, err := backend.Runtime()
	if err != nil {
		return err
	}
	return os.WriteFile(runtimeOutput, out, 0o644)
}
