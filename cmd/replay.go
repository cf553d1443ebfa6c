// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/bakelite/pkg/capture"
	"github.com/Thermoquad/bakelite/pkg/wire"
	"github.com/spf13/cobra"
)

var (
	replayInput string
	replayFile  string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-decode a recorded capture log",
	Long: `Read a CBOR capture log written by sniff --record and decode each
frame against a protocol definition.

Captures store raw payload bytes, so a log recorded with an outdated
definition can be replayed against a corrected one.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "Protocol definition file")
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "Capture log file")
	replayCmd.MarkFlagRequired("input")
	replayCmd.MarkFlagRequired("file")
}

func runReplay(cmd *cobra.Command, args []string) error {
	s := loadInput(replayInput)

	file, err := os.Open(replayFile)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := capture.NewReader(file)
	frames := 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed capture log: %w", err)
		}
		frames++

		if rec.Err != "" {
			fmt.Printf("[%s] ERROR: %s\n", rec.Time().Format("15:04:05.000"), rec.Err)
			continue
		}

		// Resolve the id against the current definition rather than
		// the recorded name, so corrected schemas apply.
		name := ""
		if s.Protocol != nil {
			name = s.MessageName(rec.ID)
		}
		if name == "" {
			fmt.Print(FormatFrame(s, rec.Time(), rec.ID, "", nil, len(rec.Payload)))
			continue
		}

		fields, err := wire.UnpackStruct(s, name, wire.NewBuffer(rec.Payload))
		if err != nil {
			fmt.Printf("[%s] ERROR decoding %s: %v\n", rec.Time().Format("15:04:05.000"), name, err)
			continue
		}
		fmt.Print(FormatFrame(s, rec.Time(), rec.ID, name, fields, len(rec.Payload)))
	}

	fmt.Printf("\n%d records replayed\n", frames)
	return nil
}
