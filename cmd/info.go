// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/Thermoquad/bakelite/pkg/schema"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	infoInput string
	infoJSON  bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display protocol information and size calculations",
	Long: `Display wire sizes, message ids, and embedded RAM requirements for
a protocol definition.

Sizes are wire sizes per struct, shown as a min-max range for structs
with variable-length fields. The RAM estimate covers
the frame buffer plus framer and protocol state on the tiny targets.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVarP(&infoInput, "input", "i", "", "Input protocol file")
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output as JSON")
	infoCmd.MarkFlagRequired("input")
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	tableBorder  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func runInfo(cmd *cobra.Command, args []string) error {
	s := loadInput(infoInput)
	if infoJSON {
		return printInfoJSON(s)
	}
	printInfoPlain(s)
	return nil
}

type structInfoJSON struct {
	MinSize int    `json:"min_size"`
	MaxSize int    `json:"max_size"`
	Kind    string `json:"kind"`
	ID      int    `json:"id,omitempty"`
}

func printInfoJSON(s *schema.Schema) error {
	data := map[string]interface{}{}

	if p := s.Protocol; p != nil {
		data["protocol"] = map[string]interface{}{
			"framing":    p.Framing,
			"crc":        p.CRC.String(),
			"crc_size":   p.CRC.Width(),
			"max_length": s.MaxLength(),
		}
		data["ram"] = map[string]interface{}{
			"min_message_size":     s.MinMessageSize(),
			"max_message_size":     s.MaxMessageSize(),
			"required_buffer_size": s.RequiredBufferSize(),
			"estimated_ram_tiny":   s.EstimatedRAM(),
		}
	}

	structs := map[string]structInfoJSON{}
	for _, st := range s.Structs {
		info := s.StructSize(st.Name)
		structs[st.Name] = structInfoJSON{
			MinSize: info.Min,
			MaxSize: info.Max,
			Kind:    info.Kind.String(),
			ID:      s.MessageID(st.Name),
		}
	}
	data["structs"] = structs

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printInfoPlain(s *schema.Schema) {
	if p := s.Protocol; p != nil {
		fmt.Println(headingStyle.Render("Protocol"))
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			Row(labelStyle.Render("Framing"), p.Framing).
			Row(labelStyle.Render("CRC"), fmt.Sprintf("%s (%d bytes)", p.CRC, p.CRC.Width())).
			Row(labelStyle.Render("Max Length"), strconv.Itoa(s.MaxLength()))
		fmt.Println(t)
	}

	fmt.Println(headingStyle.Render("Structs"))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorder).
		Headers("Name", "Size", "Kind", "Msg ID")
	for _, st := range s.Structs {
		info := s.StructSize(st.Name)
		size := fmt.Sprintf("%d bytes", info.Max)
		if info.Min != info.Max {
			size = fmt.Sprintf("%d-%d bytes", info.Min, info.Max)
		}
		id := ""
		if n := s.MessageID(st.Name); n != 0 {
			id = strconv.Itoa(n)
		}
		t.Row(st.Name, size, info.Kind.String(), id)
	}
	fmt.Println(t)

	if s.Protocol != nil {
		fmt.Println(headingStyle.Render("Embedded RAM (ctiny/cpptiny)"))
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			Row(labelStyle.Render("Buffer"), fmt.Sprintf("%d bytes", s.RequiredBufferSize())).
			Row(labelStyle.Render("Total RAM"), fmt.Sprintf("~%d bytes", s.EstimatedRAM()))
		fmt.Println(t)
	}
}
