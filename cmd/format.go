// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// FormatFrame renders one decoded frame in the analyzer's log format:
// a header line with timestamp, message name, id and payload length,
// then one indented line per field.
func FormatFrame(s *schema.Schema, ts time.Time, id int, name string, fields map[string]interface{}, payloadLen int) string {
	stamp := ts.Format("15:04:05.000")
	if name == "" {
		return fmt.Sprintf("[%s] UNKNOWN (0x%02X) len=%d\n", stamp, id, payloadLen)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s (0x%02X) len=%d\n", stamp, name, id, payloadLen)
	sb.WriteString(formatFields(s, s.Struct(name), fields, "  "))
	return sb.String()
}

func formatFields(s *schema.Schema, st *schema.Struct, fields map[string]interface{}, indent string) string {
	var sb strings.Builder
	for _, f := range st.Fields {
		sb.WriteString(formatField(s, f, fields[f.Name], indent))
	}
	return sb.String()
}

func formatField(s *schema.Schema, f schema.Field, v interface{}, indent string) string {
	if f.IsArray() {
		items, _ := v.([]interface{})
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s%s: [%d]\n", indent, f.Name, len(items))
		for i, item := range items {
			sb.WriteString(formatValue(s, f.Type, fmt.Sprintf("%d", i), item, indent+"  "))
		}
		return sb.String()
	}
	return formatValue(s, f.Type, f.Name, v, indent)
}

func formatValue(s *schema.Schema, t schema.TypeRef, label string, v interface{}, indent string) string {
	if e := s.Enum(t.Name); e != nil {
		return fmt.Sprintf("%s%s: %s\n", indent, label, enumValueName(e, v))
	}
	if st := s.Struct(t.Name); st != nil {
		sub, _ := v.(map[string]interface{})
		return fmt.Sprintf("%s%s:\n", indent, label) + formatFields(s, st, sub, indent+"  ")
	}
	switch t.Name {
	case "bytes":
		p, _ := v.([]byte)
		return fmt.Sprintf("%s%s: %s\n", indent, label, hexDump(p))
	case "string":
		return fmt.Sprintf("%s%s: %q\n", indent, label, v)
	case "float32", "float64":
		return fmt.Sprintf("%s%s: %.6g\n", indent, label, v)
	default:
		return fmt.Sprintf("%s%s: %v\n", indent, label, v)
	}
}

// enumValueName resolves a decoded integer to its declared name,
// falling back to the raw value for undeclared entries.
func enumValueName(e *schema.Enum, v interface{}) string {
	var n int64
	switch val := v.(type) {
	case int64:
		n = val
	case uint64:
		n = int64(val)
	default:
		return fmt.Sprintf("%v", v)
	}
	for _, ev := range e.Values {
		if ev.Value == n {
			return fmt.Sprintf("%s (%d)", ev.Name, n)
		}
	}
	return fmt.Sprintf("%d", n)
}

func hexDump(p []byte) string {
	if len(p) == 0 {
		return "(empty)"
	}
	var sb strings.Builder
	for i, b := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
