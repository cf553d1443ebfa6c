// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"testing"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// "123456789" is the standard CRC check string.
var crcCheck = []byte("123456789")

func TestCRC8(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint8
	}{
		{"empty", nil, 0x00},
		{"single zero", []byte{0x00}, 0x00},
		{"single one", []byte{0x01}, 0x07},
		{"check string", crcCheck, 0xF4},
		{"ack message", []byte{0x02, 0x22}, 0xC4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC8(tt.data); got != tt.want {
				t.Errorf("CRC8 = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0x0000},
		{"single zero", []byte{0x00}, 0x0000},
		{"check string", crcCheck, 0xBB3D},
		{"single A", []byte("A"), 0x30C0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.want {
				t.Errorf("CRC16 = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestCRC32(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 0x00000000},
		{"single zero", []byte{0x00}, 0xD202EF8D},
		{"check string", crcCheck, 0xCBF43926},
		{"hello world", []byte("hello world"), 0x0D4A1185},
		{"all ones", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC32(tt.data); got != tt.want {
				t.Errorf("CRC32 = 0x%08X, want 0x%08X", got, tt.want)
			}
		})
	}
}

func TestChecksumWidths(t *testing.T) {
	if got := Checksum(schema.CRCNone, crcCheck); got != 0 {
		t.Errorf("no-CRC checksum = %d", got)
	}
	if got := Checksum(schema.CRC8, crcCheck); got != 0xF4 {
		t.Errorf("CRC8 checksum = %#x", got)
	}
	if got := Checksum(schema.CRC16, crcCheck); got != 0xBB3D {
		t.Errorf("CRC16 checksum = %#x", got)
	}
	if got := Checksum(schema.CRC32, crcCheck); got != 0xCBF43926 {
		t.Errorf("CRC32 checksum = %#x", got)
	}
}
