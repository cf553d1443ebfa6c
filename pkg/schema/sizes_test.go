// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package schema

import "testing"

func TestSizeFixedPrimitives(t *testing.T) {
	s := mustLoad(t, `
struct Fixed {
    a: uint8
    b: int32
    c: float64
}
`)
	info := s.StructSize("Fixed")
	if info.Min != 13 || info.Max != 13 {
		t.Errorf("Expected 13/13, got %d/%d", info.Min, info.Max)
	}
	if info.Kind != SizeFixed {
		t.Errorf("Expected fixed kind, got %v", info.Kind)
	}
}

func TestSizeBytes(t *testing.T) {
	s := mustLoad(t, `struct B { data: bytes[64] }`)
	info := s.StructSize("B")
	// Length prefix plus up to 64 content bytes.
	if info.Min != 1 || info.Max != 65 {
		t.Errorf("Expected 1/65, got %d/%d", info.Min, info.Max)
	}
	if info.Kind != SizeBounded {
		t.Errorf("Expected bounded kind, got %v", info.Kind)
	}
}

func TestSizeString(t *testing.T) {
	s := mustLoad(t, `struct S { text: string[64] }`)
	info := s.StructSize("S")
	// A string[N] buffer holds the terminator inline: at most N bytes
	// on the wire, at least the bare terminator.
	if info.Min != 1 || info.Max != 64 {
		t.Errorf("Expected 1/64, got %d/%d", info.Min, info.Max)
	}
}

func TestSizeArray(t *testing.T) {
	s := mustLoad(t, `struct A { values: uint8[16] }`)
	info := s.StructSize("A")
	if info.Min != 1 || info.Max != 17 {
		t.Errorf("Expected 1/17, got %d/%d", info.Min, info.Max)
	}
}

func TestSizeArrayOfVariable(t *testing.T) {
	s := mustLoad(t, `struct A { chunks: bytes[8][4] }`)
	info := s.StructSize("A")
	// 1 length byte + 4 * (1 + 8)
	if info.Max != 37 {
		t.Errorf("Expected max 37, got %d", info.Max)
	}
}

func TestSizeEnum(t *testing.T) {
	s := mustLoad(t, `
enum Big: uint32 { A = 0 }
struct E { big: Big }
`)
	info := s.StructSize("E")
	if info.Min != 4 || info.Max != 4 {
		t.Errorf("Expected 4/4, got %d/%d", info.Min, info.Max)
	}
}

func TestSizeNestedStruct(t *testing.T) {
	s := mustLoad(t, `
struct Inner { a: uint16  b: bytes[4] }
struct Outer { x: uint8  inner: Inner }
`)
	info := s.StructSize("Outer")
	if info.Min != 1+2+1 || info.Max != 1+2+5 {
		t.Errorf("Unexpected sizes: %d/%d", info.Min, info.Max)
	}
}

func TestCobsOverhead(t *testing.T) {
	tests := []struct {
		size, want int
	}{
		{0, 0},
		{1, 1},
		{253, 1},
		{254, 1},
		{255, 2},
		{508, 2},
		{509, 3},
	}
	for _, tt := range tests {
		if got := CobsOverhead(tt.size); got != tt.want {
			t.Errorf("CobsOverhead(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestFramerBufferSize(t *testing.T) {
	// COBS prefix + payload + CRC + terminator.
	if got := FramerBufferSize(256, 0); got != 2+256+1 {
		t.Errorf("FramerBufferSize(256, 0) = %d", got)
	}
	if got := FramerBufferSize(2, 0); got != 4 {
		t.Errorf("FramerBufferSize(2, 0) = %d", got)
	}
	if got := MessageOffset(256, 1); got != 2 {
		t.Errorf("MessageOffset(256, 1) = %d", got)
	}
}

func TestProtocolSizes(t *testing.T) {
	s := mustLoad(t, `
struct Ack { code: uint8 }
struct Report {
    id: uint8
    readings: float32[8]
}
protocol {
    maxLength = 64
    framing = cobs
    crc = CRC8
    messageIds {
        Ack = 1
        Report = 2
    }
}
`)
	if got := s.MaxMessageSize(); got != 1+1+32 {
		t.Errorf("MaxMessageSize = %d", got)
	}
	if got := s.MinMessageSize(); got != 1 {
		t.Errorf("MinMessageSize = %d", got)
	}
	if got := s.MaxLength(); got != 64 {
		t.Errorf("MaxLength = %d", got)
	}
	if got := s.RequiredBufferSize(); got != FramerBufferSize(64, 1) {
		t.Errorf("RequiredBufferSize = %d", got)
	}
}

func TestDerivedMaxLength(t *testing.T) {
	s := mustLoad(t, `
struct M { d: bytes[32] }
protocol {
    framing = cobs
    crc = CRC16
    messageIds { M = 1 }
}
`)
	// Derived limit covers the largest message plus its CRC trailer.
	if got := s.MaxLength(); got != 33+2 {
		t.Errorf("MaxLength = %d, want 35", got)
	}
}

func TestCobsOverheadBoundary(t *testing.T) {
	// FramerBufferSize(2, 0): 1 code byte + 2 payload + terminator.
	if got := FramerBufferSize(2, 0); got != 4 {
		t.Errorf("FramerBufferSize(2,0) = %d, want 4", got)
	}
}
