// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

func loadSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.Load(src)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

func TestPackSimpleStruct(t *testing.T) {
	s := loadSchema(t, `struct Ack { code: uint8 }`)
	buf := NewBuffer(make([]byte, 8))
	if err := PackStruct(s, "Ack", map[string]interface{}{"code": 123}, buf); err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(buf.Bytes()) != "7b" {
		t.Errorf("got %x", buf.Bytes())
	}

	buf.Reset()
	fields, err := UnpackStruct(s, "Ack", buf)
	if err != nil {
		t.Fatal(err)
	}
	if fields["code"] != uint64(123) {
		t.Errorf("code = %v", fields["code"])
	}
}

// The complex-struct vector shared with the generated-target test
// suites: every primitive class, a bytes field, and a string field.
func TestPackComplexStruct(t *testing.T) {
	s := loadSchema(t, `
struct TestStruct {
    int1: int8
    int2: int32
    uint1: uint8
    uint2: uint16
    float1: float32
    b1: bool
    b2: bool
    b3: bool
    data: bytes[16]
    str: string[8]
}
`)
	in := map[string]interface{}{
		"int1":   5,
		"int2":   -1234,
		"uint1":  31,
		"uint2":  1234,
		"float1": float32(-1.23),
		"b1":     true,
		"b2":     true,
		"b3":     false,
		"data":   []byte{1, 2, 3, 4},
		"str":    "hey",
	}
	buf := NewBuffer(make([]byte, 64))
	if err := PackStruct(s, "TestStruct", in, buf); err != nil {
		t.Fatal(err)
	}
	want := "052efbffff1fd204a4709dbf010100040102030468657900"
	if hex.EncodeToString(buf.Bytes()) != want {
		t.Errorf("got  %x\nwant %s", buf.Bytes(), want)
	}

	buf.Reset()
	out, err := UnpackStruct(s, "TestStruct", buf)
	if err != nil {
		t.Fatal(err)
	}
	if out["int2"] != int64(-1234) {
		t.Errorf("int2 = %v", out["int2"])
	}
	if math.Abs(out["float1"].(float64)+1.23) > 0.001 {
		t.Errorf("float1 = %v", out["float1"])
	}
	if !bytes.Equal(out["data"].([]byte), []byte{1, 2, 3, 4}) {
		t.Errorf("data = %v", out["data"])
	}
	if out["str"] != "hey" {
		t.Errorf("str = %v", out["str"])
	}
	if out["b3"] != false {
		t.Errorf("b3 = %v", out["b3"])
	}
}

func TestPackEnumStruct(t *testing.T) {
	s := loadSchema(t, `
enum Direction: uint8 {
    Up = 0
    Down = 1
    Left = 2
    Right = 3
}
enum Speed: int8 {
    Slow = 0
    Fast = -1
}
struct EnumStruct {
    direction: Direction
    speed: Speed
}
`)
	buf := NewBuffer(make([]byte, 8))
	in := map[string]interface{}{"direction": 2, "speed": -1}
	if err := PackStruct(s, "EnumStruct", in, buf); err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(buf.Bytes()) != "02ff" {
		t.Errorf("got %x", buf.Bytes())
	}

	buf.Reset()
	out, err := UnpackStruct(s, "EnumStruct", buf)
	if err != nil {
		t.Fatal(err)
	}
	if out["direction"] != uint64(2) || out["speed"] != int64(-1) {
		t.Errorf("out = %v", out)
	}
}

func TestPackNestedStruct(t *testing.T) {
	s := loadSchema(t, `
struct SubA { b1: bool  b2: bool }
struct SubB { num: int8 }
struct NestedStruct {
    a: SubA
    b: SubB
    num: int8
}
`)
	in := map[string]interface{}{
		"a":   map[string]interface{}{"b1": true, "b2": false},
		"b":   map[string]interface{}{"num": 127},
		"num": -4,
	}
	buf := NewBuffer(make([]byte, 8))
	if err := PackStruct(s, "NestedStruct", in, buf); err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(buf.Bytes()) != "01007ffc" {
		t.Errorf("got %x", buf.Bytes())
	}

	buf.Reset()
	out, err := UnpackStruct(s, "NestedStruct", buf)
	if err != nil {
		t.Fatal(err)
	}
	a := out["a"].(map[string]interface{})
	if a["b1"] != true || a["b2"] != false {
		t.Errorf("a = %v", a)
	}
	if out["num"] != int64(-4) {
		t.Errorf("num = %v", out["num"])
	}
}

func TestPackArrays(t *testing.T) {
	s := loadSchema(t, `
struct ArrayStruct {
    a: uint8[4]
    b: int8[4]
    c: string[4][3]
    d: bytes[4]
}
`)
	in := map[string]interface{}{
		"a": []interface{}{2, 3, 1},
		"b": []interface{}{127, 64},
		"c": []interface{}{"abc", "def", "ghi"},
		"d": nil,
	}
	buf := NewBuffer(make([]byte, 64))
	if err := PackStruct(s, "ArrayStruct", in, buf); err != nil {
		t.Fatal(err)
	}
	want := "03020301027f4003616263006465660067686900" + "00"
	if hex.EncodeToString(buf.Bytes()) != want {
		t.Errorf("got  %x\nwant %s", buf.Bytes(), want)
	}

	buf.Reset()
	out, err := UnpackStruct(s, "ArrayStruct", buf)
	if err != nil {
		t.Fatal(err)
	}
	c := out["c"].([]interface{})
	if len(c) != 3 || c[0] != "abc" || c[2] != "ghi" {
		t.Errorf("c = %v", c)
	}
	if len(out["d"].([]byte)) != 0 {
		t.Errorf("d = %v", out["d"])
	}
}

func TestPackArrayCapacity(t *testing.T) {
	s := loadSchema(t, `struct A { v: uint8[2] }`)
	buf := NewBuffer(make([]byte, 16))
	in := map[string]interface{}{"v": []interface{}{1, 2, 3}}
	if err := PackStruct(s, "A", in, buf); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}

	// Inbound length byte above capacity is rejected.
	in2 := NewBuffer([]byte{0x03, 1, 2, 3})
	if _, err := UnpackStruct(s, "A", in2); err == nil {
		t.Error("expected capacity error")
	}
}

func TestPackMissingFieldsZeroed(t *testing.T) {
	s := loadSchema(t, `
struct M {
    a: uint8
    s: string[8]
    d: bytes[4]
    v: uint16[2]
}
`)
	buf := NewBuffer(make([]byte, 16))
	if err := PackStruct(s, "M", nil, buf); err != nil {
		t.Fatal(err)
	}
	// Zero byte, bare terminator, empty length prefixes.
	if hex.EncodeToString(buf.Bytes()) != "00000000" {
		t.Errorf("got %x", buf.Bytes())
	}
}

func TestPackWriteOverflowPropagates(t *testing.T) {
	s := loadSchema(t, `struct M { a: uint32 }`)
	buf := NewBuffer(make([]byte, 2))
	err := PackStruct(s, "M", map[string]interface{}{"a": 1}, buf)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUnpackTruncatedInput(t *testing.T) {
	s := loadSchema(t, `struct M { a: uint32  b: uint8 }`)
	buf := NewBuffer([]byte{1, 2, 3})
	if _, err := UnpackStruct(s, "M", buf); err == nil {
		t.Fatal("expected error")
	}
}
