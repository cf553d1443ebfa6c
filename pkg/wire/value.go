// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// The dynamic codec packs and unpacks messages described by a Schema
// without generated code. Field values are held in maps keyed by field
// name, with Go types chosen per wire type:
//
//	int8..int64    int64
//	uint8..uint64  uint64
//	float32/64     float64
//	bool           bool
//	string[N]      string
//	bytes[N]       []byte
//	enum           as its underlying integer type
//	struct         map[string]interface{}
//	T[N]           []interface{}
//
// The codec is how the sniffer and replay tools interpret live
// traffic, and how the tests pin the byte format all generated
// targets must produce.

// PackStruct encodes the named struct from a field-value map.
func PackStruct(s *schema.Schema, name string, fields map[string]interface{}, buf *Buffer) error {
	st := s.Struct(name)
	if st == nil {
		return fmt.Errorf("unknown struct %q", name)
	}
	for _, f := range st.Fields {
		if err := packField(s, f, fields[f.Name], buf); err != nil {
			return fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
	}
	return nil
}

func packField(s *schema.Schema, f schema.Field, v interface{}, buf *Buffer) error {
	if !f.IsArray() {
		return packValue(s, f.Type, v, buf)
	}

	items, ok := v.([]interface{})
	if v != nil && !ok {
		return fmt.Errorf("expected array value, got %T", v)
	}
	if len(items) > f.ArraySize {
		return ErrCapacity
	}
	if err := buf.WriteUint8(uint8(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := packValue(s, f.Type, item, buf); err != nil {
			return err
		}
	}
	return nil
}

func packValue(s *schema.Schema, t schema.TypeRef, v interface{}, buf *Buffer) error {
	if e := s.Enum(t.Name); e != nil {
		return packInt(e.Type.Name, v, buf)
	}
	if st := s.Struct(t.Name); st != nil {
		sub, ok := v.(map[string]interface{})
		if v != nil && !ok {
			return fmt.Errorf("expected struct value, got %T", v)
		}
		return PackStruct(s, t.Name, sub, buf)
	}

	switch t.Name {
	case "bool":
		b, _ := v.(bool)
		return buf.WriteBool(b)
	case "string":
		str, ok := v.(string)
		if v != nil && !ok {
			return fmt.Errorf("expected string value, got %T", v)
		}
		return buf.WriteString(str, t.Size)
	case "bytes":
		p, ok := v.([]byte)
		if v != nil && !ok {
			return fmt.Errorf("expected bytes value, got %T", v)
		}
		return buf.WriteBytes(p, t.Size)
	case "float32":
		return buf.WriteFloat32(float32(toFloat(v)))
	case "float64":
		return buf.WriteFloat64(toFloat(v))
	default:
		return packInt(t.Name, v, buf)
	}
}

func packInt(typeName string, v interface{}, buf *Buffer) error {
	n, err := toInt(v)
	if err != nil {
		return err
	}
	switch typeName {
	case "int8":
		return buf.WriteInt8(int8(n))
	case "int16":
		return buf.WriteInt16(int16(n))
	case "int32":
		return buf.WriteInt32(int32(n))
	case "int64":
		return buf.WriteInt64(n)
	case "uint8":
		return buf.WriteUint8(uint8(n))
	case "uint16":
		return buf.WriteUint16(uint16(n))
	case "uint32":
		return buf.WriteUint32(uint32(n))
	case "uint64":
		return buf.WriteUint64(uint64(n))
	}
	return fmt.Errorf("unknown type %q", typeName)
}

// toInt accepts the integer types a caller may plausibly hand the
// codec, including values round-tripped through a capture log.
func toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case uint:
		return int64(n), nil
	}
	return 0, fmt.Errorf("expected integer value, got %T", v)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		i, err := toInt(v)
		if err != nil {
			return 0
		}
		return float64(i)
	}
}

// UnpackStruct decodes the named struct into a field-value map.
func UnpackStruct(s *schema.Schema, name string, buf *Buffer) (map[string]interface{}, error) {
	st := s.Struct(name)
	if st == nil {
		return nil, fmt.Errorf("unknown struct %q", name)
	}
	out := make(map[string]interface{}, len(st.Fields))
	for _, f := range st.Fields {
		v, err := unpackField(s, f, buf)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func unpackField(s *schema.Schema, f schema.Field, buf *Buffer) (interface{}, error) {
	if !f.IsArray() {
		return unpackValue(s, f.Type, buf)
	}
	n, err := buf.ReadUint8()
	if err != nil {
		return nil, err
	}
	if int(n) > f.ArraySize {
		return nil, ErrCapacity
	}
	items := make([]interface{}, n)
	for i := range items {
		if items[i], err = unpackValue(s, f.Type, buf); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func unpackValue(s *schema.Schema, t schema.TypeRef, buf *Buffer) (interface{}, error) {
	if e := s.Enum(t.Name); e != nil {
		return unpackInt(e.Type.Name, buf)
	}
	if s.Struct(t.Name) != nil {
		return UnpackStruct(s, t.Name, buf)
	}

	switch t.Name {
	case "bool":
		return buf.ReadBool()
	case "string":
		return buf.ReadString(t.Size)
	case "bytes":
		return buf.ReadBytes(t.Size)
	case "float32":
		v, err := buf.ReadFloat32()
		return float64(v), err
	case "float64":
		return buf.ReadFloat64()
	default:
		return unpackInt(t.Name, buf)
	}
}

func unpackInt(typeName string, buf *Buffer) (interface{}, error) {
	switch typeName {
	case "int8":
		v, err := buf.ReadInt8()
		return int64(v), err
	case "int16":
		v, err := buf.ReadInt16()
		return int64(v), err
	case "int32":
		v, err := buf.ReadInt32()
		return int64(v), err
	case "int64":
		return buf.ReadInt64()
	case "uint8":
		v, err := buf.ReadUint8()
		return uint64(v), err
	case "uint16":
		v, err := buf.ReadUint16()
		return uint64(v), err
	case "uint32":
		v, err := buf.ReadUint32()
		return uint64(v), err
	case "uint64":
		return buf.ReadUint64()
	}
	return nil, fmt.Errorf("unknown type %q", typeName)
}
