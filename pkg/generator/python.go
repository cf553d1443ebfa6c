// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// The python backend is the generic host target: dataclasses with
// owned containers for variable-length fields, packing through the
// struct module, and a Protocol class over the shipped runtime.

func init() { register(&pythonBackend{}) }

type pythonBackend struct{}

func (b *pythonBackend) Name() string { return "python" }

func (b *pythonBackend) Runtime() ([]byte, error) {
	return []byte(pythonRuntime), nil
}

// struct-module format characters, little-endian
var pyFormatMap = map[string]string{
	"bool":    "?",
	"int8":    "b",
	"uint8":   "B",
	"int16":   "h",
	"uint16":  "H",
	"int32":   "i",
	"uint32":  "I",
	"int64":   "q",
	"uint64":  "Q",
	"float32": "f",
	"float64": "d",
}

var pyWidthMap = map[string]int{
	"bool": 1, "int8": 1, "uint8": 1,
	"int16": 2, "uint16": 2,
	"int32": 4, "uint32": 4, "float32": 4,
	"int64": 8, "uint64": 8, "float64": 8,
}

func (b *pythonBackend) Generate(s *schema.Schema) ([]byte, error) {
	var out bytes.Buffer
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&out, format, args...)
	}

	w("\"\"\"Generated protocol definitions. Do not edit.\"\"\"\n\n")
	w("import struct as _struct\n")
	w("from dataclasses import dataclass, field\n")
	w("from enum import Enum\n\n")
	if s.Protocol != nil {
		w("from bakelite_runtime import ProtocolBase, Registry, SerializationError\n\n")
	} else {
		w("from bakelite_runtime import Registry, SerializationError\n\n")
	}
	w("_registry = Registry()\n\n\n")

	for _, e := range s.Enums {
		b.emitEnum(w, e)
	}
	for _, st := range sortStructs(s) {
		b.emitStruct(w, s, st)
	}
	if s.Protocol != nil {
		b.emitProtocol(w, s)
	}

	return out.Bytes(), nil
}

// sortStructs orders structs so that every struct appears after the
// structs its fields reference, which lets dataclass defaults use the
// referenced class directly.
func sortStructs(s *schema.Schema) []*schema.Struct {
	var order []*schema.Struct
	state := make(map[string]int)

	var visit func(st *schema.Struct)
	visit = func(st *schema.Struct) {
		if state[st.Name] != 0 {
			return
		}
		state[st.Name] = 1
		for _, f := range st.Fields {
			if dep := s.Struct(f.Type.Name); dep != nil {
				visit(dep)
			}
		}
		order = append(order, st)
	}
	for _, st := range s.Structs {
		visit(st)
	}
	return order
}

func (b *pythonBackend) emitEnum(w func(string, ...interface{}), e *schema.Enum) {
	fc := pyFormatMap[e.Type.Name]
	width := pyWidthMap[e.Type.Name]

	w("class %s(Enum):\n", e.Name)
	for _, v := range e.Values {
		if v.Comment != "" {
			w("    %s = %d  # %s\n", v.Name, v.Value, v.Comment)
		} else {
			w("    %s = %d\n", v.Name, v.Value)
		}
	}
	w("\n")
	w("    def pack(self) -> bytes:\n")
	w("        return _struct.pack(\"<%s\", self.value)\n\n", fc)
	w("    @classmethod\n")
	w("    def unpack(cls, data, offset=0):\n")
	w("        (value,) = _struct.unpack_from(\"<%s\", data, offset)\n", fc)
	w("        return cls(value), %d\n\n\n", width)
	w("_registry.register(\"%s\", %s)\n\n\n", e.Name, e.Name)
}

// pyDefault returns the dataclass default for a field.
func pyDefault(s *schema.Schema, f schema.Field) string {
	if f.IsArray() {
		return "field(default_factory=list)"
	}
	t := f.Type
	switch {
	case t.IsString():
		return `""`
	case t.IsBytes():
		return `b""`
	case t.Name == "bool":
		return "False"
	case t.Name == "float32" || t.Name == "float64":
		return "0.0"
	}
	if e := s.Enum(t.Name); e != nil {
		return fmt.Sprintf("%s.%s", e.Name, e.Values[0].Name)
	}
	if s.Struct(t.Name) != nil {
		return fmt.Sprintf("field(default_factory=%s)", t.Name)
	}
	return "0"
}

// pyAnnotation returns the dataclass type annotation for a field.
func pyAnnotation(s *schema.Schema, f schema.Field) string {
	t := f.Type
	var elem string
	switch {
	case t.IsString():
		elem = "str"
	case t.IsBytes():
		elem = "bytes"
	case t.Name == "bool":
		elem = "bool"
	case t.Name == "float32" || t.Name == "float64":
		elem = "float"
	case schema.IsPrimitive(t.Name):
		elem = "int"
	default:
		elem = t.Name
	}
	if f.IsArray() {
		return "list[" + elem + "]"
	}
	return elem
}

func (b *pythonBackend) emitStruct(w func(string, ...interface{}), s *schema.Schema, st *schema.Struct) {
	w("@dataclass\n")
	w("class %s:\n", st.Name)
	for _, f := range st.Fields {
		if f.Comment != "" {
			w("    %s: %s = %s  # %s\n", f.Name, pyAnnotation(s, f), pyDefault(s, f), f.Comment)
		} else {
			w("    %s: %s = %s\n", f.Name, pyAnnotation(s, f), pyDefault(s, f))
		}
	}
	w("\n")

	w("    def pack(self) -> bytes:\n")
	w("        buf = bytearray()\n")
	for _, f := range st.Fields {
		b.emitPackField(w, s, f)
	}
	w("        return bytes(buf)\n\n")

	w("    @classmethod\n")
	w("    def unpack(cls, data, offset=0):\n")
	w("        start = offset\n")
	w("        self = cls()\n")
	for _, f := range st.Fields {
		b.emitUnpackField(w, s, f)
	}
	w("        return self, offset - start\n\n\n")
	w("_registry.register(\"%s\", %s)\n\n\n", st.Name, st.Name)
}

func (b *pythonBackend) emitPackValue(w func(string, ...interface{}), s *schema.Schema, t schema.TypeRef, expr, indent string) {
	switch {
	case t.IsString():
		w("%s_b = %s.encode(\"utf-8\")\n", indent, expr)
		w("%sif len(_b) > %d:\n", indent, t.Size-1)
		w("%s    raise SerializationError(\"%s exceeds %d bytes\")\n", indent, expr, t.Size-1)
		w("%sbuf += _b + b\"\\x00\"\n", indent, )
	case t.IsBytes():
		w("%sif len(%s) > %d:\n", indent, expr, t.Size)
		w("%s    raise SerializationError(\"%s exceeds %d bytes\")\n", indent, expr, t.Size)
		w("%sbuf += _struct.pack(\"<B\", len(%s)) + bytes(%s)\n", indent, expr, expr)
	default:
		if s.Enum(t.Name) != nil || s.Struct(t.Name) != nil {
			w("%sbuf += %s.pack()\n", indent, expr)
		} else {
			w("%sbuf += _struct.pack(\"<%s\", %s)\n", indent, pyFormatMap[t.Name], expr)
		}
	}
}

func (b *pythonBackend) emitPackField(w func(string, ...interface{}), s *schema.Schema, f schema.Field) {
	expr := "self." + f.Name
	if !f.IsArray() {
		b.emitPackValue(w, s, f.Type, expr, "        ")
		return
	}
	w("        if len(%s) > %d:\n", expr, f.ArraySize)
	w("            raise SerializationError(\"%s exceeds %d elements\")\n", expr, f.ArraySize)
	w("        buf += _struct.pack(\"<B\", len(%s))\n", expr)
	w("        for _item in %s:\n", expr)
	b.emitPackValue(w, s, f.Type, "_item", "            ")
}

func (b *pythonBackend) emitUnpackValue(w func(string, ...interface{}), s *schema.Schema, t schema.TypeRef, target, indent string) {
	switch {
	case t.IsString():
		w("%stry:\n", indent)
		w("%s    _end = data.index(0, offset)\n", indent)
		w("%sexcept ValueError:\n", indent)
		w("%s    raise SerializationError(\"unterminated string\") from None\n", indent)
		w("%s%s = bytes(data[offset:_end])[:%d].decode(\"utf-8\")\n", indent, target, t.Size-1)
		w("%soffset = _end + 1\n", indent)
	case t.IsBytes():
		w("%s(_len,) = _struct.unpack_from(\"<B\", data, offset)\n", indent)
		w("%soffset += 1\n", indent)
		w("%sif _len > %d:\n", indent, t.Size)
		w("%s    raise SerializationError(\"%s exceeds %d bytes\")\n", indent, target, t.Size)
		w("%s%s = bytes(data[offset:offset + _len])\n", indent, target)
		w("%soffset += _len\n", indent)
	default:
		if s.Enum(t.Name) != nil || s.Struct(t.Name) != nil {
			w("%s%s, _n = %s.unpack(data, offset)\n", indent, target, t.Name)
			w("%soffset += _n\n", indent)
		} else {
			w("%s(%s,) = _struct.unpack_from(\"<%s\", data, offset)\n", indent, target, pyFormatMap[t.Name])
			w("%soffset += %d\n", indent, pyWidthMap[t.Name])
		}
	}
}

func (b *pythonBackend) emitUnpackField(w func(string, ...interface{}), s *schema.Schema, f schema.Field) {
	target := "self." + f.Name
	if !f.IsArray() {
		b.emitUnpackValue(w, s, f.Type, target, "        ")
		return
	}
	w("        (_count,) = _struct.unpack_from(\"<B\", data, offset)\n")
	w("        offset += 1\n")
	w("        if _count > %d:\n", f.ArraySize)
	w("            raise SerializationError(\"%s exceeds %d elements\")\n", target, f.ArraySize)
	w("        %s = []\n", target)
	w("        for _ in range(_count):\n")
	b.emitUnpackValue(w, s, f.Type, "_item", "            ")
	w("            %s.append(_item)\n", target)
}

func (b *pythonBackend) emitProtocol(w func(string, ...interface{}), s *schema.Schema) {
	p := s.Protocol
	ids := make([]string, 0, len(p.MessageIDs))
	for _, id := range p.MessageIDs {
		ids = append(ids, fmt.Sprintf("%q: %d", id.Name, id.Number))
	}

	w("class Protocol(ProtocolBase):\n")
	w("    MAX_LENGTH = %d\n\n", s.MaxLength())
	w("    def __init__(self, stream, **kwargs):\n")
	w("        super().__init__(\n")
	w("            stream=stream,\n")
	w("            registry=_registry,\n")
	w("            message_ids={%s},\n", strings.Join(ids, ", "))
	w("            crc=%q,\n", strings.ToLower(p.CRC.String()))
	w("            max_length=%d,\n", s.MaxLength())
	w("            **kwargs,\n")
	w("        )\n")
}
