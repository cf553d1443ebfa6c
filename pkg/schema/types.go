// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package schema implements the Bakelite protocol definition language:
// lexing, parsing, semantic analysis, and wire-size calculation.
//
// A definition file declares enums, structs, and an optional protocol
// block. The package produces a validated Schema that code generators
// and the dynamic codec consume.
package schema

// Primitive wire widths in bytes.
var primitiveSizes = map[string]int{
	"bool":    1,
	"int8":    1,
	"uint8":   1,
	"int16":   2,
	"uint16":  2,
	"int32":   4,
	"uint32":  4,
	"int64":   8,
	"uint64":  8,
	"float32": 4,
	"float64": 8,
}

// IsPrimitive reports whether name is a fixed-width primitive type.
func IsPrimitive(name string) bool {
	_, ok := primitiveSizes[name]
	return ok
}

// PrimitiveSize returns the wire width of a fixed-width primitive.
func PrimitiveSize(name string) int {
	return primitiveSizes[name]
}

// TypeRef is a reference to a type as written in a field or enum
// declaration. For bytes[N] and string[N], Size holds the declared
// capacity. For primitives and user-defined types, Size is zero.
type TypeRef struct {
	Name string
	Size int
}

// IsBytes reports whether the reference is a bytes[N] type.
func (t TypeRef) IsBytes() bool { return t.Name == "bytes" }

// IsString reports whether the reference is a string[N] type.
func (t TypeRef) IsString() bool { return t.Name == "string" }

// AnnotationArg is a single argument to an annotation. Name is empty
// for positional arguments.
type AnnotationArg struct {
	Name  string
	Value string
}

// Annotation is an @name(args) marker on a declaration. Annotations
// carry no meaning to the core; they are preserved for backends.
type Annotation struct {
	Name string
	Args []AnnotationArg
}

// EnumValue is one name = value entry in an enum.
type EnumValue struct {
	Name        string
	Value       int64
	Comment     string
	Annotations []Annotation
}

// Enum is an enum declaration with an underlying primitive type.
type Enum struct {
	Name        string
	Type        TypeRef
	Values      []EnumValue
	Annotations []Annotation
}

// Field is a single struct member. ArraySize is zero when the field is
// not an array; otherwise the field is a variable-length array with up
// to ArraySize elements.
type Field struct {
	Name        string
	Type        TypeRef
	ArraySize   int
	Comment     string
	Annotations []Annotation
}

// IsArray reports whether the field carries an outer array modifier.
func (f Field) IsArray() bool { return f.ArraySize > 0 }

// Struct is a struct declaration with an ordered field list.
type Struct struct {
	Name        string
	Fields      []Field
	Annotations []Annotation
}

// CRCKind selects the frame checksum width.
type CRCKind int

const (
	CRCNone CRCKind = iota
	CRC8
	CRC16
	CRC32
)

// Width returns the checksum width in bytes.
func (c CRCKind) Width() int {
	switch c {
	case CRC8:
		return 1
	case CRC16:
		return 2
	case CRC32:
		return 4
	default:
		return 0
	}
}

func (c CRCKind) String() string {
	switch c {
	case CRC8:
		return "CRC8"
	case CRC16:
		return "CRC16"
	case CRC32:
		return "CRC32"
	default:
		return "none"
	}
}

// MessageID assigns a wire id to a message struct.
type MessageID struct {
	Name        string
	Number      int
	Comment     string
	Annotations []Annotation
}

// Protocol is the protocol block: framing, checksum, and the message
// id table. MaxLength is the largest message (id byte excluded) the
// framer must accommodate; zero means "derive from the schema".
type Protocol struct {
	MaxLength   int
	Framing     string
	CRC         CRCKind
	MessageIDs  []MessageID
	Annotations []Annotation
}

// File is the raw parse result before semantic analysis.
type File struct {
	Enums    []*Enum
	Structs  []*Struct
	Protocol *Protocol
	Comments []string
}
