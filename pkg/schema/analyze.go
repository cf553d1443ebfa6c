// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package schema

import "fmt"

// ValidationError is a schema-level error found during semantic
// analysis. It names the offending declaration.
type ValidationError struct {
	Decl string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Decl == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Decl, e.Msg)
}

func validationErrorf(decl, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Decl: decl, Msg: fmt.Sprintf(format, args...)}
}

// Schema is the validated declaration graph. All references resolve,
// all invariants hold, and size queries are safe to call.
type Schema struct {
	Enums    []*Enum
	Structs  []*Struct
	Protocol *Protocol
	Comments []string

	enumsByName   map[string]*Enum
	structsByName map[string]*Struct
	idsByNumber   map[int]string
	sizes         map[string]SizeInfo
}

// Enum returns the named enum, or nil.
func (s *Schema) Enum(name string) *Enum { return s.enumsByName[name] }

// Struct returns the named struct, or nil.
func (s *Schema) Struct(name string) *Struct { return s.structsByName[name] }

// MessageName returns the struct name assigned to a message id, or ""
// when the id is unassigned.
func (s *Schema) MessageName(id int) string { return s.idsByNumber[id] }

// MessageID returns the id assigned to a struct name, or 0.
func (s *Schema) MessageID(name string) int {
	if s.Protocol == nil {
		return 0
	}
	for _, m := range s.Protocol.MessageIDs {
		if m.Name == name {
			return m.Number
		}
	}
	return 0
}

// Load parses and analyzes a definition file in one step.
func Load(src string) (*Schema, error) {
	f, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Analyze(f)
}

// Analyze runs semantic analysis over a parsed file. Pass one
// registers every declaration by name; pass two resolves field and
// enum references and checks the schema invariants:
//
//  1. every referenced type resolves to a declared enum or struct
//  2. message ids are unique and in 1..255
//  3. no struct transitively contains itself
//  4. declared capacities fit the one-byte length prefix
//  5. message sizes plus the CRC trailer fit maxLength
//  6. enum values are unique and representable in the underlying type
func Analyze(f *File) (*Schema, error) {
	s := &Schema{
		Enums:    f.Enums,
		Structs:  f.Structs,
		Protocol: f.Protocol,
		Comments: f.Comments,

		enumsByName:   make(map[string]*Enum),
		structsByName: make(map[string]*Struct),
		idsByNumber:   make(map[int]string),
		sizes:         make(map[string]SizeInfo),
	}

	// Pass 1: register declarations.
	for _, e := range f.Enums {
		if s.enumsByName[e.Name] != nil {
			return nil, validationErrorf(e.Name, "duplicate enum declaration")
		}
		if s.structsByName[e.Name] != nil {
			return nil, validationErrorf(e.Name, "name already declared as a struct")
		}
		s.enumsByName[e.Name] = e
	}
	for _, st := range f.Structs {
		if s.structsByName[st.Name] != nil {
			return nil, validationErrorf(st.Name, "duplicate struct declaration")
		}
		if s.enumsByName[st.Name] != nil {
			return nil, validationErrorf(st.Name, "name already declared as an enum")
		}
		s.structsByName[st.Name] = st
	}

	// Pass 2: resolve references and check invariants.
	for _, e := range f.Enums {
		if err := s.checkEnum(e); err != nil {
			return nil, err
		}
	}
	for _, st := range f.Structs {
		if err := s.checkStruct(st); err != nil {
			return nil, err
		}
	}
	if err := s.checkCycles(); err != nil {
		return nil, err
	}
	if err := s.checkProtocol(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) checkEnum(e *Enum) error {
	width, ok := primitiveSizes[e.Type.Name]
	if !ok || e.Type.Name == "bool" || e.Type.Name == "float32" || e.Type.Name == "float64" {
		return validationErrorf(e.Name, "enum underlying type must be an integer primitive, got %q", e.Type.Name)
	}
	signed := e.Type.Name[0] == 'i'

	seen := make(map[string]bool)
	values := make(map[int64]bool)
	for _, v := range e.Values {
		if seen[v.Name] {
			return validationErrorf(e.Name, "duplicate enum value name %q", v.Name)
		}
		seen[v.Name] = true
		if values[v.Value] {
			return validationErrorf(e.Name, "duplicate enum value %d", v.Value)
		}
		values[v.Value] = true
		if !intFits(v.Value, width, signed) {
			return validationErrorf(e.Name, "value %s = %d does not fit in %s", v.Name, v.Value, e.Type.Name)
		}
	}
	return nil
}

func intFits(v int64, width int, signed bool) bool {
	bits := uint(width * 8)
	if signed {
		min := int64(-1) << (bits - 1)
		max := int64(1)<<(bits-1) - 1
		return v >= min && v <= max
	}
	if v < 0 {
		return false
	}
	if bits == 64 {
		return true
	}
	return v <= int64(1)<<bits-1
}

func (s *Schema) checkStruct(st *Struct) error {
	if len(st.Fields) == 0 {
		return validationErrorf(st.Name, "struct has no fields")
	}
	seen := make(map[string]bool)
	for _, f := range st.Fields {
		if seen[f.Name] {
			return validationErrorf(st.Name, "duplicate field name %q", f.Name)
		}
		seen[f.Name] = true

		switch {
		case f.Type.IsBytes() || f.Type.IsString():
			// Capacities must fit the one-byte length prefix.
			if f.Type.Size > 255 {
				return validationErrorf(st.Name, "field %s: capacity %d exceeds 255", f.Name, f.Type.Size)
			}
		case IsPrimitive(f.Type.Name):
		default:
			if s.enumsByName[f.Type.Name] == nil && s.structsByName[f.Type.Name] == nil {
				return validationErrorf(st.Name, "field %s references undeclared type %q", f.Name, f.Type.Name)
			}
		}
		if f.ArraySize > 255 {
			return validationErrorf(st.Name, "field %s: array size %d exceeds 255", f.Name, f.ArraySize)
		}
	}
	return nil
}

// checkCycles rejects structs that transitively contain themselves.
func (s *Schema) checkCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return validationErrorf(name, "struct contains itself")
		case done:
			return nil
		}
		state[name] = visiting
		for _, f := range s.structsByName[name].Fields {
			if s.structsByName[f.Type.Name] != nil {
				if err := visit(f.Type.Name); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}

	for _, st := range s.Structs {
		if err := visit(st.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) checkProtocol() error {
	p := s.Protocol
	if p == nil {
		return nil
	}
	if p.Framing == "" {
		return validationErrorf("protocol", "a framing type must be specified")
	}

	names := make(map[string]bool)
	for _, id := range p.MessageIDs {
		if id.Number == 0 {
			return validationErrorf(id.Name, "message id 0 is reserved for the frame delimiter")
		}
		if id.Number < 1 || id.Number > 255 {
			return validationErrorf(id.Name, "message id %d out of range 1..255", id.Number)
		}
		if prev, dup := s.idsByNumber[id.Number]; dup {
			return validationErrorf(id.Name, "message id %d already assigned to %s", id.Number, prev)
		}
		if names[id.Name] {
			return validationErrorf(id.Name, "struct assigned more than one message id")
		}
		if s.structsByName[id.Name] == nil {
			return validationErrorf(id.Name, "assigned a message id, but not declared")
		}
		s.idsByNumber[id.Number] = id.Name
		names[id.Name] = true
	}

	// Messages plus the CRC trailer must fit the frame payload limit.
	if p.MaxLength > 0 {
		crc := p.CRC.Width()
		for _, id := range p.MessageIDs {
			if max := s.StructSize(id.Name).Max; max+crc > p.MaxLength {
				return validationErrorf(id.Name,
					"maximum serialized size %d plus %d CRC bytes exceeds maxLength %d", max, crc, p.MaxLength)
			}
		}
	}
	return nil
}
