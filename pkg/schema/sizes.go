// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package schema

// SizeKind classifies a type's wire-size behavior.
type SizeKind int

const (
	// SizeFixed means min == max with no variable components.
	SizeFixed SizeKind = iota
	// SizeBounded means variable with a calculable maximum.
	SizeBounded
)

func (k SizeKind) String() string {
	if k == SizeFixed {
		return "fixed"
	}
	return "bounded"
}

// SizeInfo is the min/max wire size of a type or struct in bytes.
type SizeInfo struct {
	Min  int
	Max  int
	Kind SizeKind
}

// CobsOverhead returns the number of COBS code bytes needed to encode
// size source bytes.
func CobsOverhead(size int) int {
	return (size + 253) / 254
}

// FramerBufferSize returns the buffer a framer needs for one
// worst-case frame: COBS prefix, payload, CRC trailer, and the zero
// terminator.
func FramerBufferSize(maxMessage, crcWidth int) int {
	return CobsOverhead(maxMessage+crcWidth) + maxMessage + crcWidth + 1
}

// MessageOffset returns the offset of the message area inside a framer
// buffer sized with FramerBufferSize.
func MessageOffset(maxMessage, crcWidth int) int {
	return CobsOverhead(maxMessage + crcWidth)
}

// TypeSize returns the wire size of a type reference.
//
// string[N] occupies at most N bytes on the wire: up to N-1 content
// bytes plus the terminator. bytes[N] occupies 1+N: a length byte plus
// up to N content bytes.
func (s *Schema) TypeSize(t TypeRef) SizeInfo {
	if w, ok := primitiveSizes[t.Name]; ok {
		return SizeInfo{Min: w, Max: w, Kind: SizeFixed}
	}
	switch t.Name {
	case "bytes":
		return SizeInfo{Min: 1, Max: 1 + t.Size, Kind: SizeBounded}
	case "string":
		return SizeInfo{Min: 1, Max: t.Size, Kind: SizeBounded}
	}
	if e := s.Enum(t.Name); e != nil {
		w := PrimitiveSize(e.Type.Name)
		return SizeInfo{Min: w, Max: w, Kind: SizeFixed}
	}
	return s.StructSize(t.Name)
}

// FieldSize returns the wire size of a struct field, accounting for
// the outer array modifier.
func (s *Schema) FieldSize(f Field) SizeInfo {
	elem := s.TypeSize(f.Type)
	if !f.IsArray() {
		return elem
	}
	// Arrays are variable length: a length byte plus up to N elements.
	return SizeInfo{Min: 1, Max: 1 + f.ArraySize*elem.Max, Kind: SizeBounded}
}

// StructSize returns the wire size of a declared struct.
func (s *Schema) StructSize(name string) SizeInfo {
	if info, ok := s.sizes[name]; ok {
		return info
	}
	st := s.Struct(name)
	info := SizeInfo{Kind: SizeFixed}
	for _, f := range st.Fields {
		fs := s.FieldSize(f)
		info.Min += fs.Min
		info.Max += fs.Max
		if fs.Kind == SizeBounded {
			info.Kind = SizeBounded
		}
	}
	s.sizes[name] = info
	return info
}

// MaxMessageSize returns the largest wire size among the structs
// assigned message ids, excluding the id byte. Zero when the schema
// has no protocol block or no message ids.
func (s *Schema) MaxMessageSize() int {
	max := 0
	if s.Protocol == nil {
		return 0
	}
	for _, id := range s.Protocol.MessageIDs {
		if sz := s.StructSize(id.Name).Max; sz > max {
			max = sz
		}
	}
	return max
}

// MinMessageSize returns the smallest wire size among the structs
// assigned message ids.
func (s *Schema) MinMessageSize() int {
	if s.Protocol == nil || len(s.Protocol.MessageIDs) == 0 {
		return 0
	}
	min := -1
	for _, id := range s.Protocol.MessageIDs {
		if sz := s.StructSize(id.Name).Min; min < 0 || sz < min {
			min = sz
		}
	}
	return min
}

// MaxLength returns the protocol's effective payload limit: the
// declared maxLength, or, when the declaration is absent, the derived
// maximum message size plus the CRC width. A message's serialized size
// plus its CRC trailer never exceeds this value.
func (s *Schema) MaxLength() int {
	if s.Protocol == nil {
		return 0
	}
	if s.Protocol.MaxLength > 0 {
		return s.Protocol.MaxLength
	}
	return s.MaxMessageSize() + s.Protocol.CRC.Width()
}

// RequiredBufferSize returns the framer buffer size for this protocol.
// The extra byte beyond MaxLength and the CRC trailer is the zero
// terminator.
func (s *Schema) RequiredBufferSize() int {
	if s.Protocol == nil {
		return 0
	}
	return FramerBufferSize(s.MaxLength(), s.Protocol.CRC.Width())
}

// EstimatedRAM returns a rough per-target RAM estimate for the tiny
// runtimes: the frame buffer plus framer and protocol state.
func (s *Schema) EstimatedRAM() int {
	if s.Protocol == nil {
		return 0
	}
	const framerState = 8
	const protocolState = 16
	return s.RequiredBufferSize() + framerState + protocolState
}
