// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package generator

import (
	"bytes"
	"fmt"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// The cpptiny backend emits a C++ header with fixed-capacity
// SizedArray storage, pack/unpack method templates over a stream
// parameter, and a Protocol class over the shared framer. Generated
// code never allocates.

func init() { register(&cpptinyBackend{}) }

type cpptinyBackend struct{}

func (b *cpptinyBackend) Name() string { return "cpptiny" }

func (b *cpptinyBackend) Runtime() ([]byte, error) {
	return []byte(cpptinyRuntime), nil
}

var cppTypeMap = ctinyTypeMap

// memberDecl returns the C++ declaration for one struct field.
func (b *cpptinyBackend) memberDecl(f schema.Field) string {
	t := f.Type
	elem := cppTypeMap[t.Name]
	if elem == "" {
		elem = t.Name
	}

	if f.IsArray() {
		switch {
		case t.IsString():
			return fmt.Sprintf("Bakelite::SizedArray<char[%d], %d> %s", t.Size, f.ArraySize, f.Name)
		case t.IsBytes():
			return fmt.Sprintf("Bakelite::SizedArray<Bakelite::SizedArray<uint8_t, %d>, %d> %s",
				t.Size, f.ArraySize, f.Name)
		default:
			return fmt.Sprintf("Bakelite::SizedArray<%s, %d> %s", elem, f.ArraySize, f.Name)
		}
	}
	switch {
	case t.IsString():
		return fmt.Sprintf("char %s[%d]", f.Name, t.Size)
	case t.IsBytes():
		return fmt.Sprintf("Bakelite::SizedArray<uint8_t, %d> %s", t.Size, f.Name)
	default:
		return fmt.Sprintf("%s %s", elem, f.Name)
	}
}

func (b *cpptinyBackend) Generate(s *schema.Schema) ([]byte, error) {
	if s.Protocol != nil && s.Protocol.Framing != "cobs" {
		return nil, fmt.Errorf("cpptiny target requires COBS framing")
	}

	var out bytes.Buffer
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&out, format, args...)
	}

	w("/* Generated by bakelite. Do not edit. */\n")
	w("#pragma once\n\n")
	w("#include \"bakelite.h\"\n\n")
	w("static_assert(BAKELITE_UNALIGNED_OK, \"zero-copy overlay requires unaligned access\");\n\n")

	for _, e := range s.Enums {
		w("enum class %s : %s {\n", e.Name, cppTypeMap[e.Type.Name])
		for _, v := range e.Values {
			w("  %s = %d,\n", v.Name, v.Value)
		}
		w("};\n\n")
	}

	for _, st := range s.Structs {
		b.emitStruct(w, s, st)
	}

	if s.Protocol != nil {
		b.emitProtocol(w, s)
	}

	return out.Bytes(), nil
}

func (b *cpptinyBackend) emitStruct(w func(string, ...interface{}), s *schema.Schema, st *schema.Struct) {
	w("struct BAKELITE_PACKED %s {\n", st.Name)
	for _, f := range st.Fields {
		if f.Comment != "" {
			w("  %s; // %s\n", b.memberDecl(f), f.Comment)
		} else {
			w("  %s;\n", b.memberDecl(f))
		}
	}
	w("\n")

	w("  template <class T>\n")
	w("  int pack(T &stream) const {\n")
	w("    int rcode = 0;\n")
	for _, f := range st.Fields {
		b.emitWriteField(w, s, f)
	}
	w("    return rcode;\n")
	w("  }\n\n")

	w("  template <class T>\n")
	w("  int unpack(T &stream) {\n")
	w("    int rcode = 0;\n")
	for _, f := range st.Fields {
		b.emitReadField(w, s, f)
	}
	w("    return rcode;\n")
	w("  }\n")
	w("};\n\n")
}

func (b *cpptinyBackend) writeExpr(s *schema.Schema, t schema.TypeRef, expr string) string {
	switch {
	case t.IsBytes():
		return fmt.Sprintf("Bakelite::writeBytes(stream, %s)", expr)
	case t.IsString():
		return fmt.Sprintf("Bakelite::writeString(stream, %s)", expr)
	}
	if e := s.Enum(t.Name); e != nil {
		return fmt.Sprintf("Bakelite::write(stream, static_cast<%s>(%s))", cppTypeMap[e.Type.Name], expr)
	}
	if s.Struct(t.Name) != nil {
		return fmt.Sprintf("%s.pack(stream)", expr)
	}
	return fmt.Sprintf("Bakelite::write(stream, %s)", expr)
}

func (b *cpptinyBackend) readExpr(s *schema.Schema, t schema.TypeRef, expr string) string {
	switch {
	case t.IsBytes():
		return fmt.Sprintf("Bakelite::readBytes(stream, %s)", expr)
	case t.IsString():
		return fmt.Sprintf("Bakelite::readString(stream, %s)", expr)
	}
	if e := s.Enum(t.Name); e != nil {
		return fmt.Sprintf("Bakelite::read(stream, reinterpret_cast<%s *>(&%s))", cppTypeMap[e.Type.Name], expr)
	}
	if s.Struct(t.Name) != nil {
		return fmt.Sprintf("%s.unpack(stream)", expr)
	}
	return fmt.Sprintf("Bakelite::read(stream, &%s)", expr)
}

func (b *cpptinyBackend) emitWriteField(w func(string, ...interface{}), s *schema.Schema, f schema.Field) {
	if !f.IsArray() {
		w("    if ((rcode = %s) != 0) return rcode;\n", b.writeExpr(s, f.Type, f.Name))
		return
	}
	w("    rcode = Bakelite::writeArray(stream, %s, [](T &stream, const auto &val) {\n", f.Name)
	w("      return %s;\n", b.writeExpr(s, f.Type, "val"))
	w("    });\n")
	w("    if (rcode != 0) return rcode;\n")
}

func (b *cpptinyBackend) emitReadField(w func(string, ...interface{}), s *schema.Schema, f schema.Field) {
	if !f.IsArray() {
		w("    if ((rcode = %s) != 0) return rcode;\n", b.readExpr(s, f.Type, f.Name))
		return
	}
	w("    rcode = Bakelite::readArray(stream, %s, [](T &stream, auto *val) {\n", f.Name)
	w("      return %s;\n", b.readExpr(s, f.Type, "(*val)"))
	w("    });\n")
	w("    if (rcode != 0) return rcode;\n")
}

func (b *cpptinyBackend) emitProtocol(w func(string, ...interface{}), s *schema.Schema) {
	p := s.Protocol
	crcClass := map[schema.CRCKind]string{
		schema.CRCNone: "Bakelite::CrcNoop",
		schema.CRC8:    "Bakelite::Crc8",
		schema.CRC16:   "Bakelite::Crc16",
		schema.CRC32:   "Bakelite::Crc32",
	}[p.CRC]

	w("class Protocol {\n")
	w("public:\n")
	w("  enum class Message {\n")
	w("    NoMessage = -1,\n")
	for _, id := range p.MessageIDs {
		w("    %s = %d,\n", id.Name, id.Number)
	}
	w("  };\n\n")
	w("  constexpr static size_t MaxLength = %d;\n\n", s.MaxLength())
	w(`  Protocol(int (*readByte)(), size_t (*write)(const char *data, size_t length)) :
    m_readByte(readByte),
    m_write(write),
    m_received(Message::NoMessage),
    m_receivedLength(0)
  {}

  /// Pull one byte from the read source and advance the framer.
  Message poll() {
    int byte = m_readByte();
    if (byte < 0) {
      return Message::NoMessage;
    }

    auto result = m_framer.readByte((uint8_t)byte);
    if (result.status == Bakelite::CobsDecodeState::Decoded && result.length > 0) {
      m_received = (Message)result.data[0];
      m_receivedLength = result.length - 1;
      return m_received;
    }

    return Message::NoMessage;
  }

  /// Zero-copy overlay at the framer's message area.
  template <class M>
  M &message() {
    return *reinterpret_cast<M *>(m_framer.buffer() + 1);
  }

  /// Send the overlay message without copying.
  template <class M>
  int send() {
    m_framer.buffer()[0] = (uint8_t)messageId<M>();
    auto result = m_framer.encodeFrame(sizeof(M) + 1);
    if (result.status != 0) {
      return result.status;
    }
    size_t ret = m_write((const char *)result.data, result.length);
    return ret == result.length ? 0 : -1;
  }

  /// Pack and send a caller-owned message.
  template <class M>
  int send(const M &msg) {
    m_framer.buffer()[0] = (uint8_t)messageId<M>();
    Bakelite::BufferStream stream((char *)m_framer.buffer() + 1, m_framer.bufferSize() - 1);
    int rcode = msg.pack(stream);
    if (rcode != 0) {
      return rcode;
    }
    auto result = m_framer.encodeFrame(stream.pos() + 1);
    if (result.status != 0) {
      return result.status;
    }
    size_t ret = m_write((const char *)result.data, result.length);
    return ret == result.length ? 0 : -1;
  }

  /// Unpack the last received frame; -1 when the id does not match.
  template <class M>
  int decode(M &msg) {
    if (m_received != messageId<M>()) {
      return -1;
    }
    Bakelite::BufferStream stream((char *)m_framer.buffer() + 1, m_receivedLength);
    return msg.unpack(stream);
  }

  template <class M>
  static constexpr Message messageId();

private:
  int (*m_readByte)();
  size_t (*m_write)(const char *data, size_t length);
`)
	w("  Bakelite::CobsFramer<%s, MaxLength> m_framer;\n", crcClass)
	w(`  Message m_received;
  size_t m_receivedLength;
};

`)
	for _, id := range p.MessageIDs {
		w("template <>\n")
		w("constexpr Protocol::Message Protocol::messageId<%s>() { return Message::%s; }\n\n", id.Name, id.Name)
	}
}
