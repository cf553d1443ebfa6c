// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package generator

import (
	"bytes"
	"fmt"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// The ctiny backend emits a single C99 header with packed structs,
// inline fixed-capacity storage for strings, bytes, and arrays, and a
// Protocol handler over the shared framer. Generated code never
// touches a heap.

func init() { register(&ctinyBackend{}) }

type ctinyBackend struct{}

func (b *ctinyBackend) Name() string { return "ctiny" }

func (b *ctinyBackend) Runtime() ([]byte, error) {
	return []byte(ctinyRuntime), nil
}

var ctinyTypeMap = map[string]string{
	"bool":    "bool",
	"int8":    "int8_t",
	"int16":   "int16_t",
	"int32":   "int32_t",
	"int64":   "int64_t",
	"uint8":   "uint8_t",
	"uint16":  "uint16_t",
	"uint32":  "uint32_t",
	"uint64":  "uint64_t",
	"float32": "float",
	"float64": "double",
}

// serializer suffix for a primitive, e.g. bakelite_write_uint8
var ctinySuffixMap = map[string]string{
	"bool":    "bool",
	"int8":    "int8",
	"int16":   "int16",
	"int32":   "int32",
	"int64":   "int64",
	"uint8":   "uint8",
	"uint16":  "uint16",
	"uint32":  "uint32",
	"uint64":  "uint64",
	"float32": "float32",
	"float64": "float64",
}

func (b *ctinyBackend) Generate(s *schema.Schema) ([]byte, error) {
	if s.Protocol != nil && s.Protocol.Framing != "cobs" {
		return nil, fmt.Errorf("ctiny target requires COBS framing")
	}

	var out bytes.Buffer
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&out, format, args...)
	}

	w("/* Generated by bakelite. Do not edit. */\n")
	w("#ifndef BAKELITE_PROTO_H\n#define BAKELITE_PROTO_H\n\n")
	w("#include \"bakelite.h\"\n\n")
	w("/* Zero-copy overlay requires unaligned access. */\n")
	w("BAKELITE_STATIC_ASSERT(BAKELITE_UNALIGNED_OK, platform_requires_unpacked_mode);\n\n")

	if len(s.Structs) > 0 {
		w("/* Forward declarations */\n")
		for _, st := range s.Structs {
			w("struct %s;\n", st.Name)
		}
		w("\n")
	}

	for _, e := range s.Enums {
		w("typedef enum {\n")
		for _, v := range e.Values {
			w("  %s_%s = %d,\n", e.Name, v.Name, v.Value)
		}
		w("} %s;\n\n", e.Name)
	}

	for _, st := range s.Structs {
		b.emitStruct(w, s, st)
	}

	if s.Protocol != nil {
		b.emitProtocol(w, s)
	}

	w("#endif /* BAKELITE_PROTO_H */\n")
	return out.Bytes(), nil
}

// memberDecl returns the C declaration for one struct field.
func (b *ctinyBackend) memberDecl(s *schema.Schema, f schema.Field) string {
	t := f.Type
	elem := ctinyTypeMap[t.Name]
	if elem == "" {
		elem = t.Name
	}

	if f.IsArray() {
		switch {
		case t.IsString():
			return fmt.Sprintf("struct { char data[%d][%d]; uint8_t len; } %s", f.ArraySize, t.Size, f.Name)
		case t.IsBytes():
			return fmt.Sprintf("struct { struct { uint8_t data[%d]; uint8_t len; } data[%d]; uint8_t len; } %s",
				t.Size, f.ArraySize, f.Name)
		default:
			return fmt.Sprintf("struct { %s data[%d]; uint8_t len; } %s", elem, f.ArraySize, f.Name)
		}
	}
	switch {
	case t.IsString():
		return fmt.Sprintf("char %s[%d]", f.Name, t.Size)
	case t.IsBytes():
		return fmt.Sprintf("struct { uint8_t data[%d]; uint8_t len; } %s", t.Size, f.Name)
	default:
		return fmt.Sprintf("%s %s", elem, f.Name)
	}
}

func (b *ctinyBackend) emitStruct(w func(string, ...interface{}), s *schema.Schema, st *schema.Struct) {
	w("typedef struct BAKELITE_PACKED {\n")
	for _, f := range st.Fields {
		if f.Comment != "" {
			w("  %s; /* %s */\n", b.memberDecl(s, f), f.Comment)
		} else {
			w("  %s;\n", b.memberDecl(s, f))
		}
	}
	w("} %s;\n\n", st.Name)

	w("static inline int %s_pack(const %s *self, Bakelite_Buffer *buf) {\n", st.Name, st.Name)
	w("  int rcode = 0;\n")
	for _, f := range st.Fields {
		b.emitWriteField(w, s, f)
	}
	w("  return rcode;\n}\n\n")

	w("static inline int %s_unpack(%s *self, Bakelite_Buffer *buf) {\n", st.Name, st.Name)
	w("  int rcode = 0;\n")
	for _, f := range st.Fields {
		b.emitReadField(w, s, f)
	}
	w("  return rcode;\n}\n\n")
}

// emitWriteElem emits the write statement for one non-array value
// named by expr, at the given indent.
func (b *ctinyBackend) emitWriteElem(w func(string, ...interface{}), s *schema.Schema, t schema.TypeRef, expr, indent string) {
	switch {
	case t.IsBytes():
		w("%sif ((rcode = bakelite_write_bytes(buf, %s.data, %s.len)) != 0) return rcode;\n", indent, expr, expr)
	case t.IsString():
		w("%sif ((rcode = bakelite_write_string(buf, %s, %d)) != 0) return rcode;\n", indent, expr, t.Size)
	default:
		if e := s.Enum(t.Name); e != nil {
			w("%sif ((rcode = bakelite_write_%s(buf, (%s)%s)) != 0) return rcode;\n",
				indent, ctinySuffixMap[e.Type.Name], ctinyTypeMap[e.Type.Name], expr)
		} else if s.Struct(t.Name) != nil {
			w("%sif ((rcode = %s_pack(&%s, buf)) != 0) return rcode;\n", indent, t.Name, expr)
		} else {
			w("%sif ((rcode = bakelite_write_%s(buf, %s)) != 0) return rcode;\n", indent, ctinySuffixMap[t.Name], expr)
		}
	}
}

func (b *ctinyBackend) emitWriteField(w func(string, ...interface{}), s *schema.Schema, f schema.Field) {
	expr := "self->" + f.Name
	if !f.IsArray() {
		b.emitWriteElem(w, s, f.Type, expr, "  ")
		return
	}
	w("  if ((rcode = bakelite_write_uint8(buf, %s.len)) != 0) return rcode;\n", expr)
	w("  for (uint8_t i = 0; i < %s.len; i++) {\n", expr)
	b.emitWriteElem(w, s, f.Type, expr+".data[i]", "    ")
	w("  }\n")
}

// emitReadElem emits the read statement for one non-array value.
func (b *ctinyBackend) emitReadElem(w func(string, ...interface{}), s *schema.Schema, t schema.TypeRef, expr, indent string) {
	switch {
	case t.IsBytes():
		w("%sif ((rcode = bakelite_read_bytes(buf, %s.data, &%s.len, %d)) != 0) return rcode;\n",
			indent, expr, expr, t.Size)
	case t.IsString():
		w("%sif ((rcode = bakelite_read_string(buf, %s, %d)) != 0) return rcode;\n", indent, expr, t.Size)
	default:
		if e := s.Enum(t.Name); e != nil {
			ut := ctinyTypeMap[e.Type.Name]
			w("%s{\n", indent)
			w("%s  %s tmp;\n", indent, ut)
			w("%s  if ((rcode = bakelite_read_%s(buf, &tmp)) != 0) return rcode;\n", indent, ctinySuffixMap[e.Type.Name])
			w("%s  %s = (%s)tmp;\n", indent, expr, t.Name)
			w("%s}\n", indent)
		} else if s.Struct(t.Name) != nil {
			w("%sif ((rcode = %s_unpack(&%s, buf)) != 0) return rcode;\n", indent, t.Name, expr)
		} else {
			w("%sif ((rcode = bakelite_read_%s(buf, &%s)) != 0) return rcode;\n", indent, ctinySuffixMap[t.Name], expr)
		}
	}
}

func (b *ctinyBackend) emitReadField(w func(string, ...interface{}), s *schema.Schema, f schema.Field) {
	expr := "self->" + f.Name
	if !f.IsArray() {
		b.emitReadElem(w, s, f.Type, expr, "  ")
		return
	}
	w("  {\n")
	w("    uint8_t count;\n")
	w("    if ((rcode = bakelite_read_uint8(buf, &count)) != 0) return rcode;\n")
	w("    if (count > %d) return BAKELITE_ERR_CAPACITY;\n", f.ArraySize)
	w("    %s.len = count;\n", expr)
	w("    for (uint8_t i = 0; i < count; i++) {\n")
	b.emitReadElem(w, s, f.Type, expr+".data[i]", "      ")
	w("    }\n")
	w("  }\n")
}

func (b *ctinyBackend) emitProtocol(w func(string, ...interface{}), s *schema.Schema) {
	p := s.Protocol
	crcEnum := map[schema.CRCKind]string{
		schema.CRCNone: "BAKELITE_CRC_NONE",
		schema.CRC8:    "BAKELITE_CRC_8",
		schema.CRC16:   "BAKELITE_CRC_16",
		schema.CRC32:   "BAKELITE_CRC_32",
	}[p.CRC]

	w("/* Protocol message IDs */\n")
	w("typedef enum {\n")
	w("  Protocol_NoMessage = -1,\n")
	for _, id := range p.MessageIDs {
		w("  Protocol_%s = %d,\n", id.Name, id.Number)
	}
	w("} Protocol_Message;\n\n")

	w("/* Protocol buffer sizes */\n")
	w("#define PROTOCOL_MAX_MESSAGE_SIZE %d\n", s.MaxLength())
	w("#define PROTOCOL_CRC_SIZE %d\n", p.CRC.Width())
	w("#define PROTOCOL_BUFFER_SIZE BAKELITE_FRAMER_BUFFER_SIZE(PROTOCOL_MAX_MESSAGE_SIZE, PROTOCOL_CRC_SIZE)\n")
	w("#define PROTOCOL_MESSAGE_OFFSET BAKELITE_FRAMER_MESSAGE_OFFSET(PROTOCOL_MAX_MESSAGE_SIZE, PROTOCOL_CRC_SIZE)\n\n")

	w(`/* Protocol handler */
typedef struct {
  int (*read_byte)(void);
  size_t (*write)(const uint8_t *data, size_t length);
  Bakelite_CobsFramer framer;
  uint8_t buffer[PROTOCOL_BUFFER_SIZE];
  Protocol_Message received_message;
  size_t received_frame_length;
} Protocol;

static inline void Protocol_init(Protocol *self,
                                 int (*read_byte)(void),
                                 size_t (*write)(const uint8_t *data, size_t length)) {
  self->read_byte = read_byte;
  self->write = write;
  self->received_message = Protocol_NoMessage;
  self->received_frame_length = 0;
  bakelite_framer_init(&self->framer, self->buffer, PROTOCOL_BUFFER_SIZE,
                       PROTOCOL_MAX_MESSAGE_SIZE, `)
	w("%s);\n", crcEnum)
	w(`}

/* Pull one byte from the read source and advance the framer. */
static inline Protocol_Message Protocol_poll(Protocol *self) {
  int byte = self->read_byte();
  if (byte < 0) {
    return Protocol_NoMessage;
  }

  Bakelite_DecodeResult result = bakelite_framer_read_byte(&self->framer, (uint8_t)byte);
  if (result.status == BAKELITE_DECODE_OK) {
    if (result.length == 0) {
      return Protocol_NoMessage;
    }
    self->received_message = (Protocol_Message)result.data[0];
    self->received_frame_length = result.length - 1;
    return self->received_message;
  }

  return Protocol_NoMessage;
}

/* Get pointer to message data in buffer (for zero-copy access) */
static inline uint8_t *Protocol_buffer(Protocol *self) {
  return bakelite_framer_buffer(&self->framer) + 1;
}

`)

	for _, id := range p.MessageIDs {
		w(`/* Zero-copy overlay for %[1]s */
static inline %[1]s *Protocol_message_%[1]s(Protocol *self) {
  return (%[1]s *)(bakelite_framer_buffer(&self->framer) + 1);
}

static inline int Protocol_send_zerocopy_%[1]s(Protocol *self) {
  bakelite_framer_buffer(&self->framer)[0] = (uint8_t)Protocol_%[1]s;
  size_t frame_size = sizeof(%[1]s) + 1;
  Bakelite_FramerResult result = bakelite_framer_encode(&self->framer, frame_size);

  if (result.status != 0) {
    return result.status;
  }

  size_t ret = self->write(result.data, result.length);
  return (ret == result.length) ? 0 : -1;
}

static inline int Protocol_send_%[1]s(Protocol *self, const %[1]s *msg) {
  uint8_t *msg_buf = bakelite_framer_buffer(&self->framer);
  msg_buf[0] = (uint8_t)Protocol_%[1]s;

  Bakelite_Buffer buf;
  bakelite_buffer_init(&buf, msg_buf + 1, bakelite_framer_buffer_size(&self->framer) - 1);
  int rcode = %[1]s_pack(msg, &buf);
  if (rcode != 0) {
    return rcode;
  }

  size_t frame_size = bakelite_buffer_pos(&buf) + 1;
  Bakelite_FramerResult result = bakelite_framer_encode(&self->framer, frame_size);

  if (result.status != 0) {
    return result.status;
  }

  size_t ret = self->write(result.data, result.length);
  return (ret == result.length) ? 0 : -1;
}

static inline int Protocol_decode_%[1]s(Protocol *self, %[1]s *msg) {
  if (self->received_message != Protocol_%[1]s) {
    return -1;
  }

  Bakelite_Buffer buf;
  bakelite_buffer_init(&buf,
    bakelite_framer_buffer(&self->framer) + 1, self->received_frame_length);
  return %[1]s_unpack(msg, &buf);
}

`, id.Name)
	}
}
