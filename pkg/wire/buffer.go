// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package wire implements the Bakelite wire format: the byte-stream
// buffer, per-type serialization rules, COBS framing, CRC checksums,
// the framer state machine, and a schema-driven dynamic codec.
//
// Every byte this package produces or consumes is identical to the
// output of the generated C, C++, and Python targets for the same
// logical message.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// Wire-level errors. These are returned by pack/unpack paths and never
// corrupt buffer or framer state.
var (
	ErrWrite    = errors.New("write past end of buffer")
	ErrRead     = errors.New("read past end of buffer")
	ErrSeek     = errors.New("seek out of bounds")
	ErrCapacity = errors.New("value exceeds declared capacity")
)

// Buffer is a fixed-size byte region with a read/write position. It is
// the stream type the serializer operates on; the caller owns the
// underlying storage.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps a caller-owned byte region.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Pos returns the current position.
func (b *Buffer) Pos() int { return b.pos }

// Size returns the total region size.
func (b *Buffer) Size() int { return len(b.data) }

// Remaining returns the bytes left between the position and the end.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// Bytes returns the region written so far.
func (b *Buffer) Bytes() []byte { return b.data[:b.pos] }

// Reset moves the position back to the start.
func (b *Buffer) Reset() { b.pos = 0 }

// Seek sets the position. Fails with ErrSeek outside the region.
func (b *Buffer) Seek(pos int) error {
	if pos < 0 || pos >= len(b.data) {
		return ErrSeek
	}
	b.pos = pos
	return nil
}

// Write copies p at the position. Fails with ErrWrite when p does not
// fit; the position is unchanged on failure.
func (b *Buffer) Write(p []byte) error {
	if b.pos+len(p) > len(b.data) {
		return ErrWrite
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return nil
}

// Read copies len(p) bytes from the position into p. Fails with
// ErrRead past the region end; the position is unchanged on failure.
func (b *Buffer) Read(p []byte) error {
	if b.pos+len(p) > len(b.data) {
		return ErrRead
	}
	copy(p, b.data[b.pos:])
	b.pos += len(p)
	return nil
}

func (b *Buffer) writeByte(v byte) error {
	if b.pos >= len(b.data) {
		return ErrWrite
	}
	b.data[b.pos] = v
	b.pos++
	return nil
}

func (b *Buffer) readByte() (byte, error) {
	if b.pos >= len(b.data) {
		return 0, ErrRead
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// WriteBool writes 0x01 for true, 0x00 for false.
func (b *Buffer) WriteBool(v bool) error {
	if v {
		return b.writeByte(1)
	}
	return b.writeByte(0)
}

func (b *Buffer) WriteUint8(v uint8) error { return b.writeByte(v) }
func (b *Buffer) WriteInt8(v int8) error   { return b.writeByte(byte(v)) }

func (b *Buffer) WriteUint16(v uint16) error {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return b.Write(tmp[:])
}

func (b *Buffer) WriteInt16(v int16) error { return b.WriteUint16(uint16(v)) }

func (b *Buffer) WriteUint32(v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return b.Write(tmp[:])
}

func (b *Buffer) WriteInt32(v int32) error { return b.WriteUint32(uint32(v)) }

func (b *Buffer) WriteUint64(v uint64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return b.Write(tmp[:])
}

func (b *Buffer) WriteInt64(v int64) error { return b.WriteUint64(uint64(v)) }

func (b *Buffer) WriteFloat32(v float32) error { return b.WriteUint32(math.Float32bits(v)) }
func (b *Buffer) WriteFloat64(v float64) error { return b.WriteUint64(math.Float64bits(v)) }

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.readByte()
	return v != 0, err
}

func (b *Buffer) ReadUint8() (uint8, error) { return b.readByte() }

func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.readByte()
	return int8(v), err
}

func (b *Buffer) ReadUint16() (uint16, error) {
	var tmp [2]byte
	if err := b.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(tmp[:]), nil
}

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) ReadUint32() (uint32, error) {
	var tmp [4]byte
	if err := b.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadUint64() (uint64, error) {
	var tmp [8]byte
	if err := b.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

// WriteBytes writes a variable-length byte field: one length byte
// followed by the content. Content longer than the declared capacity
// fails with ErrCapacity.
func (b *Buffer) WriteBytes(p []byte, capacity int) error {
	if len(p) > capacity || len(p) > 255 {
		return ErrCapacity
	}
	if err := b.writeByte(byte(len(p))); err != nil {
		return err
	}
	return b.Write(p)
}

// ReadBytes reads a variable-length byte field. A length prefix above
// the declared capacity fails with ErrCapacity.
func (b *Buffer) ReadBytes(capacity int) ([]byte, error) {
	n, err := b.readByte()
	if err != nil {
		return nil, err
	}
	if int(n) > capacity {
		return nil, ErrCapacity
	}
	out := make([]byte, n)
	if err := b.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteString writes the string's bytes followed by a single zero
// terminator. The capacity counts the terminator, so at most
// capacity-1 content bytes fit; longer strings and strings containing
// a zero byte fail with ErrCapacity.
func (b *Buffer) WriteString(s string, capacity int) error {
	if len(s) > capacity-1 {
		return ErrCapacity
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return ErrCapacity
		}
	}
	if err := b.Write([]byte(s)); err != nil {
		return err
	}
	return b.writeByte(0)
}

// ReadString consumes bytes up to and including the zero terminator
// and returns at most capacity-1 of them. When the content exceeds the
// capacity, the overflow is drained from the stream and discarded so
// that the following field still decodes.
func (b *Buffer) ReadString(capacity int) (string, error) {
	out := make([]byte, 0, capacity)
	for {
		c, err := b.readByte()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(out), nil
		}
		if len(out) < capacity-1 {
			out = append(out, c)
		}
	}
}
