// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"encoding/binary"
	"errors"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// DecodeState is the result of feeding one byte to the framer.
type DecodeState int

const (
	// DecodeOK means a complete frame was delivered.
	DecodeOK DecodeState = iota
	// DecodeNotReady is the normal steady state between frames.
	DecodeNotReady
	// DecodeFailure means the frame was malformed (bad COBS or empty).
	DecodeFailure
	// DecodeCRCFailure means the checksum did not match.
	DecodeCRCFailure
	// DecodeBufferOverrun means the frame outgrew the buffer.
	DecodeBufferOverrun
)

func (s DecodeState) String() string {
	switch s {
	case DecodeOK:
		return "ok"
	case DecodeNotReady:
		return "not ready"
	case DecodeFailure:
		return "malformed frame"
	case DecodeCRCFailure:
		return "CRC mismatch"
	case DecodeBufferOverrun:
		return "buffer overrun"
	default:
		return "unknown"
	}
}

// DecodeResult carries the state and, on DecodeOK, the decoded payload
// (message id byte included, CRC stripped). Data aliases the framer
// buffer and is valid until the next framer call.
type DecodeResult struct {
	State DecodeState
	Data  []byte
}

// ErrEncode is returned when a frame does not fit the framer buffer.
var ErrEncode = errors.New("frame does not fit framer buffer")

// Framer builds and parses COBS frames over a single reused buffer.
// The buffer is laid out as
//
//	[ COBS prefix | message area (maxMessage) | CRC | terminator ]
//
// Outbound messages are written at MessageOffset and encoded in place;
// inbound bytes accumulate from the buffer start and the decoded
// payload is moved back to MessageOffset, so one overlay pointer works
// for both directions. A Framer is not safe for concurrent use.
type Framer struct {
	buf        []byte
	maxMessage int
	crc        schema.CRCKind
	msgOffset  int
	readPos    int
}

// NewFramer returns a framer for payloads up to maxMessage bytes plus
// the chosen CRC trailer. The buffer is sized for one worst-case
// encoded frame.
func NewFramer(maxMessage int, crc schema.CRCKind) *Framer {
	return &Framer{
		buf:        make([]byte, schema.FramerBufferSize(maxMessage, crc.Width())),
		maxMessage: maxMessage,
		crc:        crc,
		msgOffset:  schema.MessageOffset(maxMessage, crc.Width()),
	}
}

// MessageOffset returns the offset of the message area.
func (f *Framer) MessageOffset() int { return f.msgOffset }

// MessageBuffer returns the zero-copy message area. Generated code and
// the dynamic codec place the id byte and payload here before Encode.
func (f *Framer) MessageBuffer() []byte {
	return f.buf[f.msgOffset:]
}

// BufferSize returns the total framer buffer size.
func (f *Framer) BufferSize() int { return len(f.buf) }

func (f *Framer) verifyCRC(payload, trailer []byte) bool {
	switch f.crc {
	case schema.CRC8:
		return CRC8(payload) == trailer[0]
	case schema.CRC16:
		return CRC16(payload) == binary.LittleEndian.Uint16(trailer)
	case schema.CRC32:
		return CRC32(payload) == binary.LittleEndian.Uint32(trailer)
	default:
		return true
	}
}

// Encode frames length bytes already present in the message area:
// append the CRC trailer, COBS-encode into the buffer start, and
// append the zero terminator. The returned slice aliases the buffer
// and is valid until the next framer call. A failed encode leaves the
// framer usable.
func (f *Framer) Encode(length int) ([]byte, error) {
	crcW := f.crc.Width()
	if length < 0 || f.msgOffset+length+crcW > len(f.buf) {
		return nil, ErrEncode
	}
	msg := f.buf[f.msgOffset : f.msgOffset+length]

	if crcW > 0 {
		switch f.crc {
		case schema.CRC8:
			f.buf[f.msgOffset+length] = CRC8(msg)
		case schema.CRC16:
			binary.LittleEndian.PutUint16(f.buf[f.msgOffset+length:], CRC16(msg))
		case schema.CRC32:
			binary.LittleEndian.PutUint32(f.buf[f.msgOffset+length:], CRC32(msg))
		}
	}

	n, status := CobsEncode(f.buf, f.buf[f.msgOffset:f.msgOffset+length+crcW])
	if status != CobsOK {
		return nil, ErrEncode
	}
	if n >= len(f.buf) {
		return nil, ErrEncode
	}
	f.buf[n] = 0
	return f.buf[:n+1], nil
}

// EncodeCopy copies data into the message area and frames it.
func (f *Framer) EncodeCopy(data []byte) ([]byte, error) {
	if f.msgOffset+len(data)+f.crc.Width() > len(f.buf) {
		return nil, ErrEncode
	}
	copy(f.buf[f.msgOffset:], data)
	return f.Encode(len(data))
}

// ReadByte advances the receive state machine by one byte.
//
// Bytes accumulate from the buffer start until a zero terminator.
// On the terminator the frame is COBS-decoded in place, the CRC
// verified and stripped, and the payload moved to MessageOffset so
// the send-side overlay pointer stays valid. Any failure resets the
// read position; the framer never needs re-initialization.
func (f *Framer) ReadByte(b byte) DecodeResult {
	f.buf[f.readPos] = b
	length := f.readPos + 1

	if b == 0 {
		f.readPos = 0
		return f.decodeFrame(length)
	}
	if length == len(f.buf) {
		f.readPos = 0
		return DecodeResult{State: DecodeBufferOverrun}
	}
	f.readPos++
	return DecodeResult{State: DecodeNotReady}
}

// Read feeds a whole chunk and returns results for every frame
// boundary hit. Convenience for transports that deliver more than one
// byte at a time.
func (f *Framer) Read(p []byte) []DecodeResult {
	var results []DecodeResult
	for _, b := range p {
		r := f.ReadByte(b)
		if r.State != DecodeNotReady {
			results = append(results, r)
		}
	}
	return results
}

func (f *Framer) decodeFrame(length int) DecodeResult {
	if length == 1 {
		// A bare terminator carries no frame.
		return DecodeResult{State: DecodeFailure}
	}
	length-- // discard the terminator

	n, status := CobsDecode(f.buf, f.buf[:length])
	if status != CobsOK {
		return DecodeResult{State: DecodeFailure}
	}

	crcW := f.crc.Width()
	if n < crcW {
		return DecodeResult{State: DecodeFailure}
	}
	payloadLen := n - crcW
	if crcW > 0 {
		if !f.verifyCRC(f.buf[:payloadLen], f.buf[payloadLen:n]) {
			return DecodeResult{State: DecodeCRCFailure}
		}
	}

	copy(f.buf[f.msgOffset:], f.buf[:payloadLen])
	return DecodeResult{
		State: DecodeOK,
		Data:  f.buf[f.msgOffset : f.msgOffset+payloadLen],
	}
}
