// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// feedFrame pushes all bytes of a frame, asserting NotReady for every
// byte but the last, and returns the final result.
func feedFrame(t *testing.T, f *Framer, frame []byte) DecodeResult {
	t.Helper()
	for i := 0; i < len(frame)-1; i++ {
		r := f.ReadByte(frame[i])
		if r.State != DecodeNotReady {
			t.Fatalf("byte %d: state %v, want not ready", i, r.State)
		}
	}
	return f.ReadByte(frame[len(frame)-1])
}

func TestFramerEncode(t *testing.T) {
	f := NewFramer(256, schema.CRCNone)
	frame, err := f.EncodeCopy([]byte{0x11, 0x22, 0x33, 0x44})
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(frame) != "051122334400" {
		t.Errorf("got %x", frame)
	}
}

func TestFramerEncodeZeroLength(t *testing.T) {
	f := NewFramer(256, schema.CRCNone)
	frame, err := f.EncodeCopy(nil)
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(frame) != "0100" {
		t.Errorf("got %x", frame)
	}
}

func TestFramerEncodeOneByte(t *testing.T) {
	f := NewFramer(256, schema.CRCNone)
	frame, err := f.EncodeCopy([]byte{0x22})
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(frame) != "022200" {
		t.Errorf("got %x", frame)
	}
}

func TestFramerDecode(t *testing.T) {
	f := NewFramer(256, schema.CRCNone)
	r := feedFrame(t, f, []byte{0x05, 0x11, 0x22, 0x33, 0x44, 0x00})
	if r.State != DecodeOK {
		t.Fatalf("state = %v", r.State)
	}
	if !bytes.Equal(r.Data, []byte{0x11, 0x22, 0x33, 0x44}) {
		t.Errorf("payload = %x", r.Data)
	}
}

// The Ack scenario: id 2, code 0x22, CRC8. The CRC byte is 0xC4 and
// the full frame is 04 02 22 c4 00.
func TestFramerAckCRC8(t *testing.T) {
	f := NewFramer(16, schema.CRC8)
	frame, err := f.EncodeCopy([]byte{0x02, 0x22})
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(frame) != "040222c400" {
		t.Errorf("got %x", frame)
	}

	r := feedFrame(t, f, frame)
	if r.State != DecodeOK {
		t.Fatalf("state = %v", r.State)
	}
	if !bytes.Equal(r.Data, []byte{0x02, 0x22}) {
		t.Errorf("payload = %x", r.Data)
	}
}

// Zero-copy path: a message written at MessageOffset survives encode
// and arrives back at the same offset after decode.
func TestFramerZeroCopyOverlay(t *testing.T) {
	f := NewFramer(64, schema.CRC16)
	msg := f.MessageBuffer()
	payload := []byte{0x01, 0xAB, 0x00, 0xCD}
	copy(msg, payload)

	frame, err := f.Encode(len(payload))
	if err != nil {
		t.Fatal(err)
	}

	r := feedFrame(t, f, frame)
	if r.State != DecodeOK {
		t.Fatalf("state = %v", r.State)
	}
	if !bytes.Equal(r.Data, payload) {
		t.Errorf("payload = %x", r.Data)
	}
	// The overlay pointer is the same region the send used.
	if !bytes.Equal(msg[:len(payload)], payload) {
		t.Error("decoded payload not rebased to message offset")
	}
}

func TestFramerCRCFailure(t *testing.T) {
	f := NewFramer(16, schema.CRC8)
	frame, err := f.EncodeCopy([]byte{0x02, 0x22})
	if err != nil {
		t.Fatal(err)
	}

	// Flip one bit in the encoded region (not the terminator).
	bad := append([]byte(nil), frame...)
	bad[2] ^= 0x01
	r := feedFrame(t, f, bad)
	if r.State != DecodeCRCFailure {
		t.Fatalf("state = %v, want CRC failure", r.State)
	}

	// The framer recovers: the next well-formed frame decodes.
	frame, err = f.EncodeCopy([]byte{0x02, 0x22})
	if err != nil {
		t.Fatal(err)
	}
	if r := feedFrame(t, f, frame); r.State != DecodeOK {
		t.Errorf("state after recovery = %v", r.State)
	}
}

func TestFramerCRCFailureEveryBit(t *testing.T) {
	f := NewFramer(16, schema.CRC8)
	frame, err := f.EncodeCopy([]byte{0x02, 0x22})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(frame)-1; i++ {
		for bit := 0; bit < 8; bit++ {
			bad := append([]byte(nil), frame...)
			bad[i] ^= 1 << bit
			var last DecodeResult
			for _, b := range bad {
				last = f.ReadByte(b)
				if last.State != DecodeNotReady {
					break
				}
			}
			if last.State == DecodeOK {
				t.Fatalf("byte %d bit %d: corruption not detected", i, bit)
			}
		}
	}
}

func TestFramerEmptyFrame(t *testing.T) {
	f := NewFramer(16, schema.CRCNone)
	r := f.ReadByte(0x00)
	if r.State != DecodeFailure {
		t.Errorf("state = %v, want failure", r.State)
	}
}

func TestFramerMalformedCOBS(t *testing.T) {
	f := NewFramer(16, schema.CRCNone)
	// Length code pointing past the frame end.
	r := feedFrame(t, f, []byte{0x09, 0x11, 0x00})
	if r.State != DecodeFailure {
		t.Errorf("state = %v, want failure", r.State)
	}
}

// Scenario: maxLength 2 with no CRC gives a 4-byte buffer; the fourth
// non-zero byte overruns and resets the read position.
func TestFramerBufferOverrun(t *testing.T) {
	f := NewFramer(2, schema.CRCNone)
	if f.BufferSize() != 4 {
		t.Fatalf("buffer size = %d, want 4", f.BufferSize())
	}
	for i := 0; i < 3; i++ {
		if r := f.ReadByte(0xAA); r.State != DecodeNotReady {
			t.Fatalf("byte %d: %v", i, r.State)
		}
	}
	if r := f.ReadByte(0xAA); r.State != DecodeBufferOverrun {
		t.Fatalf("state = %v, want overrun", r.State)
	}

	// Read position reset: a valid frame decodes afterwards.
	frame, err := f.EncodeCopy([]byte{0x01, 0x07})
	if err != nil {
		t.Fatal(err)
	}
	if r := feedFrame(t, f, frame); r.State != DecodeOK {
		t.Errorf("state after overrun = %v", r.State)
	}
}

// Garbage before a well-formed frame must not prevent its delivery.
func TestFramerNoiseThenFrame(t *testing.T) {
	f := NewFramer(64, schema.CRC8)
	frame, err := f.EncodeCopy([]byte{0x02, 0x22})
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte(nil), frame...)

	noise := []byte{0x17, 0x99, 0xFE, 0x00, 0x42, 0x00, 0x13}
	delivered := 0
	for _, b := range append(noise, want...) {
		if r := f.ReadByte(b); r.State == DecodeOK {
			delivered++
			if !bytes.Equal(r.Data, []byte{0x02, 0x22}) {
				t.Errorf("payload = %x", r.Data)
			}
		}
	}
	if delivered != 1 {
		t.Errorf("delivered %d frames, want exactly 1", delivered)
	}
}

// A 254-byte payload of 0xEE exercises the COBS block boundary through
// the framer: FF code, 254 data bytes, terminator.
func TestFramerBlockBoundary(t *testing.T) {
	payload := bytes.Repeat([]byte{0xEE}, 254)
	f := NewFramer(300, schema.CRCNone)
	frame, err := f.EncodeCopy(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 256 {
		t.Fatalf("frame length = %d, want 256", len(frame))
	}
	if frame[0] != 0xFF || frame[255] != 0x00 {
		t.Errorf("frame structure: %02x .. %02x", frame[0], frame[255])
	}

	r := feedFrame(t, f, frame)
	if r.State != DecodeOK {
		t.Fatalf("state = %v", r.State)
	}
	if !bytes.Equal(r.Data, payload) {
		t.Error("round trip mismatch")
	}
}

func TestFramerEncodeTooLarge(t *testing.T) {
	f := NewFramer(4, schema.CRCNone)
	if _, err := f.EncodeCopy(bytes.Repeat([]byte{1}, 32)); err == nil {
		t.Error("expected encode error")
	}
	// A failed send leaves the framer usable.
	if _, err := f.EncodeCopy([]byte{0x01}); err != nil {
		t.Errorf("framer unusable after failed encode: %v", err)
	}
}

func TestFramerCRC32Trailer(t *testing.T) {
	f := NewFramer(16, schema.CRC32)
	frame, err := f.EncodeCopy([]byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatal(err)
	}
	r := feedFrame(t, f, frame)
	if r.State != DecodeOK {
		t.Fatalf("state = %v", r.State)
	}
	if !bytes.Equal(r.Data, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("payload = %x", r.Data)
	}
}
