// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture reads and writes frame capture logs. A log is a
// stream of CBOR-encoded records, one per decoded frame or decode
// error, written by the sniffer and replayed by the replay command.
// Records store the raw payload rather than decoded fields so a
// capture can be re-interpreted against a corrected schema.
package capture

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one captured frame.
type Record struct {
	// TimeMicros is the capture timestamp in Unix microseconds.
	TimeMicros int64 `cbor:"1,keyasint"`
	// ID is the message id byte, or -1 when no frame was decoded.
	ID int `cbor:"2,keyasint"`
	// Name is the schema struct name, empty for unassigned ids.
	Name string `cbor:"3,keyasint,omitempty"`
	// Payload is the decoded frame payload, message id excluded.
	Payload []byte `cbor:"4,keyasint,omitempty"`
	// Err records a framing or checksum failure.
	Err string `cbor:"5,keyasint,omitempty"`
}

// Time returns the capture timestamp.
func (r *Record) Time() time.Time {
	return time.UnixMicro(r.TimeMicros)
}

// Writer appends records to a capture log.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter writes a capture log to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// Write appends one record.
func (w *Writer) Write(r *Record) error {
	return w.enc.Encode(r)
}

// Reader iterates over a capture log.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader reads a capture log from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the log.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return &rec, nil
}
