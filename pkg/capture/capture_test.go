// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestCaptureRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	records := []*Record{
		{TimeMicros: 1700000000000000, ID: 2, Name: "Ack", Payload: []byte{0x22}},
		{TimeMicros: 1700000000100000, ID: 9, Payload: []byte{0x01, 0x02}},
		{TimeMicros: 1700000000200000, ID: -1, Err: "CRC mismatch"},
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}

	r := NewReader(&buf)
	for i, want := range records {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if got.ID != want.ID || got.Name != want.Name || got.Err != want.Err {
			t.Errorf("record %d: got %+v, want %+v", i, got, want)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("record %d: payload %x != %x", i, got.Payload, want.Payload)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestCaptureTimestamp(t *testing.T) {
	now := time.Now().Truncate(time.Microsecond)
	rec := Record{TimeMicros: now.UnixMicro()}
	if !rec.Time().Equal(now) {
		t.Errorf("timestamp round trip: %v != %v", rec.Time(), now)
	}
}

func TestCaptureEmptyLog(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected EOF on empty log, got %v", err)
	}
}
