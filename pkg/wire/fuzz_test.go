// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 500
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 500
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// COBS identity: decode(encode(s)) == s and encode(s) contains no
// zero byte, for arbitrary payloads.
func TestFuzzCobsRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		size := rng.Intn(600)
		src := make([]byte, size)
		for i := range src {
			// Bias toward zeros to stress block handling.
			if rng.Intn(4) == 0 {
				src[i] = 0
			} else {
				src[i] = byte(rng.Intn(256))
			}
		}

		dst := make([]byte, CobsEncodeMax(size))
		n, status := CobsEncode(dst, src)
		if status != CobsOK {
			t.Fatalf("round %d: encode status %v", round, status)
		}
		for i := 0; i < n; i++ {
			if dst[i] == 0 {
				t.Fatalf("round %d: zero byte in encoded output", round)
			}
		}

		out := make([]byte, size+1)
		dn, dstatus := CobsDecode(out, dst[:n])
		if dstatus != CobsOK {
			t.Fatalf("round %d: decode status %v", round, dstatus)
		}
		if !bytes.Equal(out[:dn], src) {
			t.Fatalf("round %d: round trip mismatch (%d bytes)", round, size)
		}
	}
}

// Frames survive the framer regardless of payload content, with every
// CRC width.
func TestFuzzFramerRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	kinds := []schema.CRCKind{schema.CRCNone, schema.CRC8, schema.CRC16, schema.CRC32}

	for round := 0; round < rounds; round++ {
		crc := kinds[rng.Intn(len(kinds))]
		f := NewFramer(300, crc)

		size := 1 + rng.Intn(254)
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(rng.Intn(256))
		}

		frame, err := f.EncodeCopy(payload)
		if err != nil {
			t.Fatalf("round %d: encode: %v", round, err)
		}
		frameCopy := append([]byte(nil), frame...)

		var got []byte
		for i, b := range frameCopy {
			r := f.ReadByte(b)
			switch {
			case i < len(frameCopy)-1 && r.State != DecodeNotReady:
				t.Fatalf("round %d: early state %v at byte %d", round, r.State, i)
			case i == len(frameCopy)-1:
				if r.State != DecodeOK {
					t.Fatalf("round %d: final state %v", round, r.State)
				}
				got = r.Data
			}
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round %d: payload mismatch", round)
		}
	}
}

// The framer never gets stuck: random garbage followed by a valid
// frame always delivers the frame.
func TestFuzzFramerNoiseRecovery(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	f := NewFramer(64, schema.CRC16)
	for round := 0; round < rounds; round++ {
		noiseLen := rng.Intn(200)
		for i := 0; i < noiseLen; i++ {
			f.ReadByte(byte(rng.Intn(256)))
		}
		// Ensure a clean frame boundary after the garbage.
		f.ReadByte(0)

		payload := []byte{byte(1 + rng.Intn(255)), byte(rng.Intn(256))}
		frame, err := f.EncodeCopy(payload)
		if err != nil {
			t.Fatalf("round %d: encode: %v", round, err)
		}
		frameCopy := append([]byte(nil), frame...)

		delivered := false
		for _, b := range frameCopy {
			if r := f.ReadByte(b); r.State == DecodeOK {
				if !bytes.Equal(r.Data, payload) {
					t.Fatalf("round %d: wrong payload", round)
				}
				delivered = true
			}
		}
		if !delivered {
			t.Fatalf("round %d: frame not delivered after noise", round)
		}
	}
}

// Dynamic codec round trip over a schema exercising every type class.
func TestFuzzDynamicRoundTrip(t *testing.T) {
	s := loadSchema(t, `
enum Mode: uint8 {
    Off = 0
    Low = 1
    High = 2
}
struct Reading {
    sensor: uint8
    value: float64
}
struct Sample {
    mode: Mode
    flag: bool
    count: int16
    big: uint64
    name: string[12]
    blob: bytes[10]
    readings: Reading[4]
}
`)
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		nameLen := rng.Intn(12)
		name := make([]byte, nameLen)
		for i := range name {
			name[i] = byte('a' + rng.Intn(26))
		}
		blob := make([]byte, rng.Intn(11))
		for i := range blob {
			blob[i] = byte(rng.Intn(256))
		}
		nReadings := rng.Intn(5)
		readings := make([]interface{}, nReadings)
		for i := range readings {
			readings[i] = map[string]interface{}{
				"sensor": rng.Intn(256),
				"value":  rng.NormFloat64(),
			}
		}

		in := map[string]interface{}{
			"mode":     rng.Intn(3),
			"flag":     rng.Intn(2) == 1,
			"count":    rng.Intn(1<<16) - 1<<15,
			"big":      rng.Uint64(),
			"name":     string(name),
			"blob":     blob,
			"readings": readings,
		}

		buf := NewBuffer(make([]byte, 256))
		if err := PackStruct(s, "Sample", in, buf); err != nil {
			t.Fatalf("round %d: pack: %v", round, err)
		}
		buf.Reset()
		out, err := UnpackStruct(s, "Sample", buf)
		if err != nil {
			t.Fatalf("round %d: unpack: %v", round, err)
		}

		if out["name"] != string(name) {
			t.Fatalf("round %d: name %q != %q", round, out["name"], name)
		}
		if !bytes.Equal(out["blob"].([]byte), blob) {
			t.Fatalf("round %d: blob mismatch", round)
		}
		gotReadings := out["readings"].([]interface{})
		if len(gotReadings) != nReadings {
			t.Fatalf("round %d: reading count %d != %d", round, len(gotReadings), nReadings)
		}
		for i, r := range gotReadings {
			rm := r.(map[string]interface{})
			im := readings[i].(map[string]interface{})
			if rm["sensor"] != uint64(im["sensor"].(int)) {
				t.Fatalf("round %d: sensor mismatch", round)
			}
			if rm["value"] != im["value"].(float64) {
				t.Fatalf("round %d: value mismatch", round)
			}
		}
	}
}
