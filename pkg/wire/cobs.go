// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

// COBS (Consistent Overhead Byte Stuffing) eliminates zero bytes from
// a payload so a single 0x00 can terminate a frame. The implementation
// mirrors Craig McQueen's cobs-c, which the generated C and C++
// runtimes embed; encoder and decoder here are byte-identical to them.

// CobsStatus is an OR of condition flags reported by the codec.
type CobsStatus int

const (
	CobsOK              CobsStatus = 0
	CobsNullPointer     CobsStatus = 1
	CobsOutBufferFull   CobsStatus = 2
	CobsZeroByteInInput CobsStatus = 4
	CobsInputTooShort   CobsStatus = 8
)

// CobsEncodeMax returns the destination size needed to encode srcLen
// bytes in the worst case.
func CobsEncodeMax(srcLen int) int {
	if srcLen == 0 {
		return 1 // an empty source still encodes to one code byte
	}
	return srcLen + (srcLen+253)/254
}

// CobsEncode encodes src into dst and returns the output length with
// a status. The output never contains a zero byte. dst may overlap
// src when src sits at least CobsOverhead(len(src)) bytes into the
// same region, which is the framer's zero-copy layout.
func CobsEncode(dst, src []byte) (int, CobsStatus) {
	if dst == nil || src == nil {
		return 0, CobsNullPointer
	}

	status := CobsOK
	codeIdx := 0
	w := 1
	searchLen := byte(1)

	if len(src) != 0 {
		for r := 0; ; {
			if w >= len(dst) {
				status |= CobsOutBufferFull
				break
			}
			b := src[r]
			r++
			if b == 0 {
				dst[codeIdx] = searchLen
				codeIdx = w
				w++
				searchLen = 1
				if r >= len(src) {
					break
				}
			} else {
				dst[w] = b
				w++
				searchLen++
				if r >= len(src) {
					break
				}
				if searchLen == 0xFF {
					dst[codeIdx] = searchLen
					codeIdx = w
					w++
					searchLen = 1
				}
			}
		}
	}

	if codeIdx >= len(dst) {
		status |= CobsOutBufferFull
		w = len(dst)
	} else {
		dst[codeIdx] = searchLen
	}
	return w, status
}

// CobsDecode decodes src into dst and returns the output length with
// a status. In-place decode (dst and src aliasing the same region) is
// supported and is the framer's canonical path. An embedded zero byte
// in the input sets CobsZeroByteInInput.
func CobsDecode(dst, src []byte) (int, CobsStatus) {
	if dst == nil || src == nil {
		return 0, CobsNullPointer
	}

	status := CobsOK
	w := 0

	if len(src) != 0 {
		for r := 0; ; {
			lenCode := int(src[r])
			r++
			if lenCode == 0 {
				status |= CobsZeroByteInInput
				break
			}
			lenCode--

			if rem := len(src) - r; lenCode > rem {
				status |= CobsInputTooShort
				lenCode = rem
			}
			if rem := len(dst) - w; lenCode > rem {
				status |= CobsOutBufferFull
				lenCode = rem
			}

			for i := 0; i < lenCode; i++ {
				b := src[r]
				r++
				if b == 0 {
					status |= CobsZeroByteInInput
				}
				dst[w] = b
				w++
			}

			if r >= len(src) {
				break
			}
			if lenCode != 0xFE {
				if w >= len(dst) {
					status |= CobsOutBufferFull
					break
				}
				dst[w] = 0
				w++
			}
		}
	}
	return w, status
}
