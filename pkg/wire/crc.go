// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import "github.com/Thermoquad/bakelite/pkg/schema"

// Table-driven checksums with the polynomials the wire format fixes:
// CRC-8 (poly 0x07, init 0), CRC-16/ARC (reflected 0x8005, init 0),
// and CRC-32 (IEEE 802.3, reflected, init and final XOR 0xFFFFFFFF).
// Check values over "123456789" are 0xF4, 0xBB3D, and 0xCBF43926.

var (
	crc8Table  [256]uint8
	crc16Table [256]uint16
	crc32Table [256]uint32
)

func init() {
	for i := 0; i < 256; i++ {
		c8 := uint8(i)
		for b := 0; b < 8; b++ {
			if c8&0x80 != 0 {
				c8 = c8<<1 ^ 0x07
			} else {
				c8 <<= 1
			}
		}
		crc8Table[i] = c8

		c16 := uint16(i)
		for b := 0; b < 8; b++ {
			if c16&1 != 0 {
				c16 = c16>>1 ^ 0xA001
			} else {
				c16 >>= 1
			}
		}
		crc16Table[i] = c16

		c32 := uint32(i)
		for b := 0; b < 8; b++ {
			if c32&1 != 0 {
				c32 = c32>>1 ^ 0xEDB88320
			} else {
				c32 >>= 1
			}
		}
		crc32Table[i] = c32
	}
}

// CRC8 computes the CRC-8 of data.
func CRC8(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc
}

// CRC16 computes the CRC-16/ARC of data.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc>>8 ^ crc16Table[byte(crc)^b]
	}
	return crc
}

// CRC32 computes the CRC-32 (IEEE) of data.
func CRC32(data []byte) uint32 {
	crc := ^uint32(0)
	for _, b := range data {
		crc = crc>>8 ^ crc32Table[byte(crc)^b]
	}
	return ^crc
}

// Checksum computes the checksum of the given kind, widened to uint64.
func Checksum(kind schema.CRCKind, data []byte) uint64 {
	switch kind {
	case schema.CRC8:
		return uint64(CRC8(data))
	case schema.CRC16:
		return uint64(CRC16(data))
	case schema.CRC32:
		return uint64(CRC32(data))
	default:
		return 0
	}
}
