// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"
	"io"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// Received is one complete inbound frame. Payload aliases the framer
// buffer and is valid until the next Poll or Send. Name is empty when
// the id is not assigned in the schema; the caller decides what to do
// with such frames.
type Received struct {
	ID      int
	Name    string
	Payload []byte
}

// Protocol drives a framer over a caller-supplied byte source and
// sink, dispatching frames by message id per the schema's protocol
// block. It is the generic-host counterpart of the Protocol handler
// the tiny backends generate. Not safe for concurrent use.
type Protocol struct {
	schema *schema.Schema
	framer *Framer
	src    io.ByteReader
	dst    io.Writer
	stats  Stats
}

// NewProtocol builds a dispatcher for a schema with a protocol block.
// src supplies inbound bytes (io.EOF means no data yet); dst receives
// outbound frames. Either may be nil for one-directional use.
func NewProtocol(s *schema.Schema, src io.ByteReader, dst io.Writer) (*Protocol, error) {
	if s.Protocol == nil {
		return nil, fmt.Errorf("schema has no protocol block")
	}
	return &Protocol{
		schema: s,
		framer: NewFramer(s.MaxLength(), s.Protocol.CRC),
		src:    src,
		dst:    dst,
	}, nil
}

// Framer exposes the underlying framer, mainly for tests and tools
// that feed bytes directly.
func (p *Protocol) Framer() *Framer { return p.framer }

// Stats returns a snapshot of the frame counters.
func (p *Protocol) Stats() Stats { return p.stats }

// Poll pulls one byte from the source and advances the framer.
// It returns (nil, nil) while no frame is complete, a Received frame
// on a terminator, or an error for a malformed frame, checksum
// mismatch, or overrun. After any error the framer is already reset
// and subsequent polls proceed normally.
func (p *Protocol) Poll() (*Received, error) {
	b, err := p.src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	p.stats.Bytes++

	r := p.framer.ReadByte(b)
	switch r.State {
	case DecodeNotReady:
		return nil, nil
	case DecodeOK:
		if len(r.Data) == 0 {
			return nil, nil
		}
		p.stats.Frames++
		id := int(r.Data[0])
		name := p.schema.MessageName(id)
		if name == "" {
			p.stats.Unknown++
		}
		return &Received{ID: id, Name: name, Payload: r.Data[1:]}, nil
	case DecodeCRCFailure:
		p.stats.CRCFailures++
		return nil, fmt.Errorf("frame dropped: %s", r.State)
	case DecodeBufferOverrun:
		p.stats.Overruns++
		return nil, fmt.Errorf("frame dropped: %s", r.State)
	default:
		p.stats.Malformed++
		return nil, fmt.Errorf("frame dropped: %s", r.State)
	}
}

// Decode unpacks a received frame into a field-value map. It fails
// when the frame's id is not assigned in the schema.
func (p *Protocol) Decode(r *Received) (map[string]interface{}, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("unknown message id %d", r.ID)
	}
	buf := NewBuffer(r.Payload)
	fields, err := UnpackStruct(p.schema, r.Name, buf)
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// Send packs the named message into the framer's zero-copy area,
// frames it, and writes the frame to the sink.
func (p *Protocol) Send(name string, fields map[string]interface{}) error {
	id := p.schema.MessageID(name)
	if id == 0 {
		return fmt.Errorf("%s has not been assigned a message id", name)
	}

	buf := NewBuffer(p.framer.MessageBuffer())
	if err := buf.WriteUint8(uint8(id)); err != nil {
		return err
	}
	if err := PackStruct(p.schema, name, fields, buf); err != nil {
		return err
	}

	frame, err := p.framer.Encode(buf.Pos())
	if err != nil {
		return err
	}
	_, err = p.dst.Write(frame)
	return err
}
