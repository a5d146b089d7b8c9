// SPDX-License-Identifier: MIT
//
// Package udp sends spectrum frames as compact binary packets, suited
// to plotters that cannot afford JSON parsing per display frame.
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/transport"
)

/*
Packet layout (BigEndian):

| Field            | Type      | Size (Bytes) |
|------------------|-----------|--------------|
| Sequence number  | uint32    | 4            |
| Timestamp        | int64     | 8 (ns epoch) |
| Filter length    | uint32    | 4            |
| Flags            | uint8     | 1            |
| Dropped samples  | uint64    | 8            |
| Magnitude count  | uint16    | 2            |
| Magnitudes       | []float32 | N * 4        |

Flags: bit 0 = bypassed, bit 1 = gate open. Magnitudes carry the
filtered spectrum in dB.
*/

const (
	flagBypassed = 1 << 0
	flagGateOpen = 1 << 1
)

// Transport packs frames into the binary layout above and hands them
// to a Sender. Send is driven by the single publisher goroutine, so
// the packing buffers need no lock.
type Transport struct {
	sender *Sender

	sequenceNum  uint32
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewTransport dials the target and returns a ready transport.
func NewTransport(targetAddress string) (*Transport, error) {
	sender, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &Transport{
		sender:       sender,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send packs a *transport.Frame and transmits it.
func (t *Transport) Send(data any) error {
	frame, ok := data.(*transport.Frame)
	if !ok {
		return fmt.Errorf("udp: unsupported payload type %T", data)
	}

	packet, err := t.pack(frame)
	if err != nil {
		return err
	}
	return t.sender.Send(packet)
}

func (t *Transport) pack(frame *transport.Frame) ([]byte, error) {
	mags := frame.FilteredSpectrum
	if len(t.f32Buffer) != len(mags) {
		t.f32Buffer = make([]float32, len(mags))
	}
	for i, v := range mags {
		t.f32Buffer[i] = float32(v)
	}

	t.sequenceNum++
	timestamp := frame.TimestampNS
	if timestamp == 0 {
		timestamp = time.Now().UnixNano()
	}

	var flags uint8
	if frame.Bypassed {
		flags |= flagBypassed
	}
	if frame.GateOpen {
		flags |= flagGateOpen
	}

	t.packetBuffer.Reset()
	err := binary.Write(t.packetBuffer, binary.BigEndian, t.sequenceNum)
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, uint32(frame.FilterLength))
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, flags)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, frame.Dropped)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, uint16(len(t.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, t.f32Buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("udp: failed to pack packet: %w", err)
	}
	return t.packetBuffer.Bytes(), nil
}

// Close closes the underlying sender.
func (t *Transport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*Transport)(nil)
