// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package fingerprint

import (
	"encoding/binary"
	"fmt"
)

// Packager handles frame packing/unpacking with checksum validation. It
// carries the session address used to stamp outgoing frames and to filter
// incoming ones, and the negotiated maximum payload size that bounds frames
// in both directions.
type Packager struct {
	address    uint32
	maxPayload int
}

// NewPackager creates a new Packager for the given sensor address and
// negotiated data packet size.
func NewPackager(address uint32, maxPayload int) *Packager {
	if maxPayload <= 0 {
		maxPayload = DefaultPacketSize
	}
	return &Packager{
		address:    address,
		maxPayload: maxPayload,
	}
}

// Address returns the session address frames are stamped and filtered with.
func (p *Packager) Address() uint32 {
	return p.address
}

// SetAddress updates the session address.
func (p *Packager) SetAddress(address uint32) {
	p.address = address
}

// MaxPayload returns the negotiated maximum data payload per frame.
func (p *Packager) MaxPayload() int {
	return p.maxPayload
}

// SetMaxPayload updates the negotiated maximum data payload per frame.
func (p *Packager) SetMaxPayload(n int) {
	if n > 0 {
		p.maxPayload = n
	}
}

// Pack encodes one frame: start code, session address, packet type, length,
// payload and checksum. The caller must already have split oversized buffers
// into chunks of at most MaxPayload bytes.
func (p *Packager) Pack(packetType PacketType, payload []byte) ([]byte, error) {
	if !packetType.isValid() {
		return nil, &ValidationError{Field: "packet type", Reason: fmt.Sprintf("unknown type 0x%02X", byte(packetType))}
	}
	// Command payloads carry the instruction byte on top of the data budget.
	if len(payload) > p.maxPayload+1 {
		return nil, &ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("%d bytes exceeds negotiated packet size %d", len(payload), p.maxPayload),
		}
	}

	length := uint16(len(payload) + 2)
	frame := make([]byte, 0, headerSize+len(payload)+2)

	frame = binary.BigEndian.AppendUint16(frame, StartCode)
	frame = binary.BigEndian.AppendUint32(frame, p.address)
	frame = append(frame, byte(packetType))
	frame = binary.BigEndian.AppendUint16(frame, length)
	frame = append(frame, payload...)
	frame = binary.BigEndian.AppendUint16(frame, Checksum(packetType, length, payload))

	return frame, nil
}

// FrameSize returns the total frame length declared by a partially received
// frame. At least headerSize bytes must be supplied; the start code is
// checked first so garbage is rejected before the length field is trusted.
func FrameSize(header []byte) (int, error) {
	if len(header) < headerSize {
		return 0, &FramingError{Reason: fmt.Sprintf("header too short: %d bytes", len(header))}
	}
	if binary.BigEndian.Uint16(header[0:2]) != StartCode {
		return 0, &FramingError{Reason: fmt.Sprintf("bad start code 0x%02X%02X", header[0], header[1])}
	}
	length := int(binary.BigEndian.Uint16(header[7:9]))
	if length < 2 {
		return 0, &FramingError{Reason: fmt.Sprintf("declared length %d below checksum size", length)}
	}
	return headerSize + length, nil
}

// Unpack decodes one complete frame. Validation order: start code and length
// consistency (FramingError), checksum (IntegrityError), then the session
// address (ErrForeignAddress, the frame is not for us). Decoding never
// repairs data.
func (p *Packager) Unpack(frame []byte) (*Packet, error) {
	total, err := FrameSize(frame)
	if err != nil {
		return nil, err
	}
	if len(frame) != total {
		return nil, &FramingError{
			Reason: fmt.Sprintf("declared frame size %d, got %d bytes", total, len(frame)),
		}
	}

	packetType := PacketType(frame[6])
	length := binary.BigEndian.Uint16(frame[7:9])
	payload := frame[headerSize : total-2]

	calculated := Checksum(packetType, length, payload)
	received := binary.BigEndian.Uint16(frame[total-2:])
	if calculated != received {
		return nil, &IntegrityError{Calculated: calculated, Received: received}
	}

	address := binary.BigEndian.Uint32(frame[2:6])
	if address != p.address {
		return nil, ErrForeignAddress
	}

	if !packetType.isValid() {
		return nil, &FramingError{Reason: fmt.Sprintf("unknown packet type 0x%02X", frame[6])}
	}

	packet := &Packet{
		Address: address,
		Type:    packetType,
		Payload: make([]byte, len(payload)),
	}
	copy(packet.Payload, payload)
	return packet, nil
}
