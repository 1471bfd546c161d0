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

import "fmt"

// splitPayload splits buf into chunks of at most size bytes. The last chunk
// holds the remainder and is never empty for a non-empty buf.
func splitPayload(buf []byte, size int) [][]byte {
	chunks := make([][]byte, 0, (len(buf)+size-1)/size)
	for len(buf) > size {
		chunks = append(chunks, buf[:size])
		buf = buf[size:]
	}
	if len(buf) > 0 {
		chunks = append(chunks, buf)
	}
	return chunks
}

// uploadBuffer streams a payload to the sensor as DATA frames closed by one
// END_OF_DATA frame. Chunks are one-way writes; the sensor only acknowledged
// the COMMAND frame that initiated the transfer.
func (h *FingerprintHandler) uploadBuffer(data []byte, packetSize int) error {
	if len(data) == 0 {
		return &ValidationError{Field: "transfer buffer", Reason: "at least one chunk is required"}
	}

	chunks := splitPayload(data, packetSize)
	for i, chunk := range chunks {
		packetType := PacketTypeData
		if i == len(chunks)-1 {
			packetType = PacketTypeEndOfData
		}
		if err := h.writePacket(packetType, chunk); err != nil {
			return fmt.Errorf("fingerprint: upload chunk %d/%d failed: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// downloadBuffer reassembles an inbound stream of DATA frames terminated by
// an END_OF_DATA frame. Growth is capped by the configured maximum transfer
// size so a misbehaving or noisy link cannot run the buffer unbounded.
func (h *FingerprintHandler) downloadBuffer() ([]byte, error) {
	buffer := make([]byte, 0, h.config.MaxPacketSize)
	for {
		packet, err := h.readPacket(h.config.ResponseTimeout)
		if err != nil {
			return nil, err
		}
		switch packet.Type {
		case PacketTypeData, PacketTypeEndOfData:
			if len(buffer)+len(packet.Payload) > h.config.MaxTransferSize {
				return nil, &ProtocolError{
					Operation: "download",
					Reason:    fmt.Sprintf("transfer exceeds the configured maximum of %d bytes", h.config.MaxTransferSize),
				}
			}
			buffer = append(buffer, packet.Payload...)
			if packet.Type == PacketTypeEndOfData {
				return buffer, nil
			}
		default:
			return nil, &ProtocolError{
				Operation: "download",
				Reason:    fmt.Sprintf("expected a data packet, got %v", packet.Type),
			}
		}
	}
}
