package fingerprint

// Checksum calculates the packet checksum: the 16-bit wraparound sum of the
// packet type byte, both length bytes and every payload byte.
func Checksum(packetType PacketType, length uint16, payload []byte) uint16 {
	sum := uint16(packetType)
	sum += length >> 8
	sum += length & 0xFF
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

// VerifyChecksum recomputes the checksum of a complete frame and compares it
// to the trailing two bytes. The frame must already be structurally complete.
func VerifyChecksum(frame []byte) bool {
	if len(frame) < minFrameSize-1 {
		return false
	}
	length := uint16(frame[7])<<8 | uint16(frame[8])
	payload := frame[headerSize : len(frame)-2]
	calculated := Checksum(PacketType(frame[6]), length, payload)
	received := uint16(frame[len(frame)-2])<<8 | uint16(frame[len(frame)-1])
	return calculated == received
}
