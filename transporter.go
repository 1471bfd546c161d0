package fingerprint

import "time"

// Transporter defines the byte-stream contract the driver requires from the
// underlying link. The driver never assumes message boundaries are preserved;
// it reassembles frames itself from the length field.
type Transporter interface {
	// WriteRaw writes all bytes or fails.
	WriteRaw(data []byte) error
	// ReadRaw returns between 1 and maxLen bytes, or a TimeoutError if no
	// byte arrives within the timeout.
	ReadRaw(maxLen int, timeout time.Duration) ([]byte, error)
}
