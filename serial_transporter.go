package fingerprint

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	serial "github.com/hootrhino/goserial"
)

// SerialTransporter adapts an io.ReadWriteCloser (typically an open serial
// port) to the Transporter contract. The port is assumed to already be open
// and correctly clocked.
type SerialTransporter struct {
	port io.ReadWriteCloser
	mu   sync.Mutex
}

// NewSerialTransporter wraps an already open port.
func NewSerialTransporter(port io.ReadWriteCloser) *SerialTransporter {
	return &SerialTransporter{port: port}
}

// OpenSerial opens a serial device and wraps it. The short port-level read
// timeout keeps blocking reads from pinning a goroutine past the caller's
// deadline; the response timeout proper is enforced per ReadRaw call.
func OpenSerial(device string, baudRate int) (*SerialTransporter, error) {
	port, err := serial.Open(&serial.Config{
		Address:  device,
		BaudRate: baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("fingerprint: failed to open serial port %s: %w", device, err)
	}
	return NewSerialTransporter(port), nil
}

// WriteRaw writes all bytes to the port.
func (t *SerialTransporter) WriteRaw(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(data) == 0 {
		return fmt.Errorf("fingerprint: cannot write empty data")
	}
	if t.port == nil {
		return fmt.Errorf("fingerprint: port is closed")
	}
	written := 0
	for written < len(data) {
		n, err := t.port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("fingerprint: write failed after %d bytes: %v", written, err)
		}
		written += n
	}
	return nil
}

// ReadRaw reads up to maxLen bytes, waiting at most timeout for the first
// byte. It never blocks past the timeout even when the port itself has no
// deadline support.
func (t *SerialTransporter) ReadRaw(maxLen int, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return nil, fmt.Errorf("fingerprint: port is closed")
	}
	if maxLen <= 0 {
		maxLen = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)

	go func() {
		buf := make([]byte, maxLen)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				done <- readResult{buf[:n], nil}
				return
			}
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				// A port-level read timeout with no data is not an error
				// here; keep polling until the context expires.
				if isPortTimeout(err) {
					continue
				}
				done <- readResult{nil, fmt.Errorf("fingerprint: read failed: %v", err)}
				return
			}
		}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, &TimeoutError{Timeout: timeout}
	}
}

// isPortTimeout reports whether a port read error only means "no byte yet".
func isPortTimeout(err error) bool {
	if te, ok := err.(interface{ Timeout() bool }); ok {
		return te.Timeout()
	}
	return strings.Contains(err.Error(), "timeout")
}

// Close closes the underlying port.
func (t *SerialTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// IsConnected returns true if the port is still open.
func (t *SerialTransporter) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}
