package fingerprint

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// TCPTransporter drives a sensor attached through a serial device server
// (a serial-to-TCP bridge). The bridge forwards raw UART bytes, so framing
// stays identical to the direct serial case.
type TCPTransporter struct {
	conn   net.Conn
	mu     sync.Mutex
	closed bool
}

// NewTCPTransporter wraps an established connection to a serial bridge.
func NewTCPTransporter(conn net.Conn) *TCPTransporter {
	return &TCPTransporter{conn: conn}
}

// DialTCP connects to a serial bridge at addr (host:port).
func DialTCP(addr string, timeout time.Duration) (*TCPTransporter, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: failed to connect to %s: %w", addr, err)
	}
	return NewTCPTransporter(conn), nil
}

// WriteRaw writes all bytes to the connection.
func (t *TCPTransporter) WriteRaw(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("fingerprint: transporter is closed")
	}
	if len(data) == 0 {
		return fmt.Errorf("fingerprint: cannot write empty data")
	}

	written := 0
	for written < len(data) {
		n, err := t.conn.Write(data[written:])
		if err != nil {
			return fmt.Errorf("fingerprint: write failed after %d bytes: %w", written, err)
		}
		written += n
	}
	return nil
}

// ReadRaw reads up to maxLen bytes, waiting at most timeout for the first
// byte. The connection deadline maps a network timeout onto the driver's
// TimeoutError.
func (t *TCPTransporter) ReadRaw(maxLen int, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("fingerprint: transporter is closed")
	}
	if maxLen <= 0 {
		maxLen = 1
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("fingerprint: failed to set read deadline: %w", err)
	}
	defer t.conn.SetReadDeadline(time.Time{})

	buf := make([]byte, maxLen)
	n, err := t.conn.Read(buf)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, &TimeoutError{Timeout: timeout}
		}
		return nil, fmt.Errorf("fingerprint: read failed: %w", err)
	}
	return buf[:n], nil
}

// Close closes the underlying connection.
func (t *TCPTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// IsConnected returns true if the transporter has not been closed.
func (t *TCPTransporter) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// RemoteAddr returns the bridge's network address.
func (t *TCPTransporter) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}
