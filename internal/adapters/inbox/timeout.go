package inbox

import (
	"net"
	"time"
)

// deadlineConn arms a fresh deadline before every read and write so a
// stalled server cannot wedge the poll loop. The protocol client reads
// from a background goroutine, so a single up-front deadline per command
// cannot be maintained from outside the connection.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func newDeadlineConn(conn net.Conn, timeout time.Duration) *deadlineConn {
	return &deadlineConn{Conn: conn, timeout: timeout}
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
