package stream

import (
	"net"
	"time"

	"github.com/hearth-web/hearth/http/status"
)

// Client is a duplex byte channel with blocking, deadline-bounded reads and
// writes plus pushback. Reads hand out whole buffered blocks; a consumer that
// took more than it needed returns the leftover via Unread, and the next Read
// yields it again. No partial data is ever exposed alongside an error: a
// failed call means the connection is unusable and must be closed.
type Client interface {
	Read() ([]byte, error)
	Unread([]byte)
	Write([]byte) error
	Remote() net.Addr
	SetReadTimeout(time.Duration)
	Close() error
}

type client struct {
	conn         net.Conn
	buff         []byte
	pending      []byte
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func New(conn net.Conn, buffSize int, readTimeout, writeTimeout time.Duration) Client {
	return &client{
		conn:         conn,
		buff:         make([]byte, buffSize),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil
		return pending, nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, status.ErrDisconnected
	}

	n, err := c.conn.Read(c.buff)
	if err != nil {
		return nil, readError(err)
	}

	return c.buff[:n], nil
}

func (c *client) Unread(b []byte) {
	if len(b) > 0 {
		c.pending = b
	}
}

func (c *client) Write(b []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return status.ErrCloseConnection
	}

	for len(b) > 0 {
		n, err := c.conn.Write(b)
		if err != nil {
			return status.ErrCloseConnection
		}

		b = b[n:]
	}

	return nil
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// SetReadTimeout replaces the deadline applied to subsequent reads. The
// connection loop uses it to switch between the in-request read timeout and
// the keep-alive idle timeout.
func (c *client) SetReadTimeout(timeout time.Duration) {
	c.readTimeout = timeout
}

func (c *client) Close() error {
	return c.conn.Close()
}

func readError(err error) error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return status.ErrTimeout
	}

	return status.ErrDisconnected
}
