package dummy

import (
	"net"
	"time"

	"github.com/hearth-web/hearth/http/status"
)

// Client is a scripted stream.Client double: it serves the configured blocks
// one Read at a time, then reports a disconnect. Everything written lands in
// Written.
type Client struct {
	blocks  [][]byte
	pending []byte
	Written []byte
	closed  bool
}

func NewClient(blocks ...[]byte) *Client {
	return &Client{blocks: blocks}
}

// Split configures the client to serve the data one byte per Read, which
// shakes out any accidental assumptions about block boundaries.
func Split(data []byte) *Client {
	blocks := make([][]byte, 0, len(data))
	for i := range data {
		blocks = append(blocks, data[i:i+1])
	}

	return NewClient(blocks...)
}

func (c *Client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil
		return pending, nil
	}

	if len(c.blocks) == 0 {
		return nil, status.ErrDisconnected
	}

	block := c.blocks[0]
	c.blocks = c.blocks[1:]

	return block, nil
}

func (c *Client) Unread(b []byte) {
	if len(b) > 0 {
		c.pending = b
	}
}

func (c *Client) Write(b []byte) error {
	c.Written = append(c.Written, b...)
	return nil
}

func (c *Client) Remote() net.Addr {
	return nil
}

func (c *Client) SetReadTimeout(time.Duration) {}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

func (c *Client) Closed() bool {
	return c.closed
}
