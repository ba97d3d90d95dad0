package driver

import (
	"bufio"
	"io"
	"sync"
)

// StreamConsole moves single bytes over a reader and writer pair. It
// implements bridge.ByteIO.
type StreamConsole struct {
	mu sync.Mutex
	r  *bufio.Reader
	w  io.Writer
}

// NewStreamConsole wraps r and w. Either may be nil, in which case
// reads report io.EOF and writes are discarded.
func NewStreamConsole(r io.Reader, w io.Writer) *StreamConsole {
	c := &StreamConsole{w: w}
	if r != nil {
		c.r = bufio.NewReader(r)
	}
	if c.w == nil {
		c.w = io.Discard
	}
	return c
}

// PutByte writes one byte
func (c *StreamConsole) PutByte(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write([]byte{b})
	return err
}

// GetByte blocks for one byte
func (c *StreamConsole) GetByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.r == nil {
		return 0, io.EOF
	}
	return c.r.ReadByte()
}
