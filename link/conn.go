package link

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
)

// Network is a connected, message preserving unix socket: one Write is one Read on the other side.
const Network = "unixpacket"

// readBufferSize is larger than any valid message so oversized ones are seen whole and rejected by the decoder.
const readBufferSize = 1024

type Conn struct {
	id     uuid.UUID
	Conn   net.Conn
	remote bool
	mutex  sync.Mutex
}

func newConn(c net.Conn, remote bool) *Conn {
	return &Conn{id: uuid.New(), Conn: c, remote: remote}
}

func (c *Conn) Id() uuid.UUID {
	return c.id
}

// IsRemote is true for connections accepted by a listening endpoint.
func (c *Conn) IsRemote() bool {
	return c.remote
}

func (c *Conn) ReadMsg() ([]byte, error) {
	buf := make([]byte, readBufferSize)
	n, err := c.Conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (c *Conn) WriteMsg(b []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n, err := c.Conn.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("short write: %d of %d bytes: %w", n, len(b), io.ErrShortWrite)
	}
	return nil
}

func (c *Conn) Close() error {
	return c.Conn.Close()
}

func (c *Conn) String() string {
	return c.id.String()[:8]
}
