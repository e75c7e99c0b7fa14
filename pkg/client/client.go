// Package client is a Go client for the mpind control socket. One client
// connection owns one pinning session on the daemon side; closing the
// connection releases every region the session still holds.
package client

import (
	"fmt"
	"net"
	"sync"

	"github.com/weka/mpind/pkg/wire"
)

type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial mpind socket: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Pin asks the daemon to pin every page touched by [addr, addr+size).
func (c *Client) Pin(addr, size uint64) (wire.Code, error) {
	return c.call(wire.CmdPin, addr, size)
}

// Unpin releases a range previously pinned with the exact same extent.
func (c *Client) Unpin(addr, size uint64) (wire.Code, error) {
	return c.call(wire.CmdUnpin, addr, size)
}

func (c *Client) call(cmd uint32, addr, size uint64) (wire.Code, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := wire.EncodeRequest(wire.Request{Cmd: cmd, Addr: addr, Size: size})
	if _, err := c.conn.Write(buf); err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}

	code, err := wire.ReadCode(c.conn)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	return code, nil
}

// Close drops the control channel, tearing down the daemon-side session.
func (c *Client) Close() error {
	return c.conn.Close()
}
