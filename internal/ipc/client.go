package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/winpin/winpin/internal/layout"
)

// Client sends command requests to a running daemon.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient creates a client for the given daemon address. An empty addr
// targets the default local port.
func NewClient(addr string) *Client {
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", DefaultPort)
	}
	return &Client{
		addr:    addr,
		timeout: 5 * time.Second,
	}
}

// Move requests that every live window of a bundle be moved to a layout
// position. The protocol carries no reply; a nil return means the request
// was written in full.
func (c *Client) Move(bundleID string, pos layout.Position) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s: %w (is the daemon running?)", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	body, err := json.Marshal(Request{BundleID: bundleID, Position: string(pos)})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n\r\n", requestHeader); err != nil {
		return fmt.Errorf("failed to send header: %w", err)
	}
	if _, err := conn.Write(body); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}
