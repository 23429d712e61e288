// Package ipc implements the wire-level command protocol: a TCP listener on
// port 12345 accepting one request per connection, framed as UTF-8 header
// lines terminated by a blank line followed by a single JSON object. No
// response body is sent; the connection close is the acknowledgement.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/winpin/winpin/internal/layout"
)

// DefaultPort is the well-known command port.
const DefaultPort = 12345

// requestHeader is the header line the bundled client sends. The server does
// not interpret header contents; it only consumes lines up to the blank
// terminator.
const requestHeader = "WINPIN/1"

// Request is the JSON body of one command connection.
type Request struct {
	BundleID string `json:"bundleID"`
	Position string `json:"position"`
}

// ReadRequest consumes the header (every line up to the first blank line)
// and decodes and validates the JSON body. Any framing, decode, or
// validation failure is a non-fatal per-connection error.
func ReadRequest(r *bufio.Reader) (*Request, layout.Position, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, "", fmt.Errorf("read header: %w", err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}

	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, "", fmt.Errorf("decode body: %w", err)
	}
	if req.BundleID == "" {
		return nil, "", fmt.Errorf("missing bundleID")
	}
	pos, err := layout.ParsePosition(req.Position)
	if err != nil {
		return nil, "", err
	}
	return &req, pos, nil
}
