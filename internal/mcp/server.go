// Package mcp exposes window control over the Model Context Protocol so
// editor and agent tooling can reposition application windows through the
// running daemon.
package mcp

import (
	"context"
	"fmt"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/winpin/winpin/internal/ipc"
	"github.com/winpin/winpin/internal/layout"
	"github.com/winpin/winpin/internal/platform"
)

const (
	ServerName    = "winpin"
	ServerVersion = "0.1.0"
)

// Server is the MCP server. Moves go through the daemon's command port;
// window enumeration reads the platform directly.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
	ax        platform.Accessibility
}

// NewServer creates an MCP server talking to the daemon at addr (empty for
// the default local port).
func NewServer(addr string) (*Server, error) {
	ax, err := platform.NewAccessibility()
	if err != nil {
		return nil, err
	}
	return newServer(ipc.NewClient(addr), ax), nil
}

func newServer(client *ipc.Client, ax platform.Accessibility) *Server {
	s := &Server{
		client: client,
		ax:     ax,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move every window of an application to a screen position (left half, right half, or full screen). Requires the winpin daemon to be running.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the on-screen windows of an application by bundle identifier, with their current bounds.",
	}, s.handleListWindows)
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, MoveWindowOutput, error) {
	pos, err := layout.ParsePosition(args.Position)
	if err != nil {
		return nil, MoveWindowOutput{}, err
	}
	if args.BundleID == "" {
		return nil, MoveWindowOutput{}, fmt.Errorf("bundle_id is required")
	}
	if err := s.client.Move(args.BundleID, pos); err != nil {
		return nil, MoveWindowOutput{}, err
	}
	return nil, MoveWindowOutput{
		BundleID: args.BundleID,
		Position: string(pos),
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	if args.BundleID == "" {
		return nil, ListWindowsOutput{}, fmt.Errorf("bundle_id is required")
	}

	apps, err := s.ax.RunningApplications(args.BundleID)
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("enumerate applications: %w", err)
	}

	out := ListWindowsOutput{
		BundleID:  args.BundleID,
		Instances: len(apps),
		Windows:   []WindowInfo{},
	}
	for _, app := range apps {
		windows, err := s.ax.Windows(app.PID)
		if err != nil {
			return nil, ListWindowsOutput{}, fmt.Errorf("enumerate windows of pid %d: %w", app.PID, err)
		}
		for _, w := range windows {
			out.Windows = append(out.Windows, WindowInfo{
				ID:     uint64(w.ID),
				PID:    int(w.PID),
				Title:  w.Title,
				X:      w.Bounds.X,
				Y:      w.Bounds.Y,
				Width:  w.Bounds.Width,
				Height: w.Bounds.Height,
			})
		}
	}

	// Sort by window ID for deterministic output.
	sort.Slice(out.Windows, func(i, j int) bool {
		return out.Windows[i].ID < out.Windows[j].ID
	})
	return nil, out, nil
}
