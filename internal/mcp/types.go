package mcp

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	BundleID string `json:"bundle_id" jsonschema:"required,Bundle identifier of the application (e.g. com.apple.Safari)"`
	Position string `json:"position" jsonschema:"required,Target position: left, right, or full"`
}

// MoveWindowOutput is the output for the move_window tool.
type MoveWindowOutput struct {
	BundleID string `json:"bundle_id"`
	Position string `json:"position"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	BundleID string `json:"bundle_id" jsonschema:"required,Bundle identifier of the application to enumerate"`
}

// WindowInfo describes one on-screen window.
type WindowInfo struct {
	ID     uint64 `json:"id"`
	PID    int    `json:"pid"`
	Title  string `json:"title,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	BundleID  string       `json:"bundle_id"`
	Instances int          `json:"instances"`
	Windows   []WindowInfo `json:"windows"`
}
