package platform

import (
	"fmt"
	"runtime"
)

// PID identifies one running process instance. It is not stable across
// relaunches of the same application.
type PID int

// WindowID is the platform window number for a top-level window. It is used
// for lookup and comparison only, never for ownership.
type WindowID uint64

// Attribute names a settable window attribute on the accessibility API.
type Attribute string

const (
	AttrPosition Attribute = "AXPosition"
	AttrSize     Attribute = "AXSize"
)

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Point carries an attribute value: X/Y for AttrPosition, width/height in
// X/Y for AttrSize.
type Point struct {
	X int
	Y int
}

// App describes one running instance of an application.
type App struct {
	PID      PID
	BundleID string
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID
	PID    PID
	Title  string
	Bounds Rect
}

// Accessibility is the capability surface the core needs from the platform:
// process/window enumeration and the read/set geometry primitive. Every call
// is fallible; callers treat failures as recoverable per-window conditions.
type Accessibility interface {
	// Trusted reports whether the process has accessibility permission.
	Trusted() bool

	// RunningApplications returns every running process whose bundle
	// identifier matches bundleID.
	RunningApplications(bundleID string) ([]App, error)

	// Windows returns the top-level windows currently open on a process.
	Windows(pid PID) ([]Window, error)

	// IsSettable reports whether an attribute of a window can be written.
	IsSettable(id WindowID, attr Attribute) (bool, error)

	// SetAttribute writes a position or size attribute on a window.
	SetAttribute(id WindowID, attr Attribute, value Point) error

	// ScreenRect returns the usable rectangle of the main display.
	ScreenRect() (Rect, error)
}

// ErrUnsupported is returned on platforms without an accessibility adapter.
var ErrUnsupported = fmt.Errorf("winpin is not supported on %s/%s; supported: darwin/amd64, darwin/arm64", runtime.GOOS, runtime.GOARCH)

// NewAccessibilityFunc is set by the platform-specific adapter via init().
// See ax_darwin.go for the macOS registration.
var NewAccessibilityFunc func() (Accessibility, error)

// NewAccessibility returns the accessibility adapter for the current OS.
func NewAccessibility() (Accessibility, error) {
	if NewAccessibilityFunc == nil {
		return nil, ErrUnsupported
	}
	return NewAccessibilityFunc()
}
