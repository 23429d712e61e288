package frame

import (
	"errors"
	"fmt"

	"github.com/winpin/winpin/internal/platform"
)

// ErrNotSettable means the window's position or size attribute is immutable.
// Recoverable: skip the window, a later event retries.
var ErrNotSettable = errors.New("window position or size is not settable")

// Stage names which half of a frame application the platform refused.
type Stage string

const (
	StagePosition Stage = "position"
	StageSize     Stage = "size"
)

// PlatformRejectedError reports that the accessibility API refused a write.
// The other stage may have already partially applied; callers log and move on.
type PlatformRejectedError struct {
	Stage  Stage
	Window platform.WindowID
	Err    error
}

func (e *PlatformRejectedError) Error() string {
	return fmt.Sprintf("platform rejected %s write on window %d: %v", e.Stage, e.Window, e.Err)
}

func (e *PlatformRejectedError) Unwrap() error { return e.Err }

// Applier writes target rectangles onto live windows. It holds no state
// between calls.
type Applier struct {
	ax platform.Accessibility
}

// NewApplier creates an applier over the given capability surface.
func NewApplier(ax platform.Accessibility) *Applier {
	return &Applier{ax: ax}
}

// Apply moves and resizes one window to the target rectangle. Both attributes
// are checked for settability before either write is attempted.
func (a *Applier) Apply(id platform.WindowID, rect platform.Rect) error {
	for _, attr := range []platform.Attribute{platform.AttrPosition, platform.AttrSize} {
		settable, err := a.ax.IsSettable(id, attr)
		if err != nil {
			return fmt.Errorf("%w: %s check failed on window %d: %v", ErrNotSettable, attr, id, err)
		}
		if !settable {
			return fmt.Errorf("%w: %s on window %d", ErrNotSettable, attr, id)
		}
	}

	if err := a.ax.SetAttribute(id, platform.AttrPosition, platform.Point{X: rect.X, Y: rect.Y}); err != nil {
		return &PlatformRejectedError{Stage: StagePosition, Window: id, Err: err}
	}
	if err := a.ax.SetAttribute(id, platform.AttrSize, platform.Point{X: rect.Width, Y: rect.Height}); err != nil {
		return &PlatformRejectedError{Stage: StageSize, Window: id, Err: err}
	}
	return nil
}
