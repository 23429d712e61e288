package layout

import (
	"fmt"

	"github.com/winpin/winpin/internal/platform"
)

// Position selects which target rectangle to compute for a screen.
type Position string

const (
	PositionDefault Position = "default"
	PositionLeft    Position = "left"
	PositionRight   Position = "right"
	PositionFull    Position = "full"
)

// Fixed insets for the default pin rectangle.
const (
	InsetLeft   = 8
	InsetRight  = 8
	InsetTop    = 6
	InsetBottom = 8
)

// ParsePosition validates a wire-level position string. Only the three
// command positions are accepted; "default" is internal.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionLeft, PositionRight, PositionFull:
		return Position(s), nil
	default:
		return "", fmt.Errorf("unknown position %q", s)
	}
}

// Compute returns the target rectangle for a screen and position. Pure and
// total over any screen with non-negative width and height.
func Compute(screen platform.Rect, pos Position) platform.Rect {
	switch pos {
	case PositionLeft:
		return platform.Rect{
			X:      screen.X,
			Y:      screen.Y,
			Width:  screen.Width / 2,
			Height: screen.Height,
		}

	case PositionRight:
		// Right half takes the remainder so both halves always sum to
		// the screen width.
		return platform.Rect{
			X:      screen.X + screen.Width/2,
			Y:      screen.Y,
			Width:  screen.Width - screen.Width/2,
			Height: screen.Height,
		}

	case PositionFull:
		return screen

	default:
		return platform.Rect{
			X:      screen.X + InsetLeft,
			Y:      screen.Y + InsetTop,
			Width:  screen.Width - (InsetLeft + InsetRight),
			Height: screen.Height - (InsetTop + InsetBottom),
		}
	}
}
