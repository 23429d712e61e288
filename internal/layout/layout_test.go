package layout

import (
	"testing"

	"github.com/winpin/winpin/internal/platform"
)

func TestCompute_DefaultAppliesFixedInsets(t *testing.T) {
	screens := []platform.Rect{
		{X: 0, Y: 0, Width: 1920, Height: 1080},
		{X: 0, Y: 25, Width: 1512, Height: 944},
		{X: 100, Y: 50, Width: 16, Height: 14},
	}

	for _, screen := range screens {
		got := Compute(screen, PositionDefault)

		if got.X != screen.X+InsetLeft {
			t.Fatalf("screen %+v: expected x=%d, got %d", screen, screen.X+InsetLeft, got.X)
		}
		if got.Y != screen.Y+InsetTop {
			t.Fatalf("screen %+v: expected y=%d, got %d", screen, screen.Y+InsetTop, got.Y)
		}
		if got.Width != screen.Width-(InsetLeft+InsetRight) {
			t.Fatalf("screen %+v: expected width=%d, got %d", screen, screen.Width-16, got.Width)
		}
		if got.Height != screen.Height-(InsetTop+InsetBottom) {
			t.Fatalf("screen %+v: expected height=%d, got %d", screen, screen.Height-14, got.Height)
		}

		// Containment in the screen rectangle.
		if got.X < screen.X || got.Y < screen.Y ||
			got.X+got.Width > screen.X+screen.Width ||
			got.Y+got.Height > screen.Y+screen.Height {
			t.Fatalf("screen %+v: default rect %+v not contained", screen, got)
		}
	}
}

func TestCompute_LeftRightPartitionScreen(t *testing.T) {
	screens := []platform.Rect{
		{X: 0, Y: 0, Width: 1920, Height: 1080},
		{X: 0, Y: 25, Width: 1513, Height: 944}, // odd width
		{X: -200, Y: 0, Width: 801, Height: 600},
	}

	for _, screen := range screens {
		left := Compute(screen, PositionLeft)
		right := Compute(screen, PositionRight)

		if left.Width+right.Width != screen.Width {
			t.Fatalf("screen %+v: widths %d+%d != %d", screen, left.Width, right.Width, screen.Width)
		}
		if right.X != left.X+left.Width {
			t.Fatalf("screen %+v: halves overlap or leave a gap (left ends %d, right starts %d)",
				screen, left.X+left.Width, right.X)
		}
		if left.X != screen.X {
			t.Fatalf("screen %+v: left half starts at %d", screen, left.X)
		}
		if left.Height != screen.Height || right.Height != screen.Height {
			t.Fatalf("screen %+v: halves must keep full height", screen)
		}
	}
}

func TestCompute_FullIsLiteralScreenRect(t *testing.T) {
	screen := platform.Rect{X: 0, Y: 25, Width: 1512, Height: 944}
	if got := Compute(screen, PositionFull); got != screen {
		t.Fatalf("expected %+v, got %+v", screen, got)
	}
}

func TestParsePosition(t *testing.T) {
	for _, valid := range []string{"left", "right", "full"} {
		if _, err := ParsePosition(valid); err != nil {
			t.Fatalf("expected %q to parse, got %v", valid, err)
		}
	}
	for _, invalid := range []string{"up", "down", "default", "", "LEFT"} {
		if _, err := ParsePosition(invalid); err == nil {
			t.Fatalf("expected %q to be rejected", invalid)
		}
	}
}
