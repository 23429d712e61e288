package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winpin/winpin/internal/platform"
	"github.com/winpin/winpin/internal/platform/platformtest"
)

func TestApply_PositionThenSize(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddWindow(platform.Window{ID: 7, PID: 100})
	applier := NewApplier(ax)

	err := applier.Apply(7, platform.Rect{X: 8, Y: 6, Width: 1904, Height: 1066})
	require.NoError(t, err)

	calls := ax.SetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, platform.AttrPosition, calls[0].Attr)
	assert.Equal(t, platform.Point{X: 8, Y: 6}, calls[0].Value)
	assert.Equal(t, platform.AttrSize, calls[1].Attr)
	assert.Equal(t, platform.Point{X: 1904, Y: 1066}, calls[1].Value)
}

func TestApply_NotSettableSkipsMutation(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddWindow(platform.Window{ID: 7, PID: 100})
	ax.MarkNotSettable(7)
	applier := NewApplier(ax)

	err := applier.Apply(7, platform.Rect{Width: 100, Height: 100})
	require.ErrorIs(t, err, ErrNotSettable)
	assert.Empty(t, ax.SetCalls(), "no writes may be attempted after a failed settability check")
}

func TestApply_PlatformRejectionNamesStage(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddWindow(platform.Window{ID: 7, PID: 100})
	ax.RejectAttribute(7, platform.AttrSize)
	applier := NewApplier(ax)

	err := applier.Apply(7, platform.Rect{Width: 100, Height: 100})

	var rejected *PlatformRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, StageSize, rejected.Stage)
	// The position write went through before the size stage failed.
	require.Len(t, ax.SetCalls(), 1)
	assert.Equal(t, platform.AttrPosition, ax.SetCalls()[0].Attr)
}
