package notify

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winpin/winpin/internal/platform"
	"github.com/winpin/winpin/internal/platform/platformtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func kinds(events []platform.Event) []platform.EventKind {
	out := make([]platform.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestDiff_LaunchAndTerminate(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	p := NewPoller(ax, []string{"com.example.App"}, time.Second, testLogger())

	ax.AddApp(100, "com.example.App")
	events := p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventAppLaunched, events[0].Kind)
	assert.Equal(t, platform.PID(100), events[0].PID)
	assert.Equal(t, "com.example.App", events[0].BundleID)

	// Stable state produces nothing.
	assert.Empty(t, p.diff())

	ax.RemoveApp(100, "com.example.App")
	events = p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventAppTerminated, events[0].Kind)
	assert.Equal(t, platform.PID(100), events[0].PID)
}

func TestDiff_PrimeSuppressesLaunchEvents(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddApp(100, "com.example.App")
	p := NewPoller(ax, []string{"com.example.App"}, time.Second, testLogger())

	p.Prime(map[platform.PID]string{100: "com.example.App"})
	assert.Empty(t, p.diff(), "seeded applications must not be re-announced")
}

func TestDiff_AppLaunchedAfterSeedIsAnnounced(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddApp(100, "com.example.App")
	p := NewPoller(ax, []string{"com.example.App"}, time.Second, testLogger())

	// Pid 200 appeared after the caller's own enumeration, so it is missing
	// from the seed and must come out of the first tick as a launch.
	ax.AddApp(200, "com.example.App")
	p.Prime(map[platform.PID]string{100: "com.example.App"})

	events := p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventAppLaunched, events[0].Kind)
	assert.Equal(t, platform.PID(200), events[0].PID)
}

func TestDiff_SeededAppTerminationIsDetected(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddApp(100, "com.example.App")
	p := NewPoller(ax, []string{"com.example.App"}, time.Second, testLogger())

	p.Prime(map[platform.PID]string{100: "com.example.App"})
	ax.RemoveApp(100, "com.example.App")

	events := p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventAppTerminated, events[0].Kind)
	assert.Equal(t, platform.PID(100), events[0].PID)
}

func TestDiff_UnwatchedBundlesAreInvisible(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	p := NewPoller(ax, []string{"com.example.App"}, time.Second, testLogger())

	ax.AddApp(200, "com.other.App")
	assert.Empty(t, p.diff())
}

func TestDiff_WindowLifecycle(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	ax.AddApp(100, "com.example.App")
	ax.AddWindow(platform.Window{ID: 1, PID: 100, Bounds: platform.Rect{Width: 400, Height: 300}})
	p := NewPoller(ax, []string{"com.example.App"}, time.Second, testLogger())
	p.Prime(map[platform.PID]string{100: "com.example.App"})

	lifecycle, err := p.SubscribeLifecycle(100)
	require.NoError(t, err)
	resize, err := p.SubscribeResize(100)
	require.NoError(t, err)
	require.NoError(t, resize.AddWindow(1))

	// The pre-existing window was snapshotted at subscribe time.
	assert.Empty(t, p.diff())

	ax.AddWindow(platform.Window{ID: 2, PID: 100, Bounds: platform.Rect{Width: 500, Height: 300}})
	events := p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventWindowCreated, events[0].Kind)
	assert.Equal(t, platform.WindowID(2), events[0].Window)

	// Window 2 is not in the resize set, so its bounds changes are silent.
	ax.RemoveWindow(100, 2)
	ax.AddWindow(platform.Window{ID: 2, PID: 100, Bounds: platform.Rect{X: 50, Width: 500, Height: 300}})
	// But it was destroyed and re-created between ticks from the poller's
	// point of view only if the ID changed; same ID means a bounds change.
	events = p.diff()
	assert.NotContains(t, kinds(events), platform.EventWindowResized)

	// Window 1 is in the resize set.
	ax.RemoveWindow(100, 1)
	ax.AddWindow(platform.Window{ID: 1, PID: 100, Bounds: platform.Rect{X: 10, Width: 400, Height: 300}})
	events = p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventWindowResized, events[0].Kind)
	assert.Equal(t, platform.WindowID(1), events[0].Window)

	ax.RemoveWindow(100, 1)
	events = p.diff()
	require.Len(t, events, 1)
	assert.Equal(t, platform.EventWindowDestroyed, events[0].Kind)
	assert.Equal(t, platform.WindowID(1), events[0].Window)

	// After closing the lifecycle subscription nothing is synthesized.
	require.NoError(t, lifecycle.Close())
	require.NoError(t, resize.Close())
	ax.AddWindow(platform.Window{ID: 3, PID: 100, Bounds: platform.Rect{Width: 100, Height: 100}})
	assert.Empty(t, p.diff())
}

func TestSubscribe_DuplicateRejected(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	p := NewPoller(ax, nil, time.Second, testLogger())

	h, err := p.SubscribeLifecycle(100)
	require.NoError(t, err)
	_, err = p.SubscribeLifecycle(100)
	assert.Error(t, err)

	require.NoError(t, h.Close())
	_, err = p.SubscribeLifecycle(100)
	assert.NoError(t, err, "resubscription after close is allowed")
}

func TestResizeHandle_ClosedHandleRejectsWindows(t *testing.T) {
	ax := platformtest.NewMockAccessibility()
	p := NewPoller(ax, nil, time.Second, testLogger())

	h, err := p.SubscribeResize(100)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	assert.Error(t, h.AddWindow(1))
	assert.Error(t, h.RemoveWindow(1))
}
