// Package registry holds the per-process tracking state: which windows are
// subscribed for resize notifications, the subscription handles needed to
// tear them down, and the per-bundle target rectangles.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/winpin/winpin/internal/frame"
	"github.com/winpin/winpin/internal/layout"
	"github.com/winpin/winpin/internal/notify"
	"github.com/winpin/winpin/internal/platform"
)

// ErrAlreadyRegistered means a pid was registered twice without an
// intervening termination. Relaunches arrive with a new pid, so this is an
// invariant violation rather than a normal race.
var ErrAlreadyRegistered = errors.New("process already registered")

// ErrUnknownProcess means an operation referenced a pid that is not tracked.
var ErrUnknownProcess = errors.New("process not tracked")

// WindowIdentity pairs a window's platform number with a ULID minted at first
// observation. The window number (a CGWindowID, stable for the lifetime of
// the window) is the tracking key; the ULID appears only in log output, to
// correlate entries across a window's lifetime.
type WindowIdentity struct {
	Token  ulid.ULID
	Window platform.WindowID
}

// trackedApp is the registry entry for one running process.
type trackedApp struct {
	pid       platform.PID
	bundleID  string
	lifecycle notify.Handle
	resize    notify.ResizeHandle
	windows   map[platform.WindowID]WindowIdentity
}

// Registry owns all subscription handles it creates. It is mutated only from
// the observer goroutine; no internal locking is needed or provided.
type Registry struct {
	ax      platform.Accessibility
	subs    notify.Subscriber
	applier *frame.Applier
	logger  *slog.Logger

	apps    map[platform.PID]*trackedApp
	targets map[string]platform.Rect
}

// New creates an empty registry.
func New(ax platform.Accessibility, subs notify.Subscriber, applier *frame.Applier, logger *slog.Logger) *Registry {
	return &Registry{
		ax:      ax,
		subs:    subs,
		applier: applier,
		logger:  logger,
		apps:    make(map[platform.PID]*trackedApp),
		targets: make(map[string]platform.Rect),
	}
}

// Target returns the rectangle windows of a bundle should be pinned to: the
// command-installed override when one exists, otherwise the default inset
// rectangle of the current screen.
func (r *Registry) Target(bundleID string) (platform.Rect, error) {
	if rect, ok := r.targets[bundleID]; ok {
		return rect, nil
	}
	screen, err := r.ax.ScreenRect()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("resolve screen rectangle: %w", err)
	}
	return layout.Compute(screen, layout.PositionDefault), nil
}

// SetTarget installs a new target rectangle for a bundle. Subsequent resize
// re-application uses it in place of the default inset rectangle.
func (r *Registry) SetTarget(bundleID string, rect platform.Rect) {
	r.targets[bundleID] = rect
}

// Register starts tracking a process: subscribes its lifecycle and resize
// notification sources, then observes every window currently open on it.
// Geometry failures on individual windows do not fail registration; the
// window stays subscribed so a later event can retry.
func (r *Registry) Register(pid platform.PID, bundleID string) error {
	if _, exists := r.apps[pid]; exists {
		return fmt.Errorf("%w: pid %d (%s)", ErrAlreadyRegistered, pid, bundleID)
	}

	lifecycle, err := r.subs.SubscribeLifecycle(pid)
	if err != nil {
		return fmt.Errorf("subscribe lifecycle for pid %d: %w", pid, err)
	}
	resize, err := r.subs.SubscribeResize(pid)
	if err != nil {
		_ = lifecycle.Close()
		return fmt.Errorf("subscribe resize for pid %d: %w", pid, err)
	}

	windows, err := r.ax.Windows(pid)
	if err != nil {
		_ = resize.Close()
		_ = lifecycle.Close()
		return fmt.Errorf("enumerate windows for pid %d: %w", pid, err)
	}

	app := &trackedApp{
		pid:       pid,
		bundleID:  bundleID,
		lifecycle: lifecycle,
		resize:    resize,
		windows:   make(map[platform.WindowID]WindowIdentity, len(windows)),
	}
	r.apps[pid] = app

	for _, w := range windows {
		r.trackWindow(app, w.ID)
	}

	r.logger.Info("application registered",
		"pid", pid, "bundle_id", bundleID, "windows", len(app.windows))
	return nil
}

// ObserveWindow starts tracking one window of a registered process.
// Idempotent: a window already tracked is left untouched and no second
// subscription is created.
func (r *Registry) ObserveWindow(pid platform.PID, id platform.WindowID) error {
	app, ok := r.apps[pid]
	if !ok {
		return fmt.Errorf("%w: pid %d", ErrUnknownProcess, pid)
	}
	if _, tracked := app.windows[id]; tracked {
		return nil
	}
	r.trackWindow(app, id)
	return nil
}

// trackWindow mints an identity, applies the bundle target, and subscribes
// the window for resize notifications.
func (r *Registry) trackWindow(app *trackedApp, id platform.WindowID) {
	identity := WindowIdentity{Token: ulid.Make(), Window: id}
	app.windows[id] = identity

	rect, err := r.Target(app.bundleID)
	if err != nil {
		r.logger.Warn("target rectangle unavailable",
			"pid", app.pid, "window", id, "error", err)
	} else if err := r.applier.Apply(id, rect); err != nil {
		// Still subscribed below: the next resize event retries.
		r.logger.Warn("initial frame application failed",
			"pid", app.pid, "window", id, "token", identity.Token.String(), "error", err)
	}

	if err := app.resize.AddWindow(id); err != nil {
		r.logger.Warn("resize subscription failed for window",
			"pid", app.pid, "window", id, "error", err)
	}

	r.logger.Debug("window tracked",
		"pid", app.pid, "window", id, "token", identity.Token.String())
}

// ForgetWindow stops tracking one window. Unknown pids or windows are a
// logged no-op, not an error.
func (r *Registry) ForgetWindow(pid platform.PID, id platform.WindowID) {
	app, ok := r.apps[pid]
	if !ok {
		r.logger.Debug("forget window for untracked process", "pid", pid, "window", id)
		return
	}
	if _, tracked := app.windows[id]; !tracked {
		r.logger.Debug("forget untracked window", "pid", pid, "window", id)
		return
	}
	delete(app.windows, id)
	if err := app.resize.RemoveWindow(id); err != nil {
		r.logger.Warn("resize unsubscribe failed", "pid", pid, "window", id, "error", err)
	}
	r.logger.Debug("window forgotten", "pid", pid, "window", id)
}

// Unregister tears down both notification sources, then drops the entry.
// Both handles are closed before removal so no notification can arrive for a
// registry entry that no longer exists. Safe to call on an unknown pid.
func (r *Registry) Unregister(pid platform.PID) {
	app, ok := r.apps[pid]
	if !ok {
		return
	}
	if err := app.resize.Close(); err != nil {
		r.logger.Warn("resize subscription close failed", "pid", pid, "error", err)
	}
	if err := app.lifecycle.Close(); err != nil {
		r.logger.Warn("lifecycle subscription close failed", "pid", pid, "error", err)
	}
	delete(r.apps, pid)
	r.logger.Info("application unregistered", "pid", pid, "bundle_id", app.bundleID)
}

// Has reports whether a pid is tracked.
func (r *Registry) Has(pid platform.PID) bool {
	_, ok := r.apps[pid]
	return ok
}

// HasWindow reports whether a window is tracked for a pid.
func (r *Registry) HasWindow(pid platform.PID, id platform.WindowID) bool {
	app, ok := r.apps[pid]
	if !ok {
		return false
	}
	_, tracked := app.windows[id]
	return tracked
}

// BundleID returns the bundle identifier a pid was registered under.
func (r *Registry) BundleID(pid platform.PID) (string, bool) {
	app, ok := r.apps[pid]
	if !ok {
		return "", false
	}
	return app.bundleID, true
}

// Tracked returns the bundle identifier of every tracked process, keyed by
// pid. The map is a copy.
func (r *Registry) Tracked() map[platform.PID]string {
	out := make(map[platform.PID]string, len(r.apps))
	for pid, app := range r.apps {
		out[pid] = app.bundleID
	}
	return out
}

// Size returns the number of tracked processes.
func (r *Registry) Size() int {
	return len(r.apps)
}

// WindowCount returns the number of tracked windows for a pid.
func (r *Registry) WindowCount(pid platform.PID) int {
	app, ok := r.apps[pid]
	if !ok {
		return 0
	}
	return len(app.windows)
}
