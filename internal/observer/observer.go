// Package observer drives the registry and frame applier from asynchronous
// platform notifications and command requests. Every registry mutation
// happens on the single goroutine running Run, which is the only consumer of
// both channels.
package observer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/winpin/winpin/internal/frame"
	"github.com/winpin/winpin/internal/layout"
	"github.com/winpin/winpin/internal/platform"
	"github.com/winpin/winpin/internal/registry"
)

// Command is an out-of-band reposition request for every live window of a
// bundle. It bypasses the registry lookup path and installs the resolved
// rectangle as the bundle's new target.
type Command struct {
	BundleID string
	Position layout.Position
}

// Observer is the notification-driven state machine.
type Observer struct {
	ax       platform.Accessibility
	registry *registry.Registry
	applier  *frame.Applier
	watch    map[string]bool
	events   <-chan platform.Event
	commands chan Command
	logger   *slog.Logger
}

// New creates an observer over the given watch set and notification channel.
func New(ax platform.Accessibility, reg *registry.Registry, applier *frame.Applier,
	watch []string, events <-chan platform.Event, logger *slog.Logger) *Observer {
	watchSet := make(map[string]bool, len(watch))
	for _, bundleID := range watch {
		watchSet[bundleID] = true
	}
	return &Observer{
		ax:       ax,
		registry: reg,
		applier:  applier,
		watch:    watchSet,
		events:   events,
		commands: make(chan Command, 16),
		logger:   logger,
	}
}

// Submit hands a command request to the observer goroutine. Safe to call
// from any goroutine; blocks only when the command queue is full.
func (o *Observer) Submit(ctx context.Context, cmd Command) error {
	select {
	case o.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bootstrap registers every already-running watched application. Called
// synchronously before the notification source is armed, closing the race
// where a relevant window exists before launch-notification delivery begins.
func (o *Observer) Bootstrap() {
	for bundleID := range o.watch {
		apps, err := o.ax.RunningApplications(bundleID)
		if err != nil {
			o.logger.Warn("startup enumeration failed", "bundle_id", bundleID, "error", err)
			continue
		}
		for _, app := range apps {
			if err := o.registry.Register(app.PID, bundleID); err != nil {
				o.logger.Warn("startup registration failed",
					"pid", app.PID, "bundle_id", bundleID, "error", err)
			}
		}
	}
}

// Run consumes notifications and commands until the context is cancelled.
func (o *Observer) Run(ctx context.Context) {
	o.logger.Info("observer started", "watched_bundles", len(o.watch))
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("observer stopped")
			return
		case ev := <-o.events:
			o.handleEvent(ev)
		case cmd := <-o.commands:
			o.handleCommand(cmd)
		}
	}
}

func (o *Observer) handleEvent(ev platform.Event) {
	switch ev.Kind {
	case platform.EventAppLaunched:
		if !o.watch[ev.BundleID] {
			o.logger.Debug("launch outside watch set ignored", "bundle_id", ev.BundleID, "pid", ev.PID)
			return
		}
		if o.registry.Has(ev.PID) {
			// Bootstrap already registered this pid; registration is
			// exactly-once per pid.
			o.logger.Debug("launch for registered process ignored", "pid", ev.PID)
			return
		}
		if err := o.registry.Register(ev.PID, ev.BundleID); err != nil {
			if errors.Is(err, registry.ErrAlreadyRegistered) {
				o.logger.Error("registration invariant violated", "pid", ev.PID, "error", err)
				return
			}
			o.logger.Warn("registration failed", "pid", ev.PID, "bundle_id", ev.BundleID, "error", err)
		}

	case platform.EventAppTerminated:
		if !o.registry.Has(ev.PID) {
			o.logger.Debug("termination for untracked process ignored", "pid", ev.PID)
			return
		}
		o.registry.Unregister(ev.PID)

	case platform.EventWindowCreated:
		if !o.registry.Has(ev.PID) {
			o.logger.Debug("window creation for untracked process ignored",
				"pid", ev.PID, "window", ev.Window)
			return
		}
		if err := o.registry.ObserveWindow(ev.PID, ev.Window); err != nil {
			o.logger.Warn("window observation failed",
				"pid", ev.PID, "window", ev.Window, "error", err)
		}

	case platform.EventWindowDestroyed:
		o.registry.ForgetWindow(ev.PID, ev.Window)

	case platform.EventWindowResized:
		o.handleResize(ev)

	default:
		o.logger.Warn("unknown event kind", "kind", ev.Kind)
	}
}

// handleResize re-applies the bundle's target rectangle to a tracked window.
// Apply failures are the recoverable kind: the next resize event retries.
func (o *Observer) handleResize(ev platform.Event) {
	if !o.registry.HasWindow(ev.PID, ev.Window) {
		o.logger.Debug("resize for untracked window ignored", "pid", ev.PID, "window", ev.Window)
		return
	}
	bundleID, _ := o.registry.BundleID(ev.PID)

	rect, err := o.registry.Target(bundleID)
	if err != nil {
		o.logger.Warn("target rectangle unavailable", "bundle_id", bundleID, "error", err)
		return
	}
	if err := o.applier.Apply(ev.Window, rect); err != nil {
		o.logApplyFailure(ev.Window, err)
	}
}

// handleCommand repositions every live window of the bundle and stores the
// resolved rectangle as the bundle's new target. Live windows are resolved
// directly through the capability, independent of the registry.
func (o *Observer) handleCommand(cmd Command) {
	screen, err := o.ax.ScreenRect()
	if err != nil {
		o.logger.Warn("command dropped: screen rectangle unavailable", "error", err)
		return
	}
	rect := layout.Compute(screen, cmd.Position)

	apps, err := o.ax.RunningApplications(cmd.BundleID)
	if err != nil {
		o.logger.Warn("command dropped: application enumeration failed",
			"bundle_id", cmd.BundleID, "error", err)
		return
	}

	applied := 0
	for _, app := range apps {
		windows, err := o.ax.Windows(app.PID)
		if err != nil {
			o.logger.Warn("window enumeration failed", "pid", app.PID, "error", err)
			continue
		}
		for _, w := range windows {
			if err := o.applier.Apply(w.ID, rect); err != nil {
				o.logApplyFailure(w.ID, err)
				continue
			}
			applied++
		}
	}

	o.registry.SetTarget(cmd.BundleID, rect)
	o.logger.Info("command applied",
		"bundle_id", cmd.BundleID, "position", string(cmd.Position),
		"windows", applied, "instances", len(apps))
}

func (o *Observer) logApplyFailure(id platform.WindowID, err error) {
	var rejected *frame.PlatformRejectedError
	switch {
	case errors.Is(err, frame.ErrNotSettable):
		o.logger.Debug("window not settable, skipped", "window", id)
	case errors.As(err, &rejected):
		o.logger.Warn("frame write rejected", "window", id, "stage", string(rejected.Stage), "error", err)
	default:
		o.logger.Warn("frame application failed", "window", id, "error", err)
	}
}
