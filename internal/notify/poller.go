package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/winpin/winpin/internal/platform"
)

const (
	// DefaultInterval is the snapshot interval when none is configured.
	DefaultInterval = 500 * time.Millisecond

	eventBuffer = 64
)

// Poller synthesizes the five notification kinds by diffing capability
// snapshots on a fixed interval. It implements Subscriber; subscription
// bookkeeping decides which processes and windows produce events.
type Poller struct {
	ax       platform.Accessibility
	watch    []string
	interval time.Duration
	logger   *slog.Logger

	events chan platform.Event

	mu        sync.Mutex
	knownApps map[platform.PID]string
	lifecycle map[platform.PID]bool
	resize    map[platform.PID]map[platform.WindowID]bool
	snapshots map[platform.PID]map[platform.WindowID]platform.Rect
}

// NewPoller creates a poller scanning the given watch set. The watch set is
// fixed for the poller's lifetime; only the interval may change afterwards.
func NewPoller(ax platform.Accessibility, watch []string, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		ax:        ax,
		watch:     append([]string(nil), watch...),
		interval:  interval,
		logger:    logger,
		events:    make(chan platform.Event, eventBuffer),
		knownApps: make(map[platform.PID]string),
		lifecycle: make(map[platform.PID]bool),
		resize:    make(map[platform.PID]map[platform.WindowID]bool),
		snapshots: make(map[platform.PID]map[platform.WindowID]platform.Rect),
	}
}

// Events returns the notification channel. It is drained by exactly one
// consumer.
func (p *Poller) Events() <-chan platform.Event {
	return p.events
}

// SetInterval adjusts the snapshot interval for subsequent ticks.
func (p *Poller) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = interval
	p.mu.Unlock()
}

// Prime seeds the known-application set with processes the caller has
// already registered, so their launches are not re-announced and their
// terminations are detected from the first tick. Processes that appear after
// the caller's own enumeration are deliberately absent from known: the first
// tick announces them as launches.
func (p *Poller) Prime(known map[platform.PID]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for pid, bundleID := range known {
		p.knownApps[pid] = bundleID
	}
}

// Run drives the snapshot loop until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("notifier started", "interval", p.currentInterval(), "watch", p.watch)
	for {
		timer := time.NewTimer(p.currentInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("notifier stopped")
			return
		case <-timer.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// tick performs one snapshot pass: watch-set launch/terminate diffing, then
// per-subscription window diffing.
func (p *Poller) tick(ctx context.Context) {
	for _, ev := range p.diff() {
		select {
		case p.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) diff() []platform.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []platform.Event

	// Launch/terminate scan over the watch set.
	current := make(map[platform.PID]string)
	for _, bundleID := range p.watch {
		apps, err := p.ax.RunningApplications(bundleID)
		if err != nil {
			p.logger.Warn("application scan failed", "bundle_id", bundleID, "error", err)
			continue
		}
		for _, app := range apps {
			current[app.PID] = bundleID
		}
	}
	for pid, bundleID := range current {
		if _, known := p.knownApps[pid]; !known {
			out = append(out, platform.Event{Kind: platform.EventAppLaunched, PID: pid, BundleID: bundleID})
		}
	}
	for pid, bundleID := range p.knownApps {
		if _, alive := current[pid]; !alive {
			out = append(out, platform.Event{Kind: platform.EventAppTerminated, PID: pid, BundleID: bundleID})
		}
	}
	p.knownApps = current

	// Window diffing for subscribed processes.
	for pid := range p.lifecycle {
		windows, err := p.ax.Windows(pid)
		if err != nil {
			p.logger.Warn("window scan failed", "pid", pid, "error", err)
			continue
		}

		previous := p.snapshots[pid]
		next := make(map[platform.WindowID]platform.Rect, len(windows))
		for _, w := range windows {
			next[w.ID] = w.Bounds
			bounds, seen := previous[w.ID]
			if !seen {
				out = append(out, platform.Event{Kind: platform.EventWindowCreated, PID: pid, Window: w.ID})
				continue
			}
			if bounds != w.Bounds && p.resize[pid][w.ID] {
				out = append(out, platform.Event{Kind: platform.EventWindowResized, PID: pid, Window: w.ID})
			}
		}
		for id := range previous {
			if _, alive := next[id]; !alive {
				out = append(out, platform.Event{Kind: platform.EventWindowDestroyed, PID: pid, Window: id})
			}
		}
		p.snapshots[pid] = next
	}

	return out
}

// SubscribeLifecycle arms window-created/destroyed synthesis for a process.
// The current window set is snapshotted so pre-existing windows are not
// announced as created.
func (p *Poller) SubscribeLifecycle(pid platform.PID) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lifecycle[pid] {
		return nil, fmt.Errorf("lifecycle subscription already exists for pid %d", pid)
	}

	windows, err := p.ax.Windows(pid)
	if err != nil {
		return nil, fmt.Errorf("subscribe lifecycle pid %d: %w", pid, err)
	}
	snapshot := make(map[platform.WindowID]platform.Rect, len(windows))
	for _, w := range windows {
		snapshot[w.ID] = w.Bounds
	}

	p.lifecycle[pid] = true
	p.snapshots[pid] = snapshot
	return &lifecycleHandle{poller: p, pid: pid}, nil
}

// SubscribeResize arms window-resized synthesis for a process.
func (p *Poller) SubscribeResize(pid platform.PID) (ResizeHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.resize[pid]; exists {
		return nil, fmt.Errorf("resize subscription already exists for pid %d", pid)
	}
	p.resize[pid] = make(map[platform.WindowID]bool)
	return &resizeHandle{poller: p, pid: pid}, nil
}

type lifecycleHandle struct {
	poller *Poller
	pid    platform.PID
}

func (h *lifecycleHandle) Close() error {
	h.poller.mu.Lock()
	defer h.poller.mu.Unlock()
	delete(h.poller.lifecycle, h.pid)
	delete(h.poller.snapshots, h.pid)
	return nil
}

type resizeHandle struct {
	poller *Poller
	pid    platform.PID
}

func (h *resizeHandle) AddWindow(id platform.WindowID) error {
	h.poller.mu.Lock()
	defer h.poller.mu.Unlock()
	set, ok := h.poller.resize[h.pid]
	if !ok {
		return fmt.Errorf("resize subscription for pid %d is closed", h.pid)
	}
	set[id] = true
	return nil
}

func (h *resizeHandle) RemoveWindow(id platform.WindowID) error {
	h.poller.mu.Lock()
	defer h.poller.mu.Unlock()
	set, ok := h.poller.resize[h.pid]
	if !ok {
		return fmt.Errorf("resize subscription for pid %d is closed", h.pid)
	}
	delete(set, id)
	return nil
}

func (h *resizeHandle) Close() error {
	h.poller.mu.Lock()
	defer h.poller.mu.Unlock()
	delete(h.poller.resize, h.pid)
	return nil
}
