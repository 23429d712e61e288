// Package notify turns the platform's push-callback notification model into
// an explicit message-passing one: a poller diffs capability snapshots and
// delivers typed events on a single channel consumed by the observer.
package notify

import "github.com/winpin/winpin/internal/platform"

// Handle is a live notification subscription. Closing it guarantees no
// further events are synthesized for its scope.
type Handle interface {
	Close() error
}

// ResizeHandle is a per-application resize subscription. Individual windows
// are added and removed as they are tracked.
type ResizeHandle interface {
	Handle
	AddWindow(id platform.WindowID) error
	RemoveWindow(id platform.WindowID) error
}

// Subscriber creates notification subscriptions for one application. The
// registry owns every handle it receives.
type Subscriber interface {
	// SubscribeLifecycle arms window-created/destroyed events for a process.
	SubscribeLifecycle(pid platform.PID) (Handle, error)

	// SubscribeResize arms window-resized events for a process; windows are
	// opted in individually via the returned handle.
	SubscribeResize(pid platform.PID) (ResizeHandle, error)
}
