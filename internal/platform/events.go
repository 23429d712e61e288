package platform

// EventKind enumerates the notification kinds the core consumes.
type EventKind string

const (
	EventAppLaunched     EventKind = "app-launched"
	EventAppTerminated   EventKind = "app-terminated"
	EventWindowCreated   EventKind = "window-created"
	EventWindowDestroyed EventKind = "window-destroyed"
	EventWindowResized   EventKind = "window-resized"
)

// Event is one asynchronous platform notification. PID is always set; Window
// is set for the three window-scoped kinds and BundleID for the two
// application-scoped kinds.
type Event struct {
	Kind     EventKind
	PID      PID
	BundleID string
	Window   WindowID
}
