// Package platformtest provides a scriptable in-memory Accessibility
// implementation for tests.
package platformtest

import (
	"fmt"
	"sync"

	"github.com/winpin/winpin/internal/platform"
)

// SetCall records one SetAttribute invocation.
type SetCall struct {
	Window platform.WindowID
	Attr   platform.Attribute
	Value  platform.Point
}

// MockAccessibility implements platform.Accessibility against in-memory
// state. All mutators are safe for concurrent use.
type MockAccessibility struct {
	mu sync.Mutex

	Screen      platform.Rect
	TrustedFlag bool

	apps    map[string][]platform.App
	windows map[platform.PID][]platform.Window

	notSettable map[platform.WindowID]bool
	rejectAttr  map[platform.WindowID]platform.Attribute

	setCalls []SetCall
}

// NewMockAccessibility returns a mock with a 1920x1080 screen and trusted
// permission.
func NewMockAccessibility() *MockAccessibility {
	return &MockAccessibility{
		Screen:      platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		TrustedFlag: true,
		apps:        make(map[string][]platform.App),
		windows:     make(map[platform.PID][]platform.Window),
		notSettable: make(map[platform.WindowID]bool),
		rejectAttr:  make(map[platform.WindowID]platform.Attribute),
	}
}

// AddApp registers a running application instance.
func (m *MockAccessibility) AddApp(pid platform.PID, bundleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[bundleID] = append(m.apps[bundleID], platform.App{PID: pid, BundleID: bundleID})
}

// RemoveApp drops an application instance and its windows.
func (m *MockAccessibility) RemoveApp(pid platform.PID, bundleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apps := m.apps[bundleID][:0]
	for _, app := range m.apps[bundleID] {
		if app.PID != pid {
			apps = append(apps, app)
		}
	}
	m.apps[bundleID] = apps
	delete(m.windows, pid)
}

// AddWindow registers a window on a process.
func (m *MockAccessibility) AddWindow(w platform.Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[w.PID] = append(m.windows[w.PID], w)
}

// RemoveWindow drops a window from its process.
func (m *MockAccessibility) RemoveWindow(pid platform.PID, id platform.WindowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	windows := m.windows[pid][:0]
	for _, w := range m.windows[pid] {
		if w.ID != id {
			windows = append(windows, w)
		}
	}
	m.windows[pid] = windows
}

// MarkNotSettable makes IsSettable report false for a window.
func (m *MockAccessibility) MarkNotSettable(id platform.WindowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notSettable[id] = true
}

// RejectAttribute makes SetAttribute fail for one attribute of a window.
func (m *MockAccessibility) RejectAttribute(id platform.WindowID, attr platform.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectAttr[id] = attr
}

// SetCalls returns a copy of every recorded SetAttribute call.
func (m *MockAccessibility) SetCalls() []SetCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]SetCall, len(m.setCalls))
	copy(calls, m.setCalls)
	return calls
}

// AppliedRects reduces recorded calls to full rectangle applications: a
// position call followed by a size call on the same window.
func (m *MockAccessibility) AppliedRects() map[platform.WindowID][]platform.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make(map[platform.WindowID]platform.Point)
	applied := make(map[platform.WindowID][]platform.Rect)
	for _, call := range m.setCalls {
		switch call.Attr {
		case platform.AttrPosition:
			pending[call.Window] = call.Value
		case platform.AttrSize:
			pos, ok := pending[call.Window]
			if !ok {
				continue
			}
			applied[call.Window] = append(applied[call.Window], platform.Rect{
				X:      pos.X,
				Y:      pos.Y,
				Width:  call.Value.X,
				Height: call.Value.Y,
			})
			delete(pending, call.Window)
		}
	}
	return applied
}

func (m *MockAccessibility) Trusted() bool { return m.TrustedFlag }

func (m *MockAccessibility) RunningApplications(bundleID string) ([]platform.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apps := make([]platform.App, len(m.apps[bundleID]))
	copy(apps, m.apps[bundleID])
	return apps, nil
}

func (m *MockAccessibility) Windows(pid platform.PID) ([]platform.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	windows := make([]platform.Window, len(m.windows[pid]))
	copy(windows, m.windows[pid])
	return windows, nil
}

func (m *MockAccessibility) IsSettable(id platform.WindowID, attr platform.Attribute) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.notSettable[id], nil
}

func (m *MockAccessibility) SetAttribute(id platform.WindowID, attr platform.Attribute, value platform.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejectAttr[id] == attr {
		return fmt.Errorf("attribute %s rejected for window %d", attr, id)
	}
	m.setCalls = append(m.setCalls, SetCall{Window: id, Attr: attr, Value: value})

	// Keep the stored window bounds in sync so later polls see the change.
	for pid, windows := range m.windows {
		for i, w := range windows {
			if w.ID != id {
				continue
			}
			switch attr {
			case platform.AttrPosition:
				windows[i].Bounds.X = value.X
				windows[i].Bounds.Y = value.Y
			case platform.AttrSize:
				windows[i].Bounds.Width = value.X
				windows[i].Bounds.Height = value.Y
			}
			m.windows[pid] = windows
		}
	}
	return nil
}

func (m *MockAccessibility) ScreenRect() (platform.Rect, error) {
	return m.Screen, nil
}
