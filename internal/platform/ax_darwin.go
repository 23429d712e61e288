//go:build darwin && cgo

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices -framework CoreGraphics -framework CoreFoundation -framework Foundation
#include <AppKit/AppKit.h>
#include <ApplicationServices/ApplicationServices.h>
#include <CoreGraphics/CoreGraphics.h>
#include <stdlib.h>
#include <string.h>

// Private but long-stable: maps an AX window element to its CGWindowID.
extern AXError _AXUIElementGetWindow(AXUIElementRef element, CGWindowID *out);

static int ax_is_trusted(void) {
	return AXIsProcessTrusted() ? 1 : 0;
}

typedef struct {
	pid_t pid;
} AppInfo;

static int ws_running_apps(const char *bundleID, AppInfo **outApps, int *outCount) {
	@autoreleasepool {
		NSString *wanted = [NSString stringWithUTF8String:bundleID];
		NSArray<NSRunningApplication *> *apps =
			[[NSWorkspace sharedWorkspace] runningApplications];

		AppInfo *result = malloc(sizeof(AppInfo) * [apps count]);
		if (result == NULL) {
			return -1;
		}
		int n = 0;
		for (NSRunningApplication *app in apps) {
			if (app.bundleIdentifier != nil &&
				[app.bundleIdentifier isEqualToString:wanted]) {
				result[n].pid = app.processIdentifier;
				n++;
			}
		}
		*outApps = result;
		*outCount = n;
		return 0;
	}
}

typedef struct {
	uint32_t windowID;
	pid_t pid;
	char title[256];
	double x, y, w, h;
} WinInfo;

static int cg_list_windows(pid_t pid, WinInfo **outWins, int *outCount) {
	CFArrayRef list = CGWindowListCopyWindowInfo(
		kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
		kCGNullWindowID);
	if (list == NULL) {
		return -1;
	}

	CFIndex total = CFArrayGetCount(list);
	WinInfo *result = malloc(sizeof(WinInfo) * (total > 0 ? total : 1));
	if (result == NULL) {
		CFRelease(list);
		return -1;
	}

	int n = 0;
	for (CFIndex i = 0; i < total; i++) {
		CFDictionaryRef info = CFArrayGetValueAtIndex(list, i);

		int layer = -1;
		CFNumberRef layerRef = CFDictionaryGetValue(info, kCGWindowLayer);
		if (layerRef != NULL) {
			CFNumberGetValue(layerRef, kCFNumberIntType, &layer);
		}
		if (layer != 0) {
			continue; // real application windows only
		}

		pid_t owner = 0;
		CFNumberRef pidRef = CFDictionaryGetValue(info, kCGWindowOwnerPID);
		if (pidRef != NULL) {
			CFNumberGetValue(pidRef, kCFNumberIntType, &owner);
		}
		if (pid != 0 && owner != pid) {
			continue;
		}

		uint32_t num = 0;
		CFNumberRef numRef = CFDictionaryGetValue(info, kCGWindowNumber);
		if (numRef != NULL) {
			CFNumberGetValue(numRef, kCFNumberSInt32Type, &num);
		}

		WinInfo *wi = &result[n];
		memset(wi, 0, sizeof(WinInfo));
		wi->windowID = num;
		wi->pid = owner;

		CFDictionaryRef boundsRef = CFDictionaryGetValue(info, kCGWindowBounds);
		if (boundsRef != NULL) {
			CGRect bounds;
			CGRectMakeWithDictionaryRepresentation(boundsRef, &bounds);
			wi->x = bounds.origin.x;
			wi->y = bounds.origin.y;
			wi->w = bounds.size.width;
			wi->h = bounds.size.height;
		}

		CFStringRef titleRef = CFDictionaryGetValue(info, kCGWindowName);
		if (titleRef != NULL) {
			CFStringGetCString(titleRef, wi->title, sizeof(wi->title),
				kCFStringEncodingUTF8);
		}

		n++;
	}

	CFRelease(list);
	*outWins = result;
	*outCount = n;
	return 0;
}

// ax_copy_window resolves a CGWindowID to the owning application's AX window
// element. Returns NULL when the window no longer exists. Caller releases.
static AXUIElementRef ax_copy_window(pid_t pid, uint32_t windowID) {
	AXUIElementRef app = AXUIElementCreateApplication(pid);
	if (app == NULL) {
		return NULL;
	}

	CFArrayRef windows = NULL;
	AXError err = AXUIElementCopyAttributeValue(app, kAXWindowsAttribute,
		(CFTypeRef *)&windows);
	CFRelease(app);
	if (err != kAXErrorSuccess || windows == NULL) {
		return NULL;
	}

	AXUIElementRef found = NULL;
	CFIndex count = CFArrayGetCount(windows);
	for (CFIndex i = 0; i < count; i++) {
		AXUIElementRef win = (AXUIElementRef)CFArrayGetValueAtIndex(windows, i);
		CGWindowID num = 0;
		if (_AXUIElementGetWindow(win, &num) == kAXErrorSuccess &&
			num == windowID) {
			found = (AXUIElementRef)CFRetain(win);
			break;
		}
	}

	CFRelease(windows);
	return found;
}

static int ax_is_settable(pid_t pid, uint32_t windowID, const char *attr, int *settable) {
	AXUIElementRef win = ax_copy_window(pid, windowID);
	if (win == NULL) {
		return -1;
	}

	CFStringRef attrRef = CFStringCreateWithCString(kCFAllocatorDefault, attr,
		kCFStringEncodingUTF8);
	Boolean can = false;
	AXError err = AXUIElementIsAttributeSettable(win, attrRef, &can);
	CFRelease(attrRef);
	CFRelease(win);

	if (err != kAXErrorSuccess) {
		return -1;
	}
	*settable = can ? 1 : 0;
	return 0;
}

static int ax_set_point(pid_t pid, uint32_t windowID, const char *attr, int isSize, double x, double y) {
	AXUIElementRef win = ax_copy_window(pid, windowID);
	if (win == NULL) {
		return -1;
	}

	AXValueRef value;
	if (isSize) {
		CGSize size = CGSizeMake(x, y);
		value = AXValueCreate(kAXValueTypeCGSize, &size);
	} else {
		CGPoint point = CGPointMake(x, y);
		value = AXValueCreate(kAXValueTypeCGPoint, &point);
	}
	if (value == NULL) {
		CFRelease(win);
		return -1;
	}

	CFStringRef attrRef = CFStringCreateWithCString(kCFAllocatorDefault, attr,
		kCFStringEncodingUTF8);
	AXError err = AXUIElementSetAttributeValue(win, attrRef, value);
	CFRelease(attrRef);
	CFRelease(value);
	CFRelease(win);

	return err == kAXErrorSuccess ? 0 : (int)err;
}

// ns_screen_rect returns the visible frame of the main screen converted to
// top-left origin AX coordinates. The visible frame already excludes the menu
// bar, the Dock, and any camera housing cutout.
static int ns_screen_rect(double *x, double *y, double *w, double *h) {
	@autoreleasepool {
		NSArray<NSScreen *> *screens = [NSScreen screens];
		if ([screens count] == 0) {
			return -1;
		}
		NSScreen *main = screens[0];
		NSRect frame = [main frame];
		NSRect visible = [main visibleFrame];

		*x = visible.origin.x;
		*y = frame.size.height - (visible.origin.y + visible.size.height);
		*w = visible.size.width;
		*h = visible.size.height;
		return 0;
	}
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// darwinAccessibility implements Accessibility on top of the macOS
// accessibility and CoreGraphics APIs.
type darwinAccessibility struct {
	mu          sync.Mutex
	pidByWindow map[WindowID]PID
}

func init() {
	NewAccessibilityFunc = func() (Accessibility, error) {
		return &darwinAccessibility{
			pidByWindow: make(map[WindowID]PID),
		}, nil
	}
}

func (a *darwinAccessibility) Trusted() bool {
	return C.ax_is_trusted() != 0
}

func (a *darwinAccessibility) RunningApplications(bundleID string) ([]App, error) {
	cBundle := C.CString(bundleID)
	defer C.free(unsafe.Pointer(cBundle))

	var cApps *C.AppInfo
	var cCount C.int
	if C.ws_running_apps(cBundle, &cApps, &cCount) != 0 {
		return nil, fmt.Errorf("failed to enumerate running applications")
	}
	defer C.free(unsafe.Pointer(cApps))

	count := int(cCount)
	if count == 0 {
		return nil, nil
	}

	cSlice := unsafe.Slice(cApps, count)
	apps := make([]App, 0, count)
	for i := 0; i < count; i++ {
		apps = append(apps, App{PID: PID(cSlice[i].pid), BundleID: bundleID})
	}
	return apps, nil
}

func (a *darwinAccessibility) Windows(pid PID) ([]Window, error) {
	var cWins *C.WinInfo
	var cCount C.int
	if C.cg_list_windows(C.pid_t(pid), &cWins, &cCount) != 0 {
		return nil, fmt.Errorf("failed to enumerate windows for pid %d", pid)
	}
	defer C.free(unsafe.Pointer(cWins))

	count := int(cCount)
	windows := make([]Window, 0, count)
	if count == 0 {
		return windows, nil
	}

	cSlice := unsafe.Slice(cWins, count)
	a.mu.Lock()
	for i := 0; i < count; i++ {
		cw := cSlice[i]
		id := WindowID(cw.windowID)
		a.pidByWindow[id] = PID(cw.pid)
		windows = append(windows, Window{
			ID:    id,
			PID:   PID(cw.pid),
			Title: C.GoString(&cw.title[0]),
			Bounds: Rect{
				X:      int(cw.x),
				Y:      int(cw.y),
				Width:  int(cw.w),
				Height: int(cw.h),
			},
		})
	}
	a.mu.Unlock()
	return windows, nil
}

// ownerPID resolves the process owning a window, preferring the cache filled
// by Windows and falling back to a fresh window-list scan.
func (a *darwinAccessibility) ownerPID(id WindowID) (PID, error) {
	a.mu.Lock()
	pid, ok := a.pidByWindow[id]
	a.mu.Unlock()
	if ok {
		return pid, nil
	}

	windows, err := a.Windows(0)
	if err != nil {
		return 0, err
	}
	for _, w := range windows {
		if w.ID == id {
			return w.PID, nil
		}
	}
	return 0, fmt.Errorf("window %d not found", id)
}

func (a *darwinAccessibility) IsSettable(id WindowID, attr Attribute) (bool, error) {
	pid, err := a.ownerPID(id)
	if err != nil {
		return false, err
	}

	cAttr := C.CString(string(attr))
	defer C.free(unsafe.Pointer(cAttr))

	var settable C.int
	if C.ax_is_settable(C.pid_t(pid), C.uint32_t(id), cAttr, &settable) != 0 {
		return false, fmt.Errorf("failed to query %s on window %d", attr, id)
	}
	return settable != 0, nil
}

func (a *darwinAccessibility) SetAttribute(id WindowID, attr Attribute, value Point) error {
	pid, err := a.ownerPID(id)
	if err != nil {
		return err
	}

	cAttr := C.CString(string(attr))
	defer C.free(unsafe.Pointer(cAttr))

	isSize := C.int(0)
	if attr == AttrSize {
		isSize = 1
	}
	if rc := C.ax_set_point(C.pid_t(pid), C.uint32_t(id), cAttr, isSize,
		C.double(value.X), C.double(value.Y)); rc != 0 {
		return fmt.Errorf("accessibility API rejected %s on window %d (AXError %d)", attr, id, int(rc))
	}
	return nil
}

func (a *darwinAccessibility) ScreenRect() (Rect, error) {
	var x, y, w, h C.double
	if C.ns_screen_rect(&x, &y, &w, &h) != 0 {
		return Rect{}, fmt.Errorf("failed to read main screen geometry")
	}
	return Rect{X: int(x), Y: int(y), Width: int(w), Height: int(h)}, nil
}
