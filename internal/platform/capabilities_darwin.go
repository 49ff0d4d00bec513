//go:build cgo

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices -framework CoreGraphics

#import <AppKit/AppKit.h>
#import <ApplicationServices/ApplicationServices.h>
#include <string.h>

static long clipguard_change_count(void) {
	@autoreleasepool {
		return [[NSPasteboard generalPasteboard] changeCount];
	}
}

static int clipguard_frontmost(char *idBuf, int idCap, char *nameBuf, int nameCap) {
	@autoreleasepool {
		NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
		if (app == nil) {
			return -1;
		}
		NSString *bid = [app bundleIdentifier];
		NSString *name = [app localizedName];
		idBuf[0] = 0;
		nameBuf[0] = 0;
		if (bid != nil) {
			strlcpy(idBuf, [bid UTF8String], idCap);
		}
		if (name != nil) {
			strlcpy(nameBuf, [name UTF8String], nameCap);
		}
		return 0;
	}
}

static bool clipguard_ax_trusted(void) {
	return AXIsProcessTrusted();
}

// kVK_ANSI_V. The callback ignores shift so Cmd+Shift+V (paste as
// plain text) is suppressed as well.
#define CLIPGUARD_KEY_V 9

static CFMachPortRef clipguardTap = NULL;
static CFRunLoopSourceRef clipguardTapSource = NULL;

static CGEventRef clipguard_tap_callback(CGEventTapProxy proxy, CGEventType type,
		CGEventRef event, void *info) {
	if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
		// The WindowServer disables slow taps; re-enable and pass
		// the event through rather than losing the hook silently.
		if (clipguardTap != NULL) {
			CGEventTapEnable(clipguardTap, true);
		}
		return event;
	}
	if (type != kCGEventKeyDown) {
		return event;
	}
	int64_t keycode = CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
	CGEventFlags flags = CGEventGetFlags(event);
	if (keycode == CLIPGUARD_KEY_V && (flags & kCGEventFlagMaskCommand)) {
		return NULL;
	}
	return event;
}

static int clipguard_tap_install(void) {
	if (clipguardTap != NULL) {
		return 0;
	}
	CGEventMask mask = CGEventMaskBit(kCGEventKeyDown);
	clipguardTap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap,
		kCGEventTapOptionDefault, mask, clipguard_tap_callback, NULL);
	if (clipguardTap == NULL) {
		return -1;
	}
	clipguardTapSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, clipguardTap, 0);
	CFRunLoopAddSource(CFRunLoopGetCurrent(), clipguardTapSource, kCFRunLoopDefaultMode);
	CGEventTapEnable(clipguardTap, true);
	return 0;
}

static void clipguard_tap_remove(void) {
	if (clipguardTap == NULL) {
		return;
	}
	CGEventTapEnable(clipguardTap, false);
	CFRunLoopRemoveSource(CFRunLoopGetCurrent(), clipguardTapSource, kCFRunLoopDefaultMode);
	CFRelease(clipguardTapSource);
	CFRelease(clipguardTap);
	clipguardTapSource = NULL;
	clipguardTap = NULL;
}

static void clipguard_tap_service(double seconds) {
	CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, true);
}
*/
import "C"

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

const frontmostBufSize = 512

// darwinCapabilities reads the pasteboard change counter and the
// frontmost application through AppKit, and gates interception on
// the Accessibility permission.
type darwinCapabilities struct {
	logger *zap.Logger
}

// New returns the macOS capability provider.
func New(logger *zap.Logger) domain.Capabilities {
	return &darwinCapabilities{logger: logger}
}

func (c *darwinCapabilities) ClipboardRevision() (uint64, error) {
	count := C.clipguard_change_count()
	if count < 0 {
		return 0, fmt.Errorf("pasteboard change count unavailable")
	}
	return uint64(count), nil
}

func (c *darwinCapabilities) FrontmostApp() (domain.AppIdentity, error) {
	idBuf := make([]C.char, frontmostBufSize)
	nameBuf := make([]C.char, frontmostBufSize)
	rc := C.clipguard_frontmost(&idBuf[0], frontmostBufSize, &nameBuf[0], frontmostBufSize)
	if rc != 0 {
		return domain.AppIdentity{}, fmt.Errorf("no frontmost application")
	}
	return domain.AppIdentity{
		ID:   C.GoString(&idBuf[0]),
		Name: C.GoString(&nameBuf[0]),
	}, nil
}

// InterceptionPermitted reports the Accessibility trust state. The
// OS can revoke it at any time, so this is re-read per decision.
func (c *darwinCapabilities) InterceptionPermitted() bool {
	return bool(C.clipguard_ax_trusted())
}

func (c *darwinCapabilities) NewInterceptor() domain.Interceptor {
	return &eventTap{logger: c.logger}
}

// eventTap wraps a CGEventTap that swallows Cmd+V key-downs. The tap
// and its run loop source live on the thread that calls Install, so
// Install, Service and Remove must share one locked OS thread.
type eventTap struct {
	logger    *zap.Logger
	installed bool
}

func (t *eventTap) Install() error {
	if t.installed {
		return nil
	}
	if rc := C.clipguard_tap_install(); rc != 0 {
		return fmt.Errorf("event tap creation failed (accessibility permission missing?)")
	}
	t.installed = true
	t.logger.Debug("event tap installed")
	return nil
}

func (t *eventTap) Remove() {
	if !t.installed {
		return
	}
	C.clipguard_tap_remove()
	t.installed = false
	t.logger.Debug("event tap removed")
}

func (t *eventTap) Service(d time.Duration) {
	if !t.installed {
		return
	}
	C.clipguard_tap_service(C.double(d.Seconds()))
}

var _ domain.Capabilities = (*darwinCapabilities)(nil)
var _ domain.Interceptor = (*eventTap)(nil)
