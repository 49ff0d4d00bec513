//go:build windows

package platform

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/clipguard/clipguard/internal/domain"
)

var (
	user32                        = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNum   = user32.NewProc("GetClipboardSequenceNumber")
	procGetForegroundWindow       = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId  = user32.NewProc("GetWindowThreadProcessId")
	procSetWindowsHookExW         = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx       = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx            = user32.NewProc("CallNextHookEx")
	procGetKeyState               = user32.NewProc("GetKeyState")
	procPeekMessageW              = user32.NewProc("PeekMessageW")
	procTranslateMessage          = user32.NewProc("TranslateMessage")
	procDispatchMessageW          = user32.NewProc("DispatchMessageW")
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	vkControl    = 0x11
	vkV          = 0x56
	pmRemove     = 0x0001
)

type kbdllHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type msg struct {
	HWnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// windowsCapabilities reads the clipboard sequence number and the
// foreground window's owning process through user32.
type windowsCapabilities struct {
	logger *zap.Logger
}

// New returns the Windows capability provider.
func New(logger *zap.Logger) domain.Capabilities {
	return &windowsCapabilities{logger: logger}
}

func (c *windowsCapabilities) ClipboardRevision() (uint64, error) {
	seq, _, _ := procGetClipboardSequenceNum.Call()
	// Zero means the caller's desktop grants no clipboard access.
	if seq == 0 {
		return 0, fmt.Errorf("clipboard sequence number unavailable")
	}
	return uint64(seq), nil
}

func (c *windowsCapabilities) FrontmostApp() (domain.AppIdentity, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return domain.AppIdentity{}, fmt.Errorf("no foreground window")
	}
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return domain.AppIdentity{}, fmt.Errorf("foreground window has no process")
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return domain.AppIdentity{}, fmt.Errorf("resolve pid %d: %w", pid, err)
	}
	name, err := proc.Name()
	if err != nil {
		return domain.AppIdentity{}, fmt.Errorf("resolve pid %d name: %w", pid, err)
	}
	return domain.AppIdentity{
		ID:   strings.ToLower(name),
		Name: strings.TrimSuffix(name, ".exe"),
	}, nil
}

// InterceptionPermitted always reports true: installing a low-level
// keyboard hook needs no special permission on Windows.
func (c *windowsCapabilities) InterceptionPermitted() bool { return true }

func (c *windowsCapabilities) NewInterceptor() domain.Interceptor {
	return &keyboardHook{logger: c.logger}
}

// hookCallback is process-global: SetWindowsHookExW takes a bare
// function pointer with no user data slot, and NewCallback values
// must never be created per-install (they are permanently retained).
var hookCallback = windows.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
	if nCode == 0 && (wParam == wmKeyDown || wParam == wmSysKeyDown) {
		kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		ctrl, _, _ := procGetKeyState.Call(vkControl)
		if IsPasteChord(kb.VkCode == vkV, ctrl&0x8000 != 0) {
			return 1
		}
	}
	next, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return next
})

// keyboardHook wraps a WH_KEYBOARD_LL hook that swallows Ctrl+V
// key-downs. The hook is bound to the installing thread's message
// queue, so Install, Service and Remove share one locked OS thread.
type keyboardHook struct {
	logger *zap.Logger
	handle windows.Handle
}

func (h *keyboardHook) Install() error {
	if h.handle != 0 {
		return nil
	}
	handle, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookCallback, 0, 0)
	if handle == 0 {
		return fmt.Errorf("SetWindowsHookExW: %w", err)
	}
	h.handle = windows.Handle(handle)
	h.logger.Debug("keyboard hook installed")
	return nil
}

func (h *keyboardHook) Remove() {
	if h.handle == 0 {
		return
	}
	procUnhookWindowsHookEx.Call(uintptr(h.handle))
	h.handle = 0
	h.logger.Debug("keyboard hook removed")
}

// Service drains the installing thread's message queue for up to d.
// Low-level hooks are only delivered while the owning thread pumps
// messages.
func (h *keyboardHook) Service(d time.Duration) {
	if h.handle == 0 {
		return
	}
	deadline := time.Now().Add(d)
	var m msg
	for {
		got, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
		if got != 0 {
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
			continue
		}
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

var _ domain.Capabilities = (*windowsCapabilities)(nil)
var _ domain.Interceptor = (*keyboardHook)(nil)
