package domain

import "time"

// Capabilities is the per-OS platform provider the monitor consumes.
// Implementations: darwin (AppKit/CoreGraphics), windows (user32),
// and an inert stub elsewhere. All methods are best-effort: a failed
// read degrades the current tick, never the daemon.
type Capabilities interface {
	// ClipboardRevision returns the platform's monotonically
	// increasing clipboard change counter. A change between two
	// reads is the sole signal of new clipboard content.
	ClipboardRevision() (uint64, error)

	// FrontmostApp returns the identity of the foremost
	// application, or a zero AppIdentity when undeterminable.
	FrontmostApp() (AppIdentity, error)

	// InterceptionPermitted reports whether the OS currently allows
	// installing the paste interceptor. Callers must re-check on
	// every decision point; the permission can be revoked at any
	// time.
	InterceptionPermitted() bool

	// NewInterceptor returns an uninstalled paste interceptor.
	// The returned value has thread affinity: Install, Service and
	// Remove must all be called from the same goroutine, which must
	// be locked to its OS thread.
	NewInterceptor() Interceptor
}

// Interceptor owns the native paste-keystroke hook. While installed
// it suppresses the platform paste chord (modifier+V, and the
// modifier+shift+V variant) before it reaches the focused window.
type Interceptor interface {
	// Install installs the hook. Installing an already-installed
	// interceptor is a no-op.
	Install() error

	// Remove uninstalls the hook. Safe to call repeatedly and on a
	// never-installed interceptor.
	Remove()

	// Service runs the native event loop for at most d, so the
	// platform can deliver key events to the hook callback. A no-op
	// when nothing is installed or the platform needs no pumping.
	Service(d time.Duration)
}

// RuleSnapshot is a point-in-time copy of the configured rules and
// the guard flag. The slice must not be mutated by consumers.
type RuleSnapshot struct {
	Rules   []Rule
	Enabled bool
}

// RuleStore provides read access to the configured rules. The
// monitor pulls a fresh snapshot each tick so external edits take
// effect without restart.
type RuleStore interface {
	Snapshot() RuleSnapshot
}

// EventSink receives monitor events. Implementations must not
// block: dispatch is fire-and-forget from the monitor's tick.
type EventSink interface {
	ClipboardChanged(ev ClipboardEvent)
	PasteWarning(w PasteWarning)
	GuardToggled(enabled bool)
}

// WarningJournal persists paste warnings for the history command.
// Recording is best-effort; failures never affect monitoring.
type WarningJournal interface {
	Record(w PasteWarning) error
	Recent(limit int) ([]WarningRecord, error)
	Close() error
}

// KeyProvider abstracts the source of the journal encryption key.
type KeyProvider interface {
	GetKey() ([]byte, error)
	StoreKey(key []byte) error
	KeyExists() bool
}

// DaemonRegistry tracks the single running daemon via a pidfile so
// status works and double-starts are refused.
type DaemonRegistry interface {
	// Register records the current process as the running daemon.
	// Fails if another live daemon is already registered.
	Register(pid int) error

	// Current returns the registered pid and whether that process
	// is still alive. pid 0 means nothing is registered.
	Current() (pid int, running bool, err error)

	// Clear removes the pidfile.
	Clear() error

	// Path returns the pidfile path (for status output and tests).
	Path() string
}
