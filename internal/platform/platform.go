// Package platform provides the per-OS capability providers: the
// clipboard revision counter, the frontmost-application probe and the
// paste-keystroke interceptor. Platforms without a native provider
// get an inert stub so the daemon still runs (and warns) everywhere.
package platform

import (
	"time"

	"github.com/clipguard/clipguard/internal/domain"
)

// IsPasteChord reports whether a decoded key event is the paste
// chord: the V key with the platform's primary modifier held
// (Command on macOS, Control on Windows). Shift is deliberately
// ignored so the plain-text paste variant is treated the same.
func IsPasteChord(isVKey, primaryModifier bool) bool {
	return isVKey && primaryModifier
}

// Stub is the inert capability provider for platforms without native
// support. The revision never changes, the frontmost app is unknown
// and interception is never permitted, so the monitor idles politely.
type Stub struct{}

// NewStub returns the inert provider.
func NewStub() *Stub { return &Stub{} }

func (*Stub) ClipboardRevision() (uint64, error) { return 0, nil }

func (*Stub) FrontmostApp() (domain.AppIdentity, error) { return domain.AppIdentity{}, nil }

func (*Stub) InterceptionPermitted() bool { return false }

func (*Stub) NewInterceptor() domain.Interceptor { return noopInterceptor{} }

// noopInterceptor satisfies domain.Interceptor without touching the OS.
type noopInterceptor struct{}

func (noopInterceptor) Install() error          { return nil }
func (noopInterceptor) Remove()                 {}
func (noopInterceptor) Service(_ time.Duration) {}

var _ domain.Capabilities = (*Stub)(nil)
var _ domain.Interceptor = noopInterceptor{}
