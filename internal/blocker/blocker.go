// Package blocker owns the native paste interceptor on a dedicated
// OS thread. The platform requires the interception callback to run
// on the thread that installed it, so the interceptor is reachable
// only through a one-way command channel; its state is never read
// from outside.
package blocker

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

// servicePump is how long each loop iteration runs the native event
// loop while armed, and how long an idle iteration waits for a
// command.
const servicePump = 50 * time.Millisecond

// commandBuffer sizes the command channel. Commands are idempotent
// and the monitor re-sends its intent every tick, so a dropped
// command under burst only delays convergence by one poll interval.
const commandBuffer = 8

// State is the blocker's lifecycle state. Owned exclusively by the
// run loop.
type State int

const (
	// StateIdle means no interceptor is installed.
	StateIdle State = iota
	// StateArmed means the interceptor is installed and the paste
	// chord is being suppressed.
	StateArmed
	// StateTornDown means the subsystem has exited and removed any
	// installed interceptor.
	StateTornDown
)

type commandKind int

const (
	cmdArm commandKind = iota
	cmdDisarm
)

type command struct {
	kind   commandKind
	source domain.AppIdentity
	dest   domain.AppIdentity
}

// Mailbox is the monitor-facing half of the command channel. Sends
// are non-blocking and fire-and-forget: the monitor must never wait
// on the blocker.
type Mailbox struct {
	ch     chan<- command
	logger *zap.Logger
}

// Arm asks the blocker to install the paste interceptor for the
// given pair. Idempotent while already armed.
func (m *Mailbox) Arm(source, dest domain.AppIdentity) {
	m.send(command{kind: cmdArm, source: source, dest: dest})
}

// Disarm asks the blocker to remove the interceptor. A no-op when
// already idle.
func (m *Mailbox) Disarm() {
	m.send(command{kind: cmdDisarm})
}

func (m *Mailbox) send(cmd command) {
	select {
	case m.ch <- cmd:
	default:
		// Channel full: the blocker is behind. Dropping is safe,
		// the monitor re-sends its intent next tick.
		m.logger.Debug("blocker command dropped", zap.Int("kind", int(cmd.kind)))
	}
}

// Blocker runs the interceptor state machine. Create with New, hand
// the Mailbox to the monitor, and call Run on a dedicated goroutine.
type Blocker struct {
	interceptor domain.Interceptor
	commands    chan command
	logger      *zap.Logger

	state State
}

// New creates a blocker owning the given interceptor.
func New(interceptor domain.Interceptor, logger *zap.Logger) *Blocker {
	return &Blocker{
		interceptor: interceptor,
		commands:    make(chan command, commandBuffer),
		logger:      logger,
		state:       StateIdle,
	}
}

// Mailbox returns the send half of the command channel.
func (b *Blocker) Mailbox() *Mailbox {
	return &Mailbox{ch: b.commands, logger: b.logger}
}

// Shutdown closes the command channel, signalling the run loop to
// tear down the interceptor and exit. Must be called only after the
// last Mailbox user has stopped sending.
func (b *Blocker) Shutdown() {
	close(b.commands)
}

// Run executes the state machine until Shutdown or ctx cancellation.
// The goroutine is locked to its OS thread for the lifetime of the
// loop: the native hook callback fires on the installing thread, so
// the interceptor and its event loop must never migrate.
func (b *Blocker) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	b.logger.Info("blocker subsystem started")

	idle := time.NewTimer(servicePump)
	defer idle.Stop()

	for {
		idle.Reset(servicePump)

		select {
		case <-ctx.Done():
			b.teardown()
			return

		case cmd, ok := <-b.commands:
			if !ok {
				// Monitor torn down. Removing the hook here is
				// mandatory: a leaked interceptor would leave
				// paste suppressed system-wide.
				b.teardown()
				return
			}
			b.apply(cmd)

		case <-idle.C:
		}

		if b.state == StateArmed {
			b.interceptor.Service(servicePump)
		}
	}
}

// apply transitions the state machine for a single command.
func (b *Blocker) apply(cmd command) {
	switch cmd.kind {
	case cmdArm:
		if b.state == StateArmed {
			// Re-arming leaves the installed hook in place.
			return
		}
		if err := b.interceptor.Install(); err != nil {
			// Stay Idle; the monitor's next Arm retries.
			b.logger.Warn("paste interceptor install failed", zap.Error(err))
			return
		}
		b.state = StateArmed
		b.logger.Info("paste interception armed",
			zap.String("source", cmd.source.String()),
			zap.String("dest", cmd.dest.String()))

	case cmdDisarm:
		if b.state != StateArmed {
			return
		}
		b.interceptor.Remove()
		b.state = StateIdle
		b.logger.Info("paste interception disarmed")
	}
}

// teardown removes any installed interceptor and terminates the
// state machine.
func (b *Blocker) teardown() {
	b.interceptor.Remove()
	b.state = StateTornDown
	b.logger.Info("blocker subsystem stopped")
}
