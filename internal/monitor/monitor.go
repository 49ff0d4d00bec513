package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
	"github.com/clipguard/clipguard/internal/rules"
)

const (
	// DefaultPollInterval is the default tick cadence.
	DefaultPollInterval = 300 * time.Millisecond

	// MinPollInterval is the floor for the configurable cadence;
	// polling faster buys nothing and burns wake-ups.
	MinPollInterval = 100 * time.Millisecond
)

// Config holds monitor loop configuration.
type Config struct {
	PollInterval time.Duration
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{PollInterval: DefaultPollInterval}
}

// normalized clamps the configuration to sane bounds.
func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval < MinPollInterval {
		c.PollInterval = MinPollInterval
	}
	return c
}

// BlockCommander is the monitor's one-way handle to the blocker
// subsystem. Implementations must not block.
type BlockCommander interface {
	Arm(source, dest domain.AppIdentity)
	Disarm()
}

// Monitor is the polling loop tying the platform capabilities, rule
// engine, dedup tracker and blocker together. All mutable state (the
// clipboard snapshot, the dedup set, the armed belief) is owned by
// the loop goroutine and replaced wholesale, never shared.
type Monitor struct {
	config  Config
	caps    domain.Capabilities
	store   domain.RuleStore
	sink    domain.EventSink
	blocker BlockCommander
	logger  *zap.Logger

	snapshot     *domain.ClipboardSnapshot
	dedup        *dedupTracker
	lastRevision uint64
	lastEnabled  bool
	armed        bool
}

// New creates a monitor. The blocker commander may be shared with
// nothing else; the monitor is its only sender.
func New(
	config Config,
	caps domain.Capabilities,
	store domain.RuleStore,
	sink domain.EventSink,
	blocker BlockCommander,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:  config.normalized(),
		caps:    caps,
		store:   store,
		sink:    sink,
		blocker: blocker,
		logger:  logger,
		dedup:   newDedupTracker(),
	}
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	// Prime the revision counter so content already on the
	// clipboard at startup does not fire a change event.
	if rev, err := m.caps.ClipboardRevision(); err == nil {
		m.lastRevision = rev
	}
	m.lastEnabled = m.store.Snapshot().Enabled

	m.logger.Info("monitor started",
		zap.Duration("poll_interval", m.config.PollInterval),
		zap.Bool("enabled", m.lastEnabled))

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.tick(time.Now())
		}
	}
}

// tick runs one poll cycle.
func (m *Monitor) tick(now time.Time) {
	m.observeClipboard(now)

	snap := m.store.Snapshot()
	if snap.Enabled != m.lastEnabled {
		m.lastEnabled = snap.Enabled
		m.logger.Info("guard toggled", zap.Bool("enabled", snap.Enabled))
		m.sink.GuardToggled(snap.Enabled)
	}

	if !snap.Enabled {
		m.disarm()
		return
	}

	if m.snapshot == nil {
		// Nothing copied since startup.
		return
	}

	dest, err := m.caps.FrontmostApp()
	if err != nil || dest.IsUnknown() {
		// Transient read failure: skip this tick's evaluation and
		// retract any active block (we can no longer tell whether
		// the blocked pair is still in front).
		m.disarm()
		return
	}

	if dest.Equal(m.snapshot.Source) {
		// No app switch since the copy. Same-app paste is always
		// allowed, so an armed block for a previous pair must not
		// linger.
		m.disarm()
		return
	}

	m.evaluate(m.snapshot.Source, dest, snap.Rules)
}

// observeClipboard checks the revision counter and replaces the
// snapshot when new content appears.
func (m *Monitor) observeClipboard(now time.Time) {
	rev, err := m.caps.ClipboardRevision()
	if err != nil {
		// Transient: retry next tick.
		m.logger.Debug("clipboard revision read failed", zap.Error(err))
		return
	}
	if rev == m.lastRevision {
		return
	}
	m.lastRevision = rev

	source, err := m.caps.FrontmostApp()
	if err != nil {
		source = domain.AppIdentity{}
	}

	m.snapshot = &domain.ClipboardSnapshot{
		Revision:   rev,
		Source:     source,
		CapturedAt: now,
	}

	// New content invalidates prior warnings and any active block;
	// the pair is re-evaluated against the new source immediately.
	m.dedup.clear()
	m.disarm()

	m.logger.Debug("clipboard changed",
		zap.Uint64("revision", rev),
		zap.String("source", source.String()))
	m.sink.ClipboardChanged(domain.ClipboardEvent{Source: source})
}

// evaluate matches the rules for a cross-app pair and dispatches.
func (m *Monitor) evaluate(source, dest domain.AppIdentity, ruleList []domain.Rule) {
	match := rules.Evaluate(source, dest, ruleList)
	if match == nil {
		// Switching to an app with no matching rule retracts an
		// active block.
		m.disarm()
		return
	}

	key := domain.NewDedupKey(source, dest)

	switch match.Action {
	case domain.ActionNotify:
		m.disarm()
		if m.dedup.shouldWarn(key) {
			m.warn(source, dest, false, false, match.RuleIndex)
		}

	case domain.ActionBlock:
		// Permission is re-checked on every decision: it can be
		// revoked externally at any time.
		if m.caps.InterceptionPermitted() {
			m.arm(source, dest)
			if m.dedup.shouldWarn(key) {
				m.warn(source, dest, true, false, match.RuleIndex)
			}
		} else {
			m.disarm()
			if m.dedup.shouldWarn(key) {
				m.warn(source, dest, false, true, match.RuleIndex)
			}
		}
	}
}

func (m *Monitor) warn(source, dest domain.AppIdentity, blocked, fallback bool, ruleIndex int) {
	m.logger.Info("paste warning",
		zap.String("source", source.String()),
		zap.String("dest", dest.String()),
		zap.Bool("blocked", blocked),
		zap.Bool("fallback", fallback),
		zap.Int("rule", ruleIndex))

	m.sink.PasteWarning(domain.PasteWarning{
		Source:      source,
		Destination: dest,
		Blocked:     blocked,
		Fallback:    fallback,
	})
}

// arm sends Arm and records the belief. Commands are fire-and-forget
// and idempotent on the blocker side.
func (m *Monitor) arm(source, dest domain.AppIdentity) {
	m.blocker.Arm(source, dest)
	m.armed = true
}

// disarm sends Disarm only when the monitor believes a block is
// active, keeping the channel quiet on idle ticks.
func (m *Monitor) disarm() {
	if !m.armed {
		return
	}
	m.blocker.Disarm()
	m.armed = false
}
