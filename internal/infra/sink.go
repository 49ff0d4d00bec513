package infra

import (
	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

// LogSink writes monitor events to the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed event sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) ClipboardChanged(ev domain.ClipboardEvent) {
	s.logger.Debug("clipboard changed", zap.String("source", ev.Source.String()))
}

func (s *LogSink) PasteWarning(w domain.PasteWarning) {
	s.logger.Info("paste warning",
		zap.String("source", w.Source.String()),
		zap.String("dest", w.Destination.String()),
		zap.Bool("blocked", w.Blocked),
		zap.Bool("fallback", w.Fallback))
}

func (s *LogSink) GuardToggled(enabled bool) {
	s.logger.Info("guard toggled", zap.Bool("enabled", enabled))
}

// JournalSink records paste warnings in the warning journal.
// Recording is best-effort: a journal failure is logged and dropped.
type JournalSink struct {
	journal domain.WarningJournal
	logger  *zap.Logger
}

// NewJournalSink creates a journal-backed event sink.
func NewJournalSink(journal domain.WarningJournal, logger *zap.Logger) *JournalSink {
	return &JournalSink{journal: journal, logger: logger}
}

func (s *JournalSink) ClipboardChanged(_ domain.ClipboardEvent) {}

func (s *JournalSink) GuardToggled(_ bool) {}

func (s *JournalSink) PasteWarning(w domain.PasteWarning) {
	if err := s.journal.Record(w); err != nil {
		s.logger.Warn("journal record failed", zap.Error(err))
	}
}

// MultiSink fans events out to several sinks in order.
type MultiSink struct {
	sinks []domain.EventSink
}

// NewMultiSink combines sinks. Nil entries are skipped.
func NewMultiSink(sinks ...domain.EventSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) ClipboardChanged(ev domain.ClipboardEvent) {
	for _, s := range m.sinks {
		s.ClipboardChanged(ev)
	}
}

func (m *MultiSink) PasteWarning(w domain.PasteWarning) {
	for _, s := range m.sinks {
		s.PasteWarning(w)
	}
}

func (m *MultiSink) GuardToggled(enabled bool) {
	for _, s := range m.sinks {
		s.GuardToggled(enabled)
	}
}

var _ domain.EventSink = (*LogSink)(nil)
var _ domain.EventSink = (*JournalSink)(nil)
var _ domain.EventSink = (*MultiSink)(nil)
