package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

// reloadDebounce coalesces bursts of file events (editors often
// write, chmod, and rename in quick succession).
const reloadDebounce = 200 * time.Millisecond

// pollFallback is the reload interval used when fsnotify is
// unavailable (e.g. the settings directory is on NFS).
const pollFallback = 5 * time.Second

// storedRule is the on-disk rule shape. Field names match the
// settings file written by the UI layer.
type storedRule struct {
	FromAppID   string `json:"from_app_id,omitempty"`
	FromAppName string `json:"from_app_name,omitempty"`
	ToAppID     string `json:"to_app_id,omitempty"`
	ToAppName   string `json:"to_app_name,omitempty"`
	Action      string `json:"action"`
}

// settingsFile is the on-disk settings shape: the guard flag plus
// the ordered rule list.
type settingsFile struct {
	Enabled *bool        `json:"enabled"`
	Rules   []storedRule `json:"rules"`
}

// FileStore implements domain.RuleStore backed by a JSON settings
// file. External edits (the settings UI, the enable/disable CLI)
// take effect live via a file watch; the monitor never waits on a
// reload since Snapshot serves the last good in-memory state.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	snap domain.RuleSnapshot
}

// NewFileStore creates a store reading from path and performs the
// initial load. A missing or corrupt file yields the default rule
// set with the guard enabled.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	s := &FileStore{path: path, logger: logger}
	s.reload()
	return s
}

// Snapshot returns the current rules and guard flag. The returned
// slice is a copy; callers may hold it across ticks.
func (s *FileStore) Snapshot() domain.RuleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := domain.RuleSnapshot{
		Rules:   make([]domain.Rule, len(s.snap.Rules)),
		Enabled: s.snap.Enabled,
	}
	copy(out.Rules, s.snap.Rules)
	return out
}

// SetEnabled persists the guard flag and updates the in-memory
// snapshot. The rule list on disk is preserved as-is.
func (s *FileStore) SetEnabled(enabled bool) error {
	file := s.readFile()
	file.Enabled = &enabled

	if err := s.atomicWrite(file); err != nil {
		return fmt.Errorf("failed to persist guard flag: %w", err)
	}

	s.mu.Lock()
	s.snap.Enabled = enabled
	s.mu.Unlock()
	return nil
}

// Path returns the settings file path.
func (s *FileStore) Path() string {
	return s.path
}

// Watch reloads the store when the settings file changes on disk.
// Blocks until ctx is cancelled. Falls back to periodic reloads when
// fsnotify is unavailable.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, falling back to polling", zap.Error(err))
		return s.pollLoop(ctx)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the parent directory: atomic-rename writes replace the
	// file inode, which a direct file watch would lose.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		s.logger.Warn("cannot watch settings directory, falling back to polling",
			zap.String("dir", dir), zap.Error(err))
		return s.pollLoop(ctx)
	}

	// Single debounce timer, reset on each relevant event.
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounce.C:
			s.reload()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("settings watch error", zap.Error(err))
		}
	}
}

// pollLoop reloads the settings file on a fixed interval.
func (s *FileStore) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.reload()
		}
	}
}

// reload replaces the in-memory snapshot from disk.
func (s *FileStore) reload() {
	file := s.readFile()

	snap := domain.RuleSnapshot{Enabled: true}
	if file.Enabled != nil {
		snap.Enabled = *file.Enabled
	}

	for i, sr := range file.Rules {
		rule, err := sr.toRule()
		if err != nil {
			s.logger.Warn("dropping invalid rule",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		snap.Rules = append(snap.Rules, rule)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// readFile parses the settings file, returning the default settings
// when the file is missing or corrupt (fail-open to defaults rather
// than losing protection entirely).
func (s *FileStore) readFile() settingsFile {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cannot read settings file", zap.Error(err))
		}
		return defaultSettings()
	}

	var file settingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("settings file corrupt, using defaults",
			zap.String("path", s.path), zap.Error(err))
		return defaultSettings()
	}
	return file
}

// atomicWrite writes the settings file via temp-file + rename.
func (s *FileStore) atomicWrite(file settingsFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// defaultSettings is the guard-enabled default terminal rule set in
// wire form.
func defaultSettings() settingsFile {
	enabled := true
	file := settingsFile{Enabled: &enabled}
	for _, r := range DefaultRules() {
		file.Rules = append(file.Rules, fromRule(r))
	}
	return file
}

// toRule converts a stored rule to the domain form, rejecting rules
// that constrain neither side or carry an unknown action.
func (sr storedRule) toRule() (domain.Rule, error) {
	var rule domain.Rule

	if sr.FromAppID != "" || sr.FromAppName != "" {
		rule.From = &domain.AppIdentity{ID: sr.FromAppID, Name: sr.FromAppName}
	}
	if sr.ToAppID != "" || sr.ToAppName != "" {
		rule.To = &domain.AppIdentity{ID: sr.ToAppID, Name: sr.ToAppName}
	}
	if rule.From == nil && rule.To == nil {
		return rule, fmt.Errorf("rule constrains neither source nor destination")
	}

	switch domain.RuleAction(sr.Action) {
	case domain.ActionNotify, domain.ActionBlock:
		rule.Action = domain.RuleAction(sr.Action)
	default:
		return rule, fmt.Errorf("unknown action %q", sr.Action)
	}

	return rule, nil
}

// fromRule converts a domain rule to wire form.
func fromRule(r domain.Rule) storedRule {
	sr := storedRule{Action: string(r.Action)}
	if r.From != nil {
		sr.FromAppID = r.From.ID
		sr.FromAppName = r.From.Name
	}
	if r.To != nil {
		sr.ToAppID = r.To.ID
		sr.ToAppName = r.To.Name
	}
	return sr
}

// Ensure FileStore implements domain.RuleStore.
var _ domain.RuleStore = (*FileStore)(nil)
