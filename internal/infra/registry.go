package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/clipguard/clipguard/internal/domain"
)

const pidFileName = "clipguard.pid"

// PidFileRegistry implements domain.DaemonRegistry with a plain
// pidfile. Liveness is checked against the process table, so a stale
// file left by a crash never blocks the next start.
type PidFileRegistry struct {
	path string
}

// NewPidFileRegistry creates a registry rooted in dataDir.
func NewPidFileRegistry(dataDir string) *PidFileRegistry {
	return &PidFileRegistry{path: filepath.Join(dataDir, pidFileName)}
}

// Register records pid as the running daemon. Fails when another
// live daemon already holds the file.
func (r *PidFileRegistry) Register(pid int) error {
	existing, running, err := r.Current()
	if err != nil {
		return err
	}
	if running && existing != pid {
		return fmt.Errorf("daemon already running with pid %d", existing)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(r.path, []byte(strconv.Itoa(pid)), 0600); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}
	return nil
}

// Current returns the registered pid and whether that process is
// still alive. A missing or unreadable pidfile means no daemon.
func (r *PidFileRegistry) Current() (int, bool, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read pidfile: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// Corrupt pidfile: treat as no daemon.
		return 0, false, nil
	}
	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return pid, false, nil
	}
	return pid, alive, nil
}

// Clear removes the pidfile.
func (r *PidFileRegistry) Clear() error {
	err := os.Remove(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Path returns the pidfile path.
func (r *PidFileRegistry) Path() string {
	return r.path
}

// Ensure PidFileRegistry implements domain.DaemonRegistry.
var _ domain.DaemonRegistry = (*PidFileRegistry)(nil)
