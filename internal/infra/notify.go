package infra

import (
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete
func (r *RealCommandRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Output executes a command and returns its stdout
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Notifier shows desktop notifications for paste warnings. Clipboard
// change and guard toggle events are intentionally silent; only a
// matched rule is worth interrupting the user for.
type Notifier struct {
	runner CommandRunner
	logger *zap.Logger
	goos   string
}

// NewNotifier creates a notifier using the real command runner.
func NewNotifier(logger *zap.Logger) *Notifier {
	return NewNotifierWithDeps(&RealCommandRunner{}, logger, runtime.GOOS)
}

// NewNotifierWithDeps creates a notifier with injected dependencies (for testing).
func NewNotifierWithDeps(runner CommandRunner, logger *zap.Logger, goos string) *Notifier {
	return &Notifier{runner: runner, logger: logger, goos: goos}
}

func (n *Notifier) ClipboardChanged(_ domain.ClipboardEvent) {}

func (n *Notifier) GuardToggled(_ bool) {}

// PasteWarning shows the notification for a warning.
func (n *Notifier) PasteWarning(w domain.PasteWarning) {
	title, body := warningMessage(w)
	if err := n.show(title, body); err != nil {
		n.logger.Warn("notification failed", zap.Error(err))
	}
}

// warningMessage renders the user-facing text for a warning.
func warningMessage(w domain.PasteWarning) (title, body string) {
	src := w.Source.String()
	dst := w.Destination.String()
	switch {
	case w.Blocked:
		return "Paste blocked",
			fmt.Sprintf("Pasting content copied from %s into %s is blocked.", src, dst)
	case w.Fallback:
		return "Paste not blocked",
			fmt.Sprintf("Content copied from %s would be blocked in %s, but the Accessibility permission is missing. Grant Accessibility access to enable blocking.", src, dst)
	default:
		return "Clipboard warning",
			fmt.Sprintf("You are about to paste content copied from %s into %s.", src, dst)
	}
}

func (n *Notifier) show(title, body string) error {
	switch n.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		return n.runner.Run("osascript", "-e", script)
	case "linux":
		return n.runner.Run("notify-send", "--app-name=clipguard", title, body)
	default:
		// No portable notification channel; the log sink still
		// carries the warning.
		return nil
	}
}

// Ensure Notifier implements domain.EventSink.
var _ domain.EventSink = (*Notifier)(nil)
