//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/blocker"
	"github.com/clipguard/clipguard/internal/domain"
	"github.com/clipguard/clipguard/internal/monitor"
	"github.com/clipguard/clipguard/internal/rules"
)

// scriptedCaps is a thread-safe scriptable capability provider. It
// counts revision reads so the harness can tell when the monitor has
// finished its startup priming and is ticking.
type scriptedCaps struct {
	mu        sync.Mutex
	revision  uint64
	reads     int
	frontmost domain.AppIdentity
	permitted bool
}

func (s *scriptedCaps) ClipboardRevision() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.revision, nil
}

func (s *scriptedCaps) FrontmostApp() (domain.AppIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frontmost, nil
}

func (s *scriptedCaps) InterceptionPermitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permitted
}

func (s *scriptedCaps) NewInterceptor() domain.Interceptor { return nil }

func (s *scriptedCaps) revisionReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *scriptedCaps) bumpRevision(app domain.AppIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	s.frontmost = app
}

func (s *scriptedCaps) focus(app domain.AppIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontmost = app
}

// collectSink is a thread-safe event recorder.
type collectSink struct {
	mu       sync.Mutex
	copies   int
	warnings []domain.PasteWarning
	toggles  []bool
}

func (c *collectSink) ClipboardChanged(_ domain.ClipboardEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copies++
}

func (c *collectSink) PasteWarning(w domain.PasteWarning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

func (c *collectSink) GuardToggled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggles = append(c.toggles, enabled)
}

func (c *collectSink) copyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copies
}

func (c *collectSink) warningCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}

func (c *collectSink) lastToggle() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.toggles) == 0 {
		return false, false
	}
	return c.toggles[len(c.toggles)-1], true
}

// trackedInterceptor reports install state under a lock.
type trackedInterceptor struct {
	mu        sync.Mutex
	installed bool
}

func (f *trackedInterceptor) Install() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = true
	return nil
}

func (f *trackedInterceptor) Remove() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = false
}

func (f *trackedInterceptor) Service(_ time.Duration) {}

func (f *trackedInterceptor) isInstalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installed
}

func writeSettings(path string, enabled bool, ruleList []map[string]string) {
	payload, err := json.Marshal(map[string]any{
		"enabled": enabled,
		"rules":   ruleList,
	})
	Expect(err).NotTo(HaveOccurred())
	tmp := path + ".tmp"
	Expect(os.WriteFile(tmp, payload, 0600)).To(Succeed())
	Expect(os.Rename(tmp, path)).To(Succeed())
}

var _ = Describe("Clipboard guard", func() {
	var (
		browser = domain.AppIdentity{ID: "com.example.browser", Name: "Browser"}
		term    = domain.AppIdentity{ID: "com.example.term", Name: "Terminal"}
		editor  = domain.AppIdentity{ID: "com.example.editor", Name: "Editor"}

		caps        *scriptedCaps
		sink        *collectSink
		interceptor *trackedInterceptor
		store       *rules.FileStore
		rulesPath   string
		cancel      context.CancelFunc
		done        chan struct{}
	)

	// copyFrom scripts a copy inside app and waits until the monitor
	// has attributed it: focus may only move on afterwards, exactly as
	// a human cannot switch apps between Cmd+C and the OS bumping the
	// change counter.
	copyFrom := func(app domain.AppIdentity) {
		before := sink.copyCount()
		caps.bumpRevision(app)
		Eventually(sink.copyCount, time.Second, 10*time.Millisecond).Should(Equal(before + 1))
	}

	startGuard := func() {
		// Locals only below this point: the spawned goroutines must
		// not touch the Describe-level vars the next spec reassigns.
		ctx, cancelRun := context.WithCancel(context.Background())
		cancel = cancelRun

		st := store
		blk := blocker.New(interceptor, zap.NewNop())
		mon := monitor.New(
			monitor.Config{PollInterval: monitor.MinPollInterval},
			caps, st, sink, blk.Mailbox(), zap.NewNop(),
		)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			_ = st.Watch(ctx)
		}()
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			blk.Run(ctx)
		}()
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			_ = mon.Run(ctx)
		}()

		done = make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		// Revision priming plus at least one tick: scripted copies
		// from here on cannot be swallowed by startup.
		Eventually(caps.revisionReads, time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 2))
	}

	BeforeEach(func() {
		tmpDir, err := os.MkdirTemp("", "clipguard-integration-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(tmpDir) })

		rulesPath = filepath.Join(tmpDir, "rules.json")
		caps = &scriptedCaps{revision: 1, permitted: true}
		sink = &collectSink{}
		interceptor = &trackedInterceptor{}
		cancel = nil
		done = nil

		DeferCleanup(func() {
			if cancel != nil {
				cancel()
			}
			// Every goroutine must be gone before the next spec
			// reassigns the shared fixtures.
			if done != nil {
				Eventually(done, 2*time.Second, 10*time.Millisecond).Should(BeClosed())
			}
		})
	})

	Describe("notify rules", func() {
		BeforeEach(func() {
			writeSettings(rulesPath, true, []map[string]string{
				{"to_app_id": term.ID, "action": "notify"},
			})
			store = rules.NewFileStore(rulesPath, zap.NewNop())
			startGuard()
		})

		It("warns once per copy when focus moves to a flagged app", func() {
			copyFrom(browser)
			caps.focus(term)

			Eventually(sink.warningCount, time.Second, 10*time.Millisecond).Should(Equal(1))
			Consistently(sink.warningCount, 500*time.Millisecond, 50*time.Millisecond).Should(Equal(1))
		})

		It("warns again after a fresh copy", func() {
			copyFrom(browser)
			caps.focus(term)
			Eventually(sink.warningCount, time.Second, 10*time.Millisecond).Should(Equal(1))

			caps.focus(browser)
			copyFrom(browser)
			caps.focus(term)
			Eventually(sink.warningCount, time.Second, 10*time.Millisecond).Should(Equal(2))
		})
	})

	Describe("block rules", func() {
		BeforeEach(func() {
			writeSettings(rulesPath, true, []map[string]string{
				{"from_app_id": browser.ID, "to_app_id": term.ID, "action": "block"},
			})
			store = rules.NewFileStore(rulesPath, zap.NewNop())
			startGuard()
		})

		It("arms the interceptor while the flagged pair is in front", func() {
			copyFrom(browser)
			caps.focus(term)

			Eventually(interceptor.isInstalled, time.Second, 10*time.Millisecond).Should(BeTrue())

			caps.focus(editor)
			Eventually(interceptor.isInstalled, time.Second, 10*time.Millisecond).Should(BeFalse())
		})

		It("retracts the block when new content is copied", func() {
			copyFrom(browser)
			caps.focus(term)
			Eventually(interceptor.isInstalled, time.Second, 10*time.Millisecond).Should(BeTrue())

			copyFrom(term)
			Eventually(interceptor.isInstalled, time.Second, 10*time.Millisecond).Should(BeFalse())
		})

		It("removes the interceptor on shutdown", func() {
			copyFrom(browser)
			caps.focus(term)
			Eventually(interceptor.isInstalled, time.Second, 10*time.Millisecond).Should(BeTrue())

			cancel()
			Eventually(interceptor.isInstalled, time.Second, 10*time.Millisecond).Should(BeFalse())
		})
	})

	Describe("live settings reload", func() {
		BeforeEach(func() {
			writeSettings(rulesPath, true, []map[string]string{
				{"to_app_id": term.ID, "action": "notify"},
			})
			store = rules.NewFileStore(rulesPath, zap.NewNop())
			startGuard()
		})

		It("picks up rule edits without restart", func() {
			copyFrom(browser)
			caps.focus(editor)
			Consistently(sink.warningCount, 300*time.Millisecond, 50*time.Millisecond).Should(BeZero())

			// Flag the editor too.
			writeSettings(rulesPath, true, []map[string]string{
				{"to_app_id": term.ID, "action": "notify"},
				{"to_app_id": editor.ID, "action": "notify"},
			})

			Eventually(sink.warningCount, 2*time.Second, 20*time.Millisecond).Should(Equal(1))
		})

		It("emits a toggle event and stops evaluating when disabled", func() {
			copyFrom(browser)
			caps.focus(term)
			Eventually(sink.warningCount, time.Second, 10*time.Millisecond).Should(Equal(1))

			writeSettings(rulesPath, false, []map[string]string{
				{"to_app_id": term.ID, "action": "notify"},
			})

			Eventually(func() bool {
				last, ok := sink.lastToggle()
				return ok && !last
			}, 2*time.Second, 20*time.Millisecond).Should(BeTrue())

			caps.focus(browser)
			copyFrom(browser)
			caps.focus(term)
			Consistently(sink.warningCount, 500*time.Millisecond, 50*time.Millisecond).Should(Equal(1))
		})
	})
})
