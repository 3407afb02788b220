package backend

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/okjarvi/guishell/internal/bridge"
)

// stubUI records capability-surface calls for assertions.
type stubUI struct {
	mu sync.Mutex

	started  bool
	statuses []StatusOptions
	displays []StatusDisplayOptions
	items    []ItemOptions
	notices  []NotifyOptions
	splashes []SplashOptions
	updates  []SplashUpdateOptions
	calls    []string

	startErr error
	opErr    error
}

func (s *stubUI) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.opErr
}

func (s *stubUI) Start(host Host) error {
	s.mu.Lock()
	s.started = true
	err := s.startErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	host.SetReady()
	return nil
}

func (s *stubUI) SetStatus(opts StatusOptions) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, opts)
	s.mu.Unlock()
	return s.record("set_status")
}

func (s *stubUI) SetStatusDisplay(opts StatusDisplayOptions) error {
	s.mu.Lock()
	s.displays = append(s.displays, opts)
	s.mu.Unlock()
	return s.record("set_status_display")
}

func (s *stubUI) SetItem(opts ItemOptions) error {
	s.mu.Lock()
	s.items = append(s.items, opts)
	s.mu.Unlock()
	return s.record("set_item")
}

func (s *stubUI) NotifyUser(opts NotifyOptions) error {
	s.mu.Lock()
	s.notices = append(s.notices, opts)
	s.mu.Unlock()
	return s.record("notify_user")
}

func (s *stubUI) ShowSplashScreen(opts SplashOptions) error {
	s.mu.Lock()
	s.splashes = append(s.splashes, opts)
	s.mu.Unlock()
	return s.record("show_splash_screen")
}

func (s *stubUI) UpdateSplashScreen(opts SplashUpdateOptions) error {
	s.mu.Lock()
	s.updates = append(s.updates, opts)
	s.mu.Unlock()
	return s.record("update_splash_screen")
}

func (s *stubUI) HideSplashScreen() error { return s.record("hide_splash_screen") }
func (s *stubUI) ShowMainWindow() error   { return s.record("show_main_window") }
func (s *stubUI) HideMainWindow() error   { return s.record("hide_main_window") }
func (s *stubUI) Quit() error             { return s.record("quit") }

func (s *stubUI) callNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubUI) lastNotice() (NotifyOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notices) == 0 {
		return NotifyOptions{}, false
	}
	return s.notices[len(s.notices)-1], true
}

func newTestBackend(t *testing.T, cfg Config) (*Backend, *stubUI, *bridge.Loop) {
	t.Helper()
	if cfg == nil {
		cfg = Config{}
	}

	loop := bridge.New()
	go loop.Run()
	t.Cleanup(func() {
		loop.Close()
		<-loop.Done()
	})

	ui := &stubUI{}
	b, err := New(cfg, ui, loop, testLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return b, ui, loop
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// drain waits until all async submissions queued so far have executed.
func drain(t *testing.T, loop *bridge.Loop) {
	t.Helper()
	if err := loop.SubmitWait(func() {}); err != nil {
		t.Fatalf("drain: %v", err)
	}
}
