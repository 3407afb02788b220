package backend

import (
	"errors"
	"testing"

	"github.com/okjarvi/guishell/internal/bridge"
)

func TestDispatchSetStatus(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)

	if err := b.Dispatch("set_status", map[string]any{"status": "normal", "badge": "3"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	drain(t, loop)

	ui.mu.Lock()
	defer ui.mu.Unlock()
	if len(ui.statuses) != 1 {
		t.Fatalf("SetStatus called %d times, want 1", len(ui.statuses))
	}
	if got := ui.statuses[0]; got.Status != "normal" || got.Badge != "3" {
		t.Errorf("SetStatus(%+v), want status=normal badge=3", got)
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)

	err := b.Dispatch("frobnicate", map[string]any{})
	if !IsUnknownVerb(err) {
		t.Fatalf("Dispatch() error = %v, want UnknownVerbError", err)
	}

	// A later valid verb still executes.
	if err := b.Dispatch("show_main_window", map[string]any{}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	drain(t, loop)

	calls := ui.callNames()
	if len(calls) != 1 || calls[0] != "show_main_window" {
		t.Errorf("calls = %v, want [show_main_window]", calls)
	}
}

func TestDispatchQuit(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)

	err := b.Dispatch("quit", map[string]any{})
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("Dispatch(quit) error = %v, want ErrQuit", err)
	}

	select {
	case <-loop.Done():
	default:
		t.Error("loop still running after quit")
	}
	calls := ui.callNames()
	if len(calls) != 1 || calls[0] != "quit" {
		t.Errorf("calls = %v, want [quit]", calls)
	}
}

func TestDispatchPreservesOrderAcrossVerbs(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)

	sequence := []string{"show_main_window", "set_status", "notify_user", "hide_main_window"}
	args := map[string]map[string]any{
		"set_status":  {"status": "working"},
		"notify_user": {"message": "hi"},
	}
	for _, verb := range sequence {
		a := args[verb]
		if a == nil {
			a = map[string]any{}
		}
		if err := b.Dispatch(verb, a); err != nil {
			t.Fatalf("Dispatch(%s) error: %v", verb, err)
		}
	}
	drain(t, loop)

	calls := ui.callNames()
	if len(calls) != len(sequence) {
		t.Fatalf("calls = %v, want %v", calls, sequence)
	}
	for i, verb := range sequence {
		if calls[i] != verb {
			t.Errorf("call %d = %s, want %s", i, calls[i], verb)
		}
	}
}

func TestSplashVerbsBlock(t *testing.T) {
	b, ui, _ := newTestBackend(t, nil)

	// Blocking semantics: the call must have completed by the time
	// Dispatch returns, with no drain needed.
	if err := b.Dispatch("show_splash_screen", map[string]any{"message": "loading", "progress_bar": true}); err != nil {
		t.Fatalf("Dispatch(show_splash_screen) error: %v", err)
	}

	ui.mu.Lock()
	splashes := len(ui.splashes)
	ui.mu.Unlock()
	if splashes != 1 {
		t.Fatalf("ShowSplashScreen not completed before Dispatch returned")
	}

	if err := b.Dispatch("hide_splash_screen", map[string]any{}); err != nil {
		t.Fatalf("Dispatch(hide_splash_screen) error: %v", err)
	}
	calls := ui.callNames()
	if calls[len(calls)-1] != "hide_splash_screen" {
		t.Errorf("calls = %v, want hide_splash_screen last", calls)
	}
}

func TestSplashDefaultsMessagePosition(t *testing.T) {
	b, ui, _ := newTestBackend(t, nil)

	if err := b.Dispatch("show_splash_screen", map[string]any{"message": "hi"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	ui.mu.Lock()
	opts := ui.splashes[0]
	ui.mu.Unlock()
	if got := FloatOr(opts.MessageX, 0.5); got != 0.5 {
		t.Errorf("MessageX default = %v, want 0.5", got)
	}
	if opts.MessageX != nil {
		t.Errorf("MessageX = %v, want nil for omitted option", *opts.MessageX)
	}
}

func TestStatusDisplayGeneratesID(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)
	b.newID = func() string { return "generated-id" }

	if err := b.Dispatch("set_status_display", map[string]any{"title": "Mail"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if err := b.Dispatch("set_status_display", map[string]any{"id": "explicit", "title": "Chat"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	drain(t, loop)

	ui.mu.Lock()
	defer ui.mu.Unlock()
	if len(ui.displays) != 2 {
		t.Fatalf("SetStatusDisplay called %d times, want 2", len(ui.displays))
	}
	if ui.displays[0].ID != "generated-id" {
		t.Errorf("generated id = %q, want %q", ui.displays[0].ID, "generated-id")
	}
	if ui.displays[1].ID != "explicit" {
		t.Errorf("explicit id = %q, want %q", ui.displays[1].ID, "explicit")
	}
}

func TestReportErrorUsesNextErrorMessage(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)

	if err := b.Dispatch("set_next_error_message", map[string]any{"message": "Setup failed: %(error)s"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	drain(t, loop)

	b.ReportError(errors.New("no route to host"))
	drain(t, loop)

	notice, ok := ui.lastNotice()
	if !ok {
		t.Fatal("no notification delivered")
	}
	if notice.Message != "Setup failed: no route to host" {
		t.Errorf("message = %q", notice.Message)
	}
}

func TestReportErrorDefaultTemplate(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)

	b.ReportError(errors.New("boom"))
	drain(t, loop)

	notice, ok := ui.lastNotice()
	if !ok {
		t.Fatal("no notification delivered")
	}
	if notice.Message != "Error: boom" {
		t.Errorf("message = %q, want %q", notice.Message, "Error: boom")
	}
}

func TestAsyncInvocationErrorIsReported(t *testing.T) {
	b, ui, loop := newTestBackend(t, nil)
	ui.mu.Lock()
	ui.opErr = errors.New("widget gone")
	ui.mu.Unlock()

	if err := b.Dispatch("set_status", map[string]any{"status": "x"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	drain(t, loop)

	// The failure surfaced through the notification hook.
	ui.mu.Lock()
	ui.opErr = nil
	notices := len(ui.notices)
	ui.mu.Unlock()
	if notices == 0 {
		t.Error("invocation error was not reported to the user")
	}
}

func TestUIStartFailureFailsConstruction(t *testing.T) {
	loop := bridge.New()
	go loop.Run()
	defer loop.Close()

	ui := &stubUI{startErr: errors.New("no display")}
	_, err := New(Config{}, ui, loop, testLogger())
	if err == nil {
		t.Fatal("New() succeeded, want start failure")
	}
}

func TestShellRunsCommandsInOrder(t *testing.T) {
	b, _, _ := newTestBackend(t, nil)

	var ran []string
	b.runShell = func(command string) error {
		ran = append(ran, command)
		if command == "false" {
			return errors.New("exit 1")
		}
		return nil
	}

	err := b.Dispatch("shell", map[string]any{"args": []any{"true", "false", "never"}})
	if err == nil {
		t.Fatal("Dispatch(shell) succeeded, want failure")
	}
	if len(ran) != 2 || ran[0] != "true" || ran[1] != "false" {
		t.Errorf("ran = %v, want [true false]", ran)
	}
}

func TestShowURLUsesOpener(t *testing.T) {
	b, _, _ := newTestBackend(t, nil)

	var opened string
	b.openURL = func(url string) error {
		opened = url
		return nil
	}

	if err := b.Dispatch("show_url", map[string]any{"_url": "https://example.com/inbox"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if opened != "https://example.com/inbox" {
		t.Errorf("opened = %q", opened)
	}
}
