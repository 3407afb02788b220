package term

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/okjarvi/guishell/internal/backend"
)

type fakeHost struct {
	cfg   backend.Config
	ready bool
}

func (h *fakeHost) Config() backend.Config        { return h.cfg }
func (h *fakeHost) Invoke(string, map[string]any) {}
func (h *fakeHost) ReportError(error)             {}
func (h *fakeHost) SetReady()                     { h.ready = true }
func (h *fakeHost) Logger() *slog.Logger          { return slog.New(slog.DiscardHandler) }

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := Output
	oldNoColor := color.NoColor
	color.NoColor = true
	buf := &bytes.Buffer{}
	Output = buf
	t.Cleanup(func() {
		Output = old
		color.NoColor = oldNoColor
	})
	return buf
}

func TestStartSignalsReady(t *testing.T) {
	buf := captureOutput(t)
	host := &fakeHost{cfg: backend.Config{"app_name": "Demo"}}

	u := New()
	if err := u.Start(host); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !host.ready {
		t.Error("Start() did not signal readiness")
	}
	if !strings.Contains(buf.String(), "Demo") {
		t.Errorf("banner = %q, want app name", buf.String())
	}
}

func TestSetStatusPrintsBadge(t *testing.T) {
	buf := captureOutput(t)
	u := New()

	if err := u.SetStatus(backend.StatusOptions{Status: "working", Badge: "3"}); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "working") {
		t.Errorf("output = %q, want status name", out)
	}
	if !strings.Contains(out, "[3]") {
		t.Errorf("output = %q, want badge", out)
	}
}

func TestStatusBadgeUnknownStatus(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	if got := StatusBadge("custom"); !strings.Contains(got, "custom") {
		t.Errorf("StatusBadge(custom) = %q", got)
	}
}

func TestSplashUpdateKeepsUntouchedFields(t *testing.T) {
	buf := captureOutput(t)
	u := New()

	if err := u.ShowSplashScreen(backend.SplashOptions{Message: "loading"}); err != nil {
		t.Fatalf("ShowSplashScreen() error = %v", err)
	}
	progress := 0.5
	if err := u.UpdateSplashScreen(backend.SplashUpdateOptions{Progress: &progress}); err != nil {
		t.Fatalf("UpdateSplashScreen() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "loading (50%)") {
		t.Errorf("output = %q, want message retained with progress", out)
	}
}

func TestUpdateSplashScreenWithoutShowIsNoop(t *testing.T) {
	buf := captureOutput(t)
	u := New()

	message := "never"
	if err := u.UpdateSplashScreen(backend.SplashUpdateOptions{Message: &message}); err != nil {
		t.Fatalf("UpdateSplashScreen() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want none before show_splash_screen", buf.String())
	}
}

func TestNotifyUserAlertMarker(t *testing.T) {
	buf := captureOutput(t)
	u := New()

	if err := u.NotifyUser(backend.NotifyOptions{Message: "disk full", Alert: true}); err != nil {
		t.Fatalf("NotifyUser() error = %v", err)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("output = %q", buf.String())
	}
}
