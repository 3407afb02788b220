package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/okjarvi/guishell/internal/backend"
	"github.com/okjarvi/guishell/internal/backend/term"
	"github.com/okjarvi/guishell/internal/backend/tray"
	"github.com/okjarvi/guishell/internal/backend/tui"
)

func TestNewUISelectsBackend(t *testing.T) {
	if _, ok := newUI("term").(*term.UI); !ok {
		t.Error("newUI(term) did not return the terminal backend")
	}
	if _, ok := newUI("tui").(*tui.UI); !ok {
		t.Error("newUI(tui) did not return the TUI backend")
	}
	if _, ok := newUI("tray").(*tray.UI); !ok {
		t.Error("newUI(tray) did not return the tray backend")
	}
}

func TestDetectBackendPrefersTrayOnDesktop(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("desktop detection is linux-specific")
	}
	t.Setenv("DISPLAY", ":0")

	if got := detectBackend(); got != "tray" {
		t.Errorf("detectBackend() = %q, want tray", got)
	}
}

func TestVerbsIncludeProtocolSurface(t *testing.T) {
	verbs := backend.Verbs()
	for _, want := range []string{"set_status", "notify_user", "show_splash_screen", "quit", "get_url", "shell"} {
		if !slices.Contains(verbs, want) {
			t.Errorf("Verbs() missing %q", want)
		}
	}
	if !slices.IsSorted(verbs) {
		t.Errorf("Verbs() not sorted: %v", verbs)
	}
}

func TestRunCmdEndToEnd(t *testing.T) {
	// Arrange: isolated home, scripted protocol session, terminal backend.
	t.Setenv("HOME", t.TempDir())

	oldOutput := term.Output
	oldNoColor := color.NoColor
	color.NoColor = true
	out := &bytes.Buffer{}
	term.Output = out
	t.Cleanup(func() {
		term.Output = oldOutput
		color.NoColor = oldNoColor
	})

	script := strings.Join([]string{
		`{"app_name": "Demo"}`,
		`OK GO`,
		`set_status {"status": "working"}`,
		`quit {}`,
	}, "\n") + "\n"
	input := filepath.Join(t.TempDir(), "session.txt")
	if err := os.WriteFile(input, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	// Act
	cmd := &RunCmd{Backend: "term", Input: input, exit: func(int) {}}
	err := cmd.Run()

	// Assert
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "working") {
		t.Errorf("output = %q, want status line", out.String())
	}
}

func TestRunCmdRejectsUnknownBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := &RunCmd{Backend: "motif"}
	err := cmd.Run()
	if err == nil {
		t.Fatal("Run() accepted an unknown backend")
	}
	exitErr, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("error = %T, want *ExitError", err)
	}
	if exitErr.Code != exitBadConfig {
		t.Errorf("Code = %d, want %d", exitErr.Code, exitBadConfig)
	}
}

func TestRunCmdBadConfigDocument(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	oldOutput := term.Output
	term.Output = &bytes.Buffer{}
	t.Cleanup(func() { term.Output = oldOutput })

	input := filepath.Join(t.TempDir(), "session.txt")
	if err := os.WriteFile(input, []byte("{broken\nOK GO\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &RunCmd{Backend: "term", Input: input, exit: func(int) {}}
	err := cmd.Run()
	exitErr, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("error = %T, want *ExitError", err)
	}
	if exitErr.Code != exitBadConfig {
		t.Errorf("Code = %d, want %d", exitErr.Code, exitBadConfig)
	}
}
