// Package tui is the full-screen terminal backend: a bubbletea program
// rendering status, status displays and notifications in the alternate
// screen. The shell's stdin carries the control protocol, so the program runs
// without keyboard input and is driven entirely by messages.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/okjarvi/guishell/internal/backend"
)

// UI adapts the capability surface onto a running bubbletea program. Verb
// methods only Send; all state lives in the model and mutates inside Update.
type UI struct {
	host    backend.Host
	program *tea.Program
	done    chan error
}

// New returns the TUI backend.
func New() *UI {
	return &UI{done: make(chan error, 1)}
}

// Start launches the program on its own goroutine. Readiness is signaled by
// the model's Init command, once the program is processing messages.
func (u *UI) Start(host backend.Host) error {
	u.host = host
	model := newModel(host)
	u.program = tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(nil),
		tea.WithOutput(os.Stderr),
	)
	go func() {
		_, err := u.program.Run()
		if err != nil {
			host.ReportError(fmt.Errorf("tui: %w", err))
		}
		u.done <- err
	}()
	return nil
}

func (u *UI) SetStatus(opts backend.StatusOptions) error {
	u.program.Send(statusMsg{status: opts.Status, badge: opts.Badge})
	return nil
}

func (u *UI) SetStatusDisplay(opts backend.StatusDisplayOptions) error {
	u.program.Send(displayMsg{opts: opts})
	return nil
}

func (u *UI) SetItem(opts backend.ItemOptions) error {
	u.program.Send(itemMsg{opts: opts})
	return nil
}

func (u *UI) NotifyUser(opts backend.NotifyOptions) error {
	u.program.Send(noticeMsg{message: opts.Message, alert: opts.Alert})
	return nil
}

func (u *UI) ShowSplashScreen(opts backend.SplashOptions) error {
	u.program.Send(splashShowMsg{opts: opts})
	return nil
}

func (u *UI) UpdateSplashScreen(opts backend.SplashUpdateOptions) error {
	u.program.Send(splashUpdateMsg{opts: opts})
	return nil
}

func (u *UI) HideSplashScreen() error {
	u.program.Send(splashHideMsg{})
	return nil
}

func (u *UI) ShowMainWindow() error {
	u.program.Send(windowMsg{visible: true})
	return nil
}

func (u *UI) HideMainWindow() error {
	u.program.Send(windowMsg{visible: false})
	return nil
}

// Quit stops the program and waits for the terminal to be restored, so the
// process does not exit with the alternate screen still active.
func (u *UI) Quit() error {
	u.program.Quit()
	return <-u.done
}
