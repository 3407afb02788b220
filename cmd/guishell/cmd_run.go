package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okjarvi/guishell/internal/backend"
	"github.com/okjarvi/guishell/internal/backend/term"
	"github.com/okjarvi/guishell/internal/backend/tray"
	"github.com/okjarvi/guishell/internal/backend/tui"
	"github.com/okjarvi/guishell/internal/bridge"
	"github.com/okjarvi/guishell/internal/config"
	"github.com/okjarvi/guishell/internal/control"
	"github.com/okjarvi/guishell/internal/logging"
	"github.com/okjarvi/guishell/internal/transport"
)

// forcedExitGrace is how long a finished session waits for the GUI loop to
// unwind before forcing the process down.
const forcedExitGrace = 500 * time.Millisecond

type RunCmd struct {
	Backend string `help:"UI backend (${backends}), overriding settings.yaml" predictor:"backend"`
	Input   string `short:"i" help:"Read the control protocol from a file instead of stdin" type:"existingfile"`
	Verbose bool   `short:"v" help:"Log to stderr at debug level instead of the log file"`

	// exit is swapped out in tests.
	exit func(code int)
}

func (c *RunCmd) Run() error {
	paths, err := config.GetPaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	settings, err := config.LoadSettings(paths.Settings)
	if err != nil {
		return &ExitError{Code: exitBadConfig, Message: err.Error()}
	}

	backendName := settings.Backend
	if c.Backend != "" {
		backendName = c.Backend
		if err := (&config.Settings{Backend: backendName, LogLevel: settings.LogLevel}).Validate(); err != nil {
			return &ExitError{Code: exitBadConfig, Message: err.Error()}
		}
	}

	logger, closeLogs, err := c.newLogger(paths, settings)
	if err != nil {
		return err
	}
	defer closeLogs()

	input, err := c.openInput()
	if err != nil {
		return err
	}

	ui := newUI(backendName)
	logger.Info("starting shell", "backend", backendName, "version", version)

	loop := bridge.New()
	factory := func(cfg backend.Config) (control.Session, error) {
		b, err := backend.New(cfg, ui, loop, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctrl := control.New(logger, transport.NewPivoter(logger), factory)

	exit := c.exit
	if exit == nil {
		exit = os.Exit
	}

	// The GUI loop owns the main goroutine; the protocol session runs beside
	// it and closes the loop on its way out. A wedged toolkit closure can
	// keep the loop from unwinding, so after the grace window the session
	// forces the process down with the code it would have exited with.
	errCh := make(chan error, 1)
	go func() {
		err := ctrl.Run(ctx, transport.NewStream(input))
		loop.Close()
		errCh <- err

		time.Sleep(forcedExitGrace)
		code := exitSuccess
		if !errors.Is(err, context.Canceled) {
			if exitErr := classifyExit(err); exitErr != nil {
				code = exitErr.Code
			}
		}
		exit(code)
	}()
	loop.Run()

	err = <-errCh
	if errors.Is(err, context.Canceled) {
		// Interrupted; the session already tore the GUI down.
		return nil
	}
	if exitErr := classifyExit(err); exitErr != nil {
		return exitErr
	}
	return nil
}

func (c *RunCmd) newLogger(paths *config.Paths, settings config.Settings) (*slog.Logger, func(), error) {
	level, err := settings.Level()
	if err != nil {
		return nil, nil, &ExitError{Code: exitBadConfig, Message: err.Error()}
	}
	if c.Verbose {
		return logging.NewConsoleLogger(os.Stderr, slog.LevelDebug), func() {}, nil
	}

	writer := logging.NewRotatingWriter(logging.Config{
		Path:       paths.ShellLog,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
		Compress:   settings.Log.Compress,
	})
	return logging.NewLogger(writer, level), func() { writer.Close() }, nil
}

func (c *RunCmd) openInput() (io.Reader, error) {
	if c.Input == "" {
		return os.Stdin, nil
	}
	f, err := os.Open(c.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// newUI selects the backend implementation. "auto" prefers the system tray
// where a desktop session exists, a full-screen TUI on an interactive
// terminal, and plain line output otherwise.
func newUI(name string) backend.UI {
	if name == "auto" {
		name = detectBackend()
	}
	switch name {
	case "tray":
		return tray.New()
	case "tui":
		return tui.New()
	default:
		return term.New()
	}
}

func detectBackend() string {
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" {
			return "tray"
		}
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return "tray"
	}
	if stderrIsTerminal() {
		return "tui"
	}
	return "term"
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
