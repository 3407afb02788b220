// Package control runs the protocol session: it accumulates the configuration
// document, resolves the handshake directive, builds the backend and then
// feeds command lines to it until the stream ends or quit completes.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/okjarvi/guishell/internal/backend"
	"github.com/okjarvi/guishell/internal/protocol"
	"github.com/okjarvi/guishell/internal/transport"
)

// ErrNoHandshake indicates the control stream ended before a handshake
// directive arrived, so no GUI was ever built.
var ErrNoHandshake = errors.New("control stream ended before handshake")

const (
	// errorCooldown throttles a misbehaving controller after a failed
	// command so the session does not spin on a tight error loop.
	errorCooldown = 30 * time.Second
	// readyPollInterval is how often the dispatcher checks whether the GUI
	// has come up before delivering the first command.
	readyPollInterval = 100 * time.Millisecond
	// readySettle is an extra pause after readiness so the toolkit can
	// finish its first paint.
	readySettle = 100 * time.Millisecond
	// quitGrace gives the toolkit time to tear down before the process
	// exits.
	quitGrace = 500 * time.Millisecond
)

// Session is the slice of the backend the controller drives. Satisfied by
// *backend.Backend.
type Session interface {
	Dispatch(verb string, args map[string]any) error
	ReportError(err error)
	Ready() bool
	Quit()
}

// BackendFactory builds the session once the configuration document has been
// parsed. It is where the command wires the chosen UI in.
type BackendFactory func(cfg backend.Config) (Session, error)

// Controller owns one protocol session from first line to shutdown.
type Controller struct {
	logger     *slog.Logger
	pivoter    *transport.Pivoter
	newBackend BackendFactory

	// Tunable in tests.
	cooldown  time.Duration
	readyPoll time.Duration
	settle    time.Duration
	grace     time.Duration
	stdout    io.Writer

	mu      sync.Mutex
	current *transport.Transport
}

// New creates a controller with the protocol-mandated timings.
func New(logger *slog.Logger, pivoter *transport.Pivoter, factory BackendFactory) *Controller {
	return &Controller{
		logger:     logger,
		pivoter:    pivoter,
		newBackend: factory,
		cooldown:   errorCooldown,
		readyPoll:  readyPollInterval,
		settle:     readySettle,
		grace:      quitGrace,
		stdout:     os.Stdout,
	}
}

// Run drives the session on t until the controller disconnects or quit
// completes. Cancelling ctx closes the active transport, which unblocks the
// reader. The returned error classifies what went wrong; nil means a clean
// shutdown.
func (c *Controller) Run(ctx context.Context, t *transport.Transport) error {
	c.setCurrent(t)
	defer c.closeCurrent()

	stop := context.AfterFunc(ctx, c.closeCurrent)
	defer stop()

	session, err := c.bootstrap()
	if err != nil {
		return err
	}

	quitSeen := c.commandLoop(ctx, session)
	if !quitSeen {
		// EOF or a blank line; tear the GUI down ourselves.
		session.Quit()
	}
	time.Sleep(c.grace)
	return ctx.Err()
}

// bootstrap accumulates configuration lines until a handshake directive
// arrives, resolves any pivot, parses the document and builds the backend.
func (c *Controller) bootstrap() (Session, error) {
	var configLines []string
	var directive protocol.Directive

	for {
		line, err := c.transport().ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil, ErrNoHandshake
			}
			return nil, fmt.Errorf("read handshake: %w", err)
		}

		d, ok := protocol.ParseDirective(line)
		if !ok {
			configLines = append(configLines, line)
			continue
		}
		directive = d
		break
	}
	c.logger.Info("handshake complete", "directive", directive.Kind.String(), "config_lines", len(configLines))

	if err := c.pivot(directive); err != nil {
		return nil, err
	}

	cfg, err := protocol.ParseConfig(configLines)
	if err != nil {
		return nil, err
	}
	session, err := c.newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("build backend: %w", err)
	}
	return session, nil
}

// pivot swaps the active transport when the directive demands it. The old
// transport is closed after the new one is live, so a failed pivot leaves the
// session on its previous stream for error delivery.
func (c *Controller) pivot(d protocol.Directive) error {
	next, err := c.pivoter.Pivot(d)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	old := c.swapCurrent(next)
	if old != nil {
		old.Close()
	}
	return nil
}

// commandLoop reads command lines and dispatches them until the stream ends.
// Returns true when a quit verb completed.
func (c *Controller) commandLoop(ctx context.Context, session Session) bool {
	c.awaitReady(ctx, session)

	for {
		line, err := c.transport().ReadLine()
		if err != nil {
			if err != io.EOF {
				c.logger.Warn("control stream error", "error", err)
			}
			return false
		}
		if line == "" {
			// A blank line is the controller's polite goodbye.
			return false
		}

		// A pivot directive mid-stream moves the rest of the session to a
		// new transport; the most recent one wins.
		if d, ok := protocol.ParseDirective(line); ok {
			if err := c.pivot(d); err != nil {
				c.logger.Error("pivot failed", "error", err)
				session.ReportError(err)
				time.Sleep(c.cooldown)
			}
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			c.logger.Error("bad command line", "error", err)
			session.ReportError(err)
			time.Sleep(c.cooldown)
			continue
		}

		err = session.Dispatch(cmd.Verb, cmd.Args)
		switch {
		case err == nil:
		case errors.Is(err, backend.ErrQuit):
			return true
		case backend.IsUnknownVerb(err):
			// Diagnostic on stdout so a developer driving the shell by
			// hand sees it immediately.
			c.logger.Warn("unknown verb", "verb", cmd.Verb)
			fmt.Fprintf(c.stdout, "Unknown command: %s\n", cmd.Verb)
		default:
			c.logger.Error("command failed", "verb", cmd.Verb, "error", err)
			session.ReportError(err)
			time.Sleep(c.cooldown)
		}
	}
}

// awaitReady holds command delivery until the UI has signaled readiness, then
// pauses once more so the first visible operation lands on a painted screen.
func (c *Controller) awaitReady(ctx context.Context, session Session) {
	for !session.Ready() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.readyPoll):
		}
	}
	time.Sleep(c.settle)
}

func (c *Controller) transport() *transport.Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) setCurrent(t *transport.Transport) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

func (c *Controller) swapCurrent(t *transport.Transport) *transport.Transport {
	c.mu.Lock()
	old := c.current
	c.current = t
	c.mu.Unlock()
	return old
}

func (c *Controller) closeCurrent() {
	if t := c.transport(); t != nil {
		t.Close()
	}
}
