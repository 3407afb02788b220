// Package backend defines the capability surface the control loop drives: one
// operation per protocol verb, dispatched through an explicit verb registry
// and marshaled onto the GUI loop by the bridge.
package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okjarvi/guishell/internal/bridge"
)

// ErrQuit is returned by Dispatch when the quit verb has completed. It is a
// shutdown signal, not a failure.
var ErrQuit = errors.New("backend: quit requested")

// UI is the toolkit side of the capability surface. Every method is invoked
// on the GUI loop goroutine only.
type UI interface {
	// Start builds the toolkit state (indicator, menu from config). It runs
	// on the loop goroutine before any verb is dispatched and must arrange
	// for host.SetReady to be called once the event loop is live.
	Start(host Host) error

	SetStatus(opts StatusOptions) error
	SetStatusDisplay(opts StatusDisplayOptions) error
	SetItem(opts ItemOptions) error
	NotifyUser(opts NotifyOptions) error
	ShowSplashScreen(opts SplashOptions) error
	UpdateSplashScreen(opts SplashUpdateOptions) error
	HideSplashScreen() error
	ShowMainWindow() error
	HideMainWindow() error
	Quit() error
}

// Host is the narrow surface a UI sees of the shell core, used by menu items
// and toolkit callbacks.
type Host interface {
	Config() Config
	// Invoke dispatches a verb on behalf of the UI (menu item ops). Errors
	// are reported through the error hook, not returned.
	Invoke(verb string, args map[string]any)
	ReportError(err error)
	SetReady()
	Logger() *slog.Logger
}

// runMode says where a verb handler executes relative to the GUI loop.
type runMode int

const (
	// runAsync enqueues onto the loop; errors go to the error hook.
	runAsync runMode = iota
	// runBlocking enqueues onto the loop and waits for completion.
	runBlocking
	// runDirect executes on the dispatching goroutine; for operations that
	// touch no widget state and may block (network, subprocesses).
	runDirect
)

type handler struct {
	mode runMode
	fn   func(args map[string]any) error
}

// Backend binds a parsed configuration document to a UI and owns the verb
// registry. It is constructed exactly once per control session, after the
// configuration has been parsed.
type Backend struct {
	cfg    Config
	ui     UI
	loop   *bridge.Loop
	logger *slog.Logger
	verbs  map[string]handler

	// nextErrorMessage is read and written on the loop goroutine only.
	nextErrorMessage string

	// cookieMu guards the http_cookies section of the config, the one part
	// of the document mutated after parse: set_http_cookie writes on the
	// loop goroutine while get_url/post_url read on the dispatching one.
	cookieMu sync.Mutex

	httpClient *http.Client

	// Test hooks.
	openURL  func(url string) error
	runShell func(command string) error
	newID    func() string
}

// New constructs the backend and starts the UI on the loop goroutine,
// blocking until toolkit construction has finished.
func New(cfg Config, ui UI, loop *bridge.Loop, logger *slog.Logger) (*Backend, error) {
	b := &Backend{
		cfg:        cfg,
		ui:         ui,
		loop:       loop,
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		openURL:    openURL,
		runShell:   runShellCommand,
		newID:      uuid.NewString,
	}
	b.registerVerbs()
	loop.SetPanicHandler(func(r any) {
		b.ReportError(fmt.Errorf("gui operation panicked: %v", r))
	})

	var startErr error
	if err := loop.SubmitWait(func() {
		startErr = ui.Start(b)
	}); err != nil {
		return nil, fmt.Errorf("start gui: %w", err)
	}
	if startErr != nil {
		return nil, fmt.Errorf("start gui: %w", startErr)
	}
	return b, nil
}

// registerVerbs builds the verb registry once. Unknown verbs become a map
// miss rather than a reflection failure.
func (b *Backend) registerVerbs() {
	b.verbs = map[string]handler{
		"set_status":             {runAsync, b.doSetStatus},
		"set_status_display":     {runAsync, b.doSetStatusDisplay},
		"set_item":               {runAsync, b.doSetItem},
		"set_next_error_message": {runAsync, b.doSetNextErrorMessage},
		"notify_user":            {runAsync, b.doNotifyUser},
		"update_splash_screen":   {runAsync, b.doUpdateSplashScreen},
		"show_main_window":       {runAsync, func(map[string]any) error { return b.ui.ShowMainWindow() }},
		"hide_main_window":       {runAsync, func(map[string]any) error { return b.ui.HideMainWindow() }},
		"set_http_cookie":        {runAsync, b.doSetHTTPCookie},

		// Subsequent commands assume the splash state is final, so these
		// block the dispatching goroutine until the loop has finished.
		"show_splash_screen": {runBlocking, b.doShowSplashScreen},
		"hide_splash_screen": {runBlocking, func(map[string]any) error { return b.ui.HideSplashScreen() }},
		"quit":               {runBlocking, b.doQuit},

		"show_url": {runDirect, b.doShowURL},
		"get_url":  {runDirect, func(args map[string]any) error { return b.fetchURL(http.MethodGet, args) }},
		"post_url": {runDirect, func(args map[string]any) error { return b.fetchURL(http.MethodPost, args) }},
		"shell":    {runDirect, b.doShell},
		"terminal": {runDirect, b.doTerminal},
	}
}

// Verbs returns the names of every operation the shell understands, sorted.
func Verbs() []string {
	b := &Backend{}
	b.registerVerbs()
	names := make([]string, 0, len(b.verbs))
	for name := range b.verbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes the operation registered for verb. Safe to call from any
// goroutine; state-mutating operations are marshaled onto the GUI loop.
// Returns *UnknownVerbError for a verb with no registration, ErrQuit after a
// completed quit, and the operation's own error for blocking and direct
// verbs. Async verb failures are routed to the error hook instead.
func (b *Backend) Dispatch(verb string, args map[string]any) error {
	h, ok := b.verbs[verb]
	if !ok {
		return &UnknownVerbError{Verb: verb}
	}
	b.logger.Debug("dispatch", "verb", verb)

	switch h.mode {
	case runDirect:
		return h.fn(args)

	case runBlocking:
		var opErr error
		if err := b.loop.SubmitWait(func() {
			opErr = h.fn(args)
		}); err != nil {
			return err
		}
		if opErr != nil {
			return opErr
		}
		if verb == "quit" {
			return ErrQuit
		}
		return nil

	default:
		return b.loop.Submit(func() {
			if err := h.fn(args); err != nil {
				b.reportOnLoop(err)
			}
		})
	}
}

// Invoke implements Host for UI-originated calls (menu item ops).
func (b *Backend) Invoke(verb string, args map[string]any) {
	if err := b.Dispatch(verb, args); err != nil && !errors.Is(err, ErrQuit) {
		b.ReportError(err)
	}
}

// Config implements Host.
func (b *Backend) Config() Config { return b.cfg }

// Logger implements Host.
func (b *Backend) Logger() *slog.Logger { return b.logger }

// SetReady implements Host. The dispatcher holds commands until this fires.
func (b *Backend) SetReady() { b.loop.SetReady() }

// Ready reports whether the UI has signaled readiness.
func (b *Backend) Ready() bool { return b.loop.Ready() }

// ReportError surfaces an error to the user through the notification
// mechanism, applying any template installed by set_next_error_message.
// Developer-facing detail goes to the log only.
func (b *Backend) ReportError(err error) {
	b.logger.Error("reported to user", "error", err)
	b.loop.Submit(func() {
		b.reportOnLoop(err)
	})
}

// reportOnLoop is ReportError already on the loop goroutine.
func (b *Backend) reportOnLoop(err error) {
	template := b.nextErrorMessage
	if template == "" {
		template = "Error: %(error)s"
	}
	message := strings.ReplaceAll(template, "%(error)s", err.Error())
	if nerr := b.ui.NotifyUser(NotifyOptions{Message: message}); nerr != nil {
		b.logger.Error("notify failed", "error", nerr)
	}
}

// Quit tears the UI down outside the normal verb flow (EOF, interrupt).
func (b *Backend) Quit() {
	err := b.loop.SubmitWait(func() {
		if qerr := b.ui.Quit(); qerr != nil {
			b.logger.Warn("quit failed", "error", qerr)
		}
	})
	if err != nil && !errors.Is(err, bridge.ErrLoopClosed) {
		b.logger.Warn("quit not delivered", "error", err)
	}
	b.loop.Close()
}

func (b *Backend) doSetStatus(args map[string]any) error {
	var opts StatusOptions
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	return b.ui.SetStatus(opts)
}

func (b *Backend) doSetStatusDisplay(args map[string]any) error {
	var opts StatusDisplayOptions
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	if opts.ID == "" {
		opts.ID = b.newID()
	}
	return b.ui.SetStatusDisplay(opts)
}

func (b *Backend) doSetItem(args map[string]any) error {
	var opts ItemOptions
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	return b.ui.SetItem(opts)
}

func (b *Backend) doSetNextErrorMessage(args map[string]any) error {
	var opts struct {
		Message string `json:"message"`
	}
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	b.nextErrorMessage = opts.Message
	return nil
}

func (b *Backend) doNotifyUser(args map[string]any) error {
	var opts NotifyOptions
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	if opts.Message == "" {
		opts.Message = "Hello"
	}
	return b.ui.NotifyUser(opts)
}

func (b *Backend) doShowSplashScreen(args map[string]any) error {
	var opts SplashOptions
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	if opts.Image != "" {
		path, err := b.themeImage(opts.Image)
		if err != nil {
			return err
		}
		opts.Image = path
	}
	return b.ui.ShowSplashScreen(opts)
}

func (b *Backend) doUpdateSplashScreen(args map[string]any) error {
	var opts SplashUpdateOptions
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	return b.ui.UpdateSplashScreen(opts)
}

func (b *Backend) doQuit(map[string]any) error {
	err := b.ui.Quit()
	b.loop.Close()
	return err
}
