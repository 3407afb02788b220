// Package term is the fallback backend: a colorized line printer for running
// the shell on a headless host or inspecting a controller by hand. Every verb
// becomes one line of output.
package term

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/okjarvi/guishell/internal/backend"
)

// Color functions for consistent styling.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Output is the destination for backend output. Defaults to os.Stderr, since
// stdout belongs to the control protocol, but can be overridden for testing.
var Output io.Writer = os.Stderr

// UI prints each operation as a formatted line. It keeps just enough state to
// render splash updates against the last shown splash.
type UI struct {
	host backend.Host

	splashMessage  string
	splashProgress float64
	splashShown    bool
}

// New returns the terminal backend.
func New() *UI {
	return &UI{}
}

// Start prints the banner and reports readiness immediately; there is no
// event loop to wait for.
func (u *UI) Start(host backend.Host) error {
	u.host = host
	fmt.Fprintf(Output, "%s %s\n", Bold(host.Config().AppName()), Dim("(terminal backend)"))
	host.SetReady()
	return nil
}

// StatusBadge returns a colored indicator for an application status.
func StatusBadge(status string) string {
	switch status {
	case "normal":
		return Green("● " + status)
	case "working", "startup":
		return Yellow("◐ " + status)
	case "attention":
		return Red("● " + status)
	case "shutdown":
		return Dim("○ " + status)
	default:
		return Cyan("● " + status)
	}
}

func (u *UI) SetStatus(opts backend.StatusOptions) error {
	if opts.Badge != "" {
		fmt.Fprintf(Output, "%s %s %s\n", Bold("Status:"), StatusBadge(opts.Status), Dim("["+opts.Badge+"]"))
		return nil
	}
	fmt.Fprintf(Output, "%s %s\n", Bold("Status:"), StatusBadge(opts.Status))
	return nil
}

func (u *UI) SetStatusDisplay(opts backend.StatusDisplayOptions) error {
	line := fmt.Sprintf("%s %s", Bold(opts.Title+":"), opts.Details)
	if opts.ID != "" {
		line = Dim("["+opts.ID+"] ") + line
	}
	fmt.Fprintln(Output, line)
	return nil
}

func (u *UI) SetItem(opts backend.ItemOptions) error {
	label := opts.Label
	if opts.Sensitive != nil && !*opts.Sensitive {
		label = Dim(label + " (disabled)")
	}
	fmt.Fprintf(Output, "%s %s = %s\n", Bold("Item:"), Cyan(opts.Item), label)
	return nil
}

func (u *UI) NotifyUser(opts backend.NotifyOptions) error {
	marker := Blue("•")
	if opts.Alert {
		marker = Yellow("⚠")
	}
	fmt.Fprintf(Output, "%s %s\n", marker, opts.Message)
	return nil
}

func (u *UI) ShowSplashScreen(opts backend.SplashOptions) error {
	u.splashShown = true
	u.splashMessage = opts.Message
	u.splashProgress = 0
	u.printSplash()
	return nil
}

func (u *UI) UpdateSplashScreen(opts backend.SplashUpdateOptions) error {
	if !u.splashShown {
		return nil
	}
	if opts.Message != nil {
		u.splashMessage = *opts.Message
	}
	if opts.Progress != nil {
		u.splashProgress = *opts.Progress
	}
	u.printSplash()
	return nil
}

func (u *UI) printSplash() {
	if u.splashProgress > 0 {
		fmt.Fprintf(Output, "%s %s %s\n", Bold("Splash:"), u.splashMessage,
			Dim(fmt.Sprintf("(%d%%)", int(u.splashProgress*100))))
		return
	}
	fmt.Fprintf(Output, "%s %s\n", Bold("Splash:"), u.splashMessage)
}

func (u *UI) HideSplashScreen() error {
	u.splashShown = false
	return nil
}

func (u *UI) ShowMainWindow() error {
	fmt.Fprintf(Output, "%s shown\n", Bold("Main window:"))
	return nil
}

func (u *UI) HideMainWindow() error {
	fmt.Fprintf(Output, "%s hidden\n", Bold("Main window:"))
	return nil
}

func (u *UI) Quit() error {
	fmt.Fprintln(Output, Dim("bye"))
	return nil
}
