// Package tray is the indicator backend: a system tray icon whose menu is
// declared by the controller's configuration document. Status displays render
// as disabled menu entries and notifications go through the desktop
// notification service.
package tray

import (
	"fmt"
	"os"
	"sync"

	"fyne.io/systray"
	"github.com/okjarvi/guishell/internal/backend"
)

// UI drives the system tray. The systray event loop runs on its own
// goroutine; all mutation of UI state happens on the GUI loop goroutine, so
// the maps below need no locking once onReady has finished.
type UI struct {
	host     backend.Host
	notifier *Notifier

	items    map[string]*systray.MenuItem
	displays map[string]*systray.MenuItem

	// readyOnce guards against toolkits that fire onReady more than once.
	readyOnce sync.Once
}

// New returns the tray backend.
func New() *UI {
	return &UI{
		items:    make(map[string]*systray.MenuItem),
		displays: make(map[string]*systray.MenuItem),
	}
}

// Start launches the systray event loop. Readiness is signaled from onReady,
// once the menu exists and clicks can be delivered.
func (u *UI) Start(host backend.Host) error {
	u.host = host
	u.notifier = NewNotifier(host.Config().AppName(), host.Logger())
	go systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	cfg := u.host.Config()
	systray.SetTitle(cfg.AppName())
	systray.SetTooltip(cfg.AppName())
	u.setIcon("startup")

	for _, mi := range cfg.MenuItems() {
		item := systray.AddMenuItem(mi.Label, "")
		if !mi.Sensitive {
			item.Disable()
		}
		u.items[mi.ID] = item

		if mi.Op == "" {
			continue
		}
		// One goroutine per item, alive for the session; Invoke routes the
		// operation back through the dispatcher.
		go func(mi backend.MenuItem, item *systray.MenuItem) {
			for range item.ClickedCh {
				u.host.Invoke(mi.Op, mi.Args)
			}
		}(mi, item)
	}

	u.readyOnce.Do(u.host.SetReady)
}

func (u *UI) onExit() {
	u.host.Logger().Debug("tray loop exited")
}

// setIcon installs the configured image for a status name, if one exists.
// Indicator themes key images by status, so a missing entry is not an error.
func (u *UI) setIcon(status string) {
	path, ok := u.host.Config().Images()[status]
	if !ok {
		return
	}
	icon, err := os.ReadFile(path)
	if err != nil {
		u.host.Logger().Warn("status icon unreadable", "status", status, "path", path, "error", err)
		return
	}
	systray.SetIcon(icon)
}

func (u *UI) SetStatus(opts backend.StatusOptions) error {
	u.setIcon(opts.Status)
	tooltip := u.host.Config().AppName()
	if opts.Badge != "" {
		tooltip = fmt.Sprintf("%s (%s)", tooltip, opts.Badge)
	}
	systray.SetTooltip(tooltip)
	return nil
}

// SetStatusDisplay renders a status display as a disabled menu entry, created
// on first use and updated in place afterwards.
func (u *UI) SetStatusDisplay(opts backend.StatusDisplayOptions) error {
	item, ok := u.displays[opts.ID]
	if !ok {
		item = systray.AddMenuItem("", "")
		item.Disable()
		u.displays[opts.ID] = item
	}
	if opts.Details != "" {
		item.SetTitle(fmt.Sprintf("%s: %s", opts.Title, opts.Details))
	} else {
		item.SetTitle(opts.Title)
	}
	return nil
}

func (u *UI) SetItem(opts backend.ItemOptions) error {
	item, ok := u.items[opts.Item]
	if !ok {
		return fmt.Errorf("no menu item %q", opts.Item)
	}
	if opts.Label != "" {
		item.SetTitle(opts.Label)
	}
	if opts.Sensitive != nil {
		if *opts.Sensitive {
			item.Enable()
		} else {
			item.Disable()
		}
	}
	return nil
}

func (u *UI) NotifyUser(opts backend.NotifyOptions) error {
	return u.notifier.Notify(u.host.Config().AppName(), opts.Message, opts.Alert)
}

// The tray has no splash surface; progress is folded into the tooltip so
// splash-driving controllers still get visible feedback.

func (u *UI) ShowSplashScreen(opts backend.SplashOptions) error {
	systray.SetTooltip(opts.Message)
	return nil
}

func (u *UI) UpdateSplashScreen(opts backend.SplashUpdateOptions) error {
	if opts.Message != nil {
		systray.SetTooltip(*opts.Message)
	}
	return nil
}

func (u *UI) HideSplashScreen() error {
	systray.SetTooltip(u.host.Config().AppName())
	return nil
}

func (u *UI) ShowMainWindow() error { return nil }
func (u *UI) HideMainWindow() error { return nil }

func (u *UI) Quit() error {
	systray.Quit()
	return nil
}
