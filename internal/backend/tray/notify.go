package tray

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Freedesktop notification urgency levels.
const (
	urgencyLow      = byte(0)
	urgencyNormal   = byte(1)
	urgencyCritical = byte(2)
)

// Notifier delivers desktop notifications over the session bus, falling back
// to notify-send where no bus is reachable. The bus connection is established
// lazily on first use.
type Notifier struct {
	appName string
	logger  *slog.Logger

	once sync.Once
	conn *dbus.Conn

	// Test hooks.
	fallback func(appName, urgency, message string) error
}

// NewNotifier creates a notifier for the given application name.
func NewNotifier(appName string, logger *slog.Logger) *Notifier {
	return &Notifier{
		appName:  appName,
		logger:   logger,
		fallback: notifySend,
	}
}

// Notify shows a transient notification. Alerts are delivered with critical
// urgency so they persist until dismissed.
func (n *Notifier) Notify(title, message string, alert bool) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	n.once.Do(func() {
		conn, err := dbus.SessionBus()
		if err != nil {
			n.logger.Warn("session bus unavailable", "error", err)
			return
		}
		n.conn = conn
	})

	urgency := urgencyNormal
	if alert {
		urgency = urgencyCritical
	}

	if n.conn == nil {
		return n.fallback(n.appName, urgencyName(urgency), message)
	}

	obj := n.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		n.appName,  // app_name
		uint32(0),  // replaces_id
		"",         // app_icon
		title,      // summary
		message,    // body
		[]string{}, // actions
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(urgency),
		},
		int32(-1), // expire_timeout, server default
	)
	if call.Err != nil {
		n.logger.Warn("notification bus call failed", "error", call.Err)
		return n.fallback(n.appName, urgencyName(urgency), message)
	}
	return nil
}

func urgencyName(urgency byte) string {
	switch urgency {
	case urgencyCritical:
		return "critical"
	case urgencyLow:
		return "low"
	default:
		return "normal"
	}
}

func notifySend(appName, urgency, message string) error {
	return exec.Command("notify-send",
		"--app-name="+appName,
		"--urgency="+urgency,
		appName,
		message,
	).Run()
}
