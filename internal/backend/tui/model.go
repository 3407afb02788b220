package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/okjarvi/guishell/internal/backend"
)

// How many notifications stay visible.
const noticeHistory = 5

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	badgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	splashStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 4).
			Align(lipgloss.Center)
)

type (
	statusMsg struct {
		status string
		badge  string
	}
	displayMsg struct{ opts backend.StatusDisplayOptions }
	itemMsg    struct{ opts backend.ItemOptions }
	noticeMsg  struct {
		message string
		alert   bool
	}
	splashShowMsg   struct{ opts backend.SplashOptions }
	splashUpdateMsg struct{ opts backend.SplashUpdateOptions }
	splashHideMsg   struct{}
	windowMsg       struct{ visible bool }
)

type menuEntry struct {
	id        string
	label     string
	sensitive bool
}

type splashState struct {
	visible  bool
	message  string
	progress float64
	hasBar   bool
	bar      progress.Model
}

type model struct {
	host    backend.Host
	appName string

	status   string
	badge    string
	displays []backend.StatusDisplayOptions
	menu     []menuEntry
	notices  []noticeMsg
	splash   splashState

	mainVisible bool
	width       int
}

func newModel(host backend.Host) model {
	cfg := host.Config()
	m := model{
		host:        host,
		appName:     cfg.AppName(),
		status:      "startup",
		mainVisible: true,
		width:       80,
	}
	for _, mi := range cfg.MenuItems() {
		m.menu = append(m.menu, menuEntry{id: mi.ID, label: mi.Label, sensitive: mi.Sensitive})
	}
	return m
}

// Init signals readiness: by the time this command runs, the program is
// processing messages.
func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		m.host.SetReady()
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusMsg:
		m.status = msg.status
		m.badge = msg.badge

	case displayMsg:
		for i, d := range m.displays {
			if d.ID == msg.opts.ID {
				m.displays[i] = msg.opts
				return m, nil
			}
		}
		m.displays = append(m.displays, msg.opts)

	case itemMsg:
		for i, entry := range m.menu {
			if entry.id != msg.opts.Item {
				continue
			}
			if msg.opts.Label != "" {
				m.menu[i].label = msg.opts.Label
			}
			if msg.opts.Sensitive != nil {
				m.menu[i].sensitive = *msg.opts.Sensitive
			}
			break
		}

	case noticeMsg:
		m.notices = append(m.notices, msg)
		if len(m.notices) > noticeHistory {
			m.notices = m.notices[len(m.notices)-noticeHistory:]
		}

	case splashShowMsg:
		m.splash = splashState{
			visible: true,
			message: msg.opts.Message,
			hasBar:  msg.opts.ProgressBar,
			bar:     progress.New(progress.WithDefaultGradient()),
		}

	case splashUpdateMsg:
		if !m.splash.visible {
			return m, nil
		}
		if msg.opts.Message != nil {
			m.splash.message = *msg.opts.Message
		}
		if msg.opts.Progress != nil {
			m.splash.progress = *msg.opts.Progress
		}

	case splashHideMsg:
		m.splash.visible = false

	case windowMsg:
		m.mainVisible = msg.visible
	}
	return m, nil
}

func (m model) View() string {
	if m.splash.visible {
		return m.viewSplash()
	}
	if !m.mainVisible {
		return dimStyle.Render(m.appName + " (window hidden)")
	}

	var b strings.Builder
	header := titleStyle.Render(m.appName) + "  " + statusStyle.Render(m.status)
	if m.badge != "" {
		header += "  " + badgeStyle.Render("["+m.badge+"]")
	}
	b.WriteString(header + "\n\n")

	for _, d := range m.displays {
		if d.Details != "" {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(d.Title+":"), d.Details)
		} else {
			b.WriteString(labelStyle.Render(d.Title) + "\n")
		}
	}
	if len(m.displays) > 0 {
		b.WriteString("\n")
	}

	for _, entry := range m.menu {
		label := entry.label
		if !entry.sensitive {
			label = dimStyle.Render(label)
		}
		fmt.Fprintf(&b, "  %s\n", label)
	}
	if len(m.menu) > 0 {
		b.WriteString("\n")
	}

	for _, n := range m.notices {
		if n.alert {
			fmt.Fprintf(&b, "%s %s\n", alertStyle.Render("⚠"), n.message)
		} else {
			fmt.Fprintf(&b, "%s %s\n", dimStyle.Render("•"), n.message)
		}
	}
	return b.String()
}

func (m model) viewSplash() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.appName) + "\n\n")
	b.WriteString(m.splash.message + "\n")
	if m.splash.hasBar {
		b.WriteString("\n" + m.splash.bar.ViewAs(m.splash.progress) + "\n")
	}
	return splashStyle.Width(min(m.width-2, 60)).Render(b.String())
}
