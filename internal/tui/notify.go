package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/userform"
)

const (
	transientLifetime = 3 * time.Second
	cardLifetime      = 8 * time.Second
)

type notificationExpiredMsg struct {
	seq int
}

// notificationFeed collects what the form reports to the operator until it
// expires. Notifications posted together expire together.
type notificationFeed struct {
	items []userform.Notification
	seq   int
	shown int
}

// Notify implements userform.Notifier.
func (f *notificationFeed) Notify(n userform.Notification) {
	f.seq++
	f.items = append(f.items, n)
	logging.Debug("Notification",
		zap.Bool("transient", n.Transient),
		zap.String("title", n.Title),
		zap.String("description", n.Description))
}

// pending returns the expiry timer for notifications posted since the last
// call, or nil.
func (f *notificationFeed) pending() tea.Cmd {
	if f.seq == f.shown {
		return nil
	}
	f.shown = f.seq

	life := transientLifetime
	for _, n := range f.items {
		if !n.Transient {
			life = cardLifetime
		}
	}
	seq := f.seq
	return tea.Tick(life, func(time.Time) tea.Msg {
		return notificationExpiredMsg{seq: seq}
	})
}

// expire drops the notifications if nothing newer arrived since seq.
func (f *notificationFeed) expire(seq int) {
	if seq == f.seq {
		f.items = nil
	}
}

// View renders transient notifications as status lines and the rest as
// cards.
func (f *notificationFeed) View(width int) string {
	if len(f.items) == 0 {
		return ""
	}

	var lines []string
	for _, n := range f.items {
		if n.Transient {
			lines = append(lines, renderStatusLine(n))
			continue
		}
		lines = append(lines, renderCard(n, width))
	}
	return strings.Join(lines, "\n")
}

func renderStatusLine(n userform.Notification) string {
	switch n.Kind {
	case userform.KindSuccess:
		return RenderSuccess(n.Description)
	case userform.KindWarning:
		return RenderWarning(n.Description)
	default:
		return lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).Render("✗ " + n.Description)
	}
}

func renderCard(n userform.Notification, width int) string {
	color := ErrorColor
	switch n.Kind {
	case userform.KindSuccess:
		color = SecondaryColor
	case userform.KindWarning:
		color = WarningColor
	}

	title := lipgloss.NewStyle().Foreground(color).Bold(true).Render(n.Title)
	body := lipgloss.JoinVertical(lipgloss.Left, title, n.Description)

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)
	if width > 8 {
		style = style.Width(width - 4)
	}
	return style.Render(body)
}
