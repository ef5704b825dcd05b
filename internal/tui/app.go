package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/events"
	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/userform"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenUsers Screen = "users"
	ScreenForm  Screen = "form"
)

// Backend is everything the console needs from the API.
type Backend interface {
	userform.API
	UserLister
	ImageURL(category, fileName string) string
}

// Options configures the console.
type Options struct {
	Backend        Backend
	BackendURL     string
	Category       string
	PageSize       int
	SearchDebounce time.Duration
	RequestTimeout time.Duration

	// Events, when set, reloads the user table on remote changes.
	Events <-chan events.Event
}

// eventMsg carries one remote change; ok is false once the stream ends.
type eventMsg struct {
	event events.Event
	ok    bool
}

// reloadSignal records that the form asked for a table reload.
type reloadSignal struct {
	pending bool
}

func (r *reloadSignal) request() { r.pending = true }

func (r *reloadSignal) take() bool {
	p := r.pending
	r.pending = false
	return p
}

// AppModel is the top-level coordinator model: the user table with the user
// form as a modal on top.
type AppModel struct {
	CurrentScreen Screen

	Users UsersModel
	Form  FormModel

	ctrl       *userform.Controller
	feed       *notificationFeed
	reload     *reloadSignal
	events     <-chan events.Event
	backendURL string

	// UI state
	Width  int
	Height int
	Help   help.Model
}

// NewAppModel creates the console.
func NewAppModel(opts Options) AppModel {
	feed := &notificationFeed{}
	reload := &reloadSignal{}

	ctrl := userform.NewController(opts.Backend, feed, userform.Config{
		Category: opts.Category,
		ImageURL: opts.Backend.ImageURL,
		Reload:   reload.request,
	})

	return AppModel{
		CurrentScreen: ScreenUsers,
		Users:         NewUsersModel(opts.Backend, opts.PageSize, opts.RequestTimeout),
		Form:          NewFormModel(ctrl, opts.SearchDebounce, opts.RequestTimeout),
		ctrl:          ctrl,
		feed:          feed,
		reload:        reload,
		events:        opts.Events,
		backendURL:    opts.BackendURL,
		Width:         MinTerminalWidth,
		Height:        24,
		Help:          help.New(),
	}
}

// Controller exposes the form controller.
func (m AppModel) Controller() *userform.Controller { return m.ctrl }

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.Users.Init(), waitForEvent(m.events))
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.route(msg)

	var cmds []tea.Cmd
	cmds = append(cmds, cmd)
	if m.reload.take() {
		cmds = append(cmds, m.Users.Reload())
	}
	cmds = append(cmds, m.feed.pending())
	return m, tea.Batch(cmds...)
}

func (m *AppModel) route(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Form.Width = msg.Width
		m.Form.Height = msg.Height
		m.Users, cmd = m.Users.Update(msg)
		return cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return tea.Quit
		}
		if m.CurrentScreen == ScreenForm {
			m.Form, cmd = m.Form.Update(msg)
			return cmd
		}
		if msg.String() == "q" {
			return tea.Quit
		}
		m.Users, cmd = m.Users.Update(msg)
		return cmd

	case openFormMsg:
		m.CurrentScreen = ScreenForm
		return m.Form.Open(msg.record)

	case formClosedMsg:
		m.ctrl.AfterClose()
		m.CurrentScreen = ScreenUsers
		return nil

	case usersReloadMsg:
		return m.Users.Reload()

	case usersLoadedMsg:
		m.Users, cmd = m.Users.Update(msg)
		return cmd

	case eventMsg:
		if !msg.ok {
			logging.Info("Event stream closed")
			m.events = nil
			return nil
		}
		logging.Debug("Remote change", zap.String("event", msg.event.String()))
		return tea.Batch(m.Users.Reload(), waitForEvent(m.events))

	case notificationExpiredMsg:
		m.feed.expire(msg.seq)
		return nil

	case searchDebounceMsg, searchResultMsg, uploadDoneMsg, submitDoneMsg:
		m.Form, cmd = m.Form.Update(msg)
		return cmd
	}

	// Everything else (spinner ticks, cursor blinks) goes to both screens;
	// each ignores what is not its own.
	var formCmd tea.Cmd
	m.Users, cmd = m.Users.Update(msg)
	if m.CurrentScreen == ScreenForm {
		m.Form, formCmd = m.Form.Update(msg)
	}
	return tea.Batch(cmd, formCmd)
}

// waitForEvent delivers the next remote change as an eventMsg.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

// View renders the current screen
func (m AppModel) View() string {
	notices := m.feed.View(SafeModalWidth(FormModalWidth, m.Width))

	if m.CurrentScreen == ScreenForm {
		body := m.Form.View()
		if notices != "" {
			body = lipgloss.JoinVertical(lipgloss.Left, body, "", notices)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.Help.View(m.Form.Keys))
		modal := ModalStyle.Width(SafeModalWidth(FormModalWidth, m.Width)).Render(body)
		return RenderModal(modal, m.Width, m.Height)
	}

	content := m.Users.View()
	if notices != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, notices, content)
	}
	return RenderApplicationContainer(content, m.Help.View(m.Users.Keys), m.backendURL, m.Width, m.Height)
}

// Run starts the console and blocks until the operator quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewAppModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
