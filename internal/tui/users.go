package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/useradmin/internal/backend"
)

// UserLister is the backend surface of the user table.
type UserLister interface {
	FetchUsers(ctx context.Context, query string) (*backend.Paginated[backend.User], error)
}

// DefaultPageSize is the number of users fetched per page.
const DefaultPageSize = 10

// Messages for async operations
type usersLoadedMsg struct {
	seq  int
	page *backend.Paginated[backend.User]
	err  error
}

// openFormMsg asks the app to show the form for record (nil creates).
type openFormMsg struct {
	record *backend.User
}

// usersKeyMap defines key bindings for the user table
type usersKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	New    key.Binding
	Edit   key.Binding
	Reload key.Binding
	Next   key.Binding
	Prev   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k usersKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Edit, k.Reload, k.Prev, k.Next, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k usersKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.New, k.Edit},
		{k.Reload, k.Prev, k.Next, k.Quit},
	}
}

// userItem wraps a User for use with bubbles/list
type userItem struct {
	user backend.User
}

// FilterValue filters by name or email.
func (u userItem) FilterValue() string {
	return u.user.Name + " " + u.user.Email
}

// Title returns the user name for list display
func (u userItem) Title() string { return u.user.Name }

// Description returns user details for list display
func (u userItem) Description() string {
	return strings.Join(userDetails(u.user), " • ")
}

func userDetails(u backend.User) []string {
	parts := []string{u.Email}
	if u.Role != nil && u.Role.Name != "" {
		parts = append(parts, u.Role.Name)
	}
	if u.Company != nil && u.Company.Name != "" {
		parts = append(parts, u.Company.Name)
	}
	return parts
}

// userDelegate renders a user as a compact card
type userDelegate struct {
	width int
}

func (d userDelegate) Height() int { return 2 }

func (d userDelegate) Spacing() int { return 1 }

func (d userDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d userDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ui, ok := item.(userItem)
	if !ok {
		return
	}

	name := ui.user.Name
	if name == "" {
		name = ui.user.ID
	}

	title := "  " + name
	if index == m.Index() {
		title = lipgloss.NewStyle().Foreground(HighlightColor).Bold(true).Render("→ " + name)
	}

	details := lipgloss.NewStyle().
		Foreground(SubtleColor).
		PaddingLeft(4).
		MaxWidth(max(d.width, 20)).
		Render(ui.Description())

	fmt.Fprint(w, title+"\n"+details)
}

// UsersModel is the user table screen: one page of users, reloaded after
// every successful form submission.
type UsersModel struct {
	api      UserLister
	pageSize int
	timeout  time.Duration

	List     list.Model
	Loading  bool
	Err      error
	Page     int
	Meta     backend.Meta
	loadSeq  int
	loadedAt time.Time

	// UI state
	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    usersKeyMap
}

// NewUsersModel creates the user table screen.
func NewUsersModel(api UserLister, pageSize int, timeout time.Duration) UsersModel {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	l := list.New([]list.Item{}, userDelegate{width: MinTerminalWidth}, 0, 0)
	l.Title = "Users"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = TitleStyle

	keys := usersKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new user"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter/e", "edit"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Next: key.NewBinding(
			key.WithKeys("]", "pgdown"),
			key.WithHelp("]", "next page"),
		),
		Prev: key.NewBinding(
			key.WithKeys("[", "pgup"),
			key.WithHelp("[", "prev page"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	return UsersModel{
		api:      api,
		pageSize: pageSize,
		timeout:  timeout,
		List:     l,
		Page:     1,
		Loading:  true,
		Spinner:  s,
		Help:     help.New(),
		Keys:     keys,
	}
}

// Init loads the first page.
func (m UsersModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.load())
}

// Reload fetches the current page again.
func (m *UsersModel) Reload() tea.Cmd {
	m.loadSeq++
	m.Loading = true
	return tea.Batch(m.Spinner.Tick, m.load())
}

func (m UsersModel) load() tea.Cmd {
	api := m.api
	seq := m.loadSeq
	query := backend.PageQuery(m.Page, m.pageSize, "")
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		page, err := api.FetchUsers(ctx, query)
		return usersLoadedMsg{seq: seq, page: page, err: err}
	}
}

// Update handles messages and updates the model
func (m UsersModel) Update(msg tea.Msg) (UsersModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.List.SetDelegate(userDelegate{width: msg.Width - 4})
		m.List.SetWidth(msg.Width - 4)
		m.List.SetHeight(max(msg.Height-10, 3))
		return m, nil

	case usersLoadedMsg:
		if msg.seq != m.loadSeq {
			return m, nil
		}
		m.Loading = false
		m.Err = msg.err
		if msg.err == nil && msg.page != nil {
			m.Meta = msg.page.Meta
			items := make([]list.Item, len(msg.page.Result))
			for i, u := range msg.page.Result {
				items[i] = userItem{user: u}
			}
			cmd = m.List.SetItems(items)
			m.loadedAt = time.Now()
		}
		return m, cmd

	case spinner.TickMsg:
		if m.Loading {
			m.Spinner, cmd = m.Spinner.Update(msg)
		}
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.New):
			return m, func() tea.Msg { return openFormMsg{} }

		case key.Matches(msg, m.Keys.Edit):
			if u, ok := m.SelectedUser(); ok {
				return m, func() tea.Msg { return openFormMsg{record: u} }
			}
			return m, nil

		case key.Matches(msg, m.Keys.Reload):
			cmd = m.Reload()
			return m, cmd

		case key.Matches(msg, m.Keys.Next):
			if m.Meta.Pages > 0 && m.Page < m.Meta.Pages {
				m.Page++
				cmd = m.Reload()
				return m, cmd
			}
			return m, nil

		case key.Matches(msg, m.Keys.Prev):
			if m.Page > 1 {
				m.Page--
				cmd = m.Reload()
				return m, cmd
			}
			return m, nil
		}
	}

	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

// SelectedUser returns a copy of the highlighted user.
func (m UsersModel) SelectedUser() (*backend.User, bool) {
	item, ok := m.List.SelectedItem().(userItem)
	if !ok {
		return nil, false
	}
	u := item.user
	return &u, true
}

// View renders the table body. The caller frames it.
func (m UsersModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Loading && len(m.List.Items()) == 0:
		b.WriteString(SpinnerStyle.Render(fmt.Sprintf("  %s Loading users...", m.Spinner.View())))

	case m.Err != nil:
		b.WriteString(RenderError("Failed to load users: " + backend.GetShortErrorMessage(m.Err)))
		b.WriteString("\n\n")
		if hint := backend.GetTroubleshootingHint(m.Err); hint != "" {
			b.WriteString("  " + hint + "\n")
		}

	case len(m.List.Items()) == 0:
		b.WriteString("  ")
		b.WriteString(RenderWarning("No users yet. Press n to create one."))

	default:
		b.WriteString(m.List.View())
	}

	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(m.statusLine()))
	return b.String()
}

func (m UsersModel) statusLine() string {
	pages := max(m.Meta.Pages, 1)
	line := fmt.Sprintf("Page %d/%d • %d users", m.Page, pages, m.Meta.Total)
	if m.Loading {
		line += " • " + m.Spinner.View() + " refreshing"
	} else if !m.loadedAt.IsZero() {
		line += " • updated " + m.loadedAt.Format("15:04:05")
	}
	return line
}
