package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/useradmin/internal/backend"
)

type fakeBackend struct {
	mu sync.Mutex

	created []backend.UserPayload
	updated []backend.UserPayload
	uploads int

	createErr error
	uploadErr error

	users     []backend.User
	companies map[string][]backend.Company // keyed by raw query
	queries   []string
}

func (f *fakeBackend) CreateUser(ctx context.Context, p *backend.UserPayload) (*backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *p)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backend.User{ID: "new", Name: p.Name}, nil
}

func (f *fakeBackend) UpdateUser(ctx context.Context, p *backend.UserPayload) (*backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, *p)
	return &backend.User{ID: p.ID, Name: p.Name}, nil
}

func (f *fakeBackend) FetchCompanies(ctx context.Context, q string) (*backend.Paginated[backend.Company], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return &backend.Paginated[backend.Company]{Result: f.companies[q]}, nil
}

func (f *fakeBackend) FetchRoles(ctx context.Context, q string) (*backend.Paginated[backend.Role], error) {
	return &backend.Paginated[backend.Role]{Result: []backend.Role{{ID: "r1", Name: "ADMIN"}}}, nil
}

func (f *fakeBackend) UploadSingleFile(ctx context.Context, file *backend.FilePart, category string) (*backend.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &backend.UploadResult{FileName: "avatar-1.png"}, nil
}

func (f *fakeBackend) FetchUsers(ctx context.Context, q string) (*backend.Paginated[backend.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &backend.Paginated[backend.User]{
		Meta:   backend.Meta{Current: 1, PageSize: 10, Pages: 1, Total: len(f.users)},
		Result: f.users,
	}, nil
}

func (f *fakeBackend) ImageURL(category, name string) string {
	return "http://localhost:8000/images/" + category + "/" + name
}

// run executes cmd and returns the messages it produces, flattening
// batches. Only use it on commands that do not sleep.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte("\x89PNG\r\n\x1a\n"))
	return b
}
