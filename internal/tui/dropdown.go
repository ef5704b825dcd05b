package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/userform"
)

// DefaultSearchDebounce is how long typing must pause before a search runs.
const DefaultSearchDebounce = 800 * time.Millisecond

// maxVisibleOptions caps the expanded option list.
const maxVisibleOptions = 8

// searchFunc runs one option search. It never fails.
type searchFunc func(ctx context.Context, text string) []userform.Option

// searchDebounceMsg fires when typing in a dropdown has paused.
type searchDebounceMsg struct {
	field      formField
	id         int
	generation int
}

// searchResultMsg carries the options found for one search ticket.
type searchResultMsg struct {
	field   formField
	ticket  uint64
	options []userform.Option
}

// Dropdown is a searchable single-select bound to a remote option search.
// The selection itself lives in the form controller.
type Dropdown struct {
	Label   string
	Field   formField
	Input   textinput.Model
	Options []userform.Option
	Cursor  int
	Open    bool
	Loading bool

	seq        *userform.SearchSequencer
	search     searchFunc
	debounce   time.Duration
	timeout    time.Duration
	debounceID int
	lastText   string
}

// NewDropdown creates a collapsed dropdown.
func NewDropdown(label string, field formField, seq *userform.SearchSequencer, search searchFunc, debounce, timeout time.Duration) Dropdown {
	in := textinput.New()
	in.Placeholder = "type to search " + strings.ToLower(label)
	in.CharLimit = 64
	in.Width = 40
	in.Prompt = "/ "

	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	return Dropdown{
		Label:    label,
		Field:    field,
		Input:    in,
		seq:      seq,
		search:   search,
		debounce: debounce,
		timeout:  timeout,
	}
}

// Clear collapses the dropdown and forgets options and search text.
func (d *Dropdown) Clear() {
	d.Input.SetValue("")
	d.Input.Blur()
	d.Options = nil
	d.Cursor = 0
	d.Open = false
	d.Loading = false
	d.lastText = ""
	d.debounceID++
}

// Expand opens the option list. The first expansion searches for everything.
func (d *Dropdown) Expand() tea.Cmd {
	d.Open = true
	d.Input.Focus()
	if d.Options == nil && !d.Loading {
		return d.startSearch()
	}
	return textinput.Blink
}

// Collapse closes the option list, keeping its options.
func (d *Dropdown) Collapse() {
	d.Open = false
	d.Input.Blur()
}

// Selected returns the highlighted option.
func (d *Dropdown) Selected() (userform.Option, bool) {
	if d.Cursor < 0 || d.Cursor >= len(d.Options) {
		return userform.Option{}, false
	}
	return d.Options[d.Cursor], true
}

// MoveCursor moves the highlight by delta within the options.
func (d *Dropdown) MoveCursor(delta int) {
	if len(d.Options) == 0 {
		d.Cursor = 0
		return
	}
	d.Cursor += delta
	if d.Cursor < 0 {
		d.Cursor = 0
	}
	if d.Cursor >= len(d.Options) {
		d.Cursor = len(d.Options) - 1
	}
}

// Type feeds a key to the search input and schedules a debounced search when
// the text changed.
func (d *Dropdown) Type(msg tea.Msg, generation int) tea.Cmd {
	var cmd tea.Cmd
	d.Input, cmd = d.Input.Update(msg)

	text := d.Input.Value()
	if text == d.lastText {
		return cmd
	}
	d.lastText = text
	d.debounceID++

	id := d.debounceID
	field := d.Field
	tick := tea.Tick(d.debounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{field: field, id: id, generation: generation}
	})
	return tea.Batch(cmd, tick)
}

// Debounced starts the search if msg belongs to the latest keystroke.
func (d *Dropdown) Debounced(msg searchDebounceMsg) tea.Cmd {
	if msg.id != d.debounceID {
		return nil
	}
	return d.startSearch()
}

func (d *Dropdown) startSearch() tea.Cmd {
	ticket := d.seq.Begin()
	d.Loading = true

	text := d.Input.Value()
	field := d.Field
	search := d.search
	timeout := d.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return searchResultMsg{field: field, ticket: ticket, options: search(ctx, text)}
	}
}

// Result applies a search response. Responses for anything but the newest
// search are dropped; it reports whether msg was applied.
func (d *Dropdown) Result(msg searchResultMsg) bool {
	if !d.seq.Accept(msg.ticket) {
		logging.Debug("Dropping stale search result for " + d.Label)
		return false
	}
	d.Loading = false
	d.Options = msg.options
	if d.Options == nil {
		d.Options = []userform.Option{}
	}
	d.Cursor = 0
	return true
}

// View renders the dropdown row and, when expanded, the option list.
func (d Dropdown) View(selection []userform.Option, focused bool, sp spinner.Model) string {
	value := lipgloss.NewStyle().Foreground(SubtleColor).Render("(none)")
	if len(selection) == 1 {
		value = selection[0].Label
	}
	row := renderLabel(d.Label, true, focused) + value + " ▾"
	if !d.Open {
		return row
	}

	var b strings.Builder
	b.WriteString(d.Input.View())
	b.WriteString("\n")

	switch {
	case d.Loading:
		b.WriteString(SpinnerStyle.Render(sp.View() + " searching..."))
	case len(d.Options) == 0:
		b.WriteString(RenderSubtitle("No matches"))
	default:
		start := 0
		if d.Cursor >= maxVisibleOptions {
			start = d.Cursor - maxVisibleOptions + 1
		}
		end := min(len(d.Options), start+maxVisibleOptions)
		for i := start; i < end; i++ {
			if i > start {
				b.WriteString("\n")
			}
			label := d.Options[i].Label
			if i == d.Cursor {
				b.WriteString(SelectedOptionStyle.Render("→ " + label))
			} else {
				b.WriteString(OptionStyle.Render("  " + label))
			}
		}
	}

	return row + "\n" + InlineEditorStyle().Render(b.String())
}
