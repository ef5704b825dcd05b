package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/userform"
)

// formField identifies a focusable element of the user form.
type formField int

const (
	fieldName formField = iota
	fieldEmail
	fieldPassword
	fieldPhone
	fieldAge
	fieldGender
	fieldAddress
	fieldCompany
	fieldRole
	fieldAvatar
	fieldSubmit
	fieldCancel
	fieldCount
)

// fieldKeys maps fields to the names used in validation errors.
var fieldKeys = map[formField]string{
	fieldName:     "name",
	fieldEmail:    "email",
	fieldPassword: "password",
	fieldPhone:    "phone",
	fieldAge:      "age",
	fieldGender:   "gender",
	fieldAddress:  "address",
	fieldCompany:  "company",
	fieldRole:     "role",
	fieldAvatar:   "avatar",
}

var genderChoices = append([]backend.Gender{""}, backend.Genders...)

// Async results of the form's network calls. Each carries the generation of
// the form session that started it.
type uploadDoneMsg struct {
	generation int
	result     *backend.UploadResult
	err        error
}

type submitDoneMsg struct {
	generation int
	sub        *userform.Submission
	user       *backend.User
	err        error
}

// formClosedMsg is sent once the form has been dismissed.
type formClosedMsg struct{}

// usersReloadMsg asks the user table to fetch its current page again.
type usersReloadMsg struct{}

// formKeyMap defines key bindings for the user form
type formKeyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Select  key.Binding
	Cycle   key.Binding
	Submit  key.Binding
	Remove  key.Binding
	Preview key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Select, k.Submit, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Select, k.Cycle},
		{k.Submit, k.Remove, k.Preview, k.Cancel},
	}
}

func newFormKeyMap() formKeyMap {
	return formKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open/upload/choose"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("left", "right", " "),
			key.WithHelp("←/→", "change gender"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Remove: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "remove avatar/selection"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "preview avatar"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// FormModel is the modal user form. Form state lives in the controller;
// the model holds the widgets and the in-flight bookkeeping.
type FormModel struct {
	ctrl *userform.Controller

	inputs     [fieldCount]textinput.Model
	genderIdx  int
	company    Dropdown
	role       Dropdown
	avatarPath textinput.Model

	focus      formField
	errs       map[string]string
	submitting bool
	generation int
	timeout    time.Duration

	// UI state
	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    formKeyMap
}

// NewFormModel creates a closed form bound to ctrl.
func NewFormModel(ctrl *userform.Controller, debounce, timeout time.Duration) FormModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := FormModel{
		ctrl:    ctrl,
		timeout: timeout,
		Spinner: s,
		Help:    help.New(),
		Keys:    newFormKeyMap(),
	}

	placeholders := map[formField]string{
		fieldName:     "Full name",
		fieldEmail:    "name@example.com",
		fieldPassword: "Password",
		fieldPhone:    "Phone number",
		fieldAge:      "Age",
		fieldAddress:  "Address",
	}
	for f, ph := range placeholders {
		in := textinput.New()
		in.Placeholder = ph
		in.CharLimit = 128
		in.Width = 40
		in.Prompt = ""
		m.inputs[f] = in
	}
	m.inputs[fieldAge].CharLimit = 3
	m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	m.inputs[fieldPassword].EchoCharacter = '•'

	m.avatarPath = textinput.New()
	m.avatarPath.Placeholder = "path to a JPG or PNG under 2MB"
	m.avatarPath.CharLimit = 512
	m.avatarPath.Width = 40
	m.avatarPath.Prompt = ""

	m.company = NewDropdown("Company", fieldCompany, ctrl.CompanySearch(), ctrl.SearchCompanies, debounce, timeout)
	m.role = NewDropdown("Role", fieldRole, ctrl.RoleSearch(), ctrl.SearchRoles, debounce, timeout)

	return m
}

// Open shows the form for record, or for a new user when record is nil.
func (m *FormModel) Open(record *backend.User) tea.Cmd {
	m.generation++
	m.ctrl.Open(record)

	vals := m.ctrl.InitialValues()
	m.inputs[fieldName].SetValue(vals.Name)
	m.inputs[fieldEmail].SetValue(vals.Email)
	m.inputs[fieldPassword].SetValue("")
	m.inputs[fieldPhone].SetValue(vals.Phone)
	m.inputs[fieldAge].SetValue("")
	if vals.Age > 0 {
		m.inputs[fieldAge].SetValue(strconv.Itoa(vals.Age))
	}
	m.inputs[fieldAddress].SetValue(vals.Address)

	m.genderIdx = 0
	for i, g := range genderChoices {
		if g == vals.Gender {
			m.genderIdx = i
		}
	}

	m.company.Clear()
	m.role.Clear()
	m.avatarPath.SetValue("")
	m.errs = nil
	m.submitting = false
	m.setFocus(fieldName)

	return textinput.Blink
}

// Visible reports whether the form is showing.
func (m FormModel) Visible() bool {
	return m.ctrl.Visible()
}

// Init starts the cursor blinking.
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	cmd := m.update(msg)
	return m, cmd
}

func (m *FormModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.ctrl.Visible() {
			return nil
		}
		return m.updateKeys(msg)

	case searchDebounceMsg:
		if msg.generation != m.generation {
			return nil
		}
		if d := m.dropdown(msg.field); d != nil {
			return d.Debounced(msg)
		}

	case searchResultMsg:
		if d := m.dropdown(msg.field); d != nil {
			d.Result(msg)
		}

	case uploadDoneMsg:
		return m.finishUpload(msg)

	case submitDoneMsg:
		return m.finishSubmit(msg)

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			return cmd
		}
	}
	return nil
}

func (m *FormModel) updateKeys(msg tea.KeyMsg) tea.Cmd {
	if d := m.dropdown(m.focus); d != nil && d.Open {
		return m.updateDropdown(d, msg)
	}

	switch {
	case key.Matches(msg, m.Keys.Cancel):
		if m.ctrl.PreviewState().Open {
			m.ctrl.ClosePreview()
			return nil
		}
		return m.cancel()

	case key.Matches(msg, m.Keys.Submit):
		return m.submit()

	case key.Matches(msg, m.Keys.Next):
		m.setFocus(m.step(1))
		return textinput.Blink

	case key.Matches(msg, m.Keys.Prev):
		m.setFocus(m.step(-1))
		return textinput.Blink

	case key.Matches(msg, m.Keys.Preview):
		if entry := m.ctrl.Avatar().Entry(); entry != nil {
			m.ctrl.Preview(*entry)
		}
		return nil

	case key.Matches(msg, m.Keys.Remove):
		switch m.focus {
		case fieldAvatar:
			m.ctrl.Avatar().Remove()
			m.ctrl.ClosePreview()
		case fieldCompany:
			m.ctrl.SelectCompany(nil)
		case fieldRole:
			m.ctrl.SelectRole(nil)
		}
		return nil

	case m.focus == fieldGender && key.Matches(msg, m.Keys.Cycle):
		if msg.String() == "left" {
			m.genderIdx = (m.genderIdx + len(genderChoices) - 1) % len(genderChoices)
		} else {
			m.genderIdx = (m.genderIdx + 1) % len(genderChoices)
		}
		return nil

	case key.Matches(msg, m.Keys.Select):
		switch m.focus {
		case fieldCompany:
			return m.company.Expand()
		case fieldRole:
			return m.role.Expand()
		case fieldAvatar:
			return m.startUpload()
		case fieldSubmit:
			return m.submit()
		case fieldCancel:
			return m.cancel()
		default:
			m.setFocus(m.step(1))
			return textinput.Blink
		}
	}

	var cmd tea.Cmd
	switch {
	case m.isTextField(m.focus):
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		delete(m.errs, fieldKeys[m.focus])
	case m.focus == fieldAvatar:
		m.avatarPath, cmd = m.avatarPath.Update(msg)
	}
	return cmd
}

func (m *FormModel) updateDropdown(d *Dropdown, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		d.Collapse()
		return nil
	case "tab":
		m.setFocus(m.step(1))
		return textinput.Blink
	case "shift+tab":
		m.setFocus(m.step(-1))
		return textinput.Blink
	case "up":
		d.MoveCursor(-1)
		return nil
	case "down":
		d.MoveCursor(1)
		return nil
	case "enter":
		if opt, ok := d.Selected(); ok {
			m.choose(d.Field, []userform.Option{opt})
		}
		d.Collapse()
		return nil
	case "ctrl+x":
		m.choose(d.Field, nil)
		d.Collapse()
		return nil
	}
	return d.Type(msg, m.generation)
}

func (m *FormModel) choose(field formField, opts []userform.Option) {
	switch field {
	case fieldCompany:
		m.ctrl.SelectCompany(opts)
	case fieldRole:
		m.ctrl.SelectRole(opts)
	}
	delete(m.errs, fieldKeys[field])
}

// submit validates the form and, when valid, sends it in the background.
func (m *FormModel) submit() tea.Cmd {
	if m.submitting {
		return nil
	}

	values, ok := m.values()
	if !ok {
		return nil
	}

	sub, err := m.ctrl.Prepare(values)
	if err != nil {
		m.errs = fieldErrors(err)
		return nil
	}

	m.errs = nil
	m.submitting = true

	ctrl := m.ctrl
	gen := m.generation
	timeout := m.timeout
	return tea.Batch(m.Spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		user, err := ctrl.Execute(ctx, sub)
		return submitDoneMsg{generation: gen, sub: sub, user: user, err: err}
	})
}

func (m *FormModel) finishSubmit(msg submitDoneMsg) tea.Cmd {
	if msg.generation != m.generation || !m.ctrl.Visible() {
		logging.Debug("Discarding submit result for a closed form", zap.Error(msg.err))
		if msg.err == nil {
			return func() tea.Msg { return usersReloadMsg{} }
		}
		return nil
	}

	m.submitting = false
	if err := m.ctrl.Complete(msg.sub, msg.user, msg.err); err != nil {
		return nil
	}
	return m.close()
}

// startUpload reads the file named in the avatar field and uploads it in the
// background.
func (m *FormModel) startUpload() tea.Cmd {
	up := m.ctrl.Avatar()
	if up.Loading() {
		return nil
	}

	p := strings.TrimSpace(m.avatarPath.Value())
	if p == "" {
		m.setErr("avatar", "Enter the path of a JPG or PNG file")
		return nil
	}

	f, err := userform.LoadAvatarFile(expandHome(p))
	if err != nil {
		m.setErr("avatar", err.Error())
		return nil
	}
	if !up.Begin(f) {
		return nil
	}
	delete(m.errs, "avatar")

	gen := m.generation
	timeout := m.timeout
	return tea.Batch(m.Spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		res, err := up.Transfer(ctx, f)
		return uploadDoneMsg{generation: gen, result: res, err: err}
	})
}

func (m *FormModel) finishUpload(msg uploadDoneMsg) tea.Cmd {
	if msg.generation != m.generation {
		logging.Debug("Discarding upload result for a closed form")
		return nil
	}
	if err := m.ctrl.Avatar().Finish(msg.result, msg.err); err == nil {
		m.avatarPath.SetValue("")
	}
	return nil
}

func (m *FormModel) cancel() tea.Cmd {
	m.ctrl.Cancel()
	m.submitting = false
	return m.close()
}

func (m *FormModel) close() tea.Cmd {
	m.setFocus(fieldCount)
	m.company.Clear()
	m.role.Clear()
	return func() tea.Msg { return formClosedMsg{} }
}

// values collects the text fields. It reports false when a field cannot be
// parsed at all.
func (m *FormModel) values() (userform.FormValues, bool) {
	v := userform.FormValues{
		Name:     strings.TrimSpace(m.inputs[fieldName].Value()),
		Email:    strings.TrimSpace(m.inputs[fieldEmail].Value()),
		Phone:    strings.TrimSpace(m.inputs[fieldPhone].Value()),
		Gender:   genderChoices[m.genderIdx],
		Address:  strings.TrimSpace(m.inputs[fieldAddress].Value()),
		Password: m.inputs[fieldPassword].Value(),
	}

	if age := strings.TrimSpace(m.inputs[fieldAge].Value()); age != "" {
		n, err := strconv.Atoi(age)
		if err != nil {
			m.setErr("age", "Age must be a whole number")
			return v, false
		}
		v.Age = n
	}
	return v, true
}

// fieldErrors copies the per-field messages of a validation error. The form
// edits its copy as fields are corrected.
func fieldErrors(err error) map[string]string {
	var ve *userform.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	errs := make(map[string]string, len(ve.Fields))
	for k, v := range ve.Fields {
		errs[k] = v
	}
	return errs
}

func (m *FormModel) setErr(field, text string) {
	if m.errs == nil {
		m.errs = make(map[string]string)
	}
	m.errs[field] = text
}

func (m *FormModel) busy() bool {
	return m.submitting || m.ctrl.Avatar().Loading() || m.company.Loading || m.role.Loading
}

func (m *FormModel) dropdown(f formField) *Dropdown {
	switch f {
	case fieldCompany:
		return &m.company
	case fieldRole:
		return &m.role
	}
	return nil
}

func (m *FormModel) isTextField(f formField) bool {
	switch f {
	case fieldName, fieldEmail, fieldPhone, fieldAge, fieldAddress:
		return true
	case fieldPassword:
		return m.ctrl.PasswordEnabled()
	}
	return false
}

// step returns the field delta positions away from the focused one,
// skipping the password on update.
func (m *FormModel) step(delta int) formField {
	f := m.focus
	for {
		f = (f + formField(delta) + fieldCount) % fieldCount
		if f != fieldPassword || m.ctrl.PasswordEnabled() {
			return f
		}
	}
}

func (m *FormModel) setFocus(f formField) {
	m.focus = f
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.avatarPath.Blur()
	m.company.Collapse()
	m.role.Collapse()

	switch {
	case m.isTextField(f):
		m.inputs[f].Focus()
	case f == fieldAvatar:
		m.avatarPath.Focus()
	}
}

// View renders the form body. The caller frames it.
func (m FormModel) View() string {
	var rows []string

	title := m.ctrl.Mode().Title()
	if rec := m.ctrl.Record(); rec.HasIdentity() {
		title += " · " + rec.Name
	}
	rows = append(rows, RenderTitle(title))

	rows = append(rows, m.textRow("Name", fieldName, true))
	rows = append(rows, m.textRow("Email", fieldEmail, true))
	if m.ctrl.PasswordEnabled() {
		rows = append(rows, m.textRow("Password", fieldPassword, true))
	} else {
		rows = append(rows, renderLabel("Password", false, false)+RenderSubtitle("unchanged"))
	}
	rows = append(rows, m.textRow("Phone", fieldPhone, false))
	rows = append(rows, m.textRow("Age", fieldAge, false))
	rows = append(rows, m.withError(m.genderRow(), fieldGender))
	rows = append(rows, m.textRow("Address", fieldAddress, true))
	rows = append(rows, m.withError(m.company.View(m.ctrl.Companies(), m.focus == fieldCompany, m.Spinner), fieldCompany))
	rows = append(rows, m.withError(m.role.View(m.ctrl.Roles(), m.focus == fieldRole, m.Spinner), fieldRole))
	rows = append(rows, m.withError(m.avatarRow(), fieldAvatar))

	if p := m.ctrl.PreviewState(); p.Open {
		rows = append(rows, RenderInfo(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(p.Title),
			p.Image,
		)))
	}

	rows = append(rows, "", m.buttonsRow())
	if m.submitting {
		rows = append(rows, SpinnerStyle.Render(m.Spinner.View()+" saving..."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m FormModel) textRow(label string, f formField, required bool) string {
	return m.withError(renderLabel(label, required, m.focus == f)+m.inputs[f].View(), f)
}

func (m FormModel) genderRow() string {
	g := string(genderChoices[m.genderIdx])
	if g == "" {
		g = lipgloss.NewStyle().Foreground(SubtleColor).Render("(unset)")
	}
	return renderLabel("Gender", false, m.focus == fieldGender) + "◂ " + g + " ▸"
}

func (m FormModel) avatarRow() string {
	up := m.ctrl.Avatar()

	var state string
	switch {
	case up.Loading():
		state = SpinnerStyle.Render(m.Spinner.View() + " uploading...")
	case up.Entry() != nil:
		state = SuccessStyle.Render(up.Entry().Name)
	default:
		state = lipgloss.NewStyle().Foreground(SubtleColor).Render("(none)")
	}

	row := renderLabel("Avatar", true, m.focus == fieldAvatar) + state
	if m.focus == fieldAvatar {
		row += "\n" + strings.Repeat(" ", 12) + m.avatarPath.View()
	}
	return row
}

func (m FormModel) buttonsRow() string {
	save, cancel := ButtonStyle, ButtonStyle
	if m.focus == fieldSubmit {
		save = FocusedButtonStyle
	}
	if m.focus == fieldCancel {
		cancel = FocusedButtonStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Repeat(" ", 12),
		save.Render("Save"),
		"  ",
		cancel.Render("Cancel"),
	)
}

func (m FormModel) withError(row string, f formField) string {
	if msg := m.errs[fieldKeys[f]]; msg != "" {
		return row + "\n" + FieldErrorStyle.Render(msg)
	}
	return row
}

func renderLabel(label string, required, focused bool) string {
	marker := "  "
	if required {
		marker = RequiredStyle.Render("* ")
	}
	style := LabelStyle
	if focused {
		style = FocusedLabelStyle
	}
	return marker + style.Render(label)
}

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
