package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/userform"
)

// newTable returns a bordered table with the shared header and cell styles.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Headers(headers...)
}

// RenderUsersTable renders one page of users.
func RenderUsersTable(users []backend.User) string {
	t := newTable("ID", "NAME", "EMAIL", "AGE", "GENDER", "COMPANY", "ROLE")
	for _, u := range users {
		age := ""
		if u.Age > 0 {
			age = strconv.Itoa(u.Age)
		}
		t.Row(u.ID, u.Name, u.Email, age, string(u.Gender), refName(u.Company), refName(u.Role))
	}
	return t.Render()
}

// RenderOptionsTable renders dropdown options as label/value rows.
func RenderOptionsTable(opts []userform.Option) string {
	t := newTable("LABEL", "VALUE")
	for _, o := range opts {
		t.Row(o.Label, o.Value)
	}
	return t.Render()
}

// RenderProfilesTable renders configured profiles. current is marked with "*".
func RenderProfilesTable(rows [][]string) string {
	return newTable("", "PROFILE", "BASE URL", "CATEGORY", "LAST USED").Rows(rows...).Render()
}

func refName(r *backend.Ref) string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
