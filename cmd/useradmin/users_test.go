package main

import (
	"strings"
	"testing"

	"github.com/muurk/useradmin/internal/userform"
)

func TestResolveOption(t *testing.T) {
	opts := []userform.Option{
		{Label: "ADMIN", Value: "r1"},
		{Label: "SUPER_ADMIN", Value: "r2"},
	}

	tests := []struct {
		name    string
		want    string
		opts    []userform.Option
		wantVal string
		wantErr string
	}{
		{name: "exact label ignoring case", want: "admin", opts: opts, wantVal: "r1"},
		{name: "id", want: "r2", opts: opts, wantVal: "r2"},
		{name: "single partial match", want: "super", opts: opts[1:], wantVal: "r2"},
		{name: "ambiguous", want: "adm", opts: opts, wantErr: "ADMIN, SUPER_ADMIN"},
		{name: "no match", want: "hr", opts: []userform.Option{}, wantErr: `no role matches "hr"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveOption("role", tt.want, tt.opts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("resolveOption() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveOption() error = %v", err)
			}
			if got.Value != tt.wantVal {
				t.Errorf("resolveOption() = %v, want %s", got, tt.wantVal)
			}
		})
	}
}

func TestSearchText(t *testing.T) {
	if got := searchText("65f1c0ffee0000000000abcd"); got != "" {
		t.Errorf("searchText(id) = %q, want empty", got)
	}
	if got := searchText("Acme"); got != "Acme" {
		t.Errorf("searchText(name) = %q", got)
	}
	if isObjectID("65f1c0ffee0000000000abcz") {
		t.Error("non-hex id accepted")
	}
}

func TestHintTips(t *testing.T) {
	hint := "The backend did not respond in time.\nTroubleshooting:\n  • Check that the backend is running\n"
	got := hintTips(hint)
	want := []string{"The backend did not respond in time.", "Check that the backend is running"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("hintTips() = %q, want %q", got, want)
	}
}

func TestPrintNotifier(t *testing.T) {
	var out strings.Builder
	n := &printNotifier{out: &out}

	n.Notify(userform.Notification{Kind: userform.KindError, Title: "An error occurred", Description: "email already exists"})
	n.Notify(userform.Notification{Kind: userform.KindSuccess, Description: "Updated user", Transient: true})

	got := out.String()
	for _, w := range []string{"An error occurred: email already exists", "Updated user"} {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q:\n%s", w, got)
		}
	}
}
