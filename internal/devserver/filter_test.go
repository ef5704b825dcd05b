package devserver

import (
	"math"
	"net/url"
	"testing"
)

func TestParseNameFilter(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		match   []string
		noMatch []string
		wantErr bool
	}{
		{name: "empty matches all", value: "", match: []string{"", "anything"}},
		{name: "case-insensitive regex", value: "/acme/i", match: []string{"Acme Corporation", "ACME"}, noMatch: []string{"Globex"}},
		{name: "case-sensitive regex", value: "/Acme/", match: []string{"Acme"}, noMatch: []string{"acme"}},
		{name: "empty pattern matches all", value: "//i", match: []string{"Hooli", ""}},
		{name: "escaped metacharacters", value: `/a\.b/i`, match: []string{"A.B"}, noMatch: []string{"axb"}},
		{name: "plain text is literal", value: "a.b", match: []string{"xa.by"}, noMatch: []string{"axb"}},
		{name: "pattern containing slash", value: "/a/b/", match: []string{"a/b"}},
		{name: "unsupported flag", value: "/a/g", wantErr: true},
		{name: "no closing slash", value: "/abc", wantErr: true},
		{name: "invalid regex", value: "/(/i", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseNameFilter(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNameFilter(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for _, s := range tt.match {
				if !f.Match(s) {
					t.Errorf("%q should match %q", tt.value, s)
				}
			}
			for _, s := range tt.noMatch {
				if f.Match(s) {
					t.Errorf("%q should not match %q", tt.value, s)
				}
			}
		})
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query        string
		wantCurrent  int
		wantPageSize int
		wantErr      bool
	}{
		{"", 1, DefaultPageSize, false},
		{"current=3&pageSize=100", 3, 100, false},
		{"pageSize=100000", 1, MaxPageSize, false},
		{"current=0", 0, 0, true},
		{"pageSize=abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			current, pageSize, err := pageParams(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pageParams(%q) error = %v", tt.query, err)
			}
			if current != tt.wantCurrent || pageSize != tt.wantPageSize {
				t.Errorf("pageParams(%q) = %d, %d", tt.query, current, pageSize)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}

	page := paginate(all, 2, 3)
	if page.Meta.Pages != 3 || page.Meta.Total != 7 || page.Meta.Current != 2 {
		t.Errorf("Meta = %+v", page.Meta)
	}
	if len(page.Result) != 3 || page.Result[0] != 4 {
		t.Errorf("Result = %v", page.Result)
	}

	last := paginate(all, 3, 3)
	if len(last.Result) != 1 || last.Result[0] != 7 {
		t.Errorf("last page = %v", last.Result)
	}

	beyond := paginate(all, 9, 3)
	if len(beyond.Result) != 0 {
		t.Errorf("page past the end = %v", beyond.Result)
	}

	huge := paginate(all, math.MaxInt, 2)
	if len(huge.Result) != 0 || huge.Meta.Current != math.MaxInt || huge.Meta.Total != 7 {
		t.Errorf("huge page = %+v", huge)
	}

	empty := paginate([]int{}, 1, 10)
	if empty.Meta.Pages != 0 || empty.Result == nil {
		t.Errorf("empty = %+v", empty)
	}
}
