package devserver

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/muurk/useradmin/internal/backend"
)

const (
	// DefaultPageSize applies when a listing has no pageSize parameter
	DefaultPageSize = 10

	// MaxPageSize caps pageSize
	MaxPageSize = 500
)

// NameFilter matches document names. A nil filter matches everything.
type NameFilter struct {
	re *regexp.Regexp
}

// ParseNameFilter parses a "name" query value. Values of the form
// /pattern/flags are regular expressions (flags i, m and s are supported);
// anything else is matched as a case-sensitive substring.
func ParseNameFilter(value string) (*NameFilter, error) {
	if value == "" {
		return nil, nil
	}

	pattern := regexp.QuoteMeta(value)
	if strings.HasPrefix(value, "/") {
		end := strings.LastIndex(value, "/")
		if end == 0 {
			return nil, fmt.Errorf("name filter %q has no closing slash", value)
		}
		pattern = value[1:end]
		flags := value[end+1:]
		for _, f := range flags {
			if !strings.ContainsRune("ims", f) {
				return nil, fmt.Errorf("name filter %q has unsupported flag %q", value, f)
			}
		}
		if flags != "" {
			pattern = "(?" + flags + ")" + pattern
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("name filter %q: %w", value, err)
	}
	return &NameFilter{re: re}, nil
}

// Match reports whether name passes the filter.
func (f *NameFilter) Match(name string) bool {
	return f == nil || f.re.MatchString(name)
}

// pageParams reads current and pageSize from q.
func pageParams(q url.Values) (current, pageSize int, err error) {
	current, pageSize = 1, DefaultPageSize
	if v := q.Get("current"); v != "" {
		if current, err = strconv.Atoi(v); err != nil || current < 1 {
			return 0, 0, fmt.Errorf("current must be a positive integer")
		}
	}
	if v := q.Get("pageSize"); v != "" {
		if pageSize, err = strconv.Atoi(v); err != nil || pageSize < 1 {
			return 0, 0, fmt.Errorf("pageSize must be a positive integer")
		}
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return current, pageSize, nil
}

// paginate cuts one page out of all.
func paginate[T any](all []T, current, pageSize int) backend.Paginated[T] {
	total := len(all)
	// Pages past the end are empty; compare before multiplying so a huge
	// current cannot overflow.
	start := total
	if current-1 < (total+pageSize-1)/pageSize {
		start = (current - 1) * pageSize
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return backend.Paginated[T]{
		Meta: backend.Meta{
			Current:  current,
			PageSize: pageSize,
			Pages:    int(math.Ceil(float64(total) / float64(pageSize))),
			Total:    total,
		},
		Result: all[start:end],
	}
}
