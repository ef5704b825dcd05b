package userform

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/logging"
)

// CompanyLister is the subset of the backend API used by the company dropdown.
type CompanyLister interface {
	FetchCompanies(ctx context.Context, query string) (*backend.Paginated[backend.Company], error)
}

// RoleLister is the subset of the backend API used by the role dropdown.
type RoleLister interface {
	FetchRoles(ctx context.Context, query string) (*backend.Paginated[backend.Role], error)
}

// FetchCompanyList returns companies whose name contains name, ignoring case.
// It never fails: a backend error or an empty response yields an empty list.
func FetchCompanyList(ctx context.Context, api CompanyLister, name string) []Option {
	page, err := api.FetchCompanies(ctx, backend.SearchQuery(name))
	if err != nil {
		logging.Warn("Company search failed", zap.String("query", name), zap.Error(err))
		return []Option{}
	}
	if page == nil {
		return []Option{}
	}

	opts := make([]Option, 0, len(page.Result))
	for _, c := range page.Result {
		opts = append(opts, Option{Label: c.Name, Value: c.ID})
	}
	return opts
}

// FetchRoleList returns roles whose name contains name, ignoring case.
// It never fails: a backend error or an empty response yields an empty list.
func FetchRoleList(ctx context.Context, api RoleLister, name string) []Option {
	page, err := api.FetchRoles(ctx, backend.SearchQuery(name))
	if err != nil {
		logging.Warn("Role search failed", zap.String("query", name), zap.Error(err))
		return []Option{}
	}
	if page == nil {
		return []Option{}
	}

	opts := make([]Option, 0, len(page.Result))
	for _, r := range page.Result {
		opts = append(opts, Option{Label: r.Name, Value: r.ID})
	}
	return opts
}

// SearchSequencer orders the responses of one dropdown's searches. Each
// search takes a ticket from Begin; only the newest ticket is accepted, so a
// slow response for an old query can never replace a newer result.
type SearchSequencer struct {
	latest atomic.Uint64
}

// Begin issues the ticket for a new search.
func (s *SearchSequencer) Begin() uint64 {
	return s.latest.Add(1)
}

// Accept reports whether ticket belongs to the newest search.
func (s *SearchSequencer) Accept(ticket uint64) bool {
	return s.latest.Load() == ticket
}

// Invalidate makes every outstanding ticket stale.
func (s *SearchSequencer) Invalidate() {
	s.latest.Add(1)
}
