package backend

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
)

// SearchPageSize is the page size used for dropdown searches.
const SearchPageSize = 100

// NamePattern turns free text into the "/pattern/flags" filter the list
// endpoints understand. The text is matched literally and case-insensitively.
func NamePattern(text string) string {
	return "/" + regexp.QuoteMeta(text) + "/i"
}

// SearchQuery is the query string used by the company and role dropdowns:
// current=1&pageSize=100&name=/<text>/i
// Empty text yields "//i", which matches every name.
func SearchQuery(text string) string {
	return fmt.Sprintf("current=1&pageSize=%d&name=%s", SearchPageSize, url.QueryEscape(NamePattern(text)))
}

// FetchCompanies lists companies. query is a raw query string, usually
// built with SearchQuery.
func (c *Client) FetchCompanies(ctx context.Context, query string) (*Paginated[Company], error) {
	var page Paginated[Company]
	if err := c.getJSON(ctx, "/companies", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchRoles lists roles. query is a raw query string, usually built with
// SearchQuery.
func (c *Client) FetchRoles(ctx context.Context, query string) (*Paginated[Role], error) {
	var page Paginated[Role]
	if err := c.getJSON(ctx, "/roles", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
