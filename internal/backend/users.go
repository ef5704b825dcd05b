package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateUser creates a user. The payload must not carry an id.
func (c *Client) CreateUser(ctx context.Context, payload *UserPayload) (*User, error) {
	if payload.ID != "" {
		return nil, NewValidationError("create payload must not carry an id")
	}
	var created User
	if err := c.sendJSON(ctx, http.MethodPost, "/users", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser updates the user identified by payload.ID. The whole record is
// sent, id included.
func (c *Client) UpdateUser(ctx context.Context, payload *UserPayload) (*User, error) {
	if payload.ID == "" {
		return nil, NewValidationError("update payload requires an id")
	}
	var updated User
	path := "/users/" + url.PathEscape(payload.ID)
	if err := c.sendJSON(ctx, http.MethodPatch, path, payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetUser fetches a single user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, NewValidationError("user id is required")
	}
	var user User
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(id), "", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchUsers lists users. query is a raw query string such as
// "current=1&pageSize=10".
func (c *Client) FetchUsers(ctx context.Context, query string) (*Paginated[User], error) {
	var page Paginated[User]
	if err := c.getJSON(ctx, "/users", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PageQuery builds the query string for one page of a listing, optionally
// filtered by a case-insensitive name match.
func PageQuery(current, pageSize int, name string) string {
	q := fmt.Sprintf("current=%d&pageSize=%d", current, pageSize)
	if name != "" {
		q += "&name=" + url.QueryEscape(NamePattern(name))
	}
	return q
}
