package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Gender values accepted by the users endpoint.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Genders lists every accepted gender in display order.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// Valid reports whether g is one of the accepted values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Ref is an embedded reference to another document, e.g. a user's company.
// The backend sends either a populated object or a bare id string.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts both {"_id": "...", "name": "..."} and "...".
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain Ref
	return json.Unmarshal(data, (*plain)(r))
}

// User is a user document as returned by the backend.
type User struct {
	ID        string     `json:"_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Age       int        `json:"age,omitempty"`
	Gender    Gender     `json:"gender,omitempty"`
	Address   string     `json:"address,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	Role      *Ref       `json:"role,omitempty"`
	Company   *Ref       `json:"company,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// HasIdentity reports whether the record already exists on the backend.
func (u *User) HasIdentity() bool {
	return u != nil && u.ID != ""
}

// UserPayload is the body of a create or update request.
// ID is set only for updates and Password only for creates. Every other
// field is always sent so that clearing it on update takes effect.
type UserPayload struct {
	ID       string `json:"_id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Phone    string `json:"phone"`
	Age      int    `json:"age"`
	Gender   Gender `json:"gender"`
	Address  string `json:"address"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
	Company  Ref    `json:"company"`
}

// Company is a company document.
type Company struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
}

// Role is a role document.
type Role struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Meta describes one page of a paginated listing.
type Meta struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
	Pages    int `json:"pages"`
	Total    int `json:"total"`
}

// Paginated is the data payload of every list endpoint.
type Paginated[T any] struct {
	Meta   Meta `json:"meta"`
	Result []T  `json:"result"`
}

// UploadResult is the data payload of the upload endpoint.
type UploadResult struct {
	FileName string `json:"fileName"`
}

// FilePart is a file to be sent as a multipart upload.
type FilePart struct {
	Name        string
	ContentType string
	Content     []byte
}

// Message holds the envelope's "message" field, which the backend sends as
// either a string or a list of strings (one per failed validation rule).
type Message []string

// UnmarshalJSON accepts a string, a list of strings, or null.
func (m *Message) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*m = nil
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Message{s}
		return nil
	case data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*m = list
		return nil
	default:
		return fmt.Errorf("message: unexpected JSON %s", string(data))
	}
}

// MarshalJSON writes a single message as a string and several as a list.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m) == 1 {
		return json.Marshal(m[0])
	}
	return json.Marshal([]string(m))
}

// String joins the messages for display.
func (m Message) String() string {
	return strings.Join(m, "; ")
}

// Envelope is the wrapper around every backend response.
type Envelope[T any] struct {
	StatusCode int     `json:"statusCode"`
	Message    Message `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	Data       T       `json:"data"`
}
