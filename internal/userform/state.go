package userform

import (
	"fmt"

	"github.com/muurk/useradmin/internal/backend"
)

// Option is one entry of a searchable dropdown.
type Option struct {
	Label string
	Value string
	Key   string
}

// String renders the option for terminal output.
func (o Option) String() string {
	return fmt.Sprintf("%s (%s)", o.Label, o.Value)
}

// optionFromRef seeds a dropdown entry from an embedded reference.
func optionFromRef(r *backend.Ref) Option {
	return Option{Label: r.Name, Value: r.ID, Key: r.ID}
}

// AvatarEntry is the single file held by the avatar slot: the stored file
// name plus a client-side token identifying this particular upload.
type AvatarEntry struct {
	Name string
	UID  string
}

// UploadStatus tracks the avatar slot through one upload.
type UploadStatus int

const (
	StatusIdle UploadStatus = iota
	StatusUploading
	StatusDone
	StatusError
)

func (s UploadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusUploading:
		return "uploading"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("UploadStatus(%d)", int(s))
	}
}

// Mode is create when the record has no identity, update otherwise.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// Title is the form heading for the mode.
func (m Mode) Title() string {
	if m == ModeUpdate {
		return "Update user"
	}
	return "Create user"
}

// Preview is the avatar image preview state.
type Preview struct {
	Open  bool
	Image string
	Title string
}

// FormValues are the free-text fields of the form. Company and role are
// held by the Controller as dropdown selections.
type FormValues struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password"`
	Phone    string         `json:"phone"`
	Age      int            `json:"age" validate:"gte=0,lte=150"`
	Gender   backend.Gender `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Address  string         `json:"address" validate:"required"`
}

// ValuesFromUser prefills the form from an existing record. The password is
// never prefilled.
func ValuesFromUser(u *backend.User) FormValues {
	if u == nil {
		return FormValues{}
	}
	return FormValues{
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		Age:     u.Age,
		Gender:  u.Gender,
		Address: u.Address,
	}
}
