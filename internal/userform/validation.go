package userform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages shown to the operator.
const (
	MsgAvatarRequired  = "Please upload an avatar image"
	MsgInvalidFileType = "You can only upload JPG/PNG file!"
	MsgFileTooLarge    = "Image must smaller than 2MB!"
	MsgUploadFailed    = "An error occurred while uploading the file."
	MsgSubmitFailed    = "An error occurred"
	MsgUpdated         = "Updated user"
	MsgUploadPending   = "Please wait for the avatar upload to finish"
)

// MsgCreated is the success message after creating a user called name.
func MsgCreated(name string) string {
	return fmt.Sprintf("Created user %s", name)
}

var fieldLabels = map[string]string{
	"name":     "Name",
	"email":    "Email",
	"password": "Password",
	"phone":    "Phone",
	"age":      "Age",
	"gender":   "Gender",
	"address":  "Address",
	"company":  "Company",
	"role":     "Role",
	"avatar":   "Avatar",
}

// ValidationError lists the fields that failed local validation, keyed by
// field name ("email", "company", "avatar", ...).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Field returns the message for field, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// submission is what gets validated: the typed-in values plus the dropdown
// selections.
type submission struct {
	FormValues
	Company *Option `json:"company" validate:"required"`
	Role    *Option `json:"role" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateSubmission checks s for mode and returns a *ValidationError or nil.
func validateSubmission(s *submission, mode Mode) error {
	fields := map[string]string{}

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe.Field(), fe.Tag(), fe.Param())
		}
	}

	if mode == ModeCreate {
		if err := validate.Var(s.Password, "required"); err != nil {
			fields["password"] = fieldMessage("password", "required", "")
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(field, tag, param string) string {
	label := fieldLabels[field]
	if label == "" {
		label = field
	}

	switch tag {
	case "required":
		if field == "company" || field == "role" {
			return fmt.Sprintf("Please choose a %s", strings.ToLower(label))
		}
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Please enter a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.ReplaceAll(param, " ", ", "))
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 150", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
