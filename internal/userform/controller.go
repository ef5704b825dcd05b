package userform

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/logging"
)

// API is the backend surface the form needs.
type API interface {
	CreateUser(ctx context.Context, payload *backend.UserPayload) (*backend.User, error)
	UpdateUser(ctx context.Context, payload *backend.UserPayload) (*backend.User, error)
	CompanyLister
	RoleLister
	FileUploader
}

// Config carries the collaborators that are not part of the backend API.
type Config struct {
	// Category is the upload folder for avatars, usually "user".
	Category string

	// ImageURL builds the public URL of an uploaded avatar. Optional.
	ImageURL func(category, fileName string) string

	// Reload is called once after every successful create or update.
	Reload func()
}

// Controller is the state of one user form.
type Controller struct {
	api      API
	notifier Notifier
	cfg      Config

	visible   bool
	record    *backend.User
	companies []Option
	roles     []Option
	avatar    *Uploader
	preview   Preview

	companySearch SearchSequencer
	roleSearch    SearchSequencer
}

// NewController creates a hidden, empty form.
func NewController(api API, notifier Notifier, cfg Config) *Controller {
	if cfg.Category == "" {
		cfg.Category = "user"
	}
	return &Controller{
		api:      api,
		notifier: notifier,
		cfg:      cfg,
		avatar:   NewUploader(api, notifier, cfg.Category),
	}
}

// Open shows the form for record, or for a new user when record is nil or
// has no id. An existing record seeds the company, role and avatar.
func (c *Controller) Open(record *backend.User) {
	c.Reset()
	c.visible = true
	c.record = record

	if record.HasIdentity() {
		if record.Company != nil {
			c.companies = []Option{optionFromRef(record.Company)}
		}
		if record.Role != nil {
			c.roles = []Option{optionFromRef(record.Role)}
		}
		if record.Avatar != "" {
			c.avatar.seed(record.Avatar)
		}
	}

	logging.LogFormEvent("open", zap.Stringer("mode", c.Mode()))
}

// Visible reports whether the form should be rendered.
func (c *Controller) Visible() bool { return c.visible }

// Record returns the record being edited, or nil when creating.
func (c *Controller) Record() *backend.User { return c.record }

// Mode is ModeUpdate when the record being edited has an id.
func (c *Controller) Mode() Mode {
	if c.record.HasIdentity() {
		return ModeUpdate
	}
	return ModeCreate
}

// PasswordEnabled reports whether the password field may be edited. It is
// only required, and only sent, when creating.
func (c *Controller) PasswordEnabled() bool {
	return c.Mode() == ModeCreate
}

// InitialValues returns the values to prefill the form with.
func (c *Controller) InitialValues() FormValues {
	return ValuesFromUser(c.record)
}

// Companies returns the current company selection (zero or one entries).
func (c *Controller) Companies() []Option { return append([]Option(nil), c.companies...) }

// Roles returns the current role selection (zero or one entries).
func (c *Controller) Roles() []Option { return append([]Option(nil), c.roles...) }

// SelectCompany replaces the company selection. Only selections of zero or
// one entries are accepted; anything else is ignored.
func (c *Controller) SelectCompany(opts []Option) bool {
	if len(opts) > 1 {
		return false
	}
	c.companies = append([]Option(nil), opts...)
	return true
}

// SelectRole replaces the role selection. Only selections of zero or one
// entries are accepted; anything else is ignored.
func (c *Controller) SelectRole(opts []Option) bool {
	if len(opts) > 1 {
		return false
	}
	c.roles = append([]Option(nil), opts...)
	return true
}

// Avatar returns the avatar uploader.
func (c *Controller) Avatar() *Uploader { return c.avatar }

// CompanySearch orders company dropdown responses.
func (c *Controller) CompanySearch() *SearchSequencer { return &c.companySearch }

// RoleSearch orders role dropdown responses.
func (c *Controller) RoleSearch() *SearchSequencer { return &c.roleSearch }

// SearchCompanies runs a company search. It only reads configuration and may
// run on another goroutine.
func (c *Controller) SearchCompanies(ctx context.Context, text string) []Option {
	return FetchCompanyList(ctx, c.api, text)
}

// SearchRoles runs a role search. It only reads configuration and may run on
// another goroutine.
func (c *Controller) SearchRoles(ctx context.Context, text string) []Option {
	return FetchRoleList(ctx, c.api, text)
}

// Submission is a validated request ready to be sent.
type Submission struct {
	Mode    Mode
	Payload backend.UserPayload
}

// Prepare validates values against the current state and builds the payload.
// It returns a *ValidationError when a field is invalid, no avatar has been
// uploaded, or an avatar upload is still running; nothing is sent in that case.
func (c *Controller) Prepare(values FormValues) (*Submission, error) {
	mode := c.Mode()

	s := &submission{FormValues: values}
	if len(c.companies) == 1 {
		s.Company = &c.companies[0]
	}
	if len(c.roles) == 1 {
		s.Role = &c.roles[0]
	}
	if err := validateSubmission(s, mode); err != nil {
		logging.LogFormEvent("invalid", zap.Error(err))
		return nil, err
	}

	// A seeded avatar must not be sent while its replacement is uploading
	if c.avatar.Loading() {
		c.notifier.Notify(transient(KindWarning, MsgUploadPending))
		return nil, &ValidationError{Fields: map[string]string{"avatar": MsgUploadPending}}
	}

	entry := c.avatar.Entry()
	if entry == nil {
		c.notifier.Notify(transient(KindError, MsgAvatarRequired))
		return nil, &ValidationError{Fields: map[string]string{"avatar": MsgAvatarRequired}}
	}

	payload := backend.UserPayload{
		Name:    values.Name,
		Email:   values.Email,
		Phone:   values.Phone,
		Age:     values.Age,
		Gender:  values.Gender,
		Address: values.Address,
		Avatar:  entry.Name,
		Role:    s.Role.Value,
		Company: backend.Ref{ID: s.Company.Value, Name: s.Company.Label},
	}
	if mode == ModeUpdate {
		payload.ID = c.record.ID
	} else {
		payload.Password = values.Password
	}

	return &Submission{Mode: mode, Payload: payload}, nil
}

// Execute sends sub. It does not touch form state.
func (c *Controller) Execute(ctx context.Context, sub *Submission) (*backend.User, error) {
	p := sub.Payload
	if sub.Mode == ModeUpdate {
		return c.api.UpdateUser(ctx, &p)
	}
	return c.api.CreateUser(ctx, &p)
}

// Complete applies the outcome of Execute. On success it notifies, resets
// the form and calls Reload exactly once. On failure it shows the backend's
// message and leaves the form open with its state intact.
func (c *Controller) Complete(sub *Submission, user *backend.User, err error) error {
	if err != nil {
		c.notifier.Notify(Notification{
			Kind:        KindError,
			Title:       MsgSubmitFailed,
			Description: backend.ServerMessage(err),
		})
		logging.LogFormEvent("submit_failed", zap.Stringer("mode", sub.Mode), zap.Error(err))
		return err
	}

	if sub.Mode == ModeUpdate {
		c.notifier.Notify(transient(KindSuccess, MsgUpdated))
	} else {
		c.notifier.Notify(transient(KindSuccess, MsgCreated(sub.Payload.Name)))
	}

	fields := []zap.Field{zap.Stringer("mode", sub.Mode)}
	if user != nil {
		fields = append(fields, zap.String("id", user.ID))
	}
	logging.LogFormEvent("submitted", fields...)

	c.Reset()
	if c.cfg.Reload != nil {
		c.cfg.Reload()
	}
	return nil
}

// Submit validates values and sends them, creating or updating depending on
// Mode.
func (c *Controller) Submit(ctx context.Context, values FormValues) error {
	sub, err := c.Prepare(values)
	if err != nil {
		return err
	}
	user, err := c.Execute(ctx, sub)
	return c.Complete(sub, user, err)
}

// Preview opens the image preview for entry.
func (c *Controller) Preview(entry AvatarEntry) {
	image := entry.Name
	if c.cfg.ImageURL != nil {
		image = c.cfg.ImageURL(c.cfg.Category, entry.Name)
	}
	title := entry.Name
	if title == "" {
		title = path.Base(image)
	}
	c.preview = Preview{Open: true, Image: image, Title: title}
}

// PreviewState returns the preview state.
func (c *Controller) PreviewState() Preview { return c.preview }

// ClosePreview closes the image preview.
func (c *Controller) ClosePreview() { c.preview = Preview{} }

// Cancel closes the form, discarding its state.
func (c *Controller) Cancel() {
	logging.LogFormEvent("cancel")
	c.Reset()
}

// AfterClose runs once the form is gone and discards its state.
func (c *Controller) AfterClose() {
	c.Reset()
}

// Reset hides the form and clears all state. Responses to searches started
// before the reset are discarded.
func (c *Controller) Reset() {
	c.visible = false
	c.record = nil
	c.companies = nil
	c.roles = nil
	c.avatar.reset()
	c.preview = Preview{}
	c.companySearch.Invalidate()
	c.roleSearch.Invalidate()
}
