package userform

import (
	"context"
	"errors"
	"testing"

	"github.com/muurk/useradmin/internal/backend"
)

func newTestController(api *fakeAPI) (*Controller, *Recorder, *int) {
	rec := &Recorder{}
	reloads := 0
	ctrl := NewController(api, rec, Config{
		Category: "user",
		ImageURL: func(category, name string) string {
			return "http://localhost:8000/images/" + category + "/" + name
		},
		Reload: func() { reloads++ },
	})
	return ctrl, rec, &reloads
}

// openCreateReady opens a create form with a company, a role and an avatar.
func openCreateReady(t *testing.T, ctrl *Controller) {
	t.Helper()
	ctrl.Open(nil)
	ctrl.SelectCompany([]Option{{Label: "Acme", Value: "c1"}})
	ctrl.SelectRole([]Option{{Label: "USER", Value: "r2"}})
	if err := ctrl.Avatar().Upload(context.Background(), &AvatarFile{Name: "bob.jpg", Content: jpegBytes(1024)}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestOpen_SeedsFromExistingRecord(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeAPI{})
	ctrl.Open(existingUser())

	if !ctrl.Visible() {
		t.Error("form should be visible after Open")
	}
	if ctrl.Mode() != ModeUpdate {
		t.Errorf("Mode() = %v, want update", ctrl.Mode())
	}
	if got := ctrl.Companies(); len(got) != 1 || got[0] != (Option{Label: "Acme", Value: "c1", Key: "c1"}) {
		t.Errorf("Companies() = %+v", got)
	}
	if got := ctrl.Roles(); len(got) != 1 || got[0].Value != "r1" || got[0].Label != "ADMIN" {
		t.Errorf("Roles() = %+v", got)
	}
	entry := ctrl.Avatar().Entry()
	if entry == nil || entry.Name != "ann.png" || entry.UID == "" {
		t.Errorf("avatar = %+v, want ann.png with a token", entry)
	}
	if ctrl.PasswordEnabled() {
		t.Error("password should be disabled when updating")
	}
	if v := ctrl.InitialValues(); v.Email != "ann@example.com" || v.Password != "" {
		t.Errorf("InitialValues() = %+v", v)
	}
}

func TestOpen_NewRecordStartsEmpty(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeAPI{})
	ctrl.Open(existingUser())
	ctrl.Open(&backend.User{Name: "draft", Company: &backend.Ref{ID: "c9"}})

	if ctrl.Mode() != ModeCreate {
		t.Errorf("Mode() = %v, want create", ctrl.Mode())
	}
	if len(ctrl.Companies()) != 0 || len(ctrl.Roles()) != 0 {
		t.Error("a record without identity should not seed selections")
	}
	if ctrl.Avatar().Entry() != nil {
		t.Error("avatar should be empty for a new record")
	}
	if !ctrl.PasswordEnabled() {
		t.Error("password should be enabled when creating")
	}
}

func TestSelect_AcceptsOnlyZeroOrOne(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeAPI{})
	ctrl.Open(nil)

	one := []Option{{Label: "Acme", Value: "c1"}}
	two := []Option{{Label: "Acme", Value: "c1"}, {Label: "Globex", Value: "c2"}}

	if !ctrl.SelectCompany(one) {
		t.Error("SelectCompany(one) should be accepted")
	}
	if ctrl.SelectCompany(two) {
		t.Error("SelectCompany(two) should be ignored")
	}
	if got := ctrl.Companies(); len(got) != 1 || got[0].Value != "c1" {
		t.Errorf("Companies() = %+v, want previous selection kept", got)
	}
	if !ctrl.SelectCompany(nil) || len(ctrl.Companies()) != 0 {
		t.Error("SelectCompany(nil) should clear the selection")
	}

	if ctrl.SelectRole(two) {
		t.Error("SelectRole(two) should be ignored")
	}
}

func TestSubmit_WithoutAvatarNeverCallsBackend(t *testing.T) {
	api := &fakeAPI{}
	ctrl, rec, reloads := newTestController(api)
	ctrl.Open(nil)
	ctrl.SelectCompany([]Option{{Label: "Acme", Value: "c1"}})
	ctrl.SelectRole([]Option{{Label: "USER", Value: "r2"}})

	err := ctrl.Submit(context.Background(), validValues())

	if !IsValidationError(err) {
		t.Fatalf("Submit() error = %v, want validation error", err)
	}
	if err.(*ValidationError).Field("avatar") != MsgAvatarRequired {
		t.Errorf("avatar message = %q", err.(*ValidationError).Field("avatar"))
	}
	if api.calls() != 0 {
		t.Errorf("backend called %d times, want 0", api.calls())
	}
	n, ok := rec.Last()
	if !ok || n.Kind != KindError || !n.Transient || n.Description != MsgAvatarRequired {
		t.Errorf("last notification = %+v, want transient avatar error", n)
	}
	if !ctrl.Visible() {
		t.Error("form should stay open")
	}
	if *reloads != 0 {
		t.Errorf("reload called %d times, want 0", *reloads)
	}
}

func TestSubmit_FieldValidation(t *testing.T) {
	api := &fakeAPI{}
	ctrl, _, _ := newTestController(api)
	ctrl.Open(nil)

	err := ctrl.Submit(context.Background(), FormValues{Email: "not-an-email", Gender: "ROBOT", Age: -1})
	if !IsValidationError(err) {
		t.Fatalf("Submit() error = %v, want validation error", err)
	}

	ve := err.(*ValidationError)
	for _, field := range []string{"name", "email", "password", "address", "company", "role", "gender", "age"} {
		if ve.Field(field) == "" {
			t.Errorf("field %q should be reported, got %v", field, ve.Fields)
		}
	}
	if ve.Field("email") != "Please enter a valid email" {
		t.Errorf("email message = %q", ve.Field("email"))
	}
	if ve.Field("company") != "Please choose a company" {
		t.Errorf("company message = %q", ve.Field("company"))
	}
	if api.calls() != 0 {
		t.Errorf("backend called %d times, want 0", api.calls())
	}
}

func TestSubmit_CreatesWhenNoIdentity(t *testing.T) {
	api := &fakeAPI{}
	ctrl, rec, reloads := newTestController(api)
	openCreateReady(t, ctrl)
	avatar := ctrl.Avatar().Entry().Name

	if err := ctrl.Submit(context.Background(), validValues()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(api.created) != 1 || len(api.updated) != 0 {
		t.Fatalf("created=%d updated=%d, want 1/0", len(api.created), len(api.updated))
	}
	p := api.created[0]
	if p.ID != "" {
		t.Errorf("create payload carries _id %q", p.ID)
	}
	if p.Password != "secret1" {
		t.Errorf("Password = %q, want secret1", p.Password)
	}
	if p.Company != (backend.Ref{ID: "c1", Name: "Acme"}) {
		t.Errorf("Company = %+v, want {c1 Acme}", p.Company)
	}
	if p.Role != "r2" {
		t.Errorf("Role = %q, want r2", p.Role)
	}
	if p.Avatar != avatar {
		t.Errorf("Avatar = %q, want %q", p.Avatar, avatar)
	}

	n, _ := rec.Last()
	if n.Kind != KindSuccess || n.Description != "Created user Bob" {
		t.Errorf("last notification = %+v, want create success", n)
	}
	if *reloads != 1 {
		t.Errorf("reload called %d times, want 1", *reloads)
	}
	assertReset(t, ctrl)
}

func TestSubmit_UpdatesWhenIdentityPresent(t *testing.T) {
	api := &fakeAPI{}
	ctrl, rec, reloads := newTestController(api)
	ctrl.Open(existingUser())

	values := ctrl.InitialValues()
	values.Name = "Ann B."
	if err := ctrl.Submit(context.Background(), values); err != nil {
		t.Fatalf("Submit() error = %v (password must not be required)", err)
	}

	if len(api.updated) != 1 || len(api.created) != 0 {
		t.Fatalf("created=%d updated=%d, want 0/1", len(api.created), len(api.updated))
	}
	p := api.updated[0]
	if p.ID != "u1" {
		t.Errorf("ID = %q, want u1", p.ID)
	}
	if p.Password != "" {
		t.Error("update payload should not carry a password")
	}
	if p.Avatar != "ann.png" || p.Role != "r1" || p.Company.ID != "c1" {
		t.Errorf("payload = %+v, want seeded avatar/role/company", p)
	}

	n, _ := rec.Last()
	if n.Kind != KindSuccess || n.Description != MsgUpdated {
		t.Errorf("last notification = %+v, want update success", n)
	}
	if *reloads != 1 {
		t.Errorf("reload called %d times, want 1", *reloads)
	}
	assertReset(t, ctrl)
}

func TestSubmit_UpdateIgnoresPasswordValue(t *testing.T) {
	api := &fakeAPI{}
	ctrl, _, _ := newTestController(api)
	ctrl.Open(existingUser())

	values := ctrl.InitialValues()
	values.Password = "typed-anyway"
	if err := ctrl.Submit(context.Background(), values); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if api.updated[0].Password != "" {
		t.Error("update payload should never carry a password")
	}
}

func TestSubmit_BackendFailureKeepsState(t *testing.T) {
	api := &fakeAPI{createErr: backend.NewHTTPError(400, "Email bob@example.com already exists")}
	ctrl, rec, reloads := newTestController(api)
	openCreateReady(t, ctrl)

	err := ctrl.Submit(context.Background(), validValues())
	if err == nil {
		t.Fatal("Submit() should return the backend error")
	}

	n, _ := rec.Last()
	if n.Kind != KindError || n.Transient {
		t.Errorf("notification = %+v, want error card", n)
	}
	if n.Title != MsgSubmitFailed || n.Description != "Email bob@example.com already exists" {
		t.Errorf("notification = %q / %q", n.Title, n.Description)
	}
	if !ctrl.Visible() {
		t.Error("form should stay open after failure")
	}
	if len(ctrl.Companies()) != 1 || len(ctrl.Roles()) != 1 || ctrl.Avatar().Entry() == nil {
		t.Error("state should be kept after failure")
	}
	if *reloads != 0 {
		t.Errorf("reload called %d times, want 0", *reloads)
	}
}

func TestSubmit_SplitPhases(t *testing.T) {
	api := &fakeAPI{}
	ctrl, _, reloads := newTestController(api)
	openCreateReady(t, ctrl)

	sub, err := ctrl.Prepare(validValues())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if sub.Mode != ModeCreate {
		t.Errorf("Mode = %v, want create", sub.Mode)
	}

	user, err := ctrl.Execute(context.Background(), sub)
	if !ctrl.Visible() || *reloads != 0 {
		t.Error("Execute should not change form state")
	}

	if err := ctrl.Complete(sub, user, err); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if *reloads != 1 {
		t.Errorf("reload called %d times, want 1", *reloads)
	}
}

func TestCloseVariantsReset(t *testing.T) {
	closers := map[string]func(*Controller){
		"cancel":      (*Controller).Cancel,
		"after close": (*Controller).AfterClose,
		"reset":       (*Controller).Reset,
	}

	for name, closeFn := range closers {
		t.Run(name, func(t *testing.T) {
			ctrl, _, reloads := newTestController(&fakeAPI{})
			ctrl.Open(existingUser())
			ctrl.Preview(*ctrl.Avatar().Entry())

			closeFn(ctrl)

			assertReset(t, ctrl)
			if *reloads != 0 {
				t.Errorf("reload called %d times, want 0", *reloads)
			}
		})
	}
}

func TestReset_InvalidatesSearches(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeAPI{})
	ctrl.Open(nil)

	company := ctrl.CompanySearch().Begin()
	role := ctrl.RoleSearch().Begin()
	ctrl.Cancel()

	if ctrl.CompanySearch().Accept(company) || ctrl.RoleSearch().Accept(role) {
		t.Error("searches started before reset should be rejected")
	}
}

func TestPreview(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeAPI{})
	ctrl.Open(existingUser())

	ctrl.Preview(AvatarEntry{Name: "ann.png", UID: "x"})
	p := ctrl.PreviewState()
	if !p.Open || p.Image != "http://localhost:8000/images/user/ann.png" || p.Title != "ann.png" {
		t.Errorf("PreviewState() = %+v", p)
	}

	ctrl.Preview(AvatarEntry{})
	if got := ctrl.PreviewState().Title; got != "user" {
		t.Errorf("title without a name = %q, want last URL segment", got)
	}

	ctrl.ClosePreview()
	if ctrl.PreviewState().Open {
		t.Error("preview should be closed")
	}
}

func assertReset(t *testing.T, ctrl *Controller) {
	t.Helper()
	if ctrl.Visible() {
		t.Error("form should be hidden")
	}
	if ctrl.Record() != nil {
		t.Error("record should be cleared")
	}
	if len(ctrl.Companies()) != 0 || len(ctrl.Roles()) != 0 {
		t.Error("selections should be cleared")
	}
	if ctrl.Avatar().Entry() != nil || ctrl.Avatar().Loading() || ctrl.Avatar().Status() != StatusIdle {
		t.Error("avatar slot should be cleared")
	}
	if ctrl.PreviewState().Open {
		t.Error("preview should be closed")
	}
}

func TestSubmit_BlockedWhileReplacementUploads(t *testing.T) {
	api := &fakeAPI{}
	ctrl, rec, reloads := newTestController(api)
	ctrl.Open(existingUser())

	if !ctrl.Avatar().Begin(&AvatarFile{Name: "new.jpg", Content: jpegBytes(1024)}) {
		t.Fatal("Begin() rejected a valid file")
	}

	err := ctrl.Submit(context.Background(), ctrl.InitialValues())
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field("avatar") != MsgUploadPending {
		t.Fatalf("Submit() error = %v, want pending upload", err)
	}
	if len(api.updated) != 0 || *reloads != 0 {
		t.Errorf("updated=%d reloads=%d, want nothing sent", len(api.updated), *reloads)
	}
	if n, _ := rec.Last(); n.Description != MsgUploadPending || n.Kind != KindWarning {
		t.Errorf("notification = %+v", n)
	}

	// Once the upload lands the new file name is sent.
	if err := ctrl.Avatar().Finish(&backend.UploadResult{FileName: "new-1.jpg"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Submit(context.Background(), ctrl.InitialValues()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(api.updated) != 1 || api.updated[0].Avatar != "new-1.jpg" {
		t.Errorf("updated = %+v", api.updated)
	}
}
