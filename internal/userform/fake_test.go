package userform

import (
	"context"
	"errors"

	"github.com/muurk/useradmin/internal/backend"
)

type fakeAPI struct {
	created []backend.UserPayload
	updated []backend.UserPayload
	uploads []backend.FilePart

	createErr error
	updateErr error
	uploadErr error

	uploadName string
	onUpload   func()

	companies    *backend.Paginated[backend.Company]
	companiesErr error
	roles        *backend.Paginated[backend.Role]
	rolesErr     error
	queries      []string
}

func (f *fakeAPI) CreateUser(ctx context.Context, p *backend.UserPayload) (*backend.User, error) {
	f.created = append(f.created, *p)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backend.User{ID: "new-id", Name: p.Name}, nil
}

func (f *fakeAPI) UpdateUser(ctx context.Context, p *backend.UserPayload) (*backend.User, error) {
	f.updated = append(f.updated, *p)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &backend.User{ID: p.ID, Name: p.Name}, nil
}

func (f *fakeAPI) FetchCompanies(ctx context.Context, q string) (*backend.Paginated[backend.Company], error) {
	f.queries = append(f.queries, q)
	return f.companies, f.companiesErr
}

func (f *fakeAPI) FetchRoles(ctx context.Context, q string) (*backend.Paginated[backend.Role], error) {
	f.queries = append(f.queries, q)
	return f.roles, f.rolesErr
}

func (f *fakeAPI) UploadSingleFile(ctx context.Context, file *backend.FilePart, category string) (*backend.UploadResult, error) {
	if f.onUpload != nil {
		f.onUpload()
	}
	f.uploads = append(f.uploads, *file)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	name := f.uploadName
	if name == "" {
		name = "avatar-1700000000.jpg"
	}
	return &backend.UploadResult{FileName: name}, nil
}

func (f *fakeAPI) calls() int {
	return len(f.created) + len(f.updated)
}

var errBoom = errors.New("boom")

// jpegBytes returns n bytes starting with a JPEG signature.
func jpegBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return b
}

// pngBytes returns n bytes starting with a PNG signature.
func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte("\x89PNG\r\n\x1a\n"))
	return b
}

func existingUser() *backend.User {
	return &backend.User{
		ID:      "u1",
		Name:    "Ann",
		Email:   "ann@example.com",
		Address: "Hanoi",
		Gender:  backend.GenderFemale,
		Avatar:  "ann.png",
		Role:    &backend.Ref{ID: "r1", Name: "ADMIN"},
		Company: &backend.Ref{ID: "c1", Name: "Acme"},
	}
}

func validValues() FormValues {
	return FormValues{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "secret1",
		Age:      30,
		Gender:   backend.GenderMale,
		Address:  "Saigon",
	}
}
