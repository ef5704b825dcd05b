package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/events"
	"github.com/muurk/useradmin/internal/logging"
)

const (
	// MaxUploadBytes caps the size of one uploaded file
	MaxUploadBytes = 5 << 20

	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 1 << 20
)

// uploadTypes are the content types the upload endpoint stores, by the
// extension given to stored files.
var uploadTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var validate = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
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

// userDTO mirrors the backend's create/update body validation.
type userDTO struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password"`
	Age      int            `json:"age" validate:"gte=0,lte=150"`
	Gender   backend.Gender `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Address  string         `json:"address" validate:"required"`
	Role     string         `json:"role" validate:"required"`
	Company  string         `json:"company" validate:"required"`
}

// validatePayload returns one message per failed rule, sorted.
func validatePayload(p *backend.UserPayload, create bool) []string {
	dto := userDTO{
		Name:     p.Name,
		Email:    p.Email,
		Password: p.Password,
		Age:      p.Age,
		Gender:   p.Gender,
		Address:  p.Address,
		Role:     p.Role,
		Company:  p.Company.ID,
	}

	var msgs []string
	if err := validate.Struct(&dto); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{err.Error()}
		}
		for _, fe := range verrs {
			msgs = append(msgs, ruleMessage(fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	if create && p.Password == "" {
		msgs = append(msgs, ruleMessage("password", "required", ""))
	}
	sort.Strings(msgs)
	return msgs
}

func ruleMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " should not be empty"
	case "email":
		return field + " must be an email"
	case "oneof":
		return fmt.Sprintf("%s must be one of the following values: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must not be greater than %s", field, param)
	}
	return field + " is invalid"
}

func (s *Server) routes(r chi.Router) {
	r.Get("/users", s.handleListUsers)
	r.Get("/users/{id}", s.handleGetUser)
	r.Post("/users", s.handleCreateUser)
	r.Patch("/users/{id}", s.handleUpdateUser)
	r.Get("/companies", s.handleListCompanies)
	r.Get("/roles", s.handleListRoles)
	r.Post("/files/upload", s.handleUpload)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	current, pageSize, filter, ok := listParams(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, "Fetch list user with paginate", paginate(s.store.Users(filter), current, pageSize))
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	current, pageSize, filter, ok := listParams(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, "Fetch list company with paginate", paginate(s.store.Companies(filter), current, pageSize))
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	current, pageSize, filter, ok := listParams(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, "Fetch list role with paginate", paginate(s.store.Roles(filter), current, pageSize))
}

// listParams reads pagination and the name filter, writing a 400 on error.
func listParams(w http.ResponseWriter, r *http.Request) (int, int, *NameFilter, bool) {
	q := r.URL.Query()
	current, pageSize, err := pageParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, nil, false
	}
	filter, err := ParseNameFilter(q.Get("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, nil, false
	}
	return current, pageSize, filter, true
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.User(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Fetch user by id", u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	if p.ID != "" {
		writeError(w, http.StatusBadRequest, "_id must not be set when creating a user")
		return
	}
	if msgs := validatePayload(p, true); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}

	u, err := s.store.CreateUser(p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logging.Info("User created", zap.String("id", u.ID), zap.String("email", u.Email))
	s.hub.Publish(events.Event{Type: events.TypeUserCreated, UserID: u.ID, Name: u.Name, At: *u.CreatedAt})
	writeData(w, http.StatusCreated, "Create a new user", u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	if p.ID != "" && p.ID != id {
		writeError(w, http.StatusBadRequest, "_id does not match the URL")
		return
	}
	if msgs := validatePayload(p, false); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}

	u, err := s.store.UpdateUser(id, p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logging.Info("User updated", zap.String("id", u.ID))
	s.hub.Publish(events.Event{Type: events.TypeUserUpdated, UserID: u.ID, Name: u.Name, At: *u.UpdatedAt})
	writeData(w, http.StatusOK, "Update a user", u)
}

func decodePayload(w http.ResponseWriter, r *http.Request) (*backend.UserPayload, bool) {
	var p backend.UserPayload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, false
	}
	return &p, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Error("Store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleUpload stores a single multipart file in the folder named by the
// folder_type header and returns its generated name.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	category := r.Header.Get(backend.FolderTypeHeader)
	if !validCategory(category) {
		writeError(w, http.StatusBadRequest, "folder_type header must name a folder")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+64<<10)
	file, header, err := r.FormFile(backend.UploadFieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("multipart field %q is required", backend.UploadFieldName))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	// Trust the bytes, not the declared type.
	detected := mimetype.Detect(data)
	ext, ok := uploadTypes[detected.String()]
	if !ok {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Validation failed (file type %s is not an image)", detected.String()))
		return
	}

	base := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	name := fmt.Sprintf("%s-%s%s", sanitizeName(base), uuid.NewString(), ext)
	s.store.SaveFile(category, name, detected.String(), data)

	logging.Info("File uploaded",
		zap.String("category", category),
		zap.String("file", name),
		zap.Int("size", len(data)),
	)
	writeData(w, http.StatusCreated, "Upload single file", backend.UploadResult{FileName: name})
}

// handleImage serves an uploaded file.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := path.Base(chi.URLParam(r, "file"))

	f, ok := s.store.File(category, name)
	if !ok {
		writeError(w, http.StatusNotFound, "Cannot GET "+r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(f.Data)
}

func validCategory(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if !nameRune(r) {
			return false
		}
	}
	return true
}

func nameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}

// sanitizeName keeps letters, digits, '-' and '_' of a client file name.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if nameRune(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
