package userform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/logging"
)

// MaxAvatarBytes is the exclusive upper bound on avatar size.
const MaxAvatarBytes = 2 * 1024 * 1024

// AcceptedAvatarTypes are the content types an avatar may have.
var AcceptedAvatarTypes = []string{"image/jpeg", "image/png"}

// ErrFileRejected is returned by Upload when the file fails the type or size
// check. The reason has already been sent to the Notifier.
var ErrFileRejected = errors.New("file rejected")

// ErrUploadAbandoned is returned by Finish when the slot was reset while the
// upload was in flight. The outcome is discarded.
var ErrUploadAbandoned = errors.New("upload abandoned")

// FileUploader is the subset of the backend API used for avatars.
type FileUploader interface {
	UploadSingleFile(ctx context.Context, file *backend.FilePart, category string) (*backend.UploadResult, error)
}

// AvatarFile is a file picked for upload.
type AvatarFile struct {
	Name        string
	ContentType string // Declared type; sniffed from Content when empty
	Size        int64
	Content     []byte
}

// LoadAvatarFile reads path for upload. Files at or above MaxAvatarBytes are
// not read into memory; BeforeUpload rejects them from Size alone.
func LoadAvatarFile(path string) (*AvatarFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	f := &AvatarFile{
		Name:        filepath.Base(path),
		ContentType: mt.String(),
		Size:        info.Size(),
	}
	if info.Size() < MaxAvatarBytes {
		if f.Content, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return f, nil
}

func (f *AvatarFile) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

func (f *AvatarFile) contentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if len(f.Content) == 0 {
		return ""
	}
	return mimetype.Detect(f.Content).String()
}

// Uploader holds at most one uploaded avatar and the state of the upload
// in progress.
type Uploader struct {
	api      FileUploader
	notifier Notifier
	category string
	newUID   func() string

	loading bool
	status  UploadStatus
	entry   *AvatarEntry
}

// NewUploader creates an empty slot uploading into category.
func NewUploader(api FileUploader, notifier Notifier, category string) *Uploader {
	return &Uploader{
		api:      api,
		notifier: notifier,
		category: category,
		newUID:   uuid.NewString,
	}
}

// Loading reports whether an upload is in flight.
func (s *Uploader) Loading() bool { return s.loading }

// Status returns the upload status.
func (s *Uploader) Status() UploadStatus { return s.status }

// Entry returns the held avatar, or nil.
func (s *Uploader) Entry() *AvatarEntry {
	if s.entry == nil {
		return nil
	}
	e := *s.entry
	return &e
}

// Entries returns the slot as a list of zero or one entries.
func (s *Uploader) Entries() []AvatarEntry {
	if s.entry == nil {
		return []AvatarEntry{}
	}
	return []AvatarEntry{*s.entry}
}

// BeforeUpload checks type and size. Every failed check sends a transient
// error; the file is accepted only if all checks pass.
func (s *Uploader) BeforeUpload(f *AvatarFile) bool {
	ok := true

	if !mimetype.EqualsAny(f.contentType(), AcceptedAvatarTypes...) {
		s.notifier.Notify(transient(KindError, MsgInvalidFileType))
		ok = false
	}
	if f.size() >= MaxAvatarBytes {
		s.notifier.Notify(transient(KindError, MsgFileTooLarge))
		ok = false
	}

	if !ok {
		logging.LogUpload(f.Name, "rejected", f.size())
	}
	return ok
}

// Begin validates f and marks the slot as uploading. It returns false, and
// leaves the slot untouched, when f is rejected.
func (s *Uploader) Begin(f *AvatarFile) bool {
	if !s.BeforeUpload(f) {
		return false
	}
	s.loading = true
	s.status = StatusUploading
	logging.LogUpload(f.Name, s.status.String(), f.size())
	return true
}

// Transfer sends f to the backend. It does not touch slot state.
func (s *Uploader) Transfer(ctx context.Context, f *AvatarFile) (*backend.UploadResult, error) {
	return s.api.UploadSingleFile(ctx, &backend.FilePart{
		Name:        f.Name,
		ContentType: f.contentType(),
		Content:     f.Content,
	}, s.category)
}

// Finish applies the outcome of Transfer. On success the slot holds the
// stored file name under a fresh token; on failure it is emptied.
func (s *Uploader) Finish(res *backend.UploadResult, err error) error {
	if !s.loading {
		return ErrUploadAbandoned
	}
	s.loading = false

	if err == nil && (res == nil || res.FileName == "") {
		err = backend.NewParseError("upload response has no file name", nil)
	}

	if err != nil {
		s.status = StatusError
		s.entry = nil

		msg := MsgUploadFailed
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.ServerMessage != "" {
			msg = apiErr.ServerMessage
		}
		s.notifier.Notify(transient(KindError, msg))
		logging.LogUpload("", s.status.String(), 0)
		return err
	}

	s.status = StatusDone
	s.entry = &AvatarEntry{Name: res.FileName, UID: s.newUID()}
	logging.LogUpload(res.FileName, s.status.String(), 0)
	return nil
}

// Upload runs Begin, Transfer and Finish. It returns ErrFileRejected when
// the file fails the local checks.
func (s *Uploader) Upload(ctx context.Context, f *AvatarFile) error {
	if !s.Begin(f) {
		return ErrFileRejected
	}
	res, err := s.Transfer(ctx, f)
	return s.Finish(res, err)
}

// Remove empties the slot.
func (s *Uploader) Remove() {
	s.entry = nil
	s.status = StatusIdle
}

// seed puts an existing avatar file name in the slot.
func (s *Uploader) seed(name string) {
	s.entry = &AvatarEntry{Name: name, UID: s.newUID()}
	s.status = StatusDone
}

func (s *Uploader) reset() {
	s.entry = nil
	s.loading = false
	s.status = StatusIdle
}
