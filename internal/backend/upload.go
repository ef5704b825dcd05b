package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// UploadFieldName is the multipart field carrying the file.
	UploadFieldName = "fileUpload"

	// FolderTypeHeader selects the storage folder on the backend.
	FolderTypeHeader = "folder_type"
)

// UploadSingleFile uploads one file into category (e.g. "user") and returns
// the stored file name. Uploads are never retried.
func (c *Client) UploadSingleFile(ctx context.Context, file *FilePart, category string) (*UploadResult, error) {
	if file == nil || len(file.Content) == 0 {
		return nil, NewValidationError("upload requires a non-empty file")
	}
	if category == "" {
		return nil, NewValidationError("upload requires a category")
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(file.Content).String()
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadFieldName, escapeQuotes(filepath.Base(file.Name))))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, NewParseError("failed to build multipart body", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, NewParseError("failed to build multipart body", err)
	}
	if err := mw.Close(); err != nil {
		return nil, NewParseError("failed to build multipart body", err)
	}

	req := &request{
		method:      http.MethodPost,
		path:        "/files/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		header:      http.Header{FolderTypeHeader: []string{category}},
	}

	var result UploadResult
	if err := c.doAttempt(ctx, req, 0, &result); err != nil {
		return nil, err
	}
	if result.FileName == "" {
		return nil, NewParseError("upload response has no file name", nil)
	}
	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
