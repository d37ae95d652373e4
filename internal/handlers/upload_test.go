package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

// recordingStorage implements services.FileStorage and records calls.
type recordingStorage struct {
	mu    sync.Mutex
	calls []string
	url   string
}

func (s *recordingStorage) Store(_ context.Context, _ multipart.File, filename string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, filename)
	s.mu.Unlock()
	return s.url, nil
}

func (s *recordingStorage) stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// multipartBody builds a single-file form with an explicit part mimetype.
func multipartBody(t *testing.T, filename, mimetype string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mimetype)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func postUpload(storage *recordingStorage, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	prev := fileStorage
	fileStorage = storage
	defer func() { fileStorage = prev }()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	UploadAttachment(rec, req)
	return rec
}

func TestUploadAttachmentReturnsDescriptor(t *testing.T) {
	storage := &recordingStorage{url: "https://cdn.example.com/chat_attachments/report.pdf"}
	content := bytes.Repeat([]byte("x"), 2048)
	body, ct := multipartBody(t, "report.pdf", "application/pdf", content)

	rec := postUpload(storage, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var desc models.FileDescriptor
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&desc))
	assert.Equal(t, storage.url, desc.URL)
	assert.Equal(t, "report.pdf", desc.Filename)
	assert.Equal(t, int64(len(content)), desc.Size)
	assert.Equal(t, "application/pdf", desc.Mimetype)
	assert.Equal(t, []string{"report.pdf"}, storage.stored())
}

func TestUploadAttachmentRejectsOversizedFile(t *testing.T) {
	storage := &recordingStorage{url: "unused"}
	body, ct := multipartBody(t, "big.pdf", "application/pdf", make([]byte, 6<<20))

	rec := postUpload(storage, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, storage.stored(), "oversized upload must never reach storage")
}

func TestUploadAttachmentRejectsUnsupportedMimetype(t *testing.T) {
	storage := &recordingStorage{url: "unused"}
	body, ct := multipartBody(t, "tool.exe", "application/x-msdownload", []byte("MZ"))

	rec := postUpload(storage, body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Empty(t, storage.stored(), "disallowed mimetype must never reach storage")
}

func TestUploadAttachmentRequiresFileField(t *testing.T) {
	storage := &recordingStorage{url: "unused"}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	rec := postUpload(storage, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, storage.stored())
}
