package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/internal/panel"
)

// Uploader posts multipart file uploads to the chat backend and reports
// byte-level progress as the body streams out. It implements panel.Uploader.
type Uploader struct {
	endpoint string
	token    func() string
	client   *http.Client
}

// NewUploader builds an uploader for the given endpoint. token is read per
// request so a refreshed session is picked up without rebuilding the client.
func NewUploader(endpoint string, token func() string) *Uploader {
	return &Uploader{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{},
	}
}

// progressReader counts bytes as the request body is consumed.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress func(pct float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.onProgress != nil {
		p.sent += int64(n)
		pct := float64(p.sent) / float64(p.total) * 100
		if pct > 100 {
			pct = 100
		}
		p.onProgress(pct)
	}
	return n, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload streams the file to the upload endpoint with the session bearer
// token. Any non-2xx status or a response missing descriptor fields is an
// error; the tracker treats both as a failed transfer.
func (u *Uploader) Upload(ctx context.Context, file panel.LocalFile, onProgress func(pct float64)) (*models.FileDescriptor, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer func() {
			if c, ok := file.Content.(io.Closer); ok {
				c.Close()
			}
		}()
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
		if file.Mimetype != "" {
			h.Set("Content-Type", file.Mimetype)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		counted := &progressReader{r: file.Content, total: file.Size, onProgress: onProgress}
		if _, err := io.Copy(part, counted); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tok := u.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var desc models.FileDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, fmt.Errorf("invalid upload response: %w", err)
	}
	if !desc.Valid() {
		return nil, fmt.Errorf("upload response missing fields: %+v", desc)
	}
	return &desc, nil
}
