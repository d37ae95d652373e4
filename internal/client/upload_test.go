package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/salvioris-chat/internal/panel"
)

func testFile(content []byte) panel.LocalFile {
	return panel.LocalFile{
		Name:     "notes.txt",
		Size:     int64(len(content)),
		Mimetype: "text/plain",
		Content:  bytes.NewReader(content),
	}
}

func TestUploadPostsMultipartWithBearerToken(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 64*1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "notes.txt", hdr.Filename)
		assert.Equal(t, "text/plain", hdr.Header.Get("Content-Type"))
		got, _ := io.ReadAll(f)
		assert.Len(t, got, len(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"/uploads/notes.txt","filename":"notes.txt","size":65536,"mimetype":"text/plain"}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var progress []float64
	u := NewUploader(srv.URL, func() string { return "tok-123" })
	desc, err := u.Upload(context.Background(), testFile(content), func(pct float64) {
		mu.Lock()
		progress = append(progress, pct)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/notes.txt", desc.URL)
	assert.EqualValues(t, 65536, desc.Size)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	last := 0.0
	for _, p := range progress {
		assert.GreaterOrEqual(t, p, last, "progress must be non-decreasing")
		last = p
	}
	assert.Equal(t, 100.0, last)
}

func TestUploadNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	u := NewUploader(srv.URL, func() string { return "" })
	_, err := u.Upload(context.Background(), testFile([]byte("abc")), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "413")
}

func TestUploadMalformedResponseIsError(t *testing.T) {
	cases := map[string]string{
		"not json":       `<html>ok</html>`,
		"missing fields": `{"filename":"notes.txt"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			u := NewUploader(srv.URL, func() string { return "" })
			_, err := u.Upload(context.Background(), testFile([]byte("abc")), nil)
			require.Error(t, err)
		})
	}
}

func TestUploadHonoursContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	u := NewUploader(srv.URL, func() string { return "" })
	_, err := u.Upload(ctx, testFile([]byte("abc")), nil)
	require.Error(t, err)
}
