package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// FileStorage persists an uploaded attachment and returns its public URL.
type FileStorage interface {
	Store(ctx context.Context, file multipart.File, filename string) (string, error)
}

// CloudinaryStorage stores attachments in Cloudinary under a fixed folder.
type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	if folder == "" {
		folder = "chat_attachments"
	}
	return &CloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStorage) Store(ctx context.Context, file multipart.File, filename string) (string, error) {
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	result, err := s.cld.Upload.Upload(ctx, fileBytes, uploader.UploadParams{
		Folder: s.folder,
		// Attachments include documents and archives, not just images.
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return result.SecureURL, nil
}

// DiskStorage writes attachments under a local directory served at
// baseURL/uploads/. Used in development when Cloudinary is not configured.
type DiskStorage struct {
	dir     string
	baseURL string
}

func NewDiskStorage(dir, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStorage) Store(ctx context.Context, file multipart.File, filename string) (string, error) {
	// Random prefix prevents collisions and path traversal via the name.
	name := uuid.NewString() + "_" + filepath.Base(filename)

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return s.baseURL + "/uploads/" + name, nil
}
