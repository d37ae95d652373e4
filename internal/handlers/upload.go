package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/AnshRaj112/salvioris-chat/internal/config"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/internal/services"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

var fileStorage services.FileStorage

// InitFileStorage selects Cloudinary when configured, local disk otherwise.
func InitFileStorage(cfg *config.Config) error {
	if cfg.HasCloudinary() {
		storage, err := services.NewCloudinaryStorage(
			cfg.CloudinaryName,
			cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret,
			"chat_attachments",
		)
		if err != nil {
			return err
		}
		fileStorage = storage
		logger.L().Info("using Cloudinary attachment storage")
		return nil
	}

	storage, err := services.NewDiskStorage(cfg.UploadDir, cfg.ServerURL)
	if err != nil {
		return err
	}
	fileStorage = storage
	logger.L().Infow("using disk attachment storage", "dir", cfg.UploadDir)
	return nil
}

// UploadAttachment accepts a multipart file and returns its descriptor. The
// response body is the bare descriptor; clients attach it to a file message
// verbatim.
func UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if fileStorage == nil {
		http.Error(w, "attachment storage not initialized", http.StatusInternalServerError)
		return
	}

	// Cap the whole request body; a small margin covers multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxAttachmentSize+64*1024)

	if err := r.ParseMultipartForm(models.MaxAttachmentSize); err != nil {
		http.Error(w, "File exceeds the 5 MB limit", http.StatusRequestEntityTooLarge)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > models.MaxAttachmentSize {
		http.Error(w, "File exceeds the 5 MB limit", http.StatusRequestEntityTooLarge)
		return
	}

	mimetype := fileHeader.Header.Get("Content-Type")
	if !models.AttachmentTypeAllowed(mimetype) {
		http.Error(w, "Unsupported file type: "+mimetype, http.StatusUnsupportedMediaType)
		return
	}

	url, err := fileStorage.Store(r.Context(), file, filepath.Base(fileHeader.Filename))
	if err != nil {
		logger.L().Errorw("attachment store failed", "filename", fileHeader.Filename, "error", err)
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.FileDescriptor{
		URL:      url,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Mimetype: mimetype,
	})
}
