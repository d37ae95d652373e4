package models

// MaxAttachmentSize is the hard cap for a single file upload (5 MiB).
// Enforced client-side before the upload slot is occupied and again by the
// upload endpoint.
const MaxAttachmentSize = 5 << 20

// allowedAttachmentTypes is the fixed mime allow-list for file uploads.
var allowedAttachmentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/zip":                 {},
	"application/x-zip-compressed":    {},
	"text/plain":                      {},
	"text/csv":                        {},
	"application/json":                {},
	"image/jpeg":                      {},
	"image/jpg":                       {},
	"image/png":                       {},
	"image/gif":                       {},
}

// AttachmentTypeAllowed reports whether the mimetype may be uploaded.
func AttachmentTypeAllowed(mimetype string) bool {
	_, ok := allowedAttachmentTypes[mimetype]
	return ok
}
