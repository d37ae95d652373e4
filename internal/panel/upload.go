package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

// UploadStatus is the lifecycle state of the single upload slot.
type UploadStatus string

const (
	UploadIdle       UploadStatus = "idle"
	UploadValidating UploadStatus = "validating"
	UploadUploading  UploadStatus = "uploading"
	UploadSucceeded  UploadStatus = "succeeded"
	UploadFailed     UploadStatus = "failed"
	UploadCancelled  UploadStatus = "cancelled"
)

var (
	// ErrUploadInFlight is returned when a submit arrives while the slot is
	// occupied. The UI disables the input, but the tracker enforces it too.
	ErrUploadInFlight = errors.New("an upload is already in progress")
	// ErrFileTooLarge rejects files over models.MaxAttachmentSize.
	ErrFileTooLarge = errors.New("file exceeds the 5 MiB upload limit")
	// ErrUnsupportedFileType rejects mimetypes outside the allow-list.
	ErrUnsupportedFileType = errors.New("file type is not supported")
)

// LocalFile is the local binary payload handed to the tracker.
type LocalFile struct {
	Name     string
	Size     int64
	Mimetype string
	Content  io.Reader
}

// Uploader transfers a file to the upload endpoint. Implementations must
// call onProgress with percentages in [0,100] as bytes go out and return the
// parsed descriptor on success. The context carries cancellation and the
// transfer timeout.
type Uploader interface {
	Upload(ctx context.Context, file LocalFile, onProgress func(pct float64)) (*models.FileDescriptor, error)
}

// UploadSnapshot is a point-in-time copy of the tracker state for display.
type UploadSnapshot struct {
	Status   UploadStatus
	UploadID string
	Filename string
	Size     int64
	Progress float64
	Error    string
}

const (
	defaultUploadTimeout = 60 * time.Second
	successResetDelay    = 1500 * time.Millisecond
)

// UploadTracker owns the lifecycle of at most one in-flight file upload.
// Every upload carries a generated uploadID; progress and completion
// callbacks are validated against the current id before they may mutate
// state, so callbacks from a cancelled or superseded transfer are discarded
// rather than locked out.
type UploadTracker struct {
	mu       sync.Mutex
	status   UploadStatus
	uploadID string
	filename string
	size     int64
	progress float64
	lastErr  string
	cancel   context.CancelFunc

	uploader   Uploader
	timeout    time.Duration
	resetDelay time.Duration
	observer   func(UploadSnapshot)
}

// NewUploadTracker returns an idle tracker. observer may be nil; when set it
// is invoked on every state change and accepted progress update, and must
// not call back into the tracker.
func NewUploadTracker(uploader Uploader, observer func(UploadSnapshot)) *UploadTracker {
	return &UploadTracker{
		status:     UploadIdle,
		uploader:   uploader,
		timeout:    defaultUploadTimeout,
		resetDelay: successResetDelay,
		observer:   observer,
	}
}

// Snapshot returns the current tracker state.
func (t *UploadTracker) Snapshot() UploadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *UploadTracker) snapshotLocked() UploadSnapshot {
	return UploadSnapshot{
		Status:   t.status,
		UploadID: t.uploadID,
		Filename: t.filename,
		Size:     t.size,
		Progress: t.progress,
		Error:    t.lastErr,
	}
}

func (t *UploadTracker) notify(snap UploadSnapshot) {
	if t.observer != nil {
		t.observer(snap)
	}
}

// Submit validates the file and, if it passes, occupies the slot and starts
// the transfer. Validation failures are returned synchronously and leave the
// tracker idle. send is invoked once with the descriptor after the server
// acknowledges the upload; it should deliver the file message to the
// receiver that was current when the user picked the file.
func (t *UploadTracker) Submit(ctx context.Context, file LocalFile, send func(ctx context.Context, desc *models.FileDescriptor) error) error {
	t.mu.Lock()
	if t.status != UploadIdle {
		t.mu.Unlock()
		return ErrUploadInFlight
	}

	t.status = UploadValidating
	t.filename = file.Name
	t.size = file.Size
	t.progress = 0
	t.lastErr = ""
	validating := t.snapshotLocked()

	if err := validateAttachment(file); err != nil {
		t.status = UploadIdle
		t.filename = ""
		t.size = 0
		t.mu.Unlock()
		t.notify(validating)
		t.notify(t.Snapshot())
		return err
	}

	id := uuid.NewString()
	uploadCtx, cancel := context.WithTimeout(ctx, t.timeout)
	t.uploadID = id
	t.cancel = cancel
	t.status = UploadUploading
	uploading := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(validating)
	t.notify(uploading)

	go t.run(ctx, uploadCtx, id, file, send)
	return nil
}

// run drives the transfer on uploadCtx and applies the outcome. parent is the
// Submit caller's context: the post-success file message is sent with it, not
// with uploadCtx, which finish releases once the transfer is over.
func (t *UploadTracker) run(parent, uploadCtx context.Context, id string, file LocalFile, send func(ctx context.Context, desc *models.FileDescriptor) error) {
	desc, err := t.uploader.Upload(uploadCtx, file, func(pct float64) {
		t.ApplyProgress(id, pct)
	})
	t.finish(parent, id, desc, err, send)
}

func validateAttachment(file LocalFile) error {
	if file.Size > models.MaxAttachmentSize {
		return ErrFileTooLarge
	}
	if !models.AttachmentTypeAllowed(file.Mimetype) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, file.Mimetype)
	}
	return nil
}

// ApplyProgress records a progress event for the given upload. Events are
// accepted only while the tracker is uploading that exact id, and progress
// never decreases — a stale or out-of-order callback is discarded silently.
func (t *UploadTracker) ApplyProgress(id string, pct float64) {
	t.mu.Lock()
	if t.status != UploadUploading || t.uploadID != id {
		t.mu.Unlock()
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct <= t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = pct
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// finish applies the terminal outcome of a transfer, unless the slot has
// already moved on (cancelled or superseded). parent is the Submit caller's
// context and carries the send; the transfer's own context is released here.
func (t *UploadTracker) finish(parent context.Context, id string, desc *models.FileDescriptor, err error, send func(ctx context.Context, desc *models.FileDescriptor) error) {
	t.mu.Lock()
	if t.status != UploadUploading || t.uploadID != id {
		// Late completion after cancel or reset; nothing to apply.
		t.mu.Unlock()
		return
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	if err == nil && !desc.Valid() {
		err = errors.New("upload response missing file descriptor fields")
	}
	if err != nil {
		t.status = UploadFailed
		t.lastErr = err.Error()
		failed := t.snapshotLocked()
		t.releaseLocked()
		idle := t.snapshotLocked()
		t.mu.Unlock()
		logger.L().Warnw("upload failed", "upload_id", id, "file", failed.Filename, "error", err)
		t.notify(failed)
		t.notify(idle)
		return
	}

	t.status = UploadSucceeded
	t.progress = 100
	succeeded := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(succeeded)

	// Deliver the file message with the caller's context, then let the
	// success state linger briefly before the slot resets.
	if sendErr := send(parent, desc); sendErr != nil {
		t.mu.Lock()
		if t.uploadID != id || t.status != UploadSucceeded {
			t.mu.Unlock()
			return
		}
		t.status = UploadFailed
		t.lastErr = sendErr.Error()
		failed := t.snapshotLocked()
		t.releaseLocked()
		idle := t.snapshotLocked()
		t.mu.Unlock()
		logger.L().Warnw("file message send failed", "upload_id", id, "error", sendErr)
		t.notify(failed)
		t.notify(idle)
		return
	}

	time.AfterFunc(t.resetDelay, func() {
		t.mu.Lock()
		if t.uploadID != id || t.status != UploadSucceeded {
			t.mu.Unlock()
			return
		}
		t.releaseLocked()
		idle := t.snapshotLocked()
		t.mu.Unlock()
		t.notify(idle)
	})
}

// Cancel aborts the in-flight transfer, if any. Cancellation is terminal and
// releases the slot immediately; a completion that races in after this is
// ignored because the tracker has left the uploading state.
func (t *UploadTracker) Cancel() {
	t.mu.Lock()
	if t.status != UploadUploading {
		t.mu.Unlock()
		return
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.status = UploadCancelled
	cancelled := t.snapshotLocked()
	t.releaseLocked()
	idle := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(cancelled)
	t.notify(idle)
}

// releaseLocked clears the slot back to idle. Caller holds the lock.
func (t *UploadTracker) releaseLocked() {
	t.status = UploadIdle
	t.uploadID = ""
	t.filename = ""
	t.size = 0
	t.progress = 0
}
