package panel

import (
	"encoding/base64"
	"sync"
)

// StagedAttachment is a locally held, not-yet-sent image. It exists only in
// memory until a send consumes it or the user removes it.
type StagedAttachment struct {
	Name     string
	Mimetype string
	DataURI  string
}

// StagingArea holds at most one staged image. Staging a new image silently
// replaces the previous one (there is a single input field in the UI), and
// the base64 encode runs off the caller's goroutine: the attachment only
// becomes visible — and sendable — once encoding has finished.
type StagingArea struct {
	mu      sync.Mutex
	current *StagedAttachment
	gen     uint64
}

// NewStagingArea returns an empty staging area.
func NewStagingArea() *StagingArea {
	return &StagingArea{}
}

// Stage encodes the raw image bytes into a data URI asynchronously and
// installs the result as the staged attachment. The returned channel yields
// the attachment once it is visible. A Stage or Clear issued while encoding
// is still running wins over this one (last-write-wins).
func (a *StagingArea) Stage(name, mimetype string, data []byte) <-chan StagedAttachment {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	done := make(chan StagedAttachment, 1)
	go func() {
		uri := "data:" + mimetype + ";base64," + base64.StdEncoding.EncodeToString(data)
		att := StagedAttachment{Name: name, Mimetype: mimetype, DataURI: uri}

		a.mu.Lock()
		if a.gen == gen {
			a.current = &att
		}
		a.mu.Unlock()

		done <- att
		close(done)
	}()
	return done
}

// Current returns the staged attachment, if one is visible.
func (a *StagingArea) Current() (StagedAttachment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return StagedAttachment{}, false
	}
	return *a.current, true
}

// Clear discards the staged attachment. Called after a successful send or on
// explicit user removal. Also invalidates any encode still in flight so it
// cannot resurrect a discarded image.
func (a *StagingArea) Clear() {
	a.mu.Lock()
	a.gen++
	a.current = nil
	a.mu.Unlock()
}
