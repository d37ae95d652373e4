package utils

import (
	"fmt"
	"strings"
)

// FileIcon picks a glyph for an attachment mimetype in the message list.
func FileIcon(mimetype string) string {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return "🖼"
	case mimetype == "application/pdf":
		return "📕"
	case strings.Contains(mimetype, "zip"):
		return "🗜"
	case strings.Contains(mimetype, "word"):
		return "📄"
	case mimetype == "text/csv", mimetype == "application/json", mimetype == "text/plain":
		return "📝"
	default:
		return "📎"
	}
}

// HumanSize renders a byte count the way the chat UI shows attachment sizes.
func HumanSize(bytes int64) string {
	const (
		kib = 1024
		mib = 1024 * kib
	)
	switch {
	case bytes >= mib:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mib))
	case bytes >= kib:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kib))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
