package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.0 KB", HumanSize(1024))
	assert.Equal(t, "2.5 MB", HumanSize(5<<20/2))
}

func TestFileIconCoversCommonTypes(t *testing.T) {
	assert.Equal(t, "📕", FileIcon("application/pdf"))
	assert.Equal(t, "🗜", FileIcon("application/zip"))
	assert.Equal(t, "🖼", FileIcon("image/png"))
	assert.Equal(t, "📎", FileIcon("application/octet-stream"))
}
