package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatRecentKeyIsOrderIndependent(t *testing.T) {
	a := chatRecentKey("user-a", "user-b")
	b := chatRecentKey("user-b", "user-a")
	assert.Equal(t, a, b)
	assert.Equal(t, "chat:dm:user-a:user-b:recent", a)
}
