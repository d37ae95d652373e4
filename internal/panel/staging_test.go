package panel

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageEncodesToDataURI(t *testing.T) {
	a := NewStagingArea()

	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	att := <-a.Stage("pic.png", "image/png", raw)

	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	assert.Equal(t, want, att.DataURI)

	cur, ok := a.Current()
	require.True(t, ok, "attachment must be visible once encoding completes")
	assert.Equal(t, att, cur)
}

func TestStageLastWriteWins(t *testing.T) {
	a := NewStagingArea()

	<-a.Stage("first.png", "image/png", []byte("first"))
	<-a.Stage("second.jpg", "image/jpeg", []byte("second"))

	cur, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, "second.jpg", cur.Name)
}

func TestClearInvalidatesInFlightEncode(t *testing.T) {
	a := NewStagingArea()

	done := a.Stage("late.png", "image/png", []byte("payload"))
	a.Clear()
	<-done

	_, ok := a.Current()
	assert.False(t, ok, "cleared staging must not be resurrected by a late encode")
}

func TestClearRemovesStagedAttachment(t *testing.T) {
	a := NewStagingArea()
	<-a.Stage("pic.png", "image/png", []byte("x"))

	a.Clear()
	_, ok := a.Current()
	assert.False(t, ok)
}
