package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

// fakePush acts as the server: it assigns ids and echoes saved messages back.
type fakePush struct {
	mu       sync.Mutex
	userID   string
	sent     []models.Message
	seen     []string
	sendErr  error
	sendGate chan struct{} // when set, SendMessage blocks until closed
}

func (f *fakePush) SendMessage(_ context.Context, receiverID, text, image string, file *models.FileDescriptor) (*models.Message, error) {
	if f.sendGate != nil {
		<-f.sendGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	m := models.Message{
		ID:         uuid.NewString(),
		SenderID:   f.userID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		File:       file,
		CreatedAt:  time.Now().UTC(),
	}
	f.sent = append(f.sent, m)
	return &m, nil
}

func (f *fakePush) MarkSeen(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, messageID)
	return nil
}

func (f *fakePush) seenIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func newTestPanel(t *testing.T, push *fakePush, uploader Uploader, onUpload func(UploadSnapshot)) *Panel {
	t.Helper()
	if push.userID == "" {
		push.userID = "me"
	}
	return NewPanel("me", push, uploader, onUpload)
}

func TestSendTextAppearsAsOutgoingUnseen(t *testing.T) {
	push := &fakePush{}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	p.SetInput("hi")
	require.NoError(t, p.Send(ctx))

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsOutgoing("me"))
	assert.False(t, msgs[0].Seen)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Empty(t, p.Input(), "input clears after the transport resolves")

	// Switching away and back leaves the conversation untouched.
	p.SelectUser(ctx, "bob")
	assert.Empty(t, p.Messages())
	p.SelectUser(ctx, "alice")
	again := p.Messages()
	require.Len(t, again, 1)
	assert.Equal(t, msgs[0].ID, again[0].ID)
}

func TestSendRequiresTextOrStagedImage(t *testing.T) {
	push := &fakePush{}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, p.Send(ctx), ErrNoConversation)

	p.SelectUser(ctx, "alice")
	require.ErrorIs(t, p.Send(ctx), ErrNothingToSend)
	p.SetInput("   ")
	require.ErrorIs(t, p.Send(ctx), ErrNothingToSend)

	<-p.StageImage("cat.png", "image/png", []byte("catbytes"))
	require.NoError(t, p.Send(ctx), "a staged image alone is sendable")

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Image, "data:image/png;base64,")
	_, staged := p.StagedImage()
	assert.False(t, staged, "staging clears after a successful send")
}

func TestSendFailureKeepsInputAndStagingForRetry(t *testing.T) {
	push := &fakePush{sendErr: errors.New("socket closed")}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	p.SetInput("important")
	<-p.StageImage("doc.png", "image/png", []byte("img"))

	require.Error(t, p.Send(ctx))
	assert.Equal(t, "important", p.Input())
	_, staged := p.StagedImage()
	assert.True(t, staged)
	assert.Empty(t, p.Messages())

	push.mu.Lock()
	push.sendErr = nil
	push.mu.Unlock()
	require.NoError(t, p.Send(ctx))
	assert.Len(t, p.Messages(), 1)
}

func TestInboundMessageIsSweptSeen(t *testing.T) {
	push := &fakePush{}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	inbound := msg("in1", "alice", "me", "hello")
	p.HandleEvent(ctx, models.ChatEvent{Type: models.EventTypeMessage, Message: &inbound})

	assert.Equal(t, []string{"in1"}, push.seenIDs())
	require.Len(t, p.Messages(), 1)
	assert.True(t, p.Messages()[0].Seen)

	// Duplicate delivery: absorbed, no second ack.
	p.HandleEvent(ctx, models.ChatEvent{Type: models.EventTypeMessage, Message: &inbound})
	assert.Len(t, push.seenIDs(), 1)
	assert.Len(t, p.Messages(), 1)
}

func TestBackgroundConversationNotSweptUntilSelected(t *testing.T) {
	push := &fakePush{}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	inbound := msg("b1", "bob", "me", "psst")
	p.HandleEvent(ctx, models.ChatEvent{Type: models.EventTypeMessage, Message: &inbound})
	assert.Empty(t, push.seenIDs(), "only the visible conversation is swept")

	p.SelectUser(ctx, "bob")
	assert.Equal(t, []string{"b1"}, push.seenIDs(), "conversation switch triggers a fresh sweep")
}

func TestSeenEventMarksOwnMessage(t *testing.T) {
	push := &fakePush{}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	p.SetInput("read me")
	require.NoError(t, p.Send(ctx))
	id := p.Messages()[0].ID

	p.HandleEvent(ctx, models.ChatEvent{Type: models.EventTypeSeen, MessageID: id, UserID: "alice"})
	assert.True(t, p.Messages()[0].Seen)
}

func TestConversationSwitchResetsStagingButNotUpload(t *testing.T) {
	release := make(chan struct{})
	push := &fakePush{}
	p := newTestPanel(t, push, uploaderFunc(func(ctx context.Context, _ LocalFile, onProgress func(float64)) (*models.FileDescriptor, error) {
		onProgress(30)
		<-release
		return pdfDescriptor(), nil
	}), nil)
	p.tracker.resetDelay = 5 * time.Millisecond
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	<-p.StageImage("pic.png", "image/png", []byte("x"))
	require.NoError(t, p.SubmitFile(ctx, LocalFile{Name: "doc.pdf", Size: 1024, Mimetype: "application/pdf"}))
	require.Eventually(t, func() bool { return p.Upload().Progress == 30 }, time.Second, time.Millisecond)

	p.SelectUser(ctx, "bob")
	_, staged := p.StagedImage()
	assert.False(t, staged, "staging resets on conversation switch")
	assert.Equal(t, UploadUploading, p.Upload().Status, "in-flight upload is not auto-cancelled")

	// The finished upload still goes to the receiver captured at submit time.
	close(release)
	require.Eventually(t, func() bool { return p.Upload().Status == UploadIdle }, time.Second, time.Millisecond)

	push.mu.Lock()
	require.Len(t, push.sent, 1)
	assert.Equal(t, "alice", push.sent[0].ReceiverID)
	require.NotNil(t, push.sent[0].File)
	assert.Equal(t, "report.pdf", push.sent[0].File.Filename)
	push.mu.Unlock()

	p.SelectUser(ctx, "alice")
	require.Len(t, p.Messages(), 1, "auto-sent file message lands in the original conversation")
}

func TestImportHistoryIsReplaySafe(t *testing.T) {
	push := &fakePush{}
	p := newTestPanel(t, push, nil, nil)
	ctx := context.Background()

	p.SelectUser(ctx, "alice")
	history := []models.Message{
		msg("h1", "alice", "me", "old one"),
		msg("h2", "me", "alice", "old reply"),
	}
	p.ImportHistory(ctx, "alice", history)
	p.ImportHistory(ctx, "alice", history) // replay

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "h1", msgs[0].ID)
	assert.Equal(t, []string{"h1"}, push.seenIDs(), "history sweep acks inbound exactly once")
}
