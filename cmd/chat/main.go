// Command chat is a terminal client for the salvioris chat backend. It signs
// in with an existing session token (CHAT_SESSION_TOKEN), keeps one panel of
// conversation state and mirrors the web client's behavior: idempotent
// message streams, seen sweeps, staged images and the single upload slot.
package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/salvioris-chat/internal/client"
	"github.com/AnshRaj112/salvioris-chat/internal/config"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/internal/panel"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
	"github.com/AnshRaj112/salvioris-chat/pkg/utils"
)

type app struct {
	mu    sync.Mutex // serializes terminal output
	panel *panel.Panel
	api   *client.API
	names map[string]string // user id -> username
	self  string
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger.Init(false)
	defer logger.Sync()

	if cfg.SessionToken == "" {
		fmt.Fprintln(os.Stderr, "CHAT_SESSION_TOKEN is required (sign in via the HTTP API first)")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := func() string { return cfg.SessionToken }
	api := client.NewAPI(cfg.ServerURL, token)

	selfID, selfName, err := api.Me(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to resolve session:", err)
		os.Exit(1)
	}

	push, err := client.Dial(ctx, wsEndpoint(cfg.ServerURL), cfg.SessionToken)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect:", err)
		os.Exit(1)
	}
	defer push.Close()

	uploader := client.NewUploader(cfg.ServerURL+"/api/upload", token)

	a := &app{
		api:   api,
		names: map[string]string{selfID: selfName},
		self:  selfID,
	}
	a.panel = panel.NewPanel(selfID, push, uploader, a.renderUpload)

	go func() {
		for evt := range push.Events() {
			a.panel.HandleEvent(ctx, evt)
			if evt.Type == models.EventTypeMessage && evt.Message != nil {
				a.renderMessage(*evt.Message)
			}
		}
		a.printf("connection closed")
		cancel()
	}()

	a.printf("signed in as %s", selfName)
	a.printf("commands: /users, /to <name>, /image <path>, /noimage, /upload <path>, /cancel, /quit")
	a.repl(ctx)
}

func wsEndpoint(serverURL string) string {
	ws := strings.Replace(serverURL, "http", "ws", 1)
	return strings.TrimRight(ws, "/") + "/ws/chat"
}

func (a *app) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/users":
			a.listUsers(ctx)
		case strings.HasPrefix(line, "/to "):
			a.selectPeer(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/to ")))
		case strings.HasPrefix(line, "/image "):
			a.stageImage(strings.TrimSpace(strings.TrimPrefix(line, "/image ")))
		case line == "/noimage":
			a.panel.RemoveImage()
			a.printf("staged image removed")
		case strings.HasPrefix(line, "/upload "):
			a.uploadFile(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/upload ")))
		case line == "/cancel":
			a.panel.CancelUpload()
		default:
			a.sendText(ctx, line)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (a *app) listUsers(ctx context.Context) {
	contacts, err := a.api.Contacts(ctx)
	if err != nil {
		a.printf("failed to load users: %v", err)
		return
	}
	for _, c := range contacts {
		a.names[c.ID] = c.Username
		a.printf("  %-20s %s", c.Username, c.Status)
	}
}

// selectPeer accepts a username and switches the panel to that
// conversation, importing the latest history page.
func (a *app) selectPeer(ctx context.Context, username string) {
	peerID := ""
	for id, name := range a.names {
		if name == username && id != a.self {
			peerID = id
			break
		}
	}
	if peerID == "" {
		contacts, err := a.api.Contacts(ctx)
		if err != nil {
			a.printf("failed to look up %s: %v", username, err)
			return
		}
		for _, c := range contacts {
			a.names[c.ID] = c.Username
			if c.Username == username {
				peerID = c.ID
			}
		}
	}
	if peerID == "" {
		a.printf("no such user: %s", username)
		return
	}

	a.panel.SelectUser(ctx, peerID)

	msgs, _, err := a.api.History(ctx, peerID, nil, 50)
	if err != nil {
		a.printf("failed to load history: %v", err)
	} else {
		a.panel.ImportHistory(ctx, peerID, msgs)
	}

	a.printf("— conversation with %s —", username)
	for _, m := range a.panel.Messages() {
		a.renderMessage(m)
	}
}

func (a *app) sendText(ctx context.Context, text string) {
	a.panel.SetInput(text)
	if err := a.panel.Send(ctx); err != nil {
		a.printf("send failed: %v", err)
		return
	}
	msgs := a.panel.Messages()
	if len(msgs) > 0 {
		a.renderMessage(msgs[len(msgs)-1])
	}
}

func (a *app) stageImage(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		a.printf("cannot read %s: %v", path, err)
		return
	}
	mimetype := mime.TypeByExtension(filepath.Ext(path))
	if !strings.HasPrefix(mimetype, "image/") {
		a.printf("%s is not an image", path)
		return
	}

	done := a.panel.StageImage(filepath.Base(path), mimetype, data)
	go func() {
		staged := <-done
		a.printf("staged %s (%s)", staged.Name, utils.HumanSize(int64(len(data))))
	}()
}

func (a *app) uploadFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		a.printf("cannot open %s: %v", path, err)
		return
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		a.printf("cannot stat %s: %v", path, err)
		return
	}

	file := panel.LocalFile{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		Mimetype: mime.TypeByExtension(filepath.Ext(path)),
		Content:  f,
	}

	// The tracker transfers in the background; the descriptor is sent as a
	// file message automatically on success.
	if err := a.panel.SubmitFile(ctx, file); err != nil {
		f.Close()
		a.printf("upload rejected: %v", err)
	}
}

func (a *app) renderUpload(snap panel.UploadSnapshot) {
	switch snap.Status {
	case panel.UploadUploading:
		a.printf("uploading %s… %3.0f%%", snap.Filename, snap.Progress)
	case panel.UploadSucceeded:
		a.printf("uploaded %s (%s)", snap.Filename, utils.HumanSize(snap.Size))
	case panel.UploadFailed:
		a.printf("upload failed: %s", snap.Error)
	case panel.UploadCancelled:
		a.printf("upload cancelled")
	}
}

func (a *app) renderMessage(m models.Message) {
	name := a.names[m.SenderID]
	if name == "" {
		name = m.SenderID[:8]
	}

	line := m.Text
	if m.Image != "" {
		line = strings.TrimSpace("🖼 [image] " + line)
	}
	if m.File != nil {
		line = strings.TrimSpace(fmt.Sprintf("%s %s (%s) %s",
			utils.FileIcon(m.File.Mimetype), m.File.Filename, utils.HumanSize(m.File.Size), line))
	}

	seen := ""
	if m.IsOutgoing(a.self) && m.Seen {
		seen = " ✓✓"
	}
	a.printf("[%s] %s: %s%s", m.CreatedAt.Local().Format("15:04"), name, line, seen)
}

func (a *app) printf(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Printf(format+"\n", args...)
}
