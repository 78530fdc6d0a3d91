package tui

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/session"
)

// mountedMsg reports the initial load of chats and documents.
type mountedMsg struct {
	err error
}

// chatsRefreshedMsg reports a manual refresh of both collections.
type chatsRefreshedMsg struct {
	err error
}

// messagesMsg carries a transcript fetch for one ticket.
type messagesMsg struct {
	ticket session.Ticket
	msgs   []models.Message
	err    error
}

// sentMsg reports the outcome of a message send.
type sentMsg struct {
	req session.SendRequest
	err error
}

// createdMsg reports the outcome of a chat creation.
type createdMsg struct {
	chat models.Chat
	err  error
}

// uploadedMsg reports the outcome of a document upload.
type uploadedMsg struct {
	path   string
	result models.UploadResult
	err    error
}

// clearStatusMsg hides a transient status line.
type clearStatusMsg struct {
	seq int
}

const statusTTL = 4 * time.Second

// All commands run off the update loop; the session stores are safe for
// concurrent use.

func mountCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return mountedMsg{err: s.Mount(ctx)}
	}
}

func refreshCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return chatsRefreshedMsg{err: s.Mount(ctx)}
	}
}

func fetchMessagesCmd(ctx context.Context, s *session.Session, t session.Ticket) tea.Cmd {
	return func() tea.Msg {
		msgs, err := s.Messages.Fetch(ctx, t)
		return messagesMsg{ticket: t, msgs: msgs, err: err}
	}
}

func sendCmd(ctx context.Context, s *session.Session, req session.SendRequest) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Deliver(ctx, req)
		return sentMsg{req: req, err: err}
	}
}

func createCmd(ctx context.Context, s *session.Session, req session.CreationRequest) tea.Cmd {
	return func() tea.Msg {
		chat, err := s.SubmitCreation(ctx, req)
		if err == nil && s.Chats.Stale() {
			// A failed refresh leaves the new chat unresolvable until the next one.
			_, _ = s.Chats.Refresh(ctx)
		}
		return createdMsg{chat: chat, err: err}
	}
}

func uploadCmd(ctx context.Context, s *session.Session, path string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Upload(ctx, path)
		return uploadedMsg{path: path, result: res, err: err}
	}
}

func clearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
