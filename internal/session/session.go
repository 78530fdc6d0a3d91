// Package session is the client-side chat session controller. It owns the
// chat, document and message collections, the composer and the chat creation
// flow, and keeps them consistent with the backend across user actions.
//
// Every store guards its state with a mutex, so the blocking CLI path and the
// TUI (which runs requests in background commands) share the same code.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/raphaelgruber/docchat/internal/models"
)

// API is the backend surface used by a session.
type API interface {
	ChatLister
	ChatCreator
	MessageLister
	MessageSender
	DocumentAPI
	Search(ctx context.Context, query string, limit int) (models.SearchResponse, error)
}

// Session ties the stores and controllers of one client run together.
type Session struct {
	api    API
	logger *slog.Logger

	Chats     *Registry
	Documents *DocumentStore
	Messages  *MessageStore
	Composer  *Composer
	Creation  *CreationFlow

	mu         sync.Mutex
	activeChat string
	refresh    int
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	defaults Defaults
}

// WithDefaults sets the model configuration used by the composer and new chats.
func WithDefaults(d Defaults) Option {
	return func(o *sessionOptions) {
		o.defaults = d
	}
}

// New creates a session. Nothing is loaded until Mount.
func New(api API, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	o := sessionOptions{defaults: DefaultModelConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	chats := NewRegistry(api, logger)
	return &Session{
		api:       api,
		logger:    logger,
		Chats:     chats,
		Documents: NewDocumentStore(api, logger),
		Messages:  NewMessageStore(api, logger),
		Composer:  NewComposer(o.defaults),
		Creation:  NewCreationFlow(chats, o.defaults),
	}
}

// Mount loads chats and documents concurrently. A failed load leaves its
// collection unchanged; the joined errors are returned for display.
func (s *Session) Mount(ctx context.Context) error {
	var chatsErr, docsErr error

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		_, chatsErr = s.Chats.Refresh(ctx)
	})
	wg.Go(func() {
		_, docsErr = s.Documents.Refresh(ctx)
	})
	wg.Wait()

	s.logger.Info("session mounted",
		"chats", len(s.Chats.Chats()),
		"documents", s.Documents.Len(),
		"chats_ok", chatsErr == nil,
		"documents_ok", docsErr == nil,
	)

	var errs []error
	if chatsErr != nil {
		errs = append(errs, fmt.Errorf("load chats: %w", chatsErr))
	}
	if docsErr != nil {
		errs = append(errs, fmt.Errorf("load documents: %w", docsErr))
	}
	return errors.Join(errs...)
}

// Navigate makes chatID the active chat. The composer and the transcript
// start over for the new view; navigating to the active chat is a no-op.
func (s *Session) Navigate(chatID string) {
	s.mu.Lock()
	if s.activeChat == chatID {
		s.mu.Unlock()
		return
	}
	s.activeChat = chatID
	s.mu.Unlock()

	s.Composer.Reset()
	s.Messages.Reset()
	s.logger.Debug("navigated", "chat_id", chatID)
}

// ActiveChatID returns the id of the active chat, or "".
func (s *Session) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChat
}

// ActiveChat resolves the active chat against the registry. The second
// result is false when no chat is active or the id is unknown.
func (s *Session) ActiveChat() (models.Chat, bool) {
	return s.Chats.Select(s.ActiveChatID())
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// BumpRefresh increments the refresh token and returns the new value.
// The transcript of the active chat is refetched for every new token.
func (s *Session) BumpRefresh() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh++
	return s.refresh
}

// CanCreateChat reports whether at least one document is known.
func (s *Session) CanCreateChat() bool {
	return s.Documents.Len() > 0
}

// LoadMessages fetches the active chat's transcript if one is owed.
func (s *Session) LoadMessages(ctx context.Context) error {
	return s.Messages.Load(ctx, s.ActiveChatID(), s.RefreshToken())
}

// Send posts the composer draft to the active chat. On success the refresh
// token is bumped and the transcript reloaded.
func (s *Session) Send(ctx context.Context) (models.SendResult, error) {
	req, err := s.BeginSend()
	if err != nil {
		return models.SendResult{}, err
	}
	res, err := s.Deliver(ctx, req)
	if err != nil {
		return models.SendResult{}, err
	}
	s.BumpRefresh()
	if err := s.LoadMessages(ctx); err != nil {
		return res, fmt.Errorf("reload messages: %w", err)
	}
	return res, nil
}

// BeginSend starts a send of the composer draft to the active chat. A chat id
// that does not resolve to a known chat is rejected with ErrNoActiveChat.
func (s *Session) BeginSend() (SendRequest, error) {
	if _, ok := s.ActiveChat(); !ok {
		return SendRequest{}, ErrNoActiveChat
	}
	return s.Composer.Begin(s.ActiveChatID())
}

// Deliver posts a request started with BeginSend. It is the background
// half of Send for callers that clear the input before the request returns.
func (s *Session) Deliver(ctx context.Context, req SendRequest) (models.SendResult, error) {
	res, err := s.Composer.Deliver(ctx, s.api, req)
	if err != nil {
		s.logger.Warn("send failed", "chat_id", req.ChatID, "error", err)
		return models.SendResult{}, err
	}
	return res, nil
}

// SubmitCreation posts a request started with Creation.Begin and settles the flow.
func (s *Session) SubmitCreation(ctx context.Context, req CreationRequest) (models.Chat, error) {
	chat, err := s.api.CreateChat(ctx, req.Input)
	if _, ferr := s.Creation.Finish(req, chat, err); ferr != nil {
		if errors.Is(ferr, ErrCreationAbandoned) {
			s.logger.Info("abandoned chat creation settled", "chat_id", chat.ID, "error", err)
		} else {
			s.logger.Warn("create chat failed", "error", ferr)
		}
		return models.Chat{}, fmt.Errorf("create chat: %w", ferr)
	}
	s.logger.Info("chat created", "chat_id", chat.ID, "documents", len(req.Input.DocumentIDs))
	return chat, nil
}

// OpenCreation opens the creation flow over the known documents.
func (s *Session) OpenCreation() {
	s.Creation.Open(s.Documents.Documents())
}

// CreateChat submits the creation flow. On success the registry is refreshed
// and the new chat becomes active.
func (s *Session) CreateChat(ctx context.Context) (models.Chat, error) {
	chat, err := s.Creation.Submit(ctx, s.api)
	if err != nil {
		return models.Chat{}, err
	}
	s.AfterCreate(ctx, chat.ID)
	return chat, nil
}

// AfterCreate refreshes a stale registry and navigates to chatID.
func (s *Session) AfterCreate(ctx context.Context, chatID string) {
	if s.Chats.Stale() {
		_, _ = s.Chats.Refresh(ctx)
	}
	s.Navigate(chatID)
}

// Upload validates and uploads the file at path, then refreshes documents.
func (s *Session) Upload(ctx context.Context, path string) (models.UploadResult, error) {
	if err := CheckFileType(path); err != nil {
		return models.UploadResult{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return s.UploadReader(ctx, path, f)
}

// UploadReader uploads r under filename, then refreshes documents.
func (s *Session) UploadReader(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	return s.Documents.Upload(ctx, filename, r)
}

// Search runs a keyword search across all documents.
func (s *Session) Search(ctx context.Context, query string, limit int) (models.SearchResponse, error) {
	res, err := s.api.Search(ctx, query, limit)
	if err != nil {
		return models.SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	return res, nil
}
