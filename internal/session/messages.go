package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/raphaelgruber/docchat/internal/models"
)

// MessageLister fetches a chat transcript.
type MessageLister interface {
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// Ticket identifies one transcript fetch. A response is applied only while
// its ticket is still the current one.
type Ticket struct {
	ChatID string
	Token  int
}

// MessageStore holds the transcript of the active chat.
//
// A fetch is owed whenever the (chat id, refresh token) pair changes. Callers
// either use Load, or split it into Begin, Fetch and Apply when the request
// must run off the UI goroutine. Responses for a superseded ticket are dropped,
// so a slow fetch can never overwrite a newer transcript.
type MessageStore struct {
	api    MessageLister
	logger *slog.Logger

	mu        sync.Mutex
	current   Ticket
	settled   Ticket // last ticket whose fetch completed, successfully or not
	hasLoaded bool
	loading   bool
	messages  []models.Message
	err       error
	revision  int
	expansion citation.Expansion
}

// NewMessageStore creates an empty store.
func NewMessageStore(api MessageLister, logger *slog.Logger) *MessageStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageStore{api: api, logger: logger}
}

// Begin registers (chatID, token) as the current ticket. It reports whether a
// fetch is owed: false for an empty chat id or when that ticket is already
// settled or in flight. A failed fetch is retried only after the ticket changes.
func (s *MessageStore) Begin(chatID string, token int) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Ticket{ChatID: chatID, Token: token}
	if chatID == "" {
		return t, false
	}
	if t == s.current && (s.loading || s.settled == t) {
		return t, false
	}
	s.current = t
	s.loading = true
	return t, true
}

// Fetch requests the transcript for t. It does not touch the store.
func (s *MessageStore) Fetch(ctx context.Context, t Ticket) ([]models.Message, error) {
	return s.api.ListMessages(ctx, t.ChatID)
}

// Apply records the outcome of the fetch for t and reports whether it was
// applied. On failure the previous transcript is kept and the error recorded.
func (s *MessageStore) Apply(t Ticket, msgs []models.Message, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.current {
		s.logger.Debug("discarding stale transcript", "chat_id", t.ChatID, "token", t.Token,
			"current_chat_id", s.current.ChatID, "current_token", s.current.Token)
		return false
	}
	s.loading = false
	s.settled = t

	if err != nil {
		s.err = err
		s.logger.Warn("failed to load messages", "chat_id", t.ChatID, "error", err)
		return true
	}

	s.messages = msgs
	s.hasLoaded = true
	s.err = nil
	s.revision++
	s.expansion.Reset()
	return true
}

// Load fetches the transcript for (chatID, token) if one is owed.
func (s *MessageStore) Load(ctx context.Context, chatID string, token int) error {
	t, owed := s.Begin(chatID, token)
	if !owed {
		return nil
	}
	msgs, err := s.Fetch(ctx, t)
	s.Apply(t, msgs, err)
	return err
}

// Reset forgets the transcript and any in-flight fetch.
func (s *MessageStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Ticket{}
	s.settled = Ticket{}
	s.hasLoaded = false
	s.loading = false
	s.messages = nil
	s.err = nil
	s.revision++
	s.expansion.Reset()
}

// Messages returns a copy of the transcript in backend order.
func (s *MessageStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Loading reports whether a fetch for the current ticket is in flight.
func (s *MessageStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Loaded reports whether a transcript has been applied since the last reset.
func (s *MessageStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLoaded
}

// Err returns the error of the most recent failed fetch, cleared on success.
func (s *MessageStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Revision increases every time the transcript is replaced.
// Views scroll to the newest message when it changes.
func (s *MessageStore) Revision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Current returns the most recently requested ticket.
func (s *MessageStore) Current() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ToggleCitation flips the expansion of a citation and returns the new state.
func (s *MessageStore) ToggleCitation(k citation.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expansion.Toggle(k)
}

// CitationExpanded reports whether a citation is shown in full.
func (s *MessageStore) CitationExpanded(k citation.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expansion.Expanded(k)
}
