package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/docchat/internal/models"
)

// ChatLister fetches all chats.
type ChatLister interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
}

// Registry holds the list of chats and resolves the active one.
// Selection is a lookup against the most recent successful refresh and is
// re-derived on every call.
type Registry struct {
	api    ChatLister
	logger *slog.Logger

	mu     sync.Mutex
	chats  []models.Chat
	loaded bool
	stale  bool
	err    error
}

// NewRegistry creates an empty, not yet loaded registry.
func NewRegistry(api ChatLister, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{api: api, logger: logger}
}

// Refresh replaces the chat list with the backend's. On failure the previous
// list is kept and the error is recorded and returned.
func (r *Registry) Refresh(ctx context.Context) ([]models.Chat, error) {
	chats, err := r.api.ListChats(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.err = err
		r.logger.Warn("failed to load chats", "error", err)
		return append([]models.Chat(nil), r.chats...), err
	}

	r.chats = chats
	r.loaded = true
	r.stale = false
	r.err = nil
	r.logger.Debug("chats loaded", "count", len(chats))
	return append([]models.Chat(nil), chats...), nil
}

// Chats returns a copy of the chat list in backend order.
func (r *Registry) Chats() []models.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Chat(nil), r.chats...)
}

// Select returns the chat with id. The second result is false when the list
// has not been loaded yet or holds no such chat.
func (r *Registry) Select(id string) (models.Chat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" || !r.loaded {
		return models.Chat{}, false
	}
	for _, c := range r.chats {
		if c.ID == id {
			return c, true
		}
	}
	return models.Chat{}, false
}

// Loaded reports whether at least one refresh succeeded.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// MarkStale records that the list no longer reflects the backend.
func (r *Registry) MarkStale() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = true
}

// Stale reports whether a refresh is owed.
func (r *Registry) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

// Err returns the error of the most recent failed refresh, cleared on success.
func (r *Registry) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
