// Package fakebackend is an in-memory implementation of the docchat backend
// HTTP API for tests. It stores everything in process memory, answers every
// message with a canned assistant reply carrying citations, and lets tests
// force individual routes to fail.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Route identifies one endpoint of the API.
type Route string

// Routes served by the backend.
const (
	RouteListChats     Route = "GET /chat/"
	RouteCreateChat    Route = "POST /chat/"
	RouteListMessages  Route = "GET /chat/{id}/messages"
	RouteSendMessage   Route = "POST /chat/message"
	RouteListDocuments Route = "GET /docs/"
	RouteUpload        Route = "POST /upload/"
	RouteSearch        Route = "GET /search/"
)

// naiveLayout is the timezone-less timestamp format the real backend emits.
const naiveLayout = "2006-01-02T15:04:05.000000"

type chat struct {
	ID           string  `json:"id"`
	SystemPrompt string  `json:"system_prompt"`
	Personality  *string `json:"personality"`
	CreatedAt    string  `json:"created_at"`

	documentIDs []string
}

type message struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	MimeType  string `json:"mime_type"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`

	content string
}

// CreateRequest is the body received by the create-chat route.
type CreateRequest struct {
	SystemPrompt   string   `json:"system_prompt"`
	Personality    *string  `json:"personality"`
	DocumentIDs    []string `json:"document_ids"`
	LLMProvider    string   `json:"llm_provider"`
	LLMModel       string   `json:"llm_model"`
	LLMTemperature float64  `json:"llm_temperature"`
}

// SendRequest is the body received by the send-message route.
type SendRequest struct {
	ChatID         string  `json:"chat_id"`
	Message        string  `json:"message"`
	Stream         bool    `json:"stream"`
	LLMProvider    string  `json:"llm_provider"`
	LLMModel       string  `json:"llm_model"`
	LLMTemperature float64 `json:"llm_temperature"`
}

// Backend is the fake server state. Use Handler to serve it.
type Backend struct {
	mu sync.Mutex

	chats    []*chat
	messages map[string][]message
	docs     []*document

	failures map[Route]int
	calls    map[Route]int
	headers  map[Route]http.Header

	lastCreate *CreateRequest
	lastSend   *SendRequest
	replies    int

	now func() time.Time
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		messages: make(map[string][]message),
		failures: make(map[Route]int),
		calls:    make(map[Route]int),
		headers:  make(map[Route]http.Header),
		now:      time.Now,
	}
}

// Handler returns the chi router serving the API.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/chat", func(r chi.Router) {
		r.Get("/", b.route(RouteListChats, b.listChats))
		r.Post("/", b.route(RouteCreateChat, b.createChat))
		r.Post("/message", b.route(RouteSendMessage, b.sendMessage))
		r.Get("/{chatID}/messages", b.route(RouteListMessages, b.listMessages))
	})
	r.Get("/docs", b.route(RouteListDocuments, b.listDocuments))
	r.Post("/upload", b.route(RouteUpload, b.upload))
	r.Get("/search", b.route(RouteSearch, b.search))

	return r
}

// route counts calls and applies injected failures before running h.
func (b *Backend) route(rt Route, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[rt]++
		b.headers[rt] = r.Header.Clone()
		status, failing := b.failures[rt]
		b.mu.Unlock()

		if failing {
			http.Error(w, fmt.Sprintf(`{"detail":"injected failure for %s"}`, rt), status)
			return
		}
		h(w, r)
	}
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

// Fail makes every request to rt answer with status until Recover is called.
func (b *Backend) Fail(rt Route, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[rt] = status
}

// Recover clears an injected failure.
func (b *Backend) Recover(rt Route) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, rt)
}

// Calls returns how many requests reached rt, failed ones included.
func (b *Backend) Calls(rt Route) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[rt]
}

// LastHeader returns the headers of the most recent request to rt.
func (b *Backend) LastHeader(rt Route) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[rt]
}

// LastCreate returns the body of the most recent successful create-chat request.
func (b *Backend) LastCreate() (CreateRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastCreate == nil {
		return CreateRequest{}, false
	}
	return *b.lastCreate, true
}

// LastSend returns the body of the most recent successful send-message request.
func (b *Backend) LastSend() (SendRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastSend == nil {
		return SendRequest{}, false
	}
	return *b.lastSend, true
}

// AddDocument seeds a document and returns its id.
func (b *Backend) AddDocument(title, content string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addDocumentLocked(title, content)
}

func (b *Backend) addDocumentLocked(title, content string) string {
	d := &document{
		ID:        uuid.NewString(),
		Title:     title,
		MimeType:  mimeType(title),
		Summary:   summarize(content),
		CreatedAt: b.now().UTC().Format(naiveLayout),
		content:   content,
	}
	b.docs = append(b.docs, d)
	return d.ID
}

// AddChat seeds a chat bound to documentIDs and returns its id.
func (b *Backend) AddChat(systemPrompt, personality string, documentIDs ...string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addChatLocked(systemPrompt, nullable(personality), documentIDs)
}

func (b *Backend) addChatLocked(systemPrompt string, personality *string, documentIDs []string) string {
	c := &chat{
		ID:           uuid.NewString(),
		SystemPrompt: systemPrompt,
		Personality:  personality,
		CreatedAt:    b.now().UTC().Format(naiveLayout),
		documentIDs:  documentIDs,
	}
	b.chats = append(b.chats, c)
	b.messages[c.ID] = []message{}
	return c.ID
}

// AppendRawMessage adds a message with an arbitrary sources payload to a chat.
func (b *Backend) AppendRawMessage(chatID, role, content string, sources json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[chatID] = append(b.messages[chatID], message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: b.now().UTC().Format(naiveLayout),
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (b *Backend) listChats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]chat, 0, len(b.chats))
	for _, c := range b.chats {
		out = append(out, *c)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createChat(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.DocumentIDs) == 0 {
		http.Error(w, "at least one document is required", http.StatusUnprocessableEntity)
		return
	}

	b.mu.Lock()
	b.lastCreate = &req
	b.addChatLocked(req.SystemPrompt, req.Personality, req.DocumentIDs)
	created := *b.chats[len(b.chats)-1]
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, created)
}

func (b *Backend) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	b.mu.Lock()
	msgs, ok := b.messages[chatID]
	out := append([]message(nil), msgs...)
	b.mu.Unlock()

	if !ok {
		http.Error(w, "chat not found", http.StatusNotFound)
		return
	}
	if out == nil {
		out = []message{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.findChatLocked(req.ChatID)
	if c == nil {
		http.Error(w, "chat not found", http.StatusNotFound)
		return
	}
	b.lastSend = &req

	ts := b.now().UTC().Format(naiveLayout)
	sources := b.sourcesLocked(c)
	reply := fmt.Sprintf("Answer to: %s", req.Message)
	b.messages[c.ID] = append(b.messages[c.ID],
		message{ID: uuid.NewString(), Role: "user", Content: req.Message, CreatedAt: ts},
		message{ID: uuid.NewString(), Role: "assistant", Content: reply, Sources: sources, CreatedAt: ts},
	)
	b.replies++

	writeJSON(w, http.StatusOK, map[string]any{
		"content": reply,
		"sources": sources,
	})
}

// sourcesLocked builds citations for the chat's documents. Replies alternate
// between the bare-array and the wrapped-object payload shapes.
func (b *Backend) sourcesLocked(c *chat) json.RawMessage {
	var items []map[string]any
	for i, id := range c.documentIDs {
		d := b.findDocumentLocked(id)
		if d == nil {
			continue
		}
		if b.replies%2 == 0 {
			items = append(items, map[string]any{
				"citation_id": i + 1,
				"title":       d.Title,
				"page":        i + 1,
				"score":       0.9 - 0.1*float64(i),
				"content":     d.content,
			})
		} else {
			items = append(items, map[string]any{
				"document_name": d.Title,
				"chunk_index":   i,
				"hybrid_score":  0.8 - 0.1*float64(i),
				"content":       d.content,
			})
		}
	}
	if items == nil {
		items = []map[string]any{}
	}

	var payload any = items
	if b.replies%2 == 1 {
		payload = map[string]any{"sources": items}
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func (b *Backend) listDocuments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]document, 0, len(b.docs))
	for _, d := range b.docs {
		out = append(out, *d)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	id := b.addDocumentLocked(header.Filename, string(data))
	summary := b.docs[len(b.docs)-1].Summary
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":  id,
		"chunk_count":  len(data)/500 + 1,
		"storage_path": "uploads/" + id + "/" + header.Filename,
		"summary":      summary,
	})
}

func (b *Backend) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit := 5
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	b.mu.Lock()
	results := []map[string]any{}
	for _, d := range b.docs {
		if len(results) >= limit {
			break
		}
		if query == "" || !strings.Contains(strings.ToLower(d.content), strings.ToLower(query)) {
			continue
		}
		results = append(results, map[string]any{
			"chunk_index":    0,
			"hybrid_score":   0.5,
			"content":        d.content,
			"document_title": d.Title,
		})
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

// =============================================================================
// HELPERS
// =============================================================================

func (b *Backend) findChatLocked(id string) *chat {
	for _, c := range b.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *Backend) findDocumentLocked(id string) *document {
	for _, d := range b.docs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func summarize(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return string(runes)
}

func mimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	default:
		return "text/plain"
	}
}
