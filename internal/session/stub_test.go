package session_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/raphaelgruber/docchat/internal/models"
)

var errBackend = errors.New("backend unavailable")

// stubAPI is a hand-rolled backend whose answers are set per test.
type stubAPI struct {
	mu sync.Mutex

	chats    []models.Chat
	chatsErr error
	docs     []models.Document
	docsErr  error

	messages    map[string][]models.Message
	messagesErr error

	sendErr   error
	sendCalls int
	lastSend  models.SendMessageInput

	createErr   error
	createCalls int
	lastCreate  models.CreateChatInput

	uploadCalls int
}

func (s *stubAPI) ListChats(ctx context.Context) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatsErr != nil {
		return nil, s.chatsErr
	}
	return append([]models.Chat(nil), s.chats...), nil
}

func (s *stubAPI) CreateChat(ctx context.Context, input models.CreateChatInput) (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.lastCreate = input
	if s.createErr != nil {
		return models.Chat{}, s.createErr
	}
	c := models.Chat{ID: "new-chat", SystemPrompt: input.SystemPrompt, Personality: input.Personality}
	s.chats = append(s.chats, c)
	return c, nil
}

func (s *stubAPI) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messagesErr != nil {
		return nil, s.messagesErr
	}
	return append([]models.Message(nil), s.messages[chatID]...), nil
}

func (s *stubAPI) SendMessage(ctx context.Context, input models.SendMessageInput) (models.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendCalls++
	s.lastSend = input
	if s.sendErr != nil {
		return models.SendResult{}, s.sendErr
	}
	return models.SendResult{Content: "ok"}, nil
}

func (s *stubAPI) ListDocuments(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docsErr != nil {
		return nil, s.docsErr
	}
	return append([]models.Document(nil), s.docs...), nil
}

func (s *stubAPI) UploadDocument(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadCalls++
	s.docs = append(s.docs, models.Document{ID: "uploaded", Title: filename})
	return models.UploadResult{DocumentID: "uploaded", ChunkCount: 1}, nil
}

func (s *stubAPI) Search(ctx context.Context, query string, limit int) (models.SearchResponse, error) {
	return models.SearchResponse{Query: query}, nil
}

func (s *stubAPI) sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendCalls
}
