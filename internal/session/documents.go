package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/raphaelgruber/docchat/internal/models"
)

// DocumentAPI lists and uploads documents.
type DocumentAPI interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UploadDocument(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error)
}

// UploadExtensions lists the file extensions the backend ingests.
var UploadExtensions = []string{".pdf", ".docx", ".doc", ".txt", ".md"}

// CheckFileType returns ErrUnsupportedFileType unless name has an accepted extension.
func CheckFileType(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range UploadExtensions {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedFileType, filepath.Base(name), strings.Join(UploadExtensions, " "))
}

// DocumentStore is the process-wide document collection.
// Refresh is its only mutator.
type DocumentStore struct {
	api    DocumentAPI
	logger *slog.Logger

	mu     sync.Mutex
	docs   []models.Document
	loaded bool
	err    error
}

// NewDocumentStore creates an empty store.
func NewDocumentStore(api DocumentAPI, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{api: api, logger: logger}
}

// Refresh replaces the collection with the backend's. On failure the previous
// collection is kept.
func (s *DocumentStore) Refresh(ctx context.Context) ([]models.Document, error) {
	docs, err := s.api.ListDocuments(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.err = err
		s.logger.Warn("failed to load documents", "error", err)
		return append([]models.Document(nil), s.docs...), err
	}

	s.docs = docs
	s.loaded = true
	s.err = nil
	s.logger.Debug("documents loaded", "count", len(docs))
	return append([]models.Document(nil), docs...), nil
}

// Upload validates the file type, posts r and refreshes the collection.
// A failed refresh after a successful upload is logged, not returned.
func (s *DocumentStore) Upload(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	if err := CheckFileType(filename); err != nil {
		return models.UploadResult{}, err
	}

	res, err := s.api.UploadDocument(ctx, filename, r)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("upload %s: %w", filepath.Base(filename), err)
	}
	s.logger.Info("document uploaded", "document_id", res.DocumentID, "chunks", res.ChunkCount)

	_, _ = s.Refresh(ctx)
	return res, nil
}

// Documents returns a copy of the collection in backend order.
func (s *DocumentStore) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.docs...)
}

// IDs returns the ids of all documents in backend order.
func (s *DocumentStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.docs))
	for i, d := range s.docs {
		ids[i] = d.ID
	}
	return ids
}

// Len returns the number of known documents.
func (s *DocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Loaded reports whether at least one refresh succeeded.
func (s *DocumentStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Err returns the error of the most recent failed refresh, cleared on success.
func (s *DocumentStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
