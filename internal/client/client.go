// Package client provides an HTTP client for the docchat backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/docchat/internal/metrics"
	"github.com/raphaelgruber/docchat/internal/models"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 10 * time.Second

// RequestIDHeader carries a per-request id so client and backend logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// Client is an HTTP client for the docchat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records the duration of every request into collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// New creates a new backend client.
// If baseURL is empty, DefaultBaseURL is used. Requests have no timeout
// unless WithTimeout or WithHTTPClient says otherwise.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: server error: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: server error: %d %s - %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), body)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// request describes a single backend call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	contentType string
	body        io.Reader
}

// do sends req and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", req.op, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	body, err := c.roundTrip(httpReq, req.op)
	elapsed := time.Since(start)
	c.metrics.RecordRequest(req.op, elapsed, err)

	attrs := []any{
		"op", req.op,
		"request_id", requestID,
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			attrs = append(attrs, "status", apiErr.StatusCode)
		}
		c.logger.Warn("backend request failed", append(attrs, "error", err)...)
		return nil, err
	}
	if elapsed > slowRequestThreshold {
		c.logger.Warn("slow backend request", attrs...)
	} else {
		c.logger.Debug("backend request", attrs...)
	}
	return body, nil
}

func (c *Client) roundTrip(httpReq *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: execute request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, result any) error {
	body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}
	return c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        bytes.NewReader(reqBody),
	})
}

// =============================================================================
// CHATS
// =============================================================================

// ListChats returns every chat known to the backend.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.getJSON(ctx, metrics.OpListChats, "/chat/", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat creates a chat bound to input.DocumentIDs.
func (c *Client) CreateChat(ctx context.Context, input models.CreateChatInput) (models.Chat, error) {
	if input.DocumentIDs == nil {
		input.DocumentIDs = []string{}
	}
	body, err := c.postJSON(ctx, metrics.OpCreateChat, "/chat/", input)
	if err != nil {
		return models.Chat{}, err
	}

	var chat models.Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return models.Chat{}, fmt.Errorf("%s: unmarshal response: %w", metrics.OpCreateChat, err)
	}
	return chat, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages returns the transcript of a chat in backend order.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	path := "/chat/" + url.PathEscape(chatID) + "/messages"
	var msgs []models.Message
	if err := c.getJSON(ctx, metrics.OpListMessages, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts a user message. The backend appends the assistant reply
// to the transcript; the returned result is decoded leniently and may be
// empty when the backend answers with an unexpected shape.
func (c *Client) SendMessage(ctx context.Context, input models.SendMessageInput) (models.SendResult, error) {
	input.Stream = false
	body, err := c.postJSON(ctx, metrics.OpSendMessage, "/chat/message", input)
	if err != nil {
		return models.SendResult{}, err
	}

	var result models.SendResult
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			c.logger.Debug("ignoring undecodable send response", "chat_id", input.ChatID, "error", err)
			return models.SendResult{}, nil
		}
	}
	return result, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// ListDocuments returns every ingested document.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := c.getJSON(ctx, metrics.OpListDocuments, "/docs/", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UploadDocument posts r as a multipart file named filename.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: create form file: %w", metrics.OpUpload, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: copy file: %w", metrics.OpUpload, err)
	}
	if err := mw.Close(); err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: close form: %w", metrics.OpUpload, err)
	}

	body, err := c.do(ctx, request{
		op:          metrics.OpUpload,
		method:      http.MethodPost,
		path:        "/upload/",
		contentType: mw.FormDataContentType(),
		body:        &buf,
	})
	if err != nil {
		return models.UploadResult{}, err
	}

	var result models.UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: unmarshal response: %w", metrics.OpUpload, err)
	}
	return result, nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search runs a keyword search across all documents. A limit <= 0 leaves the
// result count to the backend.
func (c *Client) Search(ctx context.Context, query string, limit int) (models.SearchResponse, error) {
	q := url.Values{"query": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp models.SearchResponse
	if err := c.getJSON(ctx, metrics.OpSearch, "/search/", q, &resp); err != nil {
		return models.SearchResponse{}, err
	}
	return resp, nil
}
