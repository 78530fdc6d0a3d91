package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/raphaelgruber/docchat/internal/client"
	"github.com/raphaelgruber/docchat/internal/fakebackend"
	"github.com/raphaelgruber/docchat/internal/metrics"
	"github.com/raphaelgruber/docchat/internal/models"
)

func newTestClient(t *testing.T) (*client.Client, *fakebackend.Backend, *metrics.Collector) {
	t.Helper()
	backend := fakebackend.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	collector := metrics.NewCollector()
	c := client.New(srv.URL+"/", client.WithMetrics(collector))
	return c, backend, collector
}

func TestNewDefaults(t *testing.T) {
	c := client.New("")
	assert.Equal(t, client.DefaultBaseURL, c.BaseURL())

	c = client.New("http://example.com:9000/")
	assert.Equal(t, "http://example.com:9000", c.BaseURL())
}

func TestChatLifecycle(t *testing.T) {
	ctx := context.Background()
	c, backend, collector := newTestClient(t)
	docID := backend.AddDocument("guide.md", "Go channels are typed conduits.")

	chats, err := c.ListChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)

	chat, err := c.CreateChat(ctx, models.CreateChatInput{
		SystemPrompt:   "You are a tutor.",
		DocumentIDs:    []string{docID},
		LLMProvider:    models.ProviderOpenAI,
		LLMModel:       "gpt-4",
		LLMTemperature: 0.3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.Nil(t, chat.Personality)
	assert.False(t, chat.CreatedAt.IsZero(), "naive backend timestamps must parse")

	created, ok := backend.LastCreate()
	require.True(t, ok)
	assert.Equal(t, []string{docID}, created.DocumentIDs)
	assert.Nil(t, created.Personality, "empty personality is sent as null")

	result, err := c.SendMessage(ctx, models.SendMessageInput{
		ChatID:         chat.ID,
		Message:        "What are channels?",
		Stream:         true,
		LLMProvider:    models.ProviderAnthropic,
		LLMModel:       "claude-sonnet-4-20250514",
		LLMTemperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer to: What are channels?", result.Content)

	sent, ok := backend.LastSend()
	require.True(t, ok)
	assert.False(t, sent.Stream, "stream is always false")
	assert.Equal(t, models.ProviderAnthropic, sent.LLMProvider)
	assert.Equal(t, 0.2, sent.LLMTemperature)

	msgs, err := c.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.True(t, msgs[1].IsAssistant())

	cites := citation.Normalize(msgs[1].Sources)
	require.Len(t, cites, 1)
	assert.Equal(t, "guide.md", cites[0].Title)

	snap := collector.Snapshot()
	for _, op := range []string{metrics.OpListChats, metrics.OpCreateChat, metrics.OpSendMessage, metrics.OpListMessages} {
		s, ok := snap.Op(op)
		require.True(t, ok, op)
		assert.Equal(t, int64(1), s.Count, op)
	}
}

func TestAPIError(t *testing.T) {
	ctx := context.Background()
	c, backend, collector := newTestClient(t)
	backend.Fail(fakebackend.RouteListChats, http.StatusServiceUnavailable)

	_, err := c.ListChats(ctx)
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, metrics.OpListChats, apiErr.Op)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "injected failure")
	assert.True(t, client.IsStatus(err, http.StatusServiceUnavailable))
	assert.False(t, client.IsStatus(err, http.StatusNotFound))
	assert.False(t, client.IsStatus(errors.New("plain"), http.StatusServiceUnavailable))

	s, ok := collector.Snapshot().Op(metrics.OpListChats)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.Errors)
}

func TestListMessagesUnknownChat(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.ListMessages(context.Background(), "missing")
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := client.New(url)
	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), metrics.OpListDocuments+": "), err.Error())

	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestRequestIDHeader(t *testing.T) {
	c, backend, _ := newTestClient(t)
	_, err := c.ListDocuments(context.Background())
	require.NoError(t, err)

	first := backend.LastHeader(fakebackend.RouteListDocuments).Get(client.RequestIDHeader)
	assert.NotEmpty(t, first)

	_, err = c.ListDocuments(context.Background())
	require.NoError(t, err)
	second := backend.LastHeader(fakebackend.RouteListDocuments).Get(client.RequestIDHeader)
	assert.NotEqual(t, first, second)
}

func TestUploadAndSearch(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestClient(t)

	res, err := c.UploadDocument(ctx, "/tmp/notes.md", strings.NewReader("Retrieval augmented generation notes."))
	require.NoError(t, err)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, 1, res.ChunkCount)
	assert.True(t, strings.HasSuffix(res.StoragePath, "/notes.md"), "only the base name is uploaded")

	docs, err := c.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.md", docs[0].Title)
	assert.Equal(t, "text/markdown", docs[0].MimeType)

	found, err := c.Search(ctx, "augmented", 3)
	require.NoError(t, err)
	assert.Equal(t, "augmented", found.Query)
	require.Len(t, found.Results, 1)
	assert.Equal(t, "notes.md", found.Results[0].Title())

	none, err := c.Search(ctx, "kubernetes", 0)
	require.NoError(t, err)
	assert.Empty(t, none.Results)
}

func TestSendMessageToleratesOddResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"ok"`))
	}))
	t.Cleanup(srv.Close)

	res, err := client.New(srv.URL).SendMessage(context.Background(), models.SendMessageInput{ChatID: "c1", Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, res.Content)
}
