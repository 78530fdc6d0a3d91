package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/raphaelgruber/docchat/internal/client"
	"github.com/raphaelgruber/docchat/internal/fakebackend"
	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/session"
)

func newBackendSession(t *testing.T) (*session.Session, *fakebackend.Backend) {
	s, backend, _ := newBackendSessionWithClient(t)
	return s, backend
}

func newBackendSessionWithClient(t *testing.T) (*session.Session, *fakebackend.Backend, *client.Client) {
	t.Helper()
	backend := fakebackend.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	api := client.New(srv.URL)
	return session.New(api, nil), backend, api
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	s, backend, api := newBackendSessionWithClient(t)

	// Empty backend: creation is unavailable.
	require.NoError(t, s.Mount(ctx))
	assert.Empty(t, s.Chats.Chats())
	assert.Zero(t, s.Documents.Len())
	assert.False(t, s.CanCreateChat())

	// Upload one document.
	path := filepath.Join(t.TempDir(), "handbook.md")
	require.NoError(t, os.WriteFile(path, []byte("The onboarding handbook explains the review process."), 0o600))
	up, err := s.Upload(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Documents.Len())
	assert.True(t, s.CanCreateChat())

	// Defaults select that one document.
	s.OpenCreation()
	assert.Equal(t, []string{up.DocumentID}, s.Creation.SelectedIDs())

	chat, err := s.CreateChat(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.False(t, s.Creation.IsOpen())
	assert.Equal(t, chat.ID, s.ActiveChatID())

	selected, ok := s.ActiveChat()
	require.True(t, ok, "registry refresh must include the new chat")
	assert.Equal(t, chat.ID, selected.ID)
	assert.Equal(t, "friendly", selected.PersonalityName())

	created, _ := backend.LastCreate()
	assert.Equal(t, models.DefaultModel, created.LLMModel)

	// Send "hello".
	require.NoError(t, s.LoadMessages(ctx))
	assert.Empty(t, s.Messages.Messages())

	tokenBefore := s.RefreshToken()
	s.Composer.SetDraft("hello")
	req, err := s.Composer.Begin(s.ActiveChatID())
	require.NoError(t, err)
	assert.Empty(t, s.Composer.Draft(), "draft clears immediately")

	_, sendErr := api.SendMessage(ctx, req.Input())
	s.Composer.Finish(sendErr)
	require.NoError(t, sendErr)
	s.BumpRefresh()
	assert.Equal(t, tokenBefore+1, s.RefreshToken())

	require.NoError(t, s.LoadMessages(ctx))
	msgs := s.Messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.True(t, msgs[1].IsAssistant())
	assert.NotEmpty(t, msgs[1].Content)

	cites := citation.Normalize(msgs[1].Sources)
	require.Len(t, cites, 1)
	assert.Equal(t, "handbook.md", cites[0].Title)
}

func TestSessionSendReloadsTranscript(t *testing.T) {
	ctx := context.Background()
	s, backend := newBackendSession(t)
	docID := backend.AddDocument("a.txt", "alpha")
	chatID := backend.AddChat("You are a tutor.", "", docID)
	require.NoError(t, s.Mount(ctx))

	s.Navigate(chatID)
	require.NoError(t, s.LoadMessages(ctx))

	s.Composer.SetDraft("first")
	_, err := s.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.RefreshToken())
	assert.Len(t, s.Messages.Messages(), 2)

	// Second reply arrives in the wrapped sources shape.
	s.Composer.SetDraft("second")
	_, err = s.Send(ctx)
	require.NoError(t, err)
	msgs := s.Messages.Messages()
	require.Len(t, msgs, 4)
	cites := citation.Normalize(msgs[3].Sources)
	require.Len(t, cites, 1)
	assert.Equal(t, "a.txt", cites[0].Title)
	assert.Equal(t, "Chunk #1", cites[0].LocationLabel())
}

func TestSessionSendFailureRestoresDraft(t *testing.T) {
	ctx := context.Background()
	s, backend := newBackendSession(t)
	docID := backend.AddDocument("a.txt", "alpha")
	chatID := backend.AddChat("p", "", docID)
	require.NoError(t, s.Mount(ctx))
	s.Navigate(chatID)

	backend.Fail(fakebackend.RouteSendMessage, http.StatusInternalServerError)
	s.Composer.SetDraft("keep me ")
	_, err := s.Send(ctx)
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, "keep me ", s.Composer.Draft())
	assert.Equal(t, 0, s.RefreshToken())
}

func TestSessionMountPartialFailure(t *testing.T) {
	ctx := context.Background()
	s, backend := newBackendSession(t)
	backend.AddDocument("a.txt", "alpha")
	backend.AddChat("p", "", "x")
	backend.Fail(fakebackend.RouteListChats, http.StatusBadGateway)

	err := s.Mount(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load chats")
	assert.False(t, s.Chats.Loaded())
	assert.Equal(t, 1, s.Documents.Len(), "documents load independently")

	backend.Recover(fakebackend.RouteListChats)
	require.NoError(t, s.Mount(ctx))
	assert.Len(t, s.Chats.Chats(), 1)
}

func TestSessionNavigateUnknownChat(t *testing.T) {
	ctx := context.Background()
	s, backend := newBackendSession(t)
	backend.AddChat("p", "", "x")
	require.NoError(t, s.Mount(ctx))

	s.Navigate("X")
	_, ok := s.ActiveChat()
	assert.False(t, ok)
}

func TestSessionSendRejectsUnknownChat(t *testing.T) {
	ctx := context.Background()
	s, backend := newBackendSession(t)
	backend.AddChat("p", "", "x")
	require.NoError(t, s.Mount(ctx))

	s.Navigate("X")
	s.Composer.SetDraft("hello")
	_, err := s.Send(ctx)
	require.ErrorIs(t, err, session.ErrNoActiveChat)
	assert.Equal(t, 0, backend.Calls(fakebackend.RouteSendMessage))
	assert.Equal(t, "hello", s.Composer.Draft())
	assert.Equal(t, session.Idle, s.Composer.State())
}

func TestSessionNavigateResetsView(t *testing.T) {
	s := session.New(&stubAPI{}, nil)
	s.Navigate("c1")
	s.Composer.SetDraft("half-typed")
	require.NoError(t, s.Composer.SetProvider(models.ProviderAnthropic))

	s.Navigate("c1")
	assert.Equal(t, "half-typed", s.Composer.Draft(), "re-navigating to the active chat keeps the view")

	s.Navigate("c2")
	assert.Empty(t, s.Composer.Draft())
	assert.Equal(t, models.ProviderOpenAI, s.Composer.Provider())
}

func TestSessionUploadRejectsUnsupportedType(t *testing.T) {
	api := &stubAPI{}
	s := session.New(api, nil)

	_, err := s.Upload(context.Background(), "/nonexistent/picture.png")
	require.ErrorIs(t, err, session.ErrUnsupportedFileType)
	assert.Equal(t, 0, api.uploadCalls)
}

func TestSessionWithDefaults(t *testing.T) {
	s := session.New(&stubAPI{}, nil, session.WithDefaults(session.Defaults{
		Provider:    models.ProviderAnthropic,
		Model:       "claude-sonnet-4-20250514",
		Temperature: 0.1,
	}))
	assert.Equal(t, models.ProviderAnthropic, s.Composer.Provider())

	s.Creation.Open([]models.Document{{ID: "d1"}})
	assert.Equal(t, 0.1, s.Creation.Draft().Temperature)
}

func TestSessionSubmitCreation(t *testing.T) {
	api := &stubAPI{docs: []models.Document{{ID: "d1"}}}
	s := session.New(api, nil)
	require.NoError(t, s.Mount(context.Background()))

	s.OpenCreation()
	input, err := s.Creation.Begin()
	require.NoError(t, err)

	chat, err := s.SubmitCreation(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "new-chat", chat.ID)
	assert.True(t, s.Chats.Stale())
	assert.False(t, s.Creation.IsOpen())

	_, err = s.SubmitCreation(context.Background(), input)
	assert.ErrorIs(t, err, session.ErrCreationClosed, "a settled creation cannot be finished twice")
}
