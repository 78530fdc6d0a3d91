package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/session"
)

func twoDocs() []models.Document {
	return []models.Document{
		{ID: "d1", Title: "alpha.pdf"},
		{ID: "d2", Title: "beta.md"},
	}
}

func TestCreationOpenDefaults(t *testing.T) {
	f := session.NewCreationFlow(nil, session.DefaultModelConfig())
	assert.False(t, f.IsOpen())
	assert.False(t, f.CanSubmit())

	f.Open(twoDocs())
	d := f.Draft()
	assert.Equal(t, "You are a helpful AI research assistant.", d.SystemPrompt)
	assert.Equal(t, "friendly", d.Personality)
	assert.Equal(t, models.ProviderOpenAI, d.Provider)
	assert.Equal(t, "gpt-4-turbo-preview", d.Model)
	assert.Equal(t, 0.7, d.Temperature)
	assert.Equal(t, []string{"d1", "d2"}, f.SelectedIDs(), "every document is selected by default")
	assert.True(t, f.CanSubmit())
	assert.Equal(t, "Create Chat with 2 Documents", f.SubmitLabel())
}

func TestCreationEmptySelectionCannotSubmit(t *testing.T) {
	api := &stubAPI{}
	f := session.NewCreationFlow(nil, session.DefaultModelConfig())
	f.Open(twoDocs())

	assert.False(t, f.ToggleDocument("d1"))
	assert.Equal(t, "Create Chat with 1 Document", f.SubmitLabel())
	assert.False(t, f.ToggleDocument("d2"))
	assert.False(t, f.CanSubmit())

	_, err := f.Submit(context.Background(), api)
	require.ErrorIs(t, err, session.ErrNoDocumentsSelected)
	assert.Equal(t, 0, api.createCalls)
	assert.True(t, f.IsOpen())

	f.SelectAllDocuments()
	assert.True(t, f.CanSubmit())
	f.ClearSelection()
	assert.Empty(t, f.SelectedIDs())
}

func TestCreationNoDocumentsOffered(t *testing.T) {
	f := session.NewCreationFlow(nil, session.DefaultModelConfig())
	f.Open(nil)
	assert.False(t, f.CanSubmit())
	_, err := f.Begin()
	assert.ErrorIs(t, err, session.ErrNoDocumentsSelected)
}

func TestCreationProviderResetsModel(t *testing.T) {
	f := session.NewCreationFlow(nil, session.DefaultModelConfig())
	f.Open(twoDocs())

	require.NoError(t, f.SetModel("gpt-3.5-turbo"))
	require.NoError(t, f.SetProvider(models.ProviderOpenAI))
	assert.Equal(t, "gpt-3.5-turbo", f.Draft().Model, "same provider keeps the model")
	require.NoError(t, f.SetProvider(models.ProviderAnthropic))
	assert.Equal(t, "claude-sonnet-4-20250514", f.Draft().Model)
	assert.ErrorIs(t, f.SetProvider("cohere"), session.ErrUnknownProvider)
	assert.ErrorIs(t, f.SetPersonality("grumpy"), session.ErrUnknownPersonality)
}

func TestCreationSubmitSuccess(t *testing.T) {
	api := &stubAPI{}
	reg := session.NewRegistry(api, nil)
	f := session.NewCreationFlow(reg, session.DefaultModelConfig())
	f.Open(twoDocs())

	require.NoError(t, f.SetPreset(2))
	f.ToggleDocument("d1")
	require.NoError(t, f.SetPersonality(""))
	f.SetTemperature(0.25)

	chat, err := f.Submit(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, "new-chat", chat.ID)
	assert.False(t, f.IsOpen())
	assert.True(t, reg.Stale())

	sent := api.lastCreate
	assert.Equal(t, models.RolePresets[2].Prompt, sent.SystemPrompt)
	assert.Nil(t, sent.Personality, "cleared personality is sent as null")
	assert.Equal(t, []string{"d2"}, sent.DocumentIDs)
	assert.Equal(t, 0.25, sent.LLMTemperature)
}

func TestCreationSubmitFailureKeepsDraft(t *testing.T) {
	api := &stubAPI{createErr: errBackend}
	reg := session.NewRegistry(api, nil)
	f := session.NewCreationFlow(reg, session.DefaultModelConfig())
	f.Open(twoDocs())
	f.SetSystemPrompt("You review contracts.")
	f.ToggleDocument("d2")

	_, err := f.Submit(context.Background(), api)
	require.ErrorIs(t, err, errBackend)

	assert.True(t, f.IsOpen())
	assert.False(t, f.Creating())
	assert.ErrorIs(t, f.Err(), errBackend)
	assert.Equal(t, "You review contracts.", f.Draft().SystemPrompt)
	assert.Equal(t, []string{"d1"}, f.SelectedIDs())
	assert.False(t, reg.Stale())
}

func TestCreationBeginBlocksDuplicates(t *testing.T) {
	f := session.NewCreationFlow(nil, session.DefaultModelConfig())
	f.Open(twoDocs())

	req, err := f.Begin()
	require.NoError(t, err)
	assert.False(t, f.CanSubmit())
	_, err = f.Begin()
	assert.ErrorIs(t, err, session.ErrCreateInFlight)

	id, err := f.Finish(req, models.Chat{ID: "c9"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "c9", id)
}

func TestCreationReopenAbandonsSubmission(t *testing.T) {
	api := &stubAPI{}
	reg := session.NewRegistry(api, nil)
	f := session.NewCreationFlow(reg, session.DefaultModelConfig())
	f.Open(twoDocs())
	old, err := f.Begin()
	require.NoError(t, err)

	f.Close()
	f.Open(twoDocs())
	assert.True(t, f.IsOpen())
	assert.False(t, f.Creating())
	assert.True(t, f.CanSubmit(), "the new draft is not blocked by the old submission")

	id, err := f.Finish(old, models.Chat{ID: "c1"}, nil)
	require.ErrorIs(t, err, session.ErrCreationAbandoned)
	assert.Empty(t, id)
	assert.True(t, f.IsOpen(), "the new draft stays open")
	assert.True(t, reg.Stale(), "the chat still exists on the backend")

	current, err := f.Begin()
	require.NoError(t, err)
	id, err = f.Finish(current, models.Chat{ID: "c2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "c2", id)
	assert.False(t, f.IsOpen())
}
