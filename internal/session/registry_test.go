package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/session"
)

func TestRegistrySelect(t *testing.T) {
	api := &stubAPI{chats: []models.Chat{{ID: "a"}, {ID: "b"}}}
	r := session.NewRegistry(api, nil)

	_, ok := r.Select("a")
	assert.False(t, ok, "nothing is selectable before the first load")

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	tests := []struct {
		id     string
		wantOK bool
	}{
		{"a", true},
		{"b", true},
		{"X", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("id="+tt.id, func(t *testing.T) {
			c, ok := r.Select(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.id, c.ID)
			}
		})
	}
}

func TestRegistrySelectionFollowsRefresh(t *testing.T) {
	api := &stubAPI{chats: []models.Chat{{ID: "a"}}}
	r := session.NewRegistry(api, nil)
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	_, ok := r.Select("b")
	assert.False(t, ok)

	api.chats = append(api.chats, models.Chat{ID: "b"})
	r.MarkStale()
	assert.True(t, r.Stale())
	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Stale())

	_, ok = r.Select("b")
	assert.True(t, ok)
}

func TestRegistryFailedRefreshKeepsList(t *testing.T) {
	api := &stubAPI{chats: []models.Chat{{ID: "a"}}}
	r := session.NewRegistry(api, nil)
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	api.chatsErr = errBackend
	chats, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, errBackend)
	assert.Len(t, chats, 1)
	assert.ErrorIs(t, r.Err(), errBackend)

	_, ok := r.Select("a")
	assert.True(t, ok)
}

func TestDocumentStore(t *testing.T) {
	api := &stubAPI{docs: []models.Document{{ID: "d1"}, {ID: "d2"}}}
	s := session.NewDocumentStore(api, nil)
	assert.Zero(t, s.Len())

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, s.IDs())

	api.docsErr = errBackend
	_, err = s.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, s.Len(), "failed refresh keeps the collection")
}

func TestCheckFileType(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"report.pdf", false},
		{"NOTES.MD", false},
		{"draft.docx", false},
		{"legacy.doc", false},
		{"plain.txt", false},
		{"image.png", true},
		{"archive.tar.gz", true},
		{"no-extension", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := session.CheckFileType(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, session.ErrUnsupportedFileType)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
