package citation_test

import (
	"strings"
	"testing"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnknownShapesYieldEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"absent", ""},
		{"null", "null"},
		{"number", "42"},
		{"string", `"sources"`},
		{"bool", "true"},
		{"empty object", "{}"},
		{"object without sources", `{"items":[{"title":"a"}]}`},
		{"sources not an array", `{"sources":{"title":"a"}}`},
		{"sources null", `{"sources":null}`},
		{"empty array", "[]"},
		{"invalid json", `[{"title":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := citation.NormalizeString(tt.raw)
			assert.Empty(t, got)
		})
	}
}

func TestNormalizeBothShapesAgree(t *testing.T) {
	items := `[{"title":"A","score":0.5},{"document_name":"B","hybrid_score":0.25}]`

	bare := citation.NormalizeString(items)
	wrapped := citation.NormalizeString(`{"sources":` + items + `,"query":"q"}`)

	require.Len(t, bare, 2)
	assert.Equal(t, bare, wrapped)
}

func TestNormalizePreservesOrderAndIndex(t *testing.T) {
	raw := `[
		{"title":"first"},
		{"title":"second","citation_id":7},
		{"title":"third","citation_id":"12"},
		{"title":"fourth","citation_id":0},
		{"title":"fifth","citation_id":"abc"}
	]`

	got := citation.NormalizeString(raw)
	require.Len(t, got, 5)

	wantTitles := []string{"first", "second", "third", "fourth", "fifth"}
	wantIndex := []int{1, 7, 12, 4, 5}
	for i, c := range got {
		assert.Equal(t, wantTitles[i], c.Title, "position %d", i)
		assert.Equal(t, wantIndex[i], c.Index, "position %d", i)
	}
}

func TestNormalizeTitleFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"title", `[{"title":"Report","document_name":"report.pdf"}]`, "Report"},
		{"document name", `[{"document_name":"report.pdf"}]`, "report.pdf"},
		{"empty title falls through", `[{"title":"","document_name":"report.pdf"}]`, "report.pdf"},
		{"nothing", `[{"content":"x"}]`, "Document"},
		{"non-object element", `[17]`, "Document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := citation.NormalizeString(tt.raw)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Title)
		})
	}
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLabel string
		wantPage  bool
		wantChunk bool
	}{
		{"numeric page", `[{"page":3}]`, "Page 3", true, false},
		{"string page", `[{"page":"iv"}]`, "Page iv", true, false},
		{"page wins over chunk", `[{"page":2,"chunk_index":9}]`, "Page 2", true, false},
		{"n/a sentinel hides page and chunk", `[{"page":"N/A","chunk_index":4}]`, "", false, false},
		{"absent page uses chunk", `[{"chunk_index":0}]`, "Chunk #1", false, true},
		{"null page uses chunk", `[{"page":null,"chunk_index":4}]`, "Chunk #5", false, true},
		{"nothing", `[{"title":"x"}]`, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := citation.NormalizeString(tt.raw)
			require.Len(t, got, 1)
			c := got[0]
			assert.Equal(t, tt.wantLabel, c.LocationLabel())
			assert.Equal(t, tt.wantPage, c.Page != nil)
			assert.Equal(t, tt.wantChunk, c.ChunkIndex != nil)
		})
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLabel string
	}{
		{"score", `[{"score":0.876}]`, "Relevance: 88%"},
		{"hybrid score", `[{"hybrid_score":0.5}]`, "Relevance: 50%"},
		{"score wins", `[{"score":0.1,"hybrid_score":0.9}]`, "Relevance: 10%"},
		{"zero score is present", `[{"score":0,"hybrid_score":0.9}]`, "Relevance: 0%"},
		{"null score falls through", `[{"score":null,"hybrid_score":0.333}]`, "Relevance: 33%"},
		{"missing", `[{"title":"x"}]`, ""},
		{"rounds half up", `[{"score":0.125}]`, "Relevance: 13%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := citation.NormalizeString(tt.raw)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantLabel, got[0].ScoreLabel())
		})
	}
}

func TestNormalizeContentPreview(t *testing.T) {
	short := strings.Repeat("a", citation.PreviewLen)
	long := strings.Repeat("b", citation.PreviewLen) + "tail"

	got := citation.NormalizeString(`[{"content":"` + short + `"},{"content":"` + long + `"},{"title":"none"}]`)
	require.Len(t, got, 3)

	assert.False(t, got[0].ContentTruncated)
	assert.Equal(t, short, got[0].Preview())
	assert.Equal(t, short, got[0].Text(false))

	assert.True(t, got[1].ContentTruncated)
	assert.Equal(t, strings.Repeat("b", citation.PreviewLen)+"...", got[1].Preview())
	assert.Equal(t, long, got[1].Text(true))
	assert.Equal(t, long, got[1].Content, "content must be kept verbatim")

	assert.False(t, got[2].HasContent)
	assert.Empty(t, got[2].Preview())
}

func TestPreviewCountsCharactersNotBytes(t *testing.T) {
	content := strings.Repeat("é", citation.PreviewLen)
	got := citation.NormalizeString(`[{"content":"` + content + `"}]`)
	require.Len(t, got, 1)
	assert.False(t, got[0].ContentTruncated)
}

func TestExpansion(t *testing.T) {
	var e citation.Expansion
	k := citation.Key{MessageID: "m1", Position: 0}
	other := citation.Key{MessageID: "m1", Position: 1}

	assert.False(t, e.Expanded(k))
	assert.True(t, e.Toggle(k))
	assert.True(t, e.Expanded(k))
	assert.False(t, e.Expanded(other), "expansion is per citation")
	assert.False(t, e.Toggle(k))

	e.Toggle(other)
	e.Reset()
	assert.False(t, e.Expanded(other))
}
