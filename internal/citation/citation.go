// Package citation normalizes the "sources" payload attached to assistant
// messages into a single renderable citation model.
//
// The backend has emitted several shapes over time: a bare array of source
// records, or an object wrapping that array under a "sources" key, with field
// names that vary between versions. Normalize is the only place that knows
// about those shapes; everything else works with []Citation.
package citation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// PreviewLen is the number of characters shown before a citation is expanded.
const PreviewLen = 150

// pageNotAvailable is the sentinel page value the backend uses for unpaged documents.
const pageNotAvailable = "N/A"

// defaultTitle is shown when a source carries no title.
const defaultTitle = "Document"

// Citation is a normalized reference to a retrieved passage.
type Citation struct {
	// Index is the citation number shown to the user.
	Index int
	Title string

	// Page is set only when the source has a usable page value.
	Page *string
	// ChunkIndex is set only when the source has no page field at all.
	ChunkIndex *int
	// Score is the relevance in [0,1], when known.
	Score *float64

	Content          string
	HasContent       bool
	ContentTruncated bool
}

// Normalize converts a raw sources payload into citations, preserving order.
// It never fails: unknown shapes yield nil and missing fields are omitted.
func Normalize(raw []byte) []Citation {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	return normalizeResult(gjson.ParseBytes(raw))
}

// NormalizeString is Normalize for string payloads.
func NormalizeString(raw string) []Citation {
	return Normalize([]byte(raw))
}

func normalizeResult(root gjson.Result) []Citation {
	items := unwrap(root)
	if len(items) == 0 {
		return nil
	}

	out := make([]Citation, 0, len(items))
	for i, item := range items {
		out = append(out, normalizeOne(item, i))
	}
	return out
}

// unwrap returns the citation array for the two known payload shapes.
func unwrap(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	if root.IsObject() {
		if inner := root.Get("sources"); inner.IsArray() {
			return inner.Array()
		}
	}
	return nil
}

func normalizeOne(item gjson.Result, pos int) Citation {
	c := Citation{
		Index: pos + 1,
		Title: defaultTitle,
	}
	if !item.IsObject() {
		return c
	}

	if id, ok := citationID(item.Get("citation_id")); ok {
		c.Index = id
	}

	if title := firstString(item, "title", "document_name"); title != "" {
		c.Title = title
	}

	page := item.Get("page")
	p, ok := pageValue(page)
	switch {
	case ok:
		c.Page = &p
	case page.Type == gjson.String && strings.TrimSpace(page.Str) == pageNotAvailable:
		// known to be unpaged; no chunk fallback
	default:
		if chunk := item.Get("chunk_index"); chunk.Type == gjson.Number {
			n := int(chunk.Int())
			c.ChunkIndex = &n
		}
	}

	if score, ok := firstNumber(item, "score", "hybrid_score"); ok {
		c.Score = &score
	}

	if content := item.Get("content"); content.Exists() && content.Type != gjson.Null {
		c.Content = content.String()
		c.HasContent = c.Content != ""
		c.ContentTruncated = utf8.RuneCountInString(c.Content) > PreviewLen
	}

	return c
}

// citationID accepts a positive number or numeric string.
func citationID(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		if n := int(v.Int()); n != 0 {
			return n, true
		}
	case gjson.String:
		if n, err := strconv.Atoi(strings.TrimSpace(v.Str)); err == nil && n != 0 {
			return n, true
		}
	}
	return 0, false
}

// pageValue renders a page field, rejecting null, empty and the N/A sentinel.
func pageValue(v gjson.Result) (string, bool) {
	var s string
	switch v.Type {
	case gjson.String:
		s = strings.TrimSpace(v.Str)
	case gjson.Number:
		s = v.Raw
	default:
		return "", false
	}
	if s == "" || s == pageNotAvailable {
		return "", false
	}
	return s, true
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// firstNumber returns the first key that is present with a numeric value.
func firstNumber(item gjson.Result, keys ...string) (float64, bool) {
	for _, k := range keys {
		v := item.Get(k)
		switch v.Type {
		case gjson.Number:
			return v.Float(), true
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Preview returns the collapsed form of the content: the first PreviewLen
// characters followed by "..." when the content is longer. The cut is not
// word-aware.
func (c Citation) Preview() string {
	if !c.ContentTruncated {
		return c.Content
	}
	runes := []rune(c.Content)
	return string(runes[:PreviewLen]) + "..."
}

// Text returns the content to display for the given expansion state.
func (c Citation) Text(expanded bool) string {
	if expanded {
		return c.Content
	}
	return c.Preview()
}

// LocationLabel returns "Page N", "Chunk #N" or "".
func (c Citation) LocationLabel() string {
	switch {
	case c.Page != nil:
		return "Page " + *c.Page
	case c.ChunkIndex != nil:
		return fmt.Sprintf("Chunk #%d", *c.ChunkIndex+1)
	default:
		return ""
	}
}

// ScorePercent returns the score as a whole percentage.
func (c Citation) ScorePercent() (int, bool) {
	if c.Score == nil {
		return 0, false
	}
	return int(math.Round(*c.Score * 100)), true
}

// ScoreLabel returns "Relevance: N%" or "".
func (c Citation) ScoreLabel() string {
	pct, ok := c.ScorePercent()
	if !ok {
		return ""
	}
	return fmt.Sprintf("Relevance: %d%%", pct)
}
