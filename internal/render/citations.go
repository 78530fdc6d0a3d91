package render

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/raphaelgruber/docchat/internal/citation"
)

// CitationHeader returns the one-line summary of a citation:
// "[N] Title · Page 3 · Relevance: 88%". Empty parts are left out.
func CitationHeader(c citation.Citation) string {
	parts := []string{c.Title}
	if loc := c.LocationLabel(); loc != "" {
		parts = append(parts, loc)
	}
	if score := c.ScoreLabel(); score != "" {
		parts = append(parts, score)
	}
	return "[" + strconv.Itoa(c.Index) + "] " + strings.Join(parts, " · ")
}

// CitationBody returns the content of a citation for the given expansion
// state, wrapped to width and indented, or "" when the source had no content.
func CitationBody(c citation.Citation, expanded bool, width int, indent string) string {
	if !c.HasContent {
		return ""
	}
	text := c.Text(expanded)
	if width > len(indent)+10 {
		text = Wrap(text, width-len(indent))
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}

// Wrap breaks s on spaces so no line is wider than width terminal cells.
// Words wider than width are left on their own line.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		var line strings.Builder
		lineWidth := 0
		for _, word := range strings.Fields(para) {
			w := runewidth.StringWidth(word)
			if lineWidth > 0 && lineWidth+1+w > width {
				out = append(out, line.String())
				line.Reset()
				lineWidth = 0
			}
			if lineWidth > 0 {
				line.WriteByte(' ')
				lineWidth++
			}
			line.WriteString(word)
			lineWidth += w
		}
		out = append(out, line.String())
	}
	return strings.Join(out, "\n")
}

// Pad fits s into exactly width terminal cells, truncating with "…".
func Pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
