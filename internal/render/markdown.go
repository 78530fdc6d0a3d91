// Package render turns transcripts and citations into terminal text. It is
// shared by the one-shot commands and the interactive UI.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWrap is the word-wrap width used when the terminal width is unknown.
const DefaultWrap = 80

// Markdown renders assistant replies with glamour. Renderers are built lazily
// per width; when glamour fails the input is returned unchanged.
type Markdown struct {
	mu    sync.Mutex
	style string
	width int
	r     *glamour.TermRenderer
	off   bool
}

// NewMarkdown creates a renderer. An empty style selects the terminal's
// background automatically; inside a full-screen program pass "dark" or
// "light" since the terminal cannot be queried there.
func NewMarkdown(style string, width int) *Markdown {
	if width <= 0 {
		width = DefaultWrap
	}
	return &Markdown{style: style, width: width}
}

// Plain returns a renderer that passes text through untouched.
func Plain() *Markdown {
	return &Markdown{off: true}
}

// SetWidth changes the wrap width. The next Render rebuilds the renderer.
func (m *Markdown) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width <= 0 || width == m.width {
		return
	}
	m.width = width
	m.r = nil
}

// Render formats s as markdown.
func (m *Markdown) Render(s string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.off || strings.TrimSpace(s) == "" {
		return s
	}
	if m.r == nil {
		r, err := m.build()
		if err != nil {
			m.off = true
			return s
		}
		m.r = r
	}
	out, err := m.r.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

func (m *Markdown) build() (*glamour.TermRenderer, error) {
	style := glamour.WithAutoStyle()
	if m.style != "" {
		style = glamour.WithStylePath(m.style)
	}
	return glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(m.width),
	)
}
