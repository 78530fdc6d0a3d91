// Package tui is the interactive terminal interface: a chat list with the
// document library, the chat view with its composer and citations, the chat
// creation form and the upload prompt.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/render"
	"github.com/raphaelgruber/docchat/internal/session"
)

type screen int

const (
	screenHome screen = iota
	screenChat
	screenCreate
	screenUpload
)

type chatFocus int

const (
	focusComposer chatFocus = iota
	focusTranscript
)

// Rows of the creation form. Document rows follow rowDocuments.
const (
	rowPreset = iota
	rowPrompt
	rowPersonality
	rowProvider
	rowModel
	rowTemperature
	rowDocuments
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// chatChrome is the number of lines around the transcript in the chat view.
	chatChrome = 8
)

// Options configures the interface.
type Options struct {
	// ChatID opens this chat once the chat list has loaded.
	ChatID string
	Logger *slog.Logger
	// Now is the clock used for relative timestamps.
	Now func() time.Time
}

// Model is the bubbletea model of the interface.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	logger *slog.Logger
	theme  Theme
	md     *render.Markdown
	now    func() time.Time

	screen  screen
	width   int
	height  int
	mounted bool
	// pendingChat is opened after mount.
	pendingChat string

	chatCursor int

	composer    textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	focus       chatFocus
	citeCursor  int
	renderedRev int

	formRow     int
	promptInput textinput.Model

	pathInput textinput.Model
	uploading bool

	status    string
	statusErr bool
	statusSeq int
	quitting  bool
}

// New creates the interface model for sess.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	composer := textinput.New()
	composer.Prompt = "> "
	composer.Placeholder = "Ask a question about your documents..."
	composer.CharLimit = 4000

	promptInput := textinput.New()
	promptInput.Prompt = ""
	promptInput.CharLimit = 1000

	pathInput := textinput.New()
	pathInput.Prompt = "File: "
	pathInput.Placeholder = "./report.pdf"

	m := Model{
		ctx:         ctx,
		sess:        sess,
		logger:      logger,
		theme:       defaultTheme,
		md:          render.NewMarkdown("dark", defaultWidth-4),
		now:         now,
		width:       defaultWidth,
		height:      defaultHeight,
		pendingChat: opts.ChatID,
		composer:    composer,
		promptInput: promptInput,
		pathInput:   pathInput,
		viewport:    viewport.New(viewport.WithWidth(defaultWidth), viewport.WithHeight(defaultHeight-chatChrome)),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		renderedRev: -1,
	}
	m.layout()
	return m
}

// Init loads chats and documents.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		mountCmd(m.ctx, m.sess),
		m.spinner.Tick,
	)
}

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshTranscript()
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.screen {
		case screenChat:
			return m.updateChat(msg)
		case screenCreate:
			return m.updateCreate(msg)
		case screenUpload:
			return m.updateUpload(msg)
		default:
			return m.updateHome(msg)
		}

	case mountedMsg:
		m.mounted = true
		m.clampChatCursor()
		var cmd tea.Cmd
		if msg.err != nil {
			cmd = m.setError("Could not reach the backend", msg.err)
		}
		if id := m.pendingChat; id != "" {
			m.pendingChat = ""
			var open tea.Cmd
			m, open = m.openChat(id)
			return m, tea.Batch(cmd, open)
		}
		return m, cmd

	case chatsRefreshedMsg:
		m.clampChatCursor()
		if msg.err != nil {
			return m, m.setError("Refresh failed", msg.err)
		}
		return m, m.setStatus("Refreshed")

	case messagesMsg:
		applied := m.sess.Messages.Apply(msg.ticket, msg.msgs, msg.err)
		m.refreshTranscript()
		if applied && msg.err != nil {
			return m, m.setError("Failed to load messages", msg.err)
		}
		return m, nil

	case sentMsg:
		if msg.req.ChatID != m.sess.ActiveChatID() {
			return m, nil
		}
		if msg.err != nil {
			m.composer.SetValue(m.sess.Composer.Draft())
			m.composer.CursorEnd()
			m.refreshTranscript()
			return m, m.setError("Message not sent", msg.err)
		}
		m.sess.BumpRefresh()
		m.refreshTranscript()
		return m, m.loadMessages()

	case createdMsg:
		if errors.Is(msg.err, session.ErrCreationAbandoned) {
			return m, nil
		}
		if msg.err != nil {
			return m, m.setError("Could not create chat", msg.err)
		}
		var cmd tea.Cmd
		m, cmd = m.openChat(msg.chat.ID)
		return m, tea.Batch(cmd, m.setStatus("Chat created"))

	case uploadedMsg:
		m.uploading = false
		if msg.err != nil {
			return m, m.setError("Upload failed", msg.err)
		}
		m.screen = screenHome
		m.pathInput.Blur()
		return m, m.setStatus(fmt.Sprintf("Uploaded %s (%d chunks)", msg.path, msg.result.ChunkCount))

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and other input-internal messages.
	var cmd tea.Cmd
	switch m.screen {
	case screenChat:
		m.composer, cmd = m.composer.Update(msg)
	case screenCreate:
		m.promptInput, cmd = m.promptInput.Update(msg)
	case screenUpload:
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// Home
// =============================================================================

func (m Model) updateHome(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	chats := m.sess.Chats.Chats()

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.chatCursor > 0 {
			m.chatCursor--
		}
	case "down", "j":
		if m.chatCursor < len(chats)-1 {
			m.chatCursor++
		}
	case "enter":
		if len(chats) == 0 {
			return m, nil
		}
		return m.openChat(chats[m.chatCursor].ID)
	case "n":
		if !m.sess.CanCreateChat() {
			return m, m.setError("Upload a document before creating a chat", nil)
		}
		m.sess.OpenCreation()
		m.screen = screenCreate
		m.formRow = rowPreset
		m.promptInput.SetValue(m.sess.Creation.Draft().SystemPrompt)
		m.promptInput.Blur()
	case "u":
		m.screen = screenUpload
		m.pathInput.Reset()
		return m, m.pathInput.Focus()
	case "r":
		return m, refreshCmd(m.ctx, m.sess)
	}
	return m, nil
}

func (m *Model) clampChatCursor() {
	n := len(m.sess.Chats.Chats())
	if m.chatCursor >= n {
		m.chatCursor = n - 1
	}
	if m.chatCursor < 0 {
		m.chatCursor = 0
	}
}

// =============================================================================
// Chat
// =============================================================================

// openChat navigates to chatID and starts loading its transcript.
func (m Model) openChat(chatID string) (Model, tea.Cmd) {
	m.sess.Navigate(chatID)
	m.screen = screenChat
	m.focus = focusComposer
	m.citeCursor = 0
	m.renderedRev = -1

	for i, c := range m.sess.Chats.Chats() {
		if c.ID == chatID {
			m.chatCursor = i
		}
	}

	m.composer.Reset()
	m.composer.SetValue(m.sess.Composer.Draft())
	focusCmd := m.composer.Focus()
	m.refreshTranscript()
	return m, tea.Batch(m.loadMessages(), focusCmd)
}

// loadMessages starts a transcript fetch when the current ticket is owed one.
// Nothing is fetched for a chat id the registry does not know.
func (m Model) loadMessages() tea.Cmd {
	if _, ok := m.sess.ActiveChat(); !ok {
		return nil
	}
	t, owed := m.sess.Messages.Begin(m.sess.ActiveChatID(), m.sess.RefreshToken())
	if !owed {
		return nil
	}
	return fetchMessagesCmd(m.ctx, m.sess, t)
}

func (m Model) updateChat(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	composer := m.sess.Composer

	if msg.String() == "esc" {
		m.screen = screenHome
		m.composer.Blur()
		return m, nil
	}

	// The not-found view only offers going back.
	if _, ok := m.sess.ActiveChat(); !ok {
		return m, nil
	}

	switch msg.String() {
	case "tab":
		if m.focus == focusComposer {
			m.focus = focusTranscript
			m.composer.Blur()
		} else {
			m.focus = focusComposer
			m.refreshTranscript()
			return m, m.composer.Focus()
		}
		m.refreshTranscript()
		return m, nil
	case "ctrl+p":
		composer.CycleProvider()
		return m, nil
	case "ctrl+o":
		composer.CycleModel()
		return m, nil
	case "ctrl+t":
		composer.StepTemperature(1)
		return m, nil
	case "ctrl+g":
		composer.StepTemperature(-1)
		return m, nil
	}

	if m.focus == focusTranscript {
		return m.updateTranscript(msg)
	}

	if msg.String() == "enter" {
		return m.send()
	}

	// Input is frozen while a send is in flight.
	if composer.State() == session.Sending {
		return m, nil
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	composer.SetDraft(m.composer.Value())
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	composer := m.sess.Composer
	if composer.State() == session.Idle {
		composer.SetDraft(m.composer.Value())
	}
	req, err := m.sess.BeginSend()
	switch {
	case errors.Is(err, session.ErrEmptyDraft), errors.Is(err, session.ErrSendInFlight):
		return m, nil
	case err != nil:
		return m, m.setError("Message not sent", err)
	}
	m.composer.Reset()
	m.refreshTranscript()
	return m, sendCmd(m.ctx, m.sess, req)
}

func (m Model) updateTranscript(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.viewport.ScrollUp(1)
	case "down", "j":
		m.viewport.ScrollDown(1)
	case "pgup":
		m.viewport.PageUp()
	case "pgdown":
		m.viewport.PageDown()
	case "[":
		if m.citeCursor > 0 {
			m.citeCursor--
			m.refreshTranscript()
		}
	case "]":
		if m.citeCursor < len(m.citationKeys())-1 {
			m.citeCursor++
			m.refreshTranscript()
		}
	case "enter", "space", " ":
		keys := m.citationKeys()
		if m.citeCursor < len(keys) {
			m.sess.Messages.ToggleCitation(keys[m.citeCursor])
			m.refreshTranscript()
		}
	}
	return m, nil
}

// citationKeys lists the citations of the transcript in display order.
func (m Model) citationKeys() []citation.Key {
	var keys []citation.Key
	for _, msg := range m.sess.Messages.Messages() {
		if !msg.IsAssistant() {
			continue
		}
		for i := range citation.Normalize(msg.Sources) {
			keys = append(keys, citation.Key{MessageID: msg.ID, Position: i})
		}
	}
	return keys
}

// refreshTranscript re-renders the transcript into the viewport. A new
// revision of the message store scrolls to the newest message.
func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.transcript())
	if rev := m.sess.Messages.Revision(); rev != m.renderedRev {
		m.renderedRev = rev
		m.citeCursor = 0
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// Create
// =============================================================================

func (m Model) updateCreate(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	flow := m.sess.Creation
	docs := flow.Documents()
	lastRow := rowDocuments + len(docs) - 1

	key := msg.String()
	switch key {
	case "esc":
		flow.Close()
		m.promptInput.Blur()
		m.screen = screenHome
		return m, nil
	case "enter":
		req, err := flow.Begin()
		if err != nil {
			return m, m.setError("Could not create chat", err)
		}
		return m, createCmd(m.ctx, m.sess, req)
	case "up", "shift+tab":
		if m.formRow > 0 {
			m.formRow--
		}
		return m, m.focusPrompt()
	case "down", "tab":
		if m.formRow < lastRow {
			m.formRow++
		}
		return m, m.focusPrompt()
	}

	if m.formRow == rowPrompt {
		var cmd tea.Cmd
		m.promptInput, cmd = m.promptInput.Update(msg)
		flow.SetSystemPrompt(m.promptInput.Value())
		return m, cmd
	}

	step := 0
	switch key {
	case "left", "h":
		step = -1
	case "right", "l", "space", " ":
		step = 1
	case "a":
		flow.SelectAllDocuments()
		return m, nil
	case "x":
		flow.ClearSelection()
		return m, nil
	default:
		return m, nil
	}

	switch m.formRow {
	case rowPreset:
		i := models.PresetIndex(flow.Draft().SystemPrompt) + step
		n := len(models.RolePresets)
		_ = flow.SetPreset(((i % n) + n) % n)
		m.promptInput.SetValue(flow.Draft().SystemPrompt)
	case rowPersonality:
		flow.CyclePersonality()
	case rowProvider:
		flow.CycleProvider()
	case rowModel:
		flow.CycleModel()
	case rowTemperature:
		flow.StepTemperature(step)
	default:
		if i := m.formRow - rowDocuments; i >= 0 && i < len(docs) {
			flow.ToggleDocument(docs[i].ID)
		}
	}
	return m, nil
}

func (m *Model) focusPrompt() tea.Cmd {
	if m.formRow == rowPrompt {
		return m.promptInput.Focus()
	}
	m.promptInput.Blur()
	return nil
}

// =============================================================================
// Upload
// =============================================================================

func (m Model) updateUpload(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenHome
		m.pathInput.Blur()
		return m, nil
	case "enter":
		if m.uploading {
			return m, nil
		}
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		if err := session.CheckFileType(path); err != nil {
			return m, m.setError("Upload failed", err)
		}
		m.uploading = true
		return m, uploadCmd(m.ctx, m.sess, path)
	}

	if m.uploading {
		return m, nil
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

// =============================================================================
// Status
// =============================================================================

func (m *Model) setStatus(text string) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = false
	return clearStatusCmd(m.statusSeq)
}

func (m *Model) setError(text string, err error) tea.Cmd {
	m.statusSeq++
	m.status = text
	if err != nil {
		m.status = fmt.Sprintf("%s: %v", text, err)
		m.logger.Debug("ui error", "message", text, "error", err)
	}
	m.statusErr = true
	return clearStatusCmd(m.statusSeq)
}

func (m *Model) layout() {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	m.viewport.SetWidth(w)
	m.viewport.SetHeight(max(h-chatChrome, 3))
	m.composer.SetWidth(max(w-4, 10))
	m.promptInput.SetWidth(max(w-22, 10))
	m.pathInput.SetWidth(max(w-10, 10))
	m.md.SetWidth(max(w-4, 20))
}

// View renders the interface in the alternate screen.
func (m Model) View() tea.View {
	v := tea.NewView(m.renderContent())
	v.AltScreen = true
	v.WindowTitle = "docchat"
	return v
}

// Run starts the interface and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	p := tea.NewProgram(New(ctx, sess, opts), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// contentWidth is the usable width for wrapped text.
func (m Model) contentWidth() int {
	return max(m.width-4, 20)
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return m.theme.errorStyle().Render("✗ " + m.status)
	}
	return m.theme.successStyle().Render("✓ " + m.status)
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}
