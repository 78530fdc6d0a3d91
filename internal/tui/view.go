package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/render"
	"github.com/raphaelgruber/docchat/internal/session"
)

// renderContent builds the display string for the current screen.
func (m Model) renderContent() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.screen {
	case screenChat:
		body = m.chatView()
	case screenCreate:
		body = m.createView()
	case screenUpload:
		body = m.uploadView()
	default:
		body = m.homeView()
	}
	return joinNonEmpty(body, m.renderStatus())
}

func (m Model) homeView() string {
	title := m.theme.titleStyle().Render("DocChat")
	if !m.mounted {
		return joinNonEmpty(title, "", m.spinner.View()+" Loading chats and documents...")
	}

	half := max(m.width/2-2, 20)
	chats := m.chatListView(half)
	docs := m.theme.paneStyle().Render(m.documentListView(half))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(half).Render(chats), docs)

	hint := "enter open · n new chat · u upload · r refresh · q quit"
	if !m.sess.CanCreateChat() {
		hint = "enter open · u upload · r refresh · q quit"
	}
	return joinNonEmpty(title, "", panes, "", m.theme.hintStyle().Render(hint))
}

func (m Model) chatListView(width int) string {
	chats := m.sess.Chats.Chats()
	header := m.theme.titleStyle().Render(fmt.Sprintf("Chats (%d)", len(chats)))
	if err := m.sess.Chats.Err(); err != nil && !m.sess.Chats.Loaded() {
		return joinNonEmpty(header, m.theme.errorStyle().Render("Failed to load chats"))
	}
	if len(chats) == 0 {
		return joinNonEmpty(header, m.theme.hintStyle().Render("No chats yet."))
	}

	now := m.now()
	lines := []string{header}
	for i, c := range chats {
		when := models.RelativeTime(c.CreatedAt.Time, now)
		titleWidth := max(width-len(when)-4, 8)
		line := render.Pad(models.ChatTitle(c), titleWidth) + " " + m.theme.dimStyle().Render(when)
		if i == m.chatCursor {
			lines = append(lines, m.theme.selectedStyle().Render("> ")+line)
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) documentListView(width int) string {
	docs := m.sess.Documents.Documents()
	header := m.theme.titleStyle().Render(fmt.Sprintf("Documents (%d)", len(docs)))
	if err := m.sess.Documents.Err(); err != nil && !m.sess.Documents.Loaded() {
		return joinNonEmpty(header, m.theme.errorStyle().Render("Failed to load documents"))
	}
	if len(docs) == 0 {
		return joinNonEmpty(header, m.theme.hintStyle().Render("No documents. Press u to upload one."))
	}
	lines := []string{header}
	for _, d := range docs {
		lines = append(lines, render.Pad(d.DisplayTitle(), width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) chatView() string {
	chat, ok := m.sess.ActiveChat()
	if !ok {
		if !m.sess.Chats.Loaded() {
			return m.spinner.View() + " Loading chat..."
		}
		return joinNonEmpty(
			m.theme.errorStyle().Render("Chat not found"),
			m.theme.hintStyle().Render("The chat "+m.sess.ActiveChatID()+" does not exist. Press esc to go back."),
		)
	}

	name := m.theme.assistantStyle().Render(models.AssistantName(chat))
	badge := m.theme.badgeStyle().Render(models.PersonalityBadge(chat))
	header := lipgloss.JoinHorizontal(lipgloss.Center, name, " ", badge)

	composer := m.sess.Composer
	var activity string
	if composer.State() == session.Sending {
		activity = m.spinner.View() + " Thinking..."
	}

	config := fmt.Sprintf("%s · %s · temperature %.1f (%s)",
		composer.Provider(), models.ModelLabel(composer.Model()),
		composer.Temperature(), models.TemperatureHint(composer.Temperature()))

	hint := "enter send · tab citations · ctrl+p provider · ctrl+o model · ctrl+t/ctrl+g temperature · esc back"
	if m.focus == focusTranscript {
		hint = "↑/↓ scroll · [/] select citation · enter expand · tab composer · esc back"
	}

	return joinNonEmpty(
		header,
		m.viewport.View(),
		activity,
		m.composer.View(),
		m.theme.dimStyle().Render(config),
		m.theme.hintStyle().Render(hint),
	)
}

// transcript renders all messages of the active chat with their citations.
func (m Model) transcript() string {
	store := m.sess.Messages
	msgs := store.Messages()
	if len(msgs) == 0 {
		switch {
		case store.Loading():
			return m.theme.hintStyle().Render("Loading messages...")
		case store.Err() != nil:
			return m.theme.errorStyle().Render("Failed to load messages")
		case store.Loaded():
			return m.theme.hintStyle().Render("No messages yet. Ask something about your documents.")
		}
		return ""
	}

	chat, _ := m.sess.ActiveChat()
	width := m.contentWidth()
	selected := -1
	if m.focus == focusTranscript {
		selected = m.citeCursor
	}

	var b strings.Builder
	pos := 0
	for _, msg := range msgs {
		if msg.IsAssistant() {
			b.WriteString(m.theme.assistantStyle().Render(models.AssistantName(chat)))
			b.WriteString("\n")
			b.WriteString(m.md.Render(msg.Content))
			b.WriteString("\n")
			for i, c := range citation.Normalize(msg.Sources) {
				if i == 0 {
					b.WriteString(m.theme.dimStyle().Render("Sources"))
					b.WriteString("\n")
				}
				key := citation.Key{MessageID: msg.ID, Position: i}
				b.WriteString(m.citationView(c, store.CitationExpanded(key), pos == selected, width))
				pos++
			}
		} else {
			b.WriteString(m.theme.userStyle().Render("You"))
			b.WriteString("\n")
			b.WriteString(render.Wrap(msg.Content, width))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) citationView(c citation.Citation, expanded, selected bool, width int) string {
	marker := "  "
	header := render.CitationHeader(c)
	if selected {
		marker = m.theme.selectedStyle().Render("> ")
		header = m.theme.selectedStyle().Render(header)
	}
	out := marker + header + "\n"
	if body := render.CitationBody(c, expanded, width, "    "); body != "" {
		out += m.theme.dimStyle().Render(body) + "\n"
	}
	return out
}

func (m Model) createView() string {
	flow := m.sess.Creation
	draft := flow.Draft()
	docs := flow.Documents()

	preset := "Custom"
	if i := models.PresetIndex(draft.SystemPrompt); i >= 0 {
		preset = models.RolePresets[i].Label
	}
	personality := "None"
	if draft.Personality != "" {
		personality = models.Capitalize(draft.Personality)
	}

	rows := []struct{ label, value string }{
		{"Role", preset},
		{"System prompt", m.promptInput.View()},
		{"Personality", personality},
		{"Provider", draft.Provider},
		{"Model", models.ModelLabel(draft.Model)},
		{"Temperature", fmt.Sprintf("%.1f (%s)", draft.Temperature, models.TemperatureHint(draft.Temperature))},
	}

	lines := []string{m.theme.titleStyle().Render("New Chat"), ""}
	for i, r := range rows {
		lines = append(lines, m.formLine(i, render.Pad(r.label, 15)+" "+r.value))
	}
	lines = append(lines, "", m.theme.titleStyle().Render(fmt.Sprintf("Documents (%d selected)", flow.SelectedCount())))
	for i, d := range docs {
		box := "[ ]"
		if draft.Selected[d.ID] {
			box = "[x]"
		}
		lines = append(lines, m.formLine(rowDocuments+i, box+" "+d.DisplayTitle()))
	}

	submit := flow.SubmitLabel()
	switch {
	case flow.Creating():
		submit = m.spinner.View() + " Creating..."
	case !flow.CanSubmit():
		submit = m.theme.dimStyle().Render(submit + " (select at least one document)")
	default:
		submit = m.theme.selectedStyle().Render(submit)
	}
	lines = append(lines, "", submit, "",
		m.theme.hintStyle().Render("↑/↓ move · ←/→ change · space toggle · a all · x none · enter create · esc cancel"))
	return strings.Join(lines, "\n")
}

func (m Model) formLine(row int, text string) string {
	if row == m.formRow {
		return m.theme.selectedStyle().Render("> ") + text
	}
	return "  " + text
}

func (m Model) uploadView() string {
	lines := []string{
		m.theme.titleStyle().Render("Upload Document"),
		"",
		m.pathInput.View(),
		"",
		m.theme.dimStyle().Render("Supported: " + strings.Join(session.UploadExtensions, ", ")),
	}
	if m.uploading {
		lines = append(lines, "", m.spinner.View()+" Uploading...")
	}
	lines = append(lines, "", m.theme.hintStyle().Render("enter upload · esc cancel"))
	return strings.Join(lines, "\n")
}
