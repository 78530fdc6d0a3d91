package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/citation"
	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/render"
)

var (
	messagesFull   bool
	messagesOutput string
)

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show the transcript of a chat",
	Long: `Show the transcript of a chat with the citations of every answer.

Citations are shown as a preview; use --full for the complete passages.
With --output the transcript is written as a Markdown file instead.

Examples:
  docchat messages 3f6d2c1e
  docchat messages 3f6d2c1e --full
  docchat messages 3f6d2c1e -o transcript.md`,
	Args: cobra.ExactArgs(1),
	RunE: runMessages,
}

func init() {
	messagesCmd.Flags().BoolVar(&messagesFull, "full", false, "show complete citation passages")
	messagesCmd.Flags().StringVarP(&messagesOutput, "output", "o", "", "write the transcript to a Markdown file")
}

func runMessages(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	chat, err := openChat(cmd, args[0])
	if err != nil {
		return err
	}
	if err := sess.LoadMessages(ctx); err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	msgs := sess.Messages.Messages()

	if messagesOutput != "" {
		if err := os.WriteFile(messagesOutput, []byte(exportTranscript(chat, msgs)), 0644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		fmt.Fprintf(out, "Exported %d messages to %s\n", len(msgs), messagesOutput)
		return nil
	}

	printChatHeader(out, chat)
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return nil
	}

	md := markdown()
	for _, msg := range msgs {
		printMessage(out, md, chat, msg, messagesFull)
	}
	return nil
}

// openChat loads the chat list and makes id the active chat.
func openChat(cmd *cobra.Command, id string) (models.Chat, error) {
	if _, err := sess.Chats.Refresh(commandContext(cmd)); err != nil {
		return models.Chat{}, fmt.Errorf("list chats: %w", err)
	}
	sess.Navigate(id)
	chat, ok := sess.ActiveChat()
	if !ok {
		return models.Chat{}, fmt.Errorf("chat not found: %s", id)
	}
	return chat, nil
}

func printChatHeader(w io.Writer, chat models.Chat) {
	fmt.Fprintf(w, "%s [%s]\n", models.AssistantName(chat), models.PersonalityBadge(chat))
	fmt.Fprintf(w, "%s\n", strings.Repeat("═", 40))
	if verbose {
		fmt.Fprintf(w, "System prompt: %s\n", chat.SystemPrompt)
	}
	fmt.Fprintln(w)
}

// printMessage writes one transcript entry with its citations.
func printMessage(w io.Writer, md *render.Markdown, chat models.Chat, msg models.Message, full bool) {
	width := outputWidth()
	if !msg.IsAssistant() {
		fmt.Fprintf(w, "You:\n%s\n\n", render.Wrap(msg.Content, width))
		return
	}

	fmt.Fprintf(w, "%s:\n%s\n", models.AssistantName(chat), md.Render(msg.Content))
	cites := citation.Normalize(msg.Sources)
	if len(cites) > 0 {
		fmt.Fprintf(w, "\nSources:\n")
		for _, c := range cites {
			fmt.Fprintf(w, "  %s\n", render.CitationHeader(c))
			if body := render.CitationBody(c, full, width, "    "); body != "" {
				fmt.Fprintf(w, "%s\n", body)
			}
		}
	}
	fmt.Fprintln(w)
}

// exportTranscript renders a chat as a Markdown document with frontmatter.
func exportTranscript(chat models.Chat, msgs []models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, `---
id: %s
personality: %s
system_prompt: %q
created_at: %s
messages: %d
---

`, chat.ID, models.PersonalityBadge(chat), chat.SystemPrompt, chat.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), len(msgs))

	fmt.Fprintf(&b, "# %s\n\n", models.AssistantName(chat))
	for _, msg := range msgs {
		if !msg.IsAssistant() {
			fmt.Fprintf(&b, "## You\n\n%s\n\n", msg.Content)
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", models.AssistantName(chat), msg.Content)
		cites := citation.Normalize(msg.Sources)
		if len(cites) == 0 {
			continue
		}
		b.WriteString("### Sources\n\n")
		for _, c := range cites {
			fmt.Fprintf(&b, "- %s\n", render.CitationHeader(c))
			if c.HasContent {
				fmt.Fprintf(&b, "  > %s\n", strings.ReplaceAll(c.Content, "\n", "\n  > "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
