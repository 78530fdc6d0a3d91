package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/render"
)

var (
	createPreset      int
	createPrompt      string
	createPersonality string
	createProvider    string
	createModel       string
	createTemperature float64
	createDocs        []string
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats",
	Long: `List chats, newest first as returned by the backend.

Subcommands:
  create  Create a chat bound to a selection of documents

Examples:
  docchat chats
  docchat chats create --preset 3 --personality factual
  docchat chats create --doc 1b2c --doc 9f00 --provider anthropic`,
	Args: cobra.NoArgs,
	RunE: runListChats,
}

var chatsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a chat",
	Long: `Create a chat bound to documents.

Without --doc every known document is selected. The role preset, personality
and model settings default to the values of the creation form.`,
	Args: cobra.NoArgs,
	RunE: runCreateChat,
}

func init() {
	chatsCreateCmd.Flags().IntVar(&createPreset, "preset", 0, "role preset number (see 'docchat models')")
	chatsCreateCmd.Flags().StringVar(&createPrompt, "prompt", "", "custom system prompt (overrides --preset)")
	chatsCreateCmd.Flags().StringVar(&createPersonality, "personality", models.DefaultPersonality, "personality: friendly, factual, humorous or empty for none")
	chatsCreateCmd.Flags().StringVar(&createProvider, "provider", "", "LLM provider")
	chatsCreateCmd.Flags().StringVar(&createModel, "model", "", "LLM model")
	chatsCreateCmd.Flags().Float64Var(&createTemperature, "temperature", models.DefaultTemperature, "sampling temperature between 0 and 1")
	chatsCreateCmd.Flags().StringSliceVar(&createDocs, "doc", nil, "document id to include (repeatable)")

	chatsCmd.AddCommand(chatsCreateCmd)
}

func runListChats(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	chats, err := sess.Chats.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	if len(chats) == 0 {
		fmt.Fprintln(out, "No chats found.")
		return nil
	}

	now := time.Now()
	fmt.Fprintf(out, "Chats (%d):\n\n", len(chats))
	for _, c := range chats {
		fmt.Fprintf(out, "%s  %s  %s\n",
			render.Pad(c.ID, 36),
			render.Pad(models.ChatTitle(c), 34),
			models.RelativeTime(c.CreatedAt.Time, now))
		if verbose {
			fmt.Fprintf(out, "  %s\n", c.SystemPrompt)
		}
	}

	return nil
}

func runCreateChat(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if _, err := sess.Documents.Refresh(ctx); err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if !sess.CanCreateChat() {
		return fmt.Errorf("no documents: upload one with 'docchat upload' first")
	}

	sess.OpenCreation()
	flow := sess.Creation
	flags := cmd.Flags()

	if createPreset > 0 {
		if err := flow.SetPreset(createPreset - 1); err != nil {
			return fmt.Errorf("invalid --preset %d: %w", createPreset, err)
		}
	}
	if createPrompt != "" {
		flow.SetSystemPrompt(createPrompt)
	}
	if err := flow.SetPersonality(createPersonality); err != nil {
		return fmt.Errorf("invalid --personality: %w", err)
	}
	if createProvider != "" {
		if err := flow.SetProvider(createProvider); err != nil {
			return fmt.Errorf("invalid --provider: %w", err)
		}
	}
	if createModel != "" {
		if err := flow.SetModel(createModel); err != nil {
			return fmt.Errorf("invalid --model: %w", err)
		}
	}
	if flags.Changed("temperature") {
		flow.SetTemperature(createTemperature)
	}
	if len(createDocs) > 0 {
		if err := selectDocuments(createDocs); err != nil {
			return err
		}
	}

	draft := flow.Draft()
	selected := flow.SelectedCount()

	chat, err := sess.CreateChat(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Created %s (%s)\n", models.ChatTitle(chat), chat.ID)
	fmt.Fprintf(out, "  Documents: %d, Model: %s, Temperature: %.1f\n",
		selected, models.ModelLabel(draft.Model), draft.Temperature)
	return nil
}

// selectDocuments replaces the default selection with ids.
func selectDocuments(ids []string) error {
	flow := sess.Creation
	known := make(map[string]bool)
	for _, d := range flow.Documents() {
		known[d.ID] = true
	}

	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown document id: %s", strings.Join(unknown, ", "))
	}

	flow.ClearSelection()
	for _, id := range ids {
		if !flow.Draft().Selected[id] {
			flow.ToggleDocument(id)
		}
	}
	return nil
}
