package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/session"
)

var (
	sendProvider    string
	sendModel       string
	sendTemperature float64
	sendFull        bool
)

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <message>",
	Short: "Ask a question in a chat",
	Long: `Post a message to a chat and print the answer with its citations.

The words after the chat id form the message. Model settings apply to this
message only and default to the configured values.

Examples:
  docchat send 3f6d2c1e "What does the handbook say about reviews?"
  docchat send 3f6d2c1e summarize chapter two --provider anthropic
  docchat send 3f6d2c1e "be creative" --temperature 0.9`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendProvider, "provider", "", "LLM provider for this message")
	sendCmd.Flags().StringVar(&sendModel, "model", "", "LLM model for this message")
	sendCmd.Flags().Float64Var(&sendTemperature, "temperature", models.DefaultTemperature, "sampling temperature between 0 and 1")
	sendCmd.Flags().BoolVar(&sendFull, "full", false, "show complete citation passages")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	chat, err := openChat(cmd, args[0])
	if err != nil {
		return err
	}

	composer := sess.Composer
	if sendProvider != "" {
		if err := composer.SetProvider(sendProvider); err != nil {
			return fmt.Errorf("invalid --provider: %w", err)
		}
	}
	if sendModel != "" {
		if err := composer.SetModel(sendModel); err != nil {
			return fmt.Errorf("invalid --model: %w", err)
		}
	}
	if cmd.Flags().Changed("temperature") {
		composer.SetTemperature(sendTemperature)
	}
	composer.SetDraft(strings.Join(args[1:], " "))

	res, err := sess.Send(ctx)
	if errors.Is(err, session.ErrEmptyDraft) {
		return fmt.Errorf("message is empty")
	}
	if err != nil && sess.RefreshToken() == 0 {
		return err
	}

	// The refetched transcript is authoritative; fall back to the send
	// response when the reload failed.
	reply, ok := lastAssistant(sess.Messages.Messages())
	if err != nil || !ok {
		logger.Warn("showing send response instead of transcript", "error", err)
		reply = models.Message{Role: models.RoleAssistant, Content: res.Content, Sources: res.Sources}
	}
	printMessage(out, markdown(), chat, reply, sendFull)
	return nil
}

func lastAssistant(msgs []models.Message) (models.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsAssistant() {
			return msgs[i], true
		}
	}
	return models.Message{}, false
}
