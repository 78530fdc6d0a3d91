package cli

import (
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui [chat-id]",
	Short: "Start the interactive interface",
	Long: `Start the full-screen interface.

With a chat id the chat opens directly. Logs go to the log file only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	opts := tui.Options{Logger: logger}
	if len(args) == 1 {
		opts.ChatID = args[0]
	}
	return tui.Run(commandContext(cmd), sess, opts)
}
