package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/render"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List uploaded documents",
	Long: `List the documents known to the backend.

Examples:
  docchat docs
  docchat docs -v`,
	Args: cobra.NoArgs,
	RunE: runDocs,
}

func runDocs(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	docs, err := sess.Documents.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents found.")
		return nil
	}

	now := time.Now()
	fmt.Fprintf(out, "Documents (%d):\n\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(out, "%s  %s  %s  %s\n",
			render.Pad(d.ID, 36),
			render.Pad(d.DisplayTitle(), 30),
			render.Pad(d.MimeType, 16),
			models.RelativeTime(d.CreatedAt.Time, now))
		if verbose && d.Summary != "" {
			fmt.Fprintf(out, "  %s\n", models.Truncate(d.Summary, 100))
		}
	}

	return nil
}
