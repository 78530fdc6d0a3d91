package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/models"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search across all documents",
	Long: `Search the passages of all uploaded documents without asking the LLM.

Results are ranked by the backend's hybrid keyword and vector score.

Examples:
  docchat search "review process"
  docchat search onboarding --limit 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	res, err := sess.Search(ctx, query, searchLimit)
	if err != nil {
		return err
	}

	if len(res.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(res.Results))
	for i, r := range res.Results {
		fmt.Fprintf(out, "%d. %s · Chunk #%d · Score %.2f\n", i+1, r.Title(), r.ChunkIndex+1, r.HybridScore)
		content := strings.Join(strings.Fields(r.Content), " ")
		if !verbose {
			content = models.Truncate(content, 200)
		}
		fmt.Fprintf(out, "   %s\n", content)
	}

	return nil
}
