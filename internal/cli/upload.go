package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/models"
	"github.com/raphaelgruber/docchat/internal/session"
)

var uploadNoProgress bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents",
	Long: `Upload documents for use in chats.

Accepted types: .pdf, .docx, .doc, .txt and .md. Files are uploaded one at a
time; a failed file does not stop the remaining ones.

Examples:
  docchat upload handbook.pdf
  docchat upload notes/*.md --no-progress`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadNoProgress, "no-progress", false, "print one line per file instead of a progress bar")
}

// uploadOutcome is the result of uploading one file.
type uploadOutcome struct {
	path   string
	size   int64
	result models.UploadResult
	err    error
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	// Reject unsupported files before anything is sent.
	for _, path := range args {
		if err := session.CheckFileType(path); err != nil {
			return err
		}
	}

	var outcomes []uploadOutcome
	if isTerminal() && !uploadNoProgress {
		var err error
		outcomes, err = runUploadProgress(ctx, args)
		if err != nil {
			return err
		}
	} else {
		for _, path := range args {
			o := uploadOne(ctx, path)
			printOutcome(out, o)
			outcomes = append(outcomes, o)
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}

func uploadOne(ctx context.Context, path string) uploadOutcome {
	o := uploadOutcome{path: path}
	if info, err := os.Stat(path); err == nil {
		o.size = info.Size()
	}
	o.result, o.err = sess.Upload(ctx, path)
	return o
}

func printOutcome(w io.Writer, o uploadOutcome) {
	name := filepath.Base(o.path)
	if o.err != nil {
		fmt.Fprintf(w, "✗ %s: %v\n", name, o.err)
		return
	}
	fmt.Fprintf(w, "✓ %s (%s) → %s, %d chunks\n",
		name, humanize.Bytes(uint64(o.size)), o.result.DocumentID, o.result.ChunkCount)
	if verbose && o.result.Summary != "" {
		fmt.Fprintf(w, "  %s\n", o.result.Summary)
	}
}
