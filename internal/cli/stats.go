package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/docchat/internal/metrics"
)

// printClientStats displays the request statistics of this run.
func printClientStats(w io.Writer, snap metrics.Snapshot) {
	if len(snap.Operations) == 0 {
		return
	}
	fmt.Fprintf(w, "\nClient Statistics (this run)\n")
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", snap.UptimeSeconds)

	for _, op := range snap.Operations {
		fmt.Fprintf(w, "\n%s:\n", op.Op)
		printOpStats(w, op)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
