package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/lockinfo/pkg/lockstat"
)

// DumpRawRecords outputs every per-stack record before consolidation.
func DumpRawRecords(w io.Writer, records []lockstat.RawRecord) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Raw Stack Records"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 100)))
	fmt.Fprintf(w, "  %s %s %s %s %s %s %s\n",
		debugHeader.Render("CALLED FROM                   "),
		debugHeader.Render("ACQ AVG "),
		debugHeader.Render("ACQ MAX "),
		debugHeader.Render("ACQ CNT "),
		debugHeader.Render("HLD AVG "),
		debugHeader.Render("HLD MAX "),
		debugHeader.Render("HLD CNT "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 100)))

	for _, r := range records {
		m := r.Metrics
		fmt.Fprintf(w, "  %-32s %-10d %-10d %-10d %-10d %-10d %-10d\n",
			r.CalledFrom(),
			m[lockstat.AcqAvg], m[lockstat.AcqMax], m[lockstat.AcqCount],
			m[lockstat.HoldAvg], m[lockstat.HoldMax], m[lockstat.HoldCount])
		fmt.Fprintln(w, "  "+debugDim.Render(strings.ReplaceAll(r.Stack, "\n", " <- ")))
	}
	fmt.Fprintf(w, "  %s\n", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d distinct stacks", len(records))))
}
