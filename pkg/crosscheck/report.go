package crosscheck

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Report outputs sanity check results as a styled list.
func Report(w io.Writer, sanity []SanityResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Consolidation Sanity Checks"))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("═", 60)))

	failed := 0
	for _, s := range sanity {
		var icon string
		if s.Passed {
			icon = passStyle.Render("PASS")
		} else {
			icon = failStyle.Render("FAIL")
			failed++
		}
		fmt.Fprintf(w, "  [%s] %-40s %s\n", icon, s.Check, dimStyle.Render(s.Details))
	}
	fmt.Fprintln(w)
	if failed == 0 {
		fmt.Fprintf(w, "  %s\n", passStyle.Render(fmt.Sprintf("All %d sanity checks passed.", len(sanity))))
	} else {
		fmt.Fprintf(w, "  %s\n", failStyle.Render(fmt.Sprintf("%d of %d sanity checks failed.", failed, len(sanity))))
	}
}

// Failed counts the failed results.
func Failed(sanity []SanityResult) int {
	n := 0
	for _, s := range sanity {
		if !s.Passed {
			n++
		}
	}
	return n
}
