// Package debug provides instrumentation for troubleshooting lockinfo runs.
package debug

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// StageTiming records the duration of one pipeline stage.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Stopwatch times pipeline stages in the order they run.
type Stopwatch struct {
	timings []StageTiming
}

// NewStopwatch creates an empty stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{}
}

// Time runs fn and records how long it took under name, whether or not it fails.
func (s *Stopwatch) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.timings = append(s.timings, StageTiming{
		Name:     name,
		Duration: time.Since(start),
	})
	return err
}

// Timings returns the recorded stages.
func (s *Stopwatch) Timings() []StageTiming {
	return s.timings
}

// TimingReport prints a styled timing summary for all stages.
func TimingReport(w io.Writer, timings []StageTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Stage Timing Report"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 40)))
	fmt.Fprintf(w, "  %s  %s\n",
		debugHeader.Render("STAGE              "),
		debugHeader.Render("DURATION    "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))

	var total time.Duration
	for _, t := range timings {
		fmt.Fprintf(w, "  %-20s %v\n", t.Name, t.Duration)
		total += t.Duration
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  %-20s %v\n",
		lipgloss.NewStyle().Bold(true).Render("TOTAL"), total)
}
