// Package output renders ranked lock statistics as a text report.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/danpilch/lockinfo/pkg/lockstat"
)

// Format represents the report layout.
type Format string

const (
	// FormatPlain is the fixed-width column layout.
	FormatPlain Format = "plain"
	// FormatBox draws the same columns inside a bordered table.
	FormatBox Format = "box"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPlain, FormatBox:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want plain or box)", s)
}

const (
	callerWidth = 48
	columnWidth = 15
)

// Columns are the report headings, caller first.
var Columns = []string{
	"caller",
	"# holds",
	"Hold Max (ns)",
	"Hold Avg (ns)",
	"# ACQs",
	"ACQs Max (ns)",
	"ACQs Avg (ns)",
}

// Formatter handles report output.
type Formatter struct {
	format   Format
	writer   io.Writer
	renderer *lipgloss.Renderer
}

// NewFormatter creates a formatter writing to w. Styling is detected from w,
// so output redirected to a file or buffer carries no escape sequences.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{
		format:   format,
		writer:   w,
		renderer: lipgloss.NewRenderer(w),
	}
}

// Render writes the header and one row per record, followed by the record's
// deeper call-site frames, one per line.
func (f *Formatter) Render(records []lockstat.Record) error {
	switch f.format {
	case FormatBox:
		return f.renderBox(records)
	default:
		return f.renderPlain(records)
	}
}

func (f *Formatter) renderPlain(records []lockstat.Record) error {
	headerStyle := f.renderer.NewStyle().Bold(true)
	frameStyle := f.renderer.NewStyle().Faint(true)

	header := fmt.Sprintf("%*s", callerWidth, Columns[0])
	for _, c := range Columns[1:] {
		header += fmt.Sprintf("%*s", columnWidth, c)
	}
	if _, err := fmt.Fprintln(f.writer, headerStyle.Render(header)); err != nil {
		return err
	}

	for _, r := range records {
		if _, err := fmt.Fprintf(f.writer, "%*s%*d%*d%*d%*d%*d%*d\n",
			callerWidth, leadingFrame(r),
			columnWidth, r.HoldCount, columnWidth, r.HoldMax, columnWidth, r.HoldAvg,
			columnWidth, r.AcqCount, columnWidth, r.AcqMax, columnWidth, r.AcqAvg); err != nil {
			return err
		}
		for _, frame := range deeperFrames(r) {
			line := fmt.Sprintf("%*s", callerWidth, frame)
			if _, err := fmt.Fprintln(f.writer, frameStyle.Render(line)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Formatter) renderBox(records []lockstat.Record) error {
	headerStyle := f.renderer.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	cellStyle := f.renderer.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)

	rows := make([][]string, len(records))
	for i, r := range records {
		caller := leadingFrame(r)
		if deeper := deeperFrames(r); len(deeper) > 0 {
			caller += "\n  " + strings.Join(deeper, "\n  ")
		}
		rows[i] = []string{
			caller,
			strconv.FormatInt(r.HoldCount, 10),
			strconv.FormatInt(r.HoldMax, 10),
			strconv.FormatInt(r.HoldAvg, 10),
			strconv.FormatInt(r.AcqCount, 10),
			strconv.FormatInt(r.AcqMax, 10),
			strconv.FormatInt(r.AcqAvg, 10),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.renderer.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		}).
		Headers(Columns...).
		Rows(rows...)

	_, err := fmt.Fprintln(f.writer, t)
	return err
}

func leadingFrame(r lockstat.Record) string {
	if len(r.Frames) == 0 {
		return ""
	}
	return r.Frames[0]
}

// deeperFrames returns the call-site frames below the immediate caller.
func deeperFrames(r lockstat.Record) []string {
	if len(r.Frames) < 2 {
		return nil
	}
	return r.Frames[1:]
}
