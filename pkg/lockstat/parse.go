package lockstat

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// fileHeaderLines precede the first section: the tracer's attach banner
	// and the opening rule of the first section.
	fileHeaderLines = 2
	// sectionHeaderLines are the section label and its closing rule.
	sectionHeaderLines = 2
)

// ParseOptions configures how the dump is read.
type ParseOptions struct {
	// StackDepth is how many frames, starting at the immediate caller, make
	// up the call-site identifier. Values below 1 are treated as 1.
	StackDepth int
	// MaxLineLength bounds a single input line, in bytes.
	MaxLineLength int
}

// DefaultParseOptions returns the defaults used by the CLI.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		StackDepth:    1,
		MaxLineLength: 64 * 1024,
	}
}

// Parser reads a tracer dump section by section, accumulating one RawRecord
// per distinct stack across all sections.
type Parser struct {
	opts   ParseOptions
	logger *logrus.Logger

	r    *bufio.Reader
	line int

	index   map[string]*RawRecord
	records []*RawRecord
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader, opts ParseOptions, logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if opts.StackDepth < 1 {
		opts.StackDepth = 1
	}
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultParseOptions().MaxLineLength
	}
	return &Parser{
		opts:   opts,
		logger: logger,
		r:      bufio.NewReader(r),
		index:  make(map[string]*RawRecord),
	}
}

// Parse reads a complete dump: the file header followed by the six sections
// in their fixed order.
func Parse(r io.Reader, opts ParseOptions, logger *logrus.Logger) ([]RawRecord, error) {
	p := NewParser(r, opts, logger)
	if err := p.skip(fileHeaderLines); err != nil {
		return nil, err
	}
	for _, m := range Sections {
		if err := p.skip(sectionHeaderLines); err != nil {
			return nil, err
		}
		if err := p.Section(m); err != nil {
			return nil, err
		}
	}
	return p.Records(), nil
}

// Records returns a copy of the records collected so far, in first-seen order.
func (p *Parser) Records() []RawRecord {
	out := make([]RawRecord, len(p.records))
	for i, rec := range p.records {
		out[i] = *rec
		out[i].Frames = append([]string(nil), rec.Frames...)
	}
	return out
}

// Section consumes groups until the line that closes the section, adding
// each group's value into metric m of the record for its stack.
//
// A group looks like:
//
//	@aq_report_avg[
//	        mutex_lock+5
//	        kernfs_iop_permission+39
//	        inode_permission+66
//	]: 66842
//
// The first frame is the lock function itself, the second the call site.
func (p *Parser) Section(m Metric) error {
	var (
		inGroup bool
		stack   []string
		frames  []string
	)
	groups := 0

	for {
		line, err := p.readLine()
		if err != nil {
			return err
		}

		switch {
		case strings.HasPrefix(line, "="):
			p.logger.WithFields(logrus.Fields{
				"section": m.String(),
				"groups":  groups,
				"records": len(p.records),
			}).Debug("Section parsed")
			return nil

		case strings.Contains(line, "[]"):
			continue

		case strings.HasPrefix(line, "@"):
			inGroup = true
			stack, frames = stack[:0], nil
			continue

		case strings.TrimSpace(line) == "":
			continue

		case strings.HasPrefix(line, "]"):
			if len(frames) == 0 {
				return p.malformed(line, "group has no call site")
			}
			value, err := p.groupValue(line)
			if err != nil {
				return err
			}
			p.add(m, stack, frames, value)
			groups++
			inGroup = false
			continue
		}

		frame := strings.TrimSpace(line)
		if !inGroup {
			// Content outside an '@' header starts a group of its own.
			inGroup = true
			stack, frames = stack[:0], nil
		}
		switch {
		case len(stack) == 0:
			// The lock function; part of the stack but not of the call site.
			stack = append(stack, frame)
		case len(frames) < p.opts.StackDepth:
			stack = append(stack, frame)
			frames = append(frames, frame)
		default:
			stack = append(stack, frame)
		}
	}
}

func (p *Parser) groupValue(line string) (int64, error) {
	_, raw, ok := strings.Cut(line, ":")
	if !ok {
		return 0, p.malformed(line, "missing ':' before value")
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, p.malformed(line, "value is not an integer")
	}
	return value, nil
}

// add accumulates value into metric m of the record for stack, creating it
// on first sight. Repeats of a stack within a section sum.
func (p *Parser) add(m Metric, stack, frames []string, value int64) {
	key := strings.Join(stack, "\n")
	rec, ok := p.index[key]
	if !ok {
		rec = &RawRecord{
			Stack:  key,
			Frames: append([]string(nil), frames...),
		}
		p.index[key] = rec
		p.records = append(p.records, rec)
	}
	rec.Metrics[m] += value
}

func (p *Parser) skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := p.readLine(); err != nil {
			return err
		}
	}
	return nil
}

// readLine returns the next line without its terminator. A line that is not
// terminated, including the end of input, is a structural error.
func (p *Parser) readLine() (string, error) {
	text, err := p.r.ReadString('\n')
	p.line++
	if len(text) > p.opts.MaxLineLength {
		return "", &LineError{Line: p.line, Text: clip(text, 80), Err: ErrLineTooLong}
	}
	if err == io.EOF {
		if text == "" {
			return "", p.malformed(text, "unexpected end of input")
		}
		return "", p.malformed(text, "missing line terminator")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(text, "\n"), nil
}

func (p *Parser) malformed(text, reason string) error {
	return &LineError{Line: p.line, Text: text, Reason: reason, Err: ErrMalformedLine}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
