package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/lockinfo/pkg/lockstat"
	"github.com/danpilch/lockinfo/pkg/tracer"
)

const rule = "========================================"

type entry struct {
	value  int64
	frames []string
}

// writeDump writes a data file shaped like the generated script's output.
func writeDump(t *testing.T, sections [6][]entry) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Attaching 4 probes...\n")
	for i, label := range tracer.SectionLabels {
		fmt.Fprintf(&b, "%s\n%s\n%s\n", rule, label, rule)
		for _, e := range sections[i] {
			b.WriteString("@map[\n")
			for _, f := range append([]string{"mutex_lock+5"}, e.frames...) {
				fmt.Fprintf(&b, "        %s\n", f)
			}
			fmt.Fprintf(&b, "]: %d\n", e.value)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\nEND OF DATA\n%s\n", rule, rule)

	path := filepath.Join(t.TempDir(), "lock_data.out")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func testOptions(file, output string) options {
	return options{
		file:       file,
		output:     output,
		stackDepth: 1,
		sort:       int(lockstat.DefaultSortMode),
		format:     "plain",
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func init() {
	diag = io.Discard
}

var (
	permission  = []string{"kernfs_iop_permission+39", "inode_permission+66"}
	permission2 = []string{"kernfs_iop_permission+39", "generic_permission+12"}
	revalidate  = []string{"kernfs_dop_revalidate+55", "lookup_fast+211"}
)

func fixture(t *testing.T) string {
	return writeDump(t, [6][]entry{
		{{100, permission}, {50, permission2}, {400, revalidate}},
		{{900, permission}, {700, permission2}, {1200, revalidate}},
		{{10, permission}, {5, permission2}, {1, revalidate}},
		{{20, permission}, {30, permission2}, {8, revalidate}},
		{{90, permission}, {60, permission2}, {8, revalidate}},
		{{4, permission}, {6, permission2}, {1, revalidate}},
	})
}

func readReport(t *testing.T, path string) []string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(ansi.Strip(string(data)), "\n"), "\n")
}

func TestRunReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.txt")
	opts := testOptions(fixture(t), out)

	require.NoError(t, run(context.Background(), opts, quietLogger()))

	lines := readReport(t, out)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "caller")
	// permission: 15 acquires averaging 83 (1245 total) beats revalidate's 400.
	assert.Equal(t, fmt.Sprintf("%48s%15d%15d%15d%15d%15d%15d", "kernfs_iop_permission+39", 10, 90, 26, 15, 900, 83), lines[1])
	assert.Equal(t, fmt.Sprintf("%48s%15d%15d%15d%15d%15d%15d", "kernfs_dop_revalidate+55", 1, 8, 8, 1, 1200, 400), lines[2])
}

func TestRunStackDepthAndSort(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.txt")
	opts := testOptions(fixture(t), out)
	opts.stackDepth = 2
	opts.sort = int(lockstat.SortAcqMax)
	opts.number = 2

	require.NoError(t, run(context.Background(), opts, quietLogger()))

	lines := readReport(t, out)
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], fmt.Sprintf("%48s", "kernfs_dop_revalidate+55")))
	assert.Equal(t, fmt.Sprintf("%48s", "lookup_fast+211"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], fmt.Sprintf("%48s", "kernfs_iop_permission+39")))
	assert.Equal(t, fmt.Sprintf("%48s", "inode_permission+66"), lines[4])
}

func TestRunCallerFilter(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.txt")
	opts := testOptions(fixture(t), out)
	opts.caller = "kernfs_dop_revalidate+55"
	opts.number = 1

	require.NoError(t, run(context.Background(), opts, quietLogger()))

	// The filter runs after truncation: the top row is not a match.
	assert.Len(t, readReport(t, out), 1)
}

func TestRunMalformedWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.out")
	require.NoError(t, os.WriteFile(path, []byte("Attaching 4 probes...\n"+rule+"\nlabel\n"+rule+"\n@m[\n  mutex_lock+5\n  foo+1\n] 12\n"), 0644))
	out := filepath.Join(t.TempDir(), "report.txt")

	err := run(context.Background(), testOptions(path, out), quietLogger())
	require.ErrorIs(t, err, lockstat.ErrMalformedLine)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingInput(t *testing.T) {
	opts := testOptions(filepath.Join(t.TempDir(), "none.out"), "")
	err := run(context.Background(), opts, quietLogger())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err) || strings.Contains(err.Error(), "cannot open data file"))
}

func TestRunInvalidOptions(t *testing.T) {
	opts := testOptions(fixture(t), filepath.Join(t.TempDir(), "report.txt"))
	opts.format = "json"
	assert.Error(t, run(context.Background(), opts, quietLogger()))

	opts.format = "plain"
	opts.sort = 42
	opts.interval = 5
	opts.verify = true
	opts.timing = true
	opts.dumpRaw = true
	assert.NoError(t, run(context.Background(), opts, quietLogger()))
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"file", "output", "command", "caller", "stack-depth", "number", "sort", "interval", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "C", cmd.Flags().Lookup("caller").Shorthand)
	assert.Equal(t, "S", cmd.Flags().Lookup("sort").Shorthand)
	assert.Equal(t, "s", cmd.Flags().Lookup("stack-depth").Shorthand)
	assert.Equal(t, "7", cmd.Flags().Lookup("sort").DefValue)
}
