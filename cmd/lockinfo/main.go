// lockinfo reports which kernel call sites spend the most time acquiring and
// holding a mutex, from bpftrace stack samples.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/lockinfo/pkg/lockstat"
	"github.com/danpilch/lockinfo/pkg/tracer"
)

type options struct {
	file       string
	output     string
	command    string
	caller     string
	stackDepth int
	number     int
	sort       int
	interval   int
	format     string
	bpftrace   string
	warmup     time.Duration
	verbose    bool
	timing     bool
	dumpRaw    bool
	verify     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	defaults := tracer.DefaultOptions()

	rootCmd := &cobra.Command{
		Use:   "lockinfo [flags]",
		Short: "Rank kernel call sites by mutex acquire and hold time",
		Long: `lockinfo reduces bpftrace mutex_lock samples into a per call-site report.

With -c the command is run under a generated bpftrace script first; without it
an existing dump (-f) is reduced.

Sort modes (-S):
  0  # holds           4  # ACQs
  1  hold max          5  ACQs max
  2  hold avg          6  ACQs avg
  3  hold total        7  ACQs total time (avg * count), default

Examples:
  lockinfo -c "make -j8" -n 20            # trace a build, show the top 20
  lockinfo -f /tmp/lock_data.out -s 3     # reduce an existing dump, 3 frames deep
  lockinfo -S 3 -n 10 -C kernfs_iop_permission+39`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.verbose)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, opts, logger); err != nil {
				logger.WithError(err).Error("lockinfo failed")
				return err
			}
			return nil
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&opts.file, "file", "f", defaults.DataPath, "bpftrace data file to read (and write, with -c)")
	f.StringVarP(&opts.output, "output", "o", "", "file to write the report to (default stdout)")
	f.StringVarP(&opts.command, "command", "c", "", "command to trace; if empty, only reduce the data file")
	f.StringVarP(&opts.caller, "caller", "C", "", "only show call sites whose immediate caller is this frame")
	f.IntVarP(&opts.stackDepth, "stack-depth", "s", 1, "number of frames that identify a call site")
	f.IntVarP(&opts.number, "number", "n", 0, "number of call sites to show (0 = all)")
	f.IntVarP(&opts.sort, "sort", "S", int(lockstat.DefaultSortMode), "sort key, 0-7 (see above)")
	f.IntVarP(&opts.interval, "interval", "i", 0, "sample every N seconds (not supported)")
	f.StringVar(&opts.format, "format", "plain", "report layout: plain or box")
	f.StringVar(&opts.bpftrace, "bpftrace", defaults.Bpftrace, "bpftrace binary")
	f.DurationVar(&opts.warmup, "warmup", defaults.Warmup, "time to let probes attach before starting the command")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	f.BoolVar(&opts.timing, "timing", false, "print a per-stage timing report to stderr")
	f.BoolVar(&opts.dumpRaw, "dump-raw", false, "print per-stack records before consolidation to stderr")
	f.BoolVar(&opts.verify, "verify", false, "check consolidation invariants and report to stderr")

	return rootCmd
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
