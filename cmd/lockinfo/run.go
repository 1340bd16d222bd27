package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/lockinfo/pkg/crosscheck"
	"github.com/danpilch/lockinfo/pkg/debug"
	"github.com/danpilch/lockinfo/pkg/lockstat"
	"github.com/danpilch/lockinfo/pkg/output"
	"github.com/danpilch/lockinfo/pkg/tracer"
)

// diag receives the optional debug reports, kept apart from the report itself.
var diag io.Writer = os.Stderr

// run traces the command if one was given, then parses, consolidates, ranks
// and renders the data file. Nothing is written to the report destination
// unless every earlier stage succeeded.
func run(ctx context.Context, opts options, logger *logrus.Logger) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	sortMode := lockstat.SortMode(opts.sort)
	if !sortMode.Valid() {
		logger.WithField("sort", opts.sort).Warnf("Invalid sort option, defaulting to %d", lockstat.DefaultSortMode)
		sortMode = lockstat.DefaultSortMode
	}
	if opts.interval != 0 {
		logger.WithField("interval", opts.interval).Warn("Interval mode is not supported, ignoring")
	}

	if opts.command != "" {
		topts := tracer.DefaultOptions()
		topts.Command = opts.command
		topts.DataPath = opts.file
		topts.Bpftrace = opts.bpftrace
		topts.Warmup = opts.warmup
		if err := tracer.Run(ctx, topts, logger); err != nil {
			return fmt.Errorf("tracing %q: %w", opts.command, err)
		}
	}

	sw := debug.NewStopwatch()

	var raw []lockstat.RawRecord
	err = sw.Time("parse", func() error {
		in, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("cannot open data file: %w", err)
		}
		defer in.Close()

		popts := lockstat.DefaultParseOptions()
		popts.StackDepth = opts.stackDepth
		raw, err = lockstat.Parse(in, popts, logger)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.file, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"file":    opts.file,
		"records": len(raw),
	}).Debug("Data file parsed")

	if opts.dumpRaw {
		debug.DumpRawRecords(diag, raw)
	}

	var consolidated []lockstat.Record
	_ = sw.Time("consolidate", func() error {
		consolidated = lockstat.Consolidate(raw)
		return nil
	})
	logger.WithFields(logrus.Fields{
		"stacks":     len(raw),
		"call_sites": len(consolidated),
	}).Debug("Stacks consolidated")

	if opts.verify {
		results := crosscheck.RunSanityChecks(raw, consolidated)
		crosscheck.Report(diag, results)
		if n := crosscheck.Failed(results); n > 0 {
			logger.WithField("failed", n).Warn("Consolidation sanity checks failed")
		}
	}

	var ranked []lockstat.Record
	_ = sw.Time("rank", func() error {
		ranked = lockstat.Rank(consolidated, lockstat.RankOptions{
			Sort:   sortMode,
			TopN:   opts.number,
			Caller: opts.caller,
		})
		return nil
	})

	err = sw.Time("render", func() error {
		sink := output.OpenSink(opts.output, logger)
		if err := output.NewFormatter(format, sink).Render(ranked); err != nil {
			sink.Close()
			return err
		}
		return sink.Close()
	})
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if opts.timing {
		debug.TimingReport(diag, sw.Timings())
	}
	return nil
}
