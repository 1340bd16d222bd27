// Package tracer generates the bpftrace lock tracking script and runs it
// alongside a command, leaving the dump that lockstat parses.
package tracer

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnsupportedPlatform is returned where bpftrace cannot run.
var ErrUnsupportedPlatform = errors.New("lock tracing requires linux and bpftrace")

// Options configures a tracing session.
type Options struct {
	Command    string        // shell command to profile
	ScriptPath string        // where the generated script is written
	DataPath   string        // where the tracer's dump is written
	Bpftrace   string        // bpftrace binary
	Warmup     time.Duration // delay between starting the tracer and the command
	LockFunc   string        // kernel function probed for acquisition
	UnlockFunc string        // kernel function probed for release

	// MaxHold drops hold samples at or above this duration as outliers.
	MaxHold time.Duration

	// AllowNonRoot skips the effective uid check.
	AllowNonRoot bool
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		ScriptPath: "/tmp/lock_tracker.bt",
		DataPath:   "/tmp/lock_data.out",
		Bpftrace:   "bpftrace",
		Warmup:     5 * time.Second,
		LockFunc:   "mutex_lock",
		UnlockFunc: "mutex_unlock",
		MaxHold:    time.Second,
	}
}

// Run writes the script, starts the tracer, runs the command to completion
// and then stops the tracer so it flushes its maps to opts.DataPath.
// Platform-specific implementation in run_linux.go and run_other.go.
func Run(ctx context.Context, opts Options, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return platformRun(ctx, opts, logger)
}
