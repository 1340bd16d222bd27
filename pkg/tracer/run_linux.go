//go:build linux

package tracer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func platformRun(ctx context.Context, opts Options, logger *logrus.Logger) error {
	if !opts.AllowNonRoot && unix.Geteuid() != 0 {
		return fmt.Errorf("bpftrace needs root privileges (effective uid %d)", unix.Geteuid())
	}
	if _, err := exec.LookPath(opts.Bpftrace); err != nil {
		return fmt.Errorf("%s not found: install bpftrace or pass --bpftrace", opts.Bpftrace)
	}
	if err := WriteScript(opts); err != nil {
		return err
	}

	out, err := os.Create(opts.DataPath)
	if err != nil {
		return fmt.Errorf("cannot create tracer output: %w", err)
	}
	defer out.Close()

	tracer := tracerCmd(opts, out)
	if err := tracer.Start(); err != nil {
		return fmt.Errorf("cannot start %s: %w", opts.Bpftrace, err)
	}
	logger.WithFields(logrus.Fields{
		"pid":    tracer.Process.Pid,
		"script": opts.ScriptPath,
		"file":   opts.DataPath,
	}).Debug("Tracer started")

	// Let the probes attach before the workload starts.
	select {
	case <-ctx.Done():
	case <-time.After(opts.Warmup):
	}

	if ctx.Err() == nil {
		start := time.Now()
		cmd := commandCmd(ctx, opts)
		if err := cmd.Run(); err != nil {
			logger.WithFields(logrus.Fields{
				"command": opts.Command,
				"error":   err,
			}).Warn("Command did not exit cleanly")
		}
		logger.WithFields(logrus.Fields{
			"command":  opts.Command,
			"duration": time.Since(start),
		}).Debug("Command finished")
	}

	return stopTracer(tracer, logger)
}

// tracerCmd runs the script in its own process group so a terminal interrupt
// aimed at the command does not kill the tracer before it prints its maps.
func tracerCmd(opts Options, out *os.File) *exec.Cmd {
	cmd := exec.Command(opts.Bpftrace, opts.ScriptPath)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// commandCmd keeps the command's own output on the terminal, apart from the dump.
func commandCmd(ctx context.Context, opts Options) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", opts.Command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// stopTracer interrupts bpftrace, which runs its END probe and exits.
func stopTracer(tracer *exec.Cmd, logger *logrus.Logger) error {
	if err := unix.Kill(tracer.Process.Pid, unix.SIGINT); err != nil {
		return fmt.Errorf("cannot interrupt tracer: %w", err)
	}
	if err := tracer.Wait(); err != nil {
		// bpftrace may report the interrupt as its exit status.
		logger.WithField("error", err).Debug("Tracer exited")
	}
	return nil
}
