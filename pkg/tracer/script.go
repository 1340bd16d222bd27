package tracer

import (
	"fmt"
	"os"
	"strings"
)

// Section labels, in the order the END probe prints them.
var SectionLabels = []string{
	"mutex aq _averages",
	"mutex aq max",
	"mutex aq count",
	"mutex hold avg",
	"mutex hold max",
	"mutex hold count",
}

var sectionMaps = []string{
	"@aq_report_avg",
	"@aq_report_max",
	"@aq_report_count",
	"@hl_report_avg",
	"@hl_report_max",
	"@hl_report_count",
}

const rule = "========================================"

// Script returns the bpftrace program for opts. Each acquisition's kernel
// stack is remembered per thread and lock depth so the matching release can
// be attributed to the same stack.
func Script(opts Options) string {
	var b strings.Builder
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	w("#!/usr/bin/env bpftrace")
	w("")
	w("kprobe:%s", opts.LockFunc)
	w("{")
	w("\t@track[tid] = 1;")
	w("\t@stack[tid, @lock_depth[tid]] = kstack();")
	w("\t@time[tid] = nsecs;")
	w("\t@lock_depth[tid] = @lock_depth[tid] + 1;")
	w("}")
	w("")
	w("kretprobe:%s", opts.LockFunc)
	w("/ @track[tid] == 1 /")
	w("{")
	w("\t$now = nsecs;")
	w("\tif ($now > @time[tid]) {")
	w("\t\t@aq_report_avg[@stack[tid, @lock_depth[tid] - 1]] = avg($now - @time[tid]);")
	w("\t\t@aq_report_max[@stack[tid, @lock_depth[tid] - 1]] = max($now - @time[tid]);")
	w("\t\t@aq_report_count[@stack[tid, @lock_depth[tid] - 1]] = count();")
	w("\t}")
	w("\t@time_held[tid, @lock_depth[tid] - 1] = nsecs;")
	w("\t@track[tid] = 0;")
	w("}")
	w("")
	w("kprobe:%s", opts.UnlockFunc)
	w("/ @lock_depth[tid] > 0 /")
	w("{")
	w("\t$now = nsecs;")
	w("\t@lock_depth[tid] = @lock_depth[tid] - 1;")
	w("\tif ($now > @time_held[tid, @lock_depth[tid]]) {")
	w("\t\t$held = $now - @time_held[tid, @lock_depth[tid]];")
	w("\t\tif ($held < %d) {", opts.MaxHold.Nanoseconds())
	w("\t\t\t@hl_report_avg[@stack[tid, @lock_depth[tid]]] = avg($held);")
	w("\t\t\t@hl_report_max[@stack[tid, @lock_depth[tid]]] = max($held);")
	w("\t\t\t@hl_report_count[@stack[tid, @lock_depth[tid]]] = count();")
	w("\t\t}")
	w("\t}")
	w("\tdelete(@stack[tid, @lock_depth[tid]]);")
	w("\tdelete(@time_held[tid, @lock_depth[tid]]);")
	w("}")
	w("")
	w("END")
	w("{")
	for i, label := range SectionLabels {
		w("\tprintf(\"%s\\n\");", rule)
		w("\tprintf(\"%s\\n\");", label)
		w("\tprintf(\"%s\\n\");", rule)
		w("\tprint(%s);", sectionMaps[i])
	}
	w("\tprintf(\"%s\\n\");", rule)
	w("\tprintf(\"END OF DATA\\n\");")
	w("\tprintf(\"%s\\n\");", rule)
	for _, m := range []string{"@track", "@stack", "@time_held", "@time", "@lock_depth"} {
		w("\tclear(%s);", m)
	}
	for _, m := range sectionMaps {
		w("\tclear(%s);", m)
	}
	w("}")

	return b.String()
}

// WriteScript writes the generated program to opts.ScriptPath as an executable.
func WriteScript(opts Options) error {
	if err := os.WriteFile(opts.ScriptPath, []byte(Script(opts)), 0755); err != nil {
		return fmt.Errorf("cannot write tracer script: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(opts.ScriptPath, 0755); err != nil {
		return fmt.Errorf("cannot make tracer script executable: %w", err)
	}
	return nil
}
