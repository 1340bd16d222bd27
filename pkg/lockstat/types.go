// Package lockstat turns bpftrace lock-contention dumps into per-call-site statistics.
//
// The pipeline is strictly one way: Parse builds one RawRecord per distinct
// kernel stack, Consolidate folds those into one Record per call site, and
// Rank orders, truncates and filters the call sites for display.
package lockstat

import "strings"

// Metric identifies one of the six per-stack values the tracer reports.
// The numeric order is the order the sections appear in the dump.
type Metric int

const (
	AcqAvg Metric = iota
	AcqMax
	AcqCount
	HoldAvg
	HoldMax
	HoldCount

	numMetrics
)

// Sections lists the metrics in the order the tracer prints them.
var Sections = [numMetrics]Metric{AcqAvg, AcqMax, AcqCount, HoldAvg, HoldMax, HoldCount}

var metricNames = [numMetrics]string{
	AcqAvg:    "acquire avg",
	AcqMax:    "acquire max",
	AcqCount:  "acquire count",
	HoldAvg:   "hold avg",
	HoldMax:   "hold max",
	HoldCount: "hold count",
}

func (m Metric) String() string {
	if m < 0 || m >= numMetrics {
		return "unknown"
	}
	return metricNames[m]
}

// FrameSeparator joins call-site frames in the textual CalledFrom form.
const FrameSeparator = ":"

// RawRecord holds the six metrics collected for one distinct kernel stack.
type RawRecord struct {
	// Stack is the full stack text, one frame per line. It is the identity of the record.
	Stack   string
	// Frames is the depth-limited call-site prefix, leaf caller first.
	Frames  []string
	Metrics [numMetrics]int64
}

// CalledFrom returns the call-site identifier used to group stacks.
func (r RawRecord) CalledFrom() string {
	return strings.Join(r.Frames, FrameSeparator)
}

// Record is the merged statistics of every stack sharing a call site.
type Record struct {
	Frames []string

	AcqAvg   int64
	AcqMax   int64
	AcqCount int64

	HoldAvg   int64
	HoldMax   int64
	HoldCount int64

	// Totals are filled in by Rank.
	AcqTotal  int64
	HoldTotal int64
}

// CalledFrom returns the call-site identifier of the record.
func (r Record) CalledFrom() string {
	return strings.Join(r.Frames, FrameSeparator)
}

// Caller returns the symbol of the leading frame, the immediate caller of the
// lock function. Anything after the first space (a module annotation) is dropped.
func (r Record) Caller() string {
	if len(r.Frames) == 0 {
		return ""
	}
	caller, _, _ := strings.Cut(r.Frames[0], " ")
	return caller
}
