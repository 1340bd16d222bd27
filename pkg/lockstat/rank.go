package lockstat

import (
	"fmt"
	"sort"
	"strconv"
)

// SortMode selects the column the report is ranked by, descending.
type SortMode int

const (
	SortHoldCount SortMode = iota
	SortHoldMax
	SortHoldAvg
	SortHoldTotal
	SortAcqCount
	SortAcqMax
	SortAcqAvg
	SortAcqTotal
)

// DefaultSortMode ranks by total time spent acquiring.
const DefaultSortMode = SortAcqTotal

var sortModeNames = map[SortMode]string{
	SortHoldCount: "# holds",
	SortHoldMax:   "hold max",
	SortHoldAvg:   "hold avg",
	SortHoldTotal: "hold total",
	SortAcqCount:  "# acqs",
	SortAcqMax:    "acq max",
	SortAcqAvg:    "acq avg",
	SortAcqTotal:  "acq total (avg * count)",
}

func (m SortMode) String() string {
	if name, ok := sortModeNames[m]; ok {
		return name
	}
	return "invalid(" + strconv.Itoa(int(m)) + ")"
}

// Valid reports whether m is one of the eight sort modes.
func (m SortMode) Valid() bool {
	return m >= SortHoldCount && m <= SortAcqTotal
}

// ParseSortMode converts the numeric CLI selector into a SortMode.
func ParseSortMode(s string) (SortMode, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return DefaultSortMode, fmt.Errorf("invalid sort mode %q: %w", s, err)
	}
	m := SortMode(n)
	if !m.Valid() {
		return DefaultSortMode, fmt.Errorf("sort mode %d out of range 0-7", n)
	}
	return m, nil
}

// Key returns the value r is ranked by under m. Invalid modes rank by the default.
func (m SortMode) Key(r Record) int64 {
	switch m {
	case SortHoldCount:
		return r.HoldCount
	case SortHoldMax:
		return r.HoldMax
	case SortHoldAvg:
		return r.HoldAvg
	case SortHoldTotal:
		return r.HoldTotal
	case SortAcqCount:
		return r.AcqCount
	case SortAcqMax:
		return r.AcqMax
	case SortAcqAvg:
		return r.AcqAvg
	default:
		return r.AcqTotal
	}
}

// RankOptions controls ordering and selection of report rows.
type RankOptions struct {
	Sort SortMode
	// TopN limits the rows kept after sorting; 0 or less keeps all.
	TopN int
	// Caller, when set, keeps only rows whose leading frame matches exactly.
	// It is applied after TopN, so fewer than TopN rows may survive.
	Caller string
}

// Rank computes totals, sorts descending by opts.Sort, truncates to
// opts.TopN and then applies the caller filter. The input is not modified.
func Rank(records []Record, opts RankOptions) []Record {
	ranked := make([]Record, len(records))
	copy(ranked, records)
	for i := range ranked {
		ranked[i].AcqTotal = ranked[i].AcqAvg * ranked[i].AcqCount
		ranked[i].HoldTotal = ranked[i].HoldAvg * ranked[i].HoldCount
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return opts.Sort.Key(ranked[i]) > opts.Sort.Key(ranked[j])
	})

	if opts.TopN > 0 && opts.TopN < len(ranked) {
		ranked = ranked[:opts.TopN]
	}

	if opts.Caller == "" {
		return ranked
	}
	filtered := ranked[:0]
	for _, r := range ranked {
		if r.Caller() == opts.Caller {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
