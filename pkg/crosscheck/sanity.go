// Package crosscheck verifies that consolidated lock statistics agree with
// the per-stack data they were built from.
package crosscheck

import (
	"fmt"

	"github.com/danpilch/lockinfo/pkg/lockstat"
)

// SanityResult holds the outcome of one consistency check.
type SanityResult struct {
	Check   string
	Passed  bool
	Details string
}

type group struct {
	acqCount, holdCount int64
	acqMax, holdMax     int64

	acqLo, acqHi   int64
	holdLo, holdHi int64
	acqSeen        bool
	holdSeen       bool
}

// RunSanityChecks compares consolidated records against the raw records:
// counts are conserved, maxima match the largest contributor and every
// merged average lies between the smallest and largest contributing average.
func RunSanityChecks(raw []lockstat.RawRecord, consolidated []lockstat.Record) []SanityResult {
	groups := make(map[string]*group)
	var rawAcq, rawHold int64
	for _, r := range raw {
		key := r.CalledFrom()
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		m := r.Metrics
		rawAcq += m[lockstat.AcqCount]
		rawHold += m[lockstat.HoldCount]
		g.acqCount += m[lockstat.AcqCount]
		g.holdCount += m[lockstat.HoldCount]
		g.acqMax = max(g.acqMax, m[lockstat.AcqMax])
		g.holdMax = max(g.holdMax, m[lockstat.HoldMax])
		if m[lockstat.AcqCount] > 0 {
			g.acqLo, g.acqHi = widen(g.acqSeen, g.acqLo, g.acqHi, m[lockstat.AcqAvg])
			g.acqSeen = true
		}
		if m[lockstat.HoldCount] > 0 {
			g.holdLo, g.holdHi = widen(g.holdSeen, g.holdLo, g.holdHi, m[lockstat.HoldAvg])
			g.holdSeen = true
		}
	}

	var consAcq, consHold int64
	for _, c := range consolidated {
		consAcq += c.AcqCount
		consHold += c.HoldCount
	}

	results := []SanityResult{
		equal("call sites", int64(len(groups)), int64(len(consolidated))),
		equal("acquire count conserved", rawAcq, consAcq),
		equal("hold count conserved", rawHold, consHold),
	}

	var failed []SanityResult
	for _, c := range consolidated {
		key := c.CalledFrom()
		g, ok := groups[key]
		if !ok {
			failed = append(failed, SanityResult{
				Check:   key,
				Details: "call site has no raw stacks",
			})
			continue
		}
		checks := []SanityResult{
			equal(key+" acquire max", g.acqMax, c.AcqMax),
			equal(key+" hold max", g.holdMax, c.HoldMax),
			within(key+" acquire avg", g.acqSeen, g.acqLo, g.acqHi, c.AcqAvg),
			within(key+" hold avg", g.holdSeen, g.holdLo, g.holdHi, c.HoldAvg),
		}
		for _, r := range checks {
			if !r.Passed {
				failed = append(failed, r)
			}
		}
	}

	results = append(results, SanityResult{
		Check:   "per call-site max and avg",
		Passed:  len(failed) == 0,
		Details: fmt.Sprintf("%d call sites, %d failures", len(consolidated), len(failed)),
	})
	return append(results, failed...)
}

func widen(seen bool, lo, hi, v int64) (int64, int64) {
	if !seen {
		return v, v
	}
	return min(lo, v), max(hi, v)
}

func equal(check string, want, got int64) SanityResult {
	if want == got {
		return SanityResult{Check: check, Passed: true, Details: fmt.Sprintf("%d", got)}
	}
	return SanityResult{Check: check, Details: fmt.Sprintf("expected %d, got %d", want, got)}
}

func within(check string, seen bool, lo, hi, got int64) SanityResult {
	if !seen {
		if got == 0 {
			return SanityResult{Check: check, Passed: true, Details: "no samples"}
		}
		return SanityResult{Check: check, Details: fmt.Sprintf("no samples but average %d", got)}
	}
	if got < lo || got > hi {
		return SanityResult{Check: check, Details: fmt.Sprintf("%d outside [%d, %d]", got, lo, hi)}
	}
	return SanityResult{Check: check, Passed: true, Details: fmt.Sprintf("%d within [%d, %d]", got, lo, hi)}
}
