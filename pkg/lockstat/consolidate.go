package lockstat

import "sort"

// Consolidate folds raw records into one Record per call site. Records are
// folded in call-site order (then stack order), so the truncating average is
// reproducible run to run. The result is sorted by call site.
func Consolidate(raw []RawRecord) []Record {
	ordered := make([]RawRecord, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := ordered[i].CalledFrom(), ordered[j].CalledFrom()
		if ci != cj {
			return ci < cj
		}
		return ordered[i].Stack < ordered[j].Stack
	})

	index := make(map[string]int, len(ordered))
	var out []Record
	for _, rec := range ordered {
		key := rec.CalledFrom()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Record{Frames: append([]string(nil), rec.Frames...)})
		}
		out[i].Fold(rec)
	}
	return out
}

// Fold merges one raw record into r. Counts add, maxima keep the larger value
// and averages are re-weighted by count using integer division.
func (r *Record) Fold(in RawRecord) {
	r.AcqAvg, r.AcqCount = weightedAvg(r.AcqAvg, r.AcqCount, in.Metrics[AcqAvg], in.Metrics[AcqCount])
	r.HoldAvg, r.HoldCount = weightedAvg(r.HoldAvg, r.HoldCount, in.Metrics[HoldAvg], in.Metrics[HoldCount])

	if in.Metrics[AcqMax] > r.AcqMax {
		r.AcqMax = in.Metrics[AcqMax]
	}
	if in.Metrics[HoldMax] > r.HoldMax {
		r.HoldMax = in.Metrics[HoldMax]
	}
}

// weightedAvg combines two (avg, count) pairs. A zero combined count leaves
// the average unchanged.
func weightedAvg(avg, count, inAvg, inCount int64) (int64, int64) {
	sum := avg*count + inAvg*inCount
	count += inCount
	if count == 0 {
		return avg, count
	}
	return sum / count, count
}
