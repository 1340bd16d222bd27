package lockstat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(frames []string, acqAvg, acqMax, acqCount, holdAvg, holdMax, holdCount int64) Record {
	return Record{
		Frames:    frames,
		AcqAvg:    acqAvg,
		AcqMax:    acqMax,
		AcqCount:  acqCount,
		HoldAvg:   holdAvg,
		HoldMax:   holdMax,
		HoldCount: holdCount,
	}
}

func TestRankSortModes(t *testing.T) {
	// Each record wins exactly one column.
	records := []Record{
		rec([]string{"hold_count"}, 1, 1, 1, 1, 1, 900),
		rec([]string{"hold_max"}, 1, 1, 1, 1, 900, 1),
		rec([]string{"hold_avg"}, 1, 1, 1, 900, 1, 1),
		rec([]string{"hold_total"}, 1, 1, 1, 100, 1, 100),
		rec([]string{"acq_count"}, 1, 1, 900, 1, 1, 1),
		rec([]string{"acq_max"}, 1, 900, 1, 1, 1, 1),
		rec([]string{"acq_avg"}, 900, 1, 1, 1, 1, 1),
		rec([]string{"acq_total"}, 100, 1, 100, 1, 1, 1),
	}

	tests := []struct {
		mode SortMode
		want string
	}{
		{SortHoldCount, "hold_count"},
		{SortHoldMax, "hold_max"},
		{SortHoldAvg, "hold_avg"},
		{SortHoldTotal, "hold_total"},
		{SortAcqCount, "acq_count"},
		{SortAcqMax, "acq_max"},
		{SortAcqAvg, "acq_avg"},
		{SortAcqTotal, "acq_total"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			ranked := Rank(records, RankOptions{Sort: tt.mode})
			require.Len(t, ranked, len(records))
			assert.Equal(t, tt.want, ranked[0].Caller())
			for i := 1; i < len(ranked); i++ {
				assert.GreaterOrEqual(t, tt.mode.Key(ranked[i-1]), tt.mode.Key(ranked[i]))
			}
		})
	}
}

func TestRankTotals(t *testing.T) {
	records := []Record{rec([]string{"x"}, 7, 0, 6, 3, 0, 5)}

	ranked := Rank(records, RankOptions{Sort: DefaultSortMode})
	require.Len(t, ranked, 1)
	assert.Equal(t, int64(42), ranked[0].AcqTotal)
	assert.Equal(t, int64(15), ranked[0].HoldTotal)
	assert.Zero(t, records[0].AcqTotal, "input must not be modified")
}

func TestRankDefaultOrderNonIncreasing(t *testing.T) {
	records := []Record{
		rec([]string{"a"}, 10, 0, 10, 0, 0, 0),
		rec([]string{"b"}, 50, 0, 5, 0, 0, 0),
		rec([]string{"c"}, 1, 0, 1000, 0, 0, 0),
		rec([]string{"d"}, 0, 0, 0, 0, 0, 0),
		rec([]string{"e"}, 3, 0, 3, 0, 0, 0),
	}

	ranked := Rank(records, RankOptions{Sort: SortAcqTotal})
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].AcqAvg*ranked[i-1].AcqCount, ranked[i].AcqAvg*ranked[i].AcqCount)
	}
	assert.Equal(t, "c", ranked[0].Caller())
}

func TestRankTopN(t *testing.T) {
	records := []Record{
		rec([]string{"a"}, 1, 0, 1, 0, 0, 0),
		rec([]string{"b"}, 2, 0, 2, 0, 0, 0),
		rec([]string{"c"}, 3, 0, 3, 0, 0, 0),
	}

	tests := []struct {
		name string
		topN int
		want []string
	}{
		{"all when zero", 0, []string{"c", "b", "a"}},
		{"truncates", 2, []string{"c", "b"}},
		{"clamps when larger", 10, []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := Rank(records, RankOptions{Sort: SortAcqTotal, TopN: tt.topN})
			var got []string
			for _, r := range ranked {
				got = append(got, r.Caller())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankFiltersAfterTruncation(t *testing.T) {
	records := []Record{
		rec([]string{"bar+3"}, 100, 0, 100, 0, 0, 0),
		rec([]string{"foo", "a"}, 90, 0, 90, 0, 0, 0),
		rec([]string{"foo", "b"}, 80, 0, 80, 0, 0, 0),
		rec([]string{"foo", "c"}, 70, 0, 70, 0, 0, 0),
		rec([]string{"foo", "d"}, 60, 0, 60, 0, 0, 0),
		rec([]string{"foo", "e"}, 50, 0, 50, 0, 0, 0),
	}

	ranked := Rank(records, RankOptions{Sort: SortAcqTotal, TopN: 2, Caller: "foo"})
	require.Len(t, ranked, 1)
	assert.Equal(t, "foo:a", ranked[0].CalledFrom())

	ranked = Rank(records, RankOptions{Sort: SortAcqTotal, Caller: "foo"})
	assert.Len(t, ranked, 5)

	ranked = Rank(records, RankOptions{Sort: SortAcqTotal, Caller: "Foo"})
	assert.Empty(t, ranked)
}

func TestRecordCaller(t *testing.T) {
	assert.Equal(t, "", Record{}.Caller())
	assert.Equal(t, "do_sys_open+98", Record{Frames: []string{"do_sys_open+98"}}.Caller())
	assert.Equal(t, "ext4_file_write_iter+73", Record{Frames: []string{"ext4_file_write_iter+73 [ext4]", "x"}}.Caller())
}

func TestParseSortMode(t *testing.T) {
	m, err := ParseSortMode("3")
	require.NoError(t, err)
	assert.Equal(t, SortHoldTotal, m)

	for _, s := range []string{"8", "-1", "x"} {
		m, err := ParseSortMode(s)
		assert.Error(t, err, s)
		assert.Equal(t, DefaultSortMode, m)
	}

	assert.False(t, SortMode(8).Valid())
	assert.Equal(t, "invalid(8)", SortMode(8).String())
}
