package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelation_Compare(t *testing.T) {
	cases := []struct {
		rel  Relation
		a, b float64
		want bool
	}{
		{RelEq, 1.0, 1.0, true},
		{RelEq, 1.0, 2.0, false},
		{RelNe, 1.0, 2.0, true},
		{RelNe, 1.0, 1.0, false},
		{RelLt, 1.0, 2.0, true},
		{RelLt, 2.0, 2.0, false},
		{RelGt, 3.0, 2.0, true},
		{RelGt, 2.0, 2.0, false},
		{RelLe, 2.0, 2.0, true},
		{RelLe, 3.0, 2.0, false},
		{RelGe, 2.0, 2.0, true},
		{RelGe, 1.0, 2.0, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.rel.Compare(tc.a, tc.b),
			"%v %s %v", tc.a, tc.rel, tc.b)
	}
}

func TestParseRelation(t *testing.T) {
	cases := map[string]Relation{
		"=":     RelEq,
		"is":    RelEq,
		"<>":    RelNe,
		"NOT":   RelNe,
		"<":     RelLt,
		"below": RelLt,
		">":     RelGt,
		"Above": RelGt,
		"<=":    RelLe,
		">=":    RelGe,
		" >= ":  RelGe,
	}
	for s, want := range cases {
		got, err := ParseRelation(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseRelation("~=")
	assert.Error(t, err)
}

func TestParseTimeRelation(t *testing.T) {
	cases := map[string]TimeRelation{
		"":       TimeAt,
		"at":     TimeAt,
		"=":      TimeAt,
		"before": TimeBefore,
		"<":      TimeBefore,
		"after":  TimeAfter,
		">":      TimeAfter,
	}
	for s, want := range cases {
		got, err := ParseTimeRelation(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseTimeRelation("during")
	assert.Error(t, err)

	assert.Equal(t, "at", TimeAt.String())
	assert.Equal(t, "before", TimeBefore.String())
	assert.Equal(t, "after", TimeAfter.String())
}

func TestSecToHMS(t *testing.T) {
	assert.Equal(t, "00:00:00", secToHMS(0))
	assert.Equal(t, "06:00:00", secToHMS(21600))
	assert.Equal(t, "23:59:59", secToHMS(86399))
	// Hours past a day do not wrap.
	assert.Equal(t, "25:00:01", secToHMS(90001))
}

func TestSecToClock(t *testing.T) {
	assert.Equal(t, "12:00:00 AM", secToClock(0))
	assert.Equal(t, "6:30:00 AM", secToClock(23400))
	assert.Equal(t, "12:00:00 PM", secToClock(43200))
	assert.Equal(t, "1:15:05 PM", secToClock(47705))
	assert.Equal(t, "11:59:59 PM", secToClock(86399))
}
