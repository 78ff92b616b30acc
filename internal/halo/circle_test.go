package halo

import (
	"testing"
	"time"
)

func TestMonthIndex(t *testing.T) {
	created := time.Unix(1_700_000_000, 0)
	c := &Circle{CreatedAt: created.Unix(), DurationMonths: 3}

	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{29 * 24 * time.Hour, 0},
		{30 * 24 * time.Hour, 1},
		{61 * 24 * time.Hour, 2},
		// Clamped at duration-1.
		{365 * 24 * time.Hour, 2},
	}
	for _, tc := range cases {
		if got := c.MonthIndex(created.Add(tc.elapsed)); got != tc.want {
			t.Errorf("MonthIndex(+%s) = %d; want %d", tc.elapsed, got, tc.want)
		}
	}

	if got := c.MonthIndex(created.Add(-time.Hour)); got != 0 {
		t.Errorf("MonthIndex before creation = %d; want 0", got)
	}
}

func TestHasMember(t *testing.T) {
	c := &Circle{Members: []string{"alice", "bob"}}
	if !c.HasMember("alice") {
		t.Error("expected alice on roster")
	}
	if c.HasMember("carol") {
		t.Error("carol should not be on roster")
	}
}
