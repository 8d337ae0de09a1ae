package datetime

import (
	"testing"
	"time"
)

func TestDays_FiniteAndInclusive(t *testing.T) {
	from := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC)

	r := Days(from, to)
	var got []time.Time
	for {
		d, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, d)
	}

	if len(got) != 4 {
		t.Fatalf("got %d days, want 4", len(got))
	}
	if got[0].Hour() != 0 || got[0].Day() != 1 {
		t.Errorf("first day = %v, want start of Mar 1", got[0])
	}
	if got[3].Day() != 4 {
		t.Errorf("last day = %v, want Mar 4", got[3])
	}

	// Exhausted cursor stays exhausted.
	if _, ok := r.Next(); ok {
		t.Error("exhausted range produced another value")
	}
}

func TestRange_RestartableByReconstruction(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first := Days(from, to)
	first.Next()
	first.Next()

	second := Days(from, to)
	d, ok := second.Next()
	if !ok || d.Day() != 1 {
		t.Errorf("reconstructed range should restart: %v ok=%v", d, ok)
	}
}

func TestHoursAndWeeks(t *testing.T) {
	from := time.Date(2026, 3, 1, 9, 10, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := Hours(from, to).Remaining(); got != 4 {
		t.Errorf("hours remaining = %d, want 4 (9,10,11,12)", got)
	}

	weekTo := time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)
	if got := Weeks(from, weekTo).Remaining(); got != 4 {
		t.Errorf("weeks remaining = %d, want 4", got)
	}
}

func TestParseWhen(t *testing.T) {
	got, err := ParseWhen("2026-03-01")
	if err != nil {
		t.Fatalf("ParseWhen: %v", err)
	}
	if got.Year() != 2026 || got.Month() != 3 || got.Day() != 1 {
		t.Errorf("parsed %v", got)
	}

	if _, err := ParseWhen(""); err != ErrNoDate {
		t.Errorf("empty input: err = %v, want ErrNoDate", err)
	}
	if _, err := ParseWhen("not a date at all zzz"); err != ErrNoDate {
		t.Errorf("garbage input: err = %v, want ErrNoDate", err)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	c := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !SameDay(a, b) || SameDay(b, c) {
		t.Error("SameDay boundary logic wrong")
	}
}
