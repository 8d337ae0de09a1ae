package datetime

import "time"

// Range is a finite cursor over evenly spaced instants. It is consumed by
// repeated Next calls and restarted by constructing a new Range over the
// same bounds.
type Range struct {
	next time.Time
	end  time.Time
	step time.Duration
}

// Next returns the next instant in the range, or ok=false once exhausted.
func (r *Range) Next() (time.Time, bool) {
	if r.step <= 0 || r.next.After(r.end) {
		return time.Time{}, false
	}
	t := r.next
	r.next = r.next.Add(r.step)
	return t, true
}

// Remaining counts the instants left without consuming them.
func (r *Range) Remaining() int {
	if r.step <= 0 || r.next.After(r.end) {
		return 0
	}
	return int(r.end.Sub(r.next)/r.step) + 1
}

// Days iterates day starts from the day containing from through the day
// containing to, inclusive.
func Days(from, to time.Time) *Range {
	return &Range{next: startOfDay(from), end: startOfDay(to), step: 24 * time.Hour}
}

// Hours iterates hour starts from the hour containing from through the
// hour containing to, inclusive.
func Hours(from, to time.Time) *Range {
	return &Range{next: from.Truncate(time.Hour), end: to.Truncate(time.Hour), step: time.Hour}
}

// Weeks iterates 7-day strides starting at the day containing from.
func Weeks(from, to time.Time) *Range {
	return &Range{next: startOfDay(from), end: startOfDay(to), step: 7 * 24 * time.Hour}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
