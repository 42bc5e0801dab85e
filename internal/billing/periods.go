package billing

import "time"

// MonthLabelLayout is the canonical label for a billable calendar month.
// Monthly payments are tied to items by this label in ReferenceID.
const MonthLabelLayout = "January 2006"

// Month is one enumerable billing period of a monthly-type course.
type Month struct {
	// Index is 1-based position within the billing window.
	Index int
	// Start is the first day of the calendar month, UTC.
	Start time.Time
	Label string
}

// monthStart truncates t to the first day of its calendar month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsElapsed counts whole calendar months from the first day of the
// enrollment month through asOf's month inclusive. A month counts as soon
// as it has begun. Returns 0 when asOf precedes the enrollment month.
func MonthsElapsed(enrolled, asOf time.Time) int {
	from := monthStart(enrolled)
	to := monthStart(asOf)
	if to.Before(from) {
		return 0
	}
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}

// BillableMonths enumerates the payable months for a student enrolled at
// enrolled, as of asOf, bounded by durationMonths. The sequence is finite
// and restartable: identical inputs always yield the identical slice, in
// oldest-first order. Future months are never included.
func BillableMonths(enrolled, asOf time.Time, durationMonths int) []Month {
	n := MonthsElapsed(enrolled, asOf)
	if n > durationMonths {
		n = durationMonths
	}
	if n <= 0 {
		return nil
	}
	out := make([]Month, 0, n)
	start := monthStart(enrolled)
	for i := 0; i < n; i++ {
		m := start.AddDate(0, i, 0)
		out = append(out, Month{Index: i + 1, Start: m, Label: m.Format(MonthLabelLayout)})
	}
	return out
}
