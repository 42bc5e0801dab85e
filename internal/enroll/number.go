// Package enroll derives year-scoped sequential enrollment numbers.
package enroll

import (
	"fmt"

	"github.com/acadly/tuition/internal/academy"
)

// DefaultPrefix is used when the deployment does not configure its own.
const DefaultPrefix = "ENR"

// Next derives the enrollment number for a new student enrolling in year:
// prefix + 2-digit year + 4-digit zero-padded sequence. The sequence is the
// count of existing students enrolled in the same calendar year, plus one.
//
// The counter is derived from a scan, not stored: two callers creating
// students in the same instant can collide. Callers needing strict
// uniqueness must serialize creation at the persistence layer.
func Next(existing []academy.Student, year int, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	seq := 1
	for _, s := range existing {
		if s.EnrollmentDate.Year() == year {
			seq++
		}
	}
	return fmt.Sprintf("%s%02d%04d", prefix, year%100, seq)
}
