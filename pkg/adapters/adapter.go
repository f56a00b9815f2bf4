// Package adapters provides gradecast course sources that retrieve a
// student's course records from external systems and normalize them into a
// common CourseList.
//
// Each source implements the Source interface and can be plugged into the
// forecaster loop or the CLI. Available sources:
//   - HTTPSource: reads the backend's REST course feed (gjson paths)
//   - PostgresSource: queries the backend's course table directly
//   - FileSource: loads a YAML or JSON course file
//
// Sources only fetch and shape records. Filtering ungraded courses,
// validating the grade scale and all forecasting happen in package forecast.
package adapters

import (
	"context"
	"time"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

// CourseList is the normalized result of one Collect call.
type CourseList struct {
	// Courses in the order the source returned them. Grade is nil for
	// courses that have not been graded.
	Courses []forecast.Course

	// FetchedAt is when the source finished collecting.
	FetchedAt time.Time
}

// Graded returns the number of courses carrying a grade.
func (l *CourseList) Graded() int {
	n := 0
	for _, c := range l.Courses {
		if c.Graded() {
			n++
		}
	}
	return n
}

// Source is the interface that all course sources must implement.
//
// Collect is synchronous and should respect context cancellation and
// deadlines. It must never panic on malformed upstream data; records that
// cannot be interpreted are reported as errors.
type Source interface {
	Collect(ctx context.Context) (*CourseList, error)

	// Name returns a short identifier, e.g. "http", "postgres", "file".
	Name() string
}
