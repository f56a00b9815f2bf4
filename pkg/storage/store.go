// Package storage provides forecast snapshot storage implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

// Snapshot is one persisted forecast for a student.
type Snapshot struct {
	Student     string    `json:"student"`
	Source      string    `json:"source,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	TotalUnits  int  `json:"totalUnits"`
	Simulations int  `json:"simulations"`
	Trend       bool `json:"trend"`

	// Forecast holds the simulation outcome without raw samples.
	Forecast forecast.Result `json:"forecast"`

	// Summary is the passed-units view of the same course list.
	Summary forecast.Summary `json:"summary"`

	// Semesters is the per-semester GPA series with its trendline.
	Semesters []forecast.SemesterPoint `json:"semesters,omitempty"`
}

// Store keeps the latest snapshot per student.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, student string) (Snapshot, bool, error)
}

// HistoryStore additionally keeps previous snapshots, newest first.
type HistoryStore interface {
	Store
	History(ctx context.Context, student string, limit int) ([]Snapshot, error)
}

// ErrStudentRequired is returned when a snapshot or lookup has no student.
var ErrStudentRequired = errors.New("student name required")

// ValidateStudent checks that a student name is usable as a storage key:
// non-empty and limited to letters, digits, hyphens, underscores and dots.
func ValidateStudent(student string) error {
	if student == "" {
		return ErrStudentRequired
	}
	for _, c := range student {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.') {
			return fmt.Errorf("invalid student name %q: only alphanumeric, hyphens, underscores and dots allowed", student)
		}
	}
	return nil
}
