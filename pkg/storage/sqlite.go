package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver.
)

// sqliteTime is fixed width so generated_at sorts lexically.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is an append-only HistoryStore in a local SQLite file. The CLI
// uses it to keep every saved forecast.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies migrations.
// The parent directory is created if needed; ":memory:" opens a private
// in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecasts (
			id INTEGER PRIMARY KEY,
			student TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			average_gpa REAL NOT NULL,
			max_possible_gpa REAL NOT NULL,
			remaining_units INTEGER NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_student_generated ON forecasts(student, generated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Put appends the snapshot to the student's history.
func (s *SQLiteStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := ValidateStudent(snapshot.Student); err != nil {
		return err
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO forecasts (student, generated_at, average_gpa, max_possible_gpa, remaining_units, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.Student,
		snapshot.GeneratedAt.UTC().Format(sqliteTime),
		snapshot.Forecast.AverageGPA,
		snapshot.Forecast.MaxPossibleGPA,
		snapshot.Forecast.RemainingUnits,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert forecast: %w", err)
	}
	return nil
}

// GetLatest returns the most recently generated snapshot of the student.
func (s *SQLiteStore) GetLatest(ctx context.Context, student string) (Snapshot, bool, error) {
	snapshots, err := s.History(ctx, student, 1)
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(snapshots) == 0 {
		return Snapshot{}, false, nil
	}
	return snapshots[0], true, nil
}

// History returns up to limit snapshots, newest first. limit <= 0 returns
// all of them.
func (s *SQLiteStore) History(ctx context.Context, student string, limit int) ([]Snapshot, error) {
	if student == "" {
		return nil, ErrStudentRequired
	}

	query := `SELECT payload FROM forecasts WHERE student = ? ORDER BY generated_at DESC, id DESC`
	args := []any{student}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		var snapshot Snapshot
		if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
			return nil, fmt.Errorf("decode forecast: %w", err)
		}
		out = append(out, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecasts: %w", err)
	}
	return out, nil
}

// Students lists every student with saved forecasts, alphabetically.
func (s *SQLiteStore) Students(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT student FROM forecasts ORDER BY student`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var student string
		if err := rows.Scan(&student); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, student)
	}
	return out, rows.Err()
}
