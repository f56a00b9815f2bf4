package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

// DefaultCourseTable is the backend's course table.
const DefaultCourseTable = "course"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// querier is the subset of *pgxpool.Pool the source needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads course records straight from the backend database.
//
// Nullable text and year columns are coalesced so that partially filled
// rows load as ungraded or unlabelled courses instead of failing the scan.
type PostgresSource struct {
	// Pool is the connection pool (required). See NewPostgresPool.
	Pool querier

	// Table overrides DefaultCourseTable. It may be schema qualified.
	Table string
}

func (p *PostgresSource) Name() string { return "postgres" }

// NewPostgresPool opens a pgx pool for databaseURL and verifies it with a ping.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres: database URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Collect implements Source. Rows come back in the backend's listing order.
func (p *PostgresSource) Collect(ctx context.Context) (*CourseList, error) {
	if p.Pool == nil {
		return &CourseList{}, errors.New("postgres source: pool is required")
	}

	query, err := p.query()
	if err != nil {
		return &CourseList{}, err
	}

	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return &CourseList{}, fmt.Errorf("query courses: %w", err)
	}

	courses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (forecast.Course, error) {
		var (
			c     forecast.Course
			grade *int32
		)
		if err := row.Scan(&c.ID, &c.Code, &c.Name, &grade, &c.Year, &c.Semester); err != nil {
			return forecast.Course{}, err
		}
		if grade != nil {
			c.Grade = forecast.GradeOf(int(*grade))
		}
		return c, nil
	})
	if err != nil {
		return &CourseList{}, fmt.Errorf("scan courses: %w", err)
	}

	return &CourseList{Courses: courses, FetchedAt: time.Now().UTC()}, nil
}

func (p *PostgresSource) query() (string, error) {
	table := p.Table
	if table == "" {
		table = DefaultCourseTable
	}
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("postgres source: invalid table name %q", table)
	}
	return fmt.Sprintf(`SELECT id,
		COALESCE(code, ''),
		COALESCE(name, ''),
		grade,
		COALESCE(year, 0),
		COALESCE(semester, '')
	FROM %s
	ORDER BY year DESC NULLS LAST, semester DESC NULLS LAST, code`, table), nil
}
