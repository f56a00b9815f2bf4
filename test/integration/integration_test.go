//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/HatiCode/gradecast/cmd/forecaster/router"
	"github.com/HatiCode/gradecast/pkg/adapters"
	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/httpx"
	"github.com/HatiCode/gradecast/pkg/storage"
)

const seedSQL = `
CREATE TABLE course (
	id       integer PRIMARY KEY,
	code     text,
	name     text,
	grade    integer,
	year     integer,
	semester text
);
INSERT INTO course (id, code, grade, year, semester) VALUES
	(1, 'MATH1051', 5, 2022, 'S1'),
	(2, 'CSSE1001', 6, 2022, 'S1'),
	(3, 'MATH1052', 7, 2022, 'S2'),
	(4, 'CSSE2002', 7, 2022, 'S2'),
	(5, 'COMP3506', NULL, 2023, 'S1');
`

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("grades"),
		postgres.WithUsername("gradecast"),
		postgres.WithPassword("gradecast"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get postgres connection string: %v", err)
	}

	pool, err := adapters.NewPostgresPool(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, seedSQL); err != nil {
		t.Fatalf("Failed to seed courses: %v", err)
	}
	return dsn
}

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}
	return strings.TrimPrefix(endpoint, "redis://")
}

// TestPostgresToRedisE2E reads courses from the backend database, stores the
// forecast in Redis and serves it over the forecaster's HTTP API.
func TestPostgresToRedisE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	redisAddr := startRedis(ctx, t)

	source, closeSource, err := adapters.New(ctx, "postgres", map[string]string{"dsn": dsn})
	if err != nil {
		t.Fatalf("Failed to build source: %v", err)
	}
	defer closeSource()

	store, err := storage.NewRedisStore(storage.RedisOptions{Addr: redisAddr, TTL: time.Hour, HistoryLimit: 5})
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	defer store.Close()

	opts := forecast.DefaultOptions()
	opts.Simulations = 5000
	opts.Rand = forecast.NewSeededSource(99)

	list, err := source.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	res, err := forecast.Simulate(list.Courses, opts)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	res.Baseline, res.Optimistic = nil, nil

	snapshot := storage.Snapshot{
		Student:     "alice",
		Source:      source.Name(),
		GeneratedAt: time.Now().UTC(),
		TotalUnits:  opts.TotalUnits,
		Simulations: opts.Simulations,
		Trend:       opts.Trend,
		Forecast:    res,
		Summary:     forecast.Summarize(list.Courses, opts.Scale, opts.TotalUnits, forecast.DefaultPassGrade),
		Semesters:   forecast.SemesterTrend(list.Courses),
	}
	if err := store.Put(ctx, snapshot); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := router.SetupRoutes(store, router.Config{StaleAfter: time.Minute, Defaults: opts}, logger)
	srv := httptest.NewServer(httpx.Chain(mux, httpx.RecoveryMiddleware(logger)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/forecast/current?student=alice")
	if err != nil {
		t.Fatalf("Failed to fetch forecast: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("forecast status = %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get(router.StaleHeader) == "true" {
		t.Error("fresh snapshot reported stale")
	}

	var got storage.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode forecast: %v", err)
	}
	if got.Source != "postgres" || !got.Forecast.Available {
		t.Fatalf("snapshot = %+v", got)
	}
	if got.Forecast.RemainingUnits != 28 {
		t.Errorf("RemainingUnits = %d, want 28", got.Forecast.RemainingUnits)
	}
	if math.Abs(got.Forecast.AverageGPA-6.25) > 0.05 {
		t.Errorf("AverageGPA = %v, want about 6.25", got.Forecast.AverageGPA)
	}
	if got.Forecast.OptimisticAverageGPA < got.Forecast.AverageGPA {
		t.Errorf("trend-adjusted %v below baseline %v for an improving student",
			got.Forecast.OptimisticAverageGPA, got.Forecast.AverageGPA)
	}
	if len(got.Semesters) != 2 {
		t.Errorf("len(Semesters) = %d, want 2", len(got.Semesters))
	}

	history, err := store.History(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("len(History) = %d, want 1", len(history))
	}
}
