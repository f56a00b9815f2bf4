package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/storage"
)

func testConfig() Config {
	defaults := forecast.DefaultOptions()
	defaults.Simulations = 2000
	return Config{
		StaleAfter:   2 * time.Minute,
		MaxBodyBytes: 64 << 10,
		Defaults:     defaults,
	}
}

func newTestMux(store storage.Store) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupRoutes(store, testConfig(), logger)
}

func serve(mux http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := serve(newTestMux(storage.NewMemoryStore()), http.MethodGet, "/healthz", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); body != "OK" {
		t.Errorf("body = %q, want %q", body, "OK")
	}
}

type pingStore struct {
	storage.Store
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func TestHealthEndpoint_StorePing(t *testing.T) {
	down := pingStore{Store: storage.NewMemoryStore(), err: errors.New("connection refused")}
	w := serve(newTestMux(down), http.MethodGet, "/healthz", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := serve(newTestMux(storage.NewMemoryStore()), http.MethodGet, "/metrics", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("Content-Type") == "" {
		t.Error("Content-Type header should be set for metrics endpoint")
	}
}

func TestGetSnapshot(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	fresh := storage.Snapshot{
		Student:     "alice",
		GeneratedAt: time.Now(),
		Forecast:    forecast.Result{Available: true, AverageGPA: 6.25},
	}
	stale := storage.Snapshot{
		Student:     "bob",
		GeneratedAt: time.Now().Add(-10 * time.Minute),
	}
	for _, s := range []storage.Snapshot{fresh, stale} {
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	mux := newTestMux(store)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantStale  bool
	}{
		{"missing student", "/forecast/current", http.StatusBadRequest, false},
		{"invalid student", "/forecast/current?student=a%20b", http.StatusBadRequest, false},
		{"unknown student", "/forecast/current?student=carol", http.StatusNotFound, false},
		{"fresh snapshot", "/forecast/current?student=alice", http.StatusOK, false},
		{"stale snapshot", "/forecast/current?student=bob", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(mux, http.MethodGet, tt.target, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("status code = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if stale := w.Header().Get(StaleHeader) == "true"; stale != tt.wantStale {
				t.Errorf("stale header = %v, want %v", stale, tt.wantStale)
			}
		})
	}

	w := serve(mux, http.MethodGet, "/forecast/current?student=alice", nil)
	var got storage.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Student != "alice" || got.Forecast.AverageGPA != 6.25 {
		t.Errorf("snapshot = %+v", got)
	}
}

type failingStore struct{}

func (failingStore) Put(context.Context, storage.Snapshot) error { return errors.New("down") }
func (failingStore) GetLatest(context.Context, string) (storage.Snapshot, bool, error) {
	return storage.Snapshot{}, false, errors.New("down")
}

func TestGetSnapshot_StoreError(t *testing.T) {
	w := serve(newTestMux(failingStore{}), http.MethodGet, "/forecast/current?student=alice", nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "down") {
		t.Error("store error details should not leak to the client")
	}
}

func TestGetSnapshot_MethodNotAllowed(t *testing.T) {
	w := serve(newTestMux(storage.NewMemoryStore()), http.MethodDelete, "/forecast/current?student=alice", nil)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want 405", w.Code)
	}
}

func simulateBody(t *testing.T, req SimulateRequest) io.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func exampleCourses() []forecast.Course {
	return []forecast.Course{
		{ID: 1, Code: "MATH1051", Grade: forecast.GradeOf(5), Year: 2022, Semester: "S1"},
		{ID: 2, Code: "CSSE1001", Grade: forecast.GradeOf(6), Year: 2022, Semester: "S1"},
		{ID: 3, Code: "MATH1052", Grade: forecast.GradeOf(7), Year: 2022, Semester: "S2"},
		{ID: 4, Code: "CSSE2002", Grade: forecast.GradeOf(7), Year: 2022, Semester: "S2"},
		{ID: 5, Code: "COMP3506", Year: 2023, Semester: "S1"},
	}
}

func TestSimulate(t *testing.T) {
	seed := uint64(7)
	trend := false
	body := simulateBody(t, SimulateRequest{Courses: exampleCourses(), Seed: &seed, Trend: &trend})

	w := serve(newTestMux(storage.NewMemoryStore()), http.MethodPost, "/forecast/simulate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", w.Code, w.Body.String())
	}

	var resp SimulateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !resp.Forecast.Available || resp.Forecast.RemainingUnits != 28 {
		t.Fatalf("forecast = %+v", resp.Forecast)
	}
	if math.Abs(resp.Forecast.AverageGPA-6.25) > 0.05 {
		t.Errorf("AverageGPA = %v, want about 6.25", resp.Forecast.AverageGPA)
	}
	if resp.Forecast.MaxPossibleGPA != 6.90625 {
		t.Errorf("MaxPossibleGPA = %v, want 6.90625", resp.Forecast.MaxPossibleGPA)
	}
	if resp.Forecast.Optimistic != nil || resp.Forecast.OptimisticAverageGPA != 0 {
		t.Error("trend=false should not produce an optimistic forecast")
	}
	if resp.Summary.PassedUnits != 4 || resp.Summary.CurrentGPA != 6.25 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if len(resp.Grades) == 0 || resp.Grades[0].Grade != 7 || resp.Grades[0].Count != 2 {
		t.Errorf("grades = %+v", resp.Grades)
	}
	if len(resp.Semesters) != 2 || resp.Semesters[1].Trend == nil {
		t.Errorf("semesters = %+v", resp.Semesters)
	}
}

func TestSimulate_Seeded(t *testing.T) {
	mux := newTestMux(storage.NewMemoryStore())
	seed := uint64(42)

	var avgs []float64
	for i := 0; i < 2; i++ {
		w := serve(mux, http.MethodPost, "/forecast/simulate", simulateBody(t, SimulateRequest{Courses: exampleCourses(), Seed: &seed}))
		var resp SimulateResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		avgs = append(avgs, resp.Forecast.OptimisticAverageGPA)
	}

	if avgs[0] != avgs[1] {
		t.Errorf("same seed gave different results: %v", avgs)
	}
}

func TestSimulate_Unavailable(t *testing.T) {
	body := simulateBody(t, SimulateRequest{Courses: []forecast.Course{{ID: 1, Code: "X"}}})

	w := serve(newTestMux(storage.NewMemoryStore()), http.MethodPost, "/forecast/simulate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}

	var resp SimulateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Forecast.Available || resp.Forecast.Reason != forecast.ReasonNoGradedCourses {
		t.Errorf("forecast = %+v", resp.Forecast)
	}
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed", `{"courses":`, http.StatusBadRequest},
		{"unknown field", `{"courses":[],"student":"alice"}`, http.StatusBadRequest},
		{"grade out of scale", `{"courses":[{"id":1,"grade":9}]}`, http.StatusUnprocessableEntity},
		{"negative units", `{"courses":[],"totalUnits":-1}`, http.StatusBadRequest},
		{"too many simulations", `{"courses":[],"simulations":999999999}`, http.StatusBadRequest},
		{"bad percentile", `{"courses":[],"percentiles":["p0"]}`, http.StatusBadRequest},
		{"NaN percentile", `{"courses":[],"percentiles":["NaN"]}`, http.StatusBadRequest},
		{"huge degree", `{"courses":[{"id":1,"grade":5}],"simulations":1,"totalUnits":4000000000}`, http.StatusBadRequest},
		{"inverted scale", `{"courses":[],"scale":{"min":7,"max":1}}`, http.StatusBadRequest},
		{"grade above custom scale", `{"courses":[{"id":1,"grade":5}],"scale":{"min":0,"max":4}}`, http.StatusUnprocessableEntity},
		{"too large", `{"courses":[` + strings.Repeat(`{"id":1,"grade":5},`, 5000) + `{"id":2}]}`, http.StatusRequestEntityTooLarge},
	}

	mux := newTestMux(storage.NewMemoryStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(mux, http.MethodPost, "/forecast/simulate", strings.NewReader(tt.body))
			if w.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestSimulateRequest_Options(t *testing.T) {
	cfg := testConfig()
	trend := false
	req := SimulateRequest{TotalUnits: 24, Simulations: 10, Trend: &trend, Percentiles: []string{"p25", "0.75"}}

	opts, err := req.options(cfg)
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if opts.TotalUnits != 24 || opts.Simulations != 10 || opts.Trend {
		t.Errorf("opts = %+v", opts)
	}
	if len(opts.Percentiles) != 2 || opts.Percentiles[0] != 0.25 {
		t.Errorf("Percentiles = %v", opts.Percentiles)
	}
	if opts.Rand != nil {
		t.Error("Rand should be nil without a seed")
	}

	defaults, err := SimulateRequest{}.options(cfg)
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if defaults.TotalUnits != cfg.Defaults.TotalUnits || defaults.Simulations != cfg.Defaults.Simulations || !defaults.Trend {
		t.Errorf("defaults = %+v", defaults)
	}
}

func TestSimulateRequest_OptionsLimits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTotalUnits = 40

	if _, err := (SimulateRequest{TotalUnits: 40}).options(cfg); err != nil {
		t.Errorf("options() at the unit cap error = %v", err)
	}
	if _, err := (SimulateRequest{TotalUnits: 41}).options(cfg); err == nil {
		t.Error("options() above the unit cap should fail")
	}

	cfg.MaxTotalUnits = 0
	if _, err := (SimulateRequest{TotalUnits: DefaultMaxTotalUnits + 1}).options(cfg); err == nil {
		t.Error("options() should fall back to DefaultMaxTotalUnits")
	}

	opts, err := SimulateRequest{Scale: &forecast.GradeScale{Min: 0, Max: 4}}.options(cfg)
	if err != nil {
		t.Fatalf("options() with scale error = %v", err)
	}
	if opts.Scale != (forecast.GradeScale{Min: 0, Max: 4}) {
		t.Errorf("Scale = %+v, want 0..4", opts.Scale)
	}
}
