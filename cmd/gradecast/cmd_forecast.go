package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/HatiCode/gradecast/internal/config"
	"github.com/HatiCode/gradecast/internal/render"
	"github.com/HatiCode/gradecast/pkg/adapters"
	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/storage"
)

const defaultStudent = "me"

type forecastOptions struct {
	student     string
	courses     string
	backendURL  string
	coursesPath string
	headers     map[string]string
	dsn         string
	table       string

	totalUnits  int
	simulations int
	trend       bool
	percentiles string
	gradeMin    int
	gradeMax    int
	seed        uint64

	json    bool
	save    bool
	width   int
	timeout time.Duration
}

// forecastOutput is the --json document.
type forecastOutput struct {
	Student     string                   `json:"student"`
	Source      string                   `json:"source"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Forecast    forecast.Result          `json:"forecast"`
	Summary     forecast.Summary         `json:"summary"`
	Grades      []forecast.GradeCount    `json:"grades"`
	Semesters   []forecast.SemesterPoint `json:"semesters"`
}

func newForecastCmd(global *globalOptions) *cobra.Command {
	opts := &forecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Simulate the final GPA from graded courses",
		Long: `Forecast reads the graded courses from a file, the backend API or the
backend database and simulates the grades of the remaining units by sampling
from the student's own grade history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForecast(cmd, global, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.student, "student", defaultStudent, "student name used when saving")
	f.StringVar(&opts.courses, "courses", "", "YAML or JSON course file")
	f.StringVar(&opts.backendURL, "backend-url", "", "backend course endpoint")
	f.StringVar(&opts.coursesPath, "courses-path", "", "path of the course array in the backend response (default: courses)")
	f.StringToStringVar(&opts.headers, "header", nil, "backend request header, e.g. --header Authorization='Bearer x'")
	f.StringVar(&opts.dsn, "dsn", "", "backend Postgres connection string")
	f.StringVar(&opts.table, "table", "", "backend course table (default: course)")

	f.IntVar(&opts.totalUnits, "total-units", forecast.DefaultTotalUnits, "graded units required for the degree")
	f.IntVar(&opts.simulations, "simulations", forecast.DefaultSimulations, "number of Monte Carlo trials")
	f.BoolVar(&opts.trend, "trend", true, "also run the trend-adjusted forecast")
	f.StringVar(&opts.percentiles, "percentiles", "p10,p50,p90", "reported percentiles")
	f.IntVar(&opts.gradeMin, "grade-min", forecast.DefaultMinGrade, "lowest grade on the scale")
	f.IntVar(&opts.gradeMax, "grade-max", forecast.DefaultMaxGrade, "highest grade on the scale")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed for a reproducible forecast")

	f.BoolVar(&opts.json, "json", false, "print the forecast as JSON")
	f.BoolVar(&opts.save, "save", false, "append the forecast to the local history")
	f.IntVar(&opts.width, "width", 0, "output width (default: terminal width)")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "course source timeout")

	return cmd
}

func runForecast(cmd *cobra.Command, global *globalOptions, opts *forecastOptions) error {
	fileCfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	opts.applyConfig(cmd, fileCfg)

	simOpts, err := opts.simulateOptions(cmd.Flags().Changed("seed"))
	if err != nil {
		return err
	}

	kind, sourceCfg, err := opts.sourceConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	source, closeSource, err := adapters.New(ctx, kind, sourceCfg)
	if err != nil {
		return fmt.Errorf("failed to open %s source: %w", kind, err)
	}
	defer closeSource()

	list, err := source.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to read courses: %w", err)
	}
	slog.Debug("collected courses", "source", source.Name(), "courses", len(list.Courses), "graded", list.Graded())

	start := time.Now()
	res, err := forecast.Simulate(list.Courses, simOpts)
	if err != nil {
		return err
	}
	slog.Debug("simulated", "simulations", simOpts.Simulations, "duration_ms", time.Since(start).Milliseconds())

	out := forecastOutput{
		Student:     opts.student,
		Source:      source.Name(),
		GeneratedAt: time.Now().UTC(),
		Forecast:    res,
		Summary:     forecast.Summarize(list.Courses, simOpts.Scale, simOpts.TotalUnits, forecast.DefaultPassGrade),
		Grades:      forecast.GradeCounts(list.Courses),
		Semesters:   forecast.SemesterTrend(list.Courses),
	}

	if opts.save {
		if err := saveForecast(cmd.Context(), global.resolvedDBPath(fileCfg), out, simOpts); err != nil {
			return err
		}
	}

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	return render.WriteReport(cmd.OutOrStdout(), render.Report{
		Result:    out.Forecast,
		Summary:   out.Summary,
		Grades:    out.Grades,
		Semesters: out.Semesters,
	}, opts.width)
}

func (o *forecastOptions) applyConfig(cmd *cobra.Command, cfg config.FileConfig) {
	applyStringConfig(cmd, "student", &o.student, cfg.Student)
	applyIntConfig(cmd, "total-units", &o.totalUnits, cfg.Forecast.TotalUnits)
	applyIntConfig(cmd, "simulations", &o.simulations, cfg.Forecast.Simulations)
	applyBoolConfig(cmd, "trend", &o.trend, cfg.Forecast.Trend)
	applyStringConfig(cmd, "percentiles", &o.percentiles, cfg.Forecast.Percentiles)
	applyIntConfig(cmd, "grade-min", &o.gradeMin, cfg.Forecast.Scale.Min)
	applyIntConfig(cmd, "grade-max", &o.gradeMax, cfg.Forecast.Scale.Max)

	// A source chosen on the command line replaces the configured one.
	if cmd.Flags().Changed("courses") || cmd.Flags().Changed("backend-url") || cmd.Flags().Changed("dsn") {
		applyStringConfig(cmd, "courses-path", &o.coursesPath, cfg.Source.CoursesPath)
		applyStringConfig(cmd, "table", &o.table, cfg.Source.Table)
	} else {
		applyStringConfig(cmd, "courses", &o.courses, cfg.Source.Courses)
		applyStringConfig(cmd, "backend-url", &o.backendURL, cfg.Source.BackendURL)
		applyStringConfig(cmd, "courses-path", &o.coursesPath, cfg.Source.CoursesPath)
		applyStringConfig(cmd, "dsn", &o.dsn, cfg.Source.DSN)
		applyStringConfig(cmd, "table", &o.table, cfg.Source.Table)
	}
	if len(cfg.Source.Headers) > 0 && !cmd.Flags().Changed("header") {
		o.headers = cfg.Source.Headers
	}
}

func (o *forecastOptions) simulateOptions(seeded bool) (forecast.Options, error) {
	levels, err := forecast.ParsePercentiles(o.percentiles)
	if err != nil {
		return forecast.Options{}, fmt.Errorf("--percentiles: %w", err)
	}

	opts := forecast.DefaultOptions()
	opts.TotalUnits = o.totalUnits
	opts.Simulations = o.simulations
	opts.Trend = o.trend
	opts.Percentiles = levels
	opts.Scale = forecast.GradeScale{Min: o.gradeMin, Max: o.gradeMax}
	if seeded {
		opts.Rand = forecast.NewSeededSource(o.seed)
	}

	if err := opts.Validate(); err != nil {
		return forecast.Options{}, err
	}
	return opts, nil
}

// sourceConfig picks the adapter kind from whichever of --courses,
// --backend-url and --dsn is set. Exactly one must be.
func (o *forecastOptions) sourceConfig() (string, map[string]string, error) {
	var kinds []string
	if o.courses != "" {
		kinds = append(kinds, "file")
	}
	if o.backendURL != "" {
		kinds = append(kinds, "http")
	}
	if o.dsn != "" {
		kinds = append(kinds, "postgres")
	}

	switch len(kinds) {
	case 0:
		return "", nil, errors.New("no course source: set --courses, --backend-url or --dsn")
	case 1:
	default:
		return "", nil, fmt.Errorf("choose one course source, got %v", kinds)
	}

	switch kinds[0] {
	case "file":
		return "file", map[string]string{"path": expandHome(o.courses)}, nil
	case "http":
		cfg := map[string]string{"url": o.backendURL, "coursesPath": o.coursesPath}
		if len(o.headers) > 0 {
			data, err := json.Marshal(o.headers)
			if err != nil {
				return "", nil, fmt.Errorf("encode headers: %w", err)
			}
			cfg["headers"] = string(data)
		}
		return "http", cfg, nil
	default:
		return "postgres", map[string]string{"dsn": o.dsn, "table": o.table}, nil
	}
}

func saveForecast(ctx context.Context, dbPath string, out forecastOutput, opts forecast.Options) error {
	st, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Warn("failed to close history", "error", cerr)
		}
	}()

	res := out.Forecast
	res.Baseline = nil
	res.Optimistic = nil

	snapshot := storage.Snapshot{
		Student:     out.Student,
		Source:      out.Source,
		GeneratedAt: out.GeneratedAt,
		TotalUnits:  opts.TotalUnits,
		Simulations: opts.Simulations,
		Trend:       opts.Trend,
		Forecast:    res,
		Summary:     out.Summary,
		Semesters:   out.Semesters,
	}
	if err := st.Put(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	slog.Debug("saved forecast", "db", dbPath, "student", out.Student)
	return nil
}
