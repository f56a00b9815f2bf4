// Package config provides configuration parsing and management for the forecaster.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. A .env file in the working directory is
// loaded into the environment before flags are parsed. The Config struct contains
// all runtime configuration for the forecaster including:
//   - Student identification and course source (http, postgres, file)
//   - Simulation parameters (total units, simulations, trend, percentiles)
//   - Snapshot storage (memory or redis)
//   - Timing configuration (interval, stale threshold)
//   - Logging configuration (level, format)
//
// Source-specific settings are read from SOURCE_* environment variables and
// converted to lowerCamelCase keys: SOURCE_URL -> url, SOURCE_COURSES_PATH ->
// coursesPath, SOURCE_DSN -> dsn.
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables (including .env)
//  3. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	opts, err := cfg.ForecastOptions()
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"

	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/storage"
)

// Config holds all forecaster configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	Store         string
	MemoryTTL     time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	RedisHistory  int

	Student      string
	Source       string
	SourceConfig map[string]string

	TotalUnits  int
	Simulations int
	Trend       bool
	Percentiles string
	GradeMin    int
	GradeMax    int

	Interval     time.Duration
	StaleAfter   time.Duration
	MaxBodyBytes int64
}

// ParseFlags loads .env, parses os.Args and exits on invalid configuration.
func ParseFlags() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Parse registers the forecaster flags on fs, parses args and validates the
// result. Environment variables provide the flag defaults.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	fs.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8081"), "HTTP listen address")

	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	fs.StringVar(&cfg.Store, "store", getEnv("STORE", "memory"), "Snapshot store: memory or redis")
	fs.DurationVar(&cfg.MemoryTTL, "memory-ttl", getEnvDuration("MEMORY_TTL", 0), "Evict in-memory snapshots older than this (0 disables)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	fs.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "Redis snapshot TTL")
	fs.IntVar(&cfg.RedisHistory, "redis-history", getEnvInt("REDIS_HISTORY", 50), "Snapshots kept per student in Redis history")

	fs.StringVar(&cfg.Student, "student", getEnv("STUDENT", ""), "Student the forecast loop runs for (required)")
	fs.StringVar(&cfg.Source, "source", getEnv("SOURCE", "http"), "Course source: http, postgres, or file")

	fs.IntVar(&cfg.TotalUnits, "total-units", getEnvInt("TOTAL_UNITS", forecast.DefaultTotalUnits), "Graded units required for the degree")
	fs.IntVar(&cfg.Simulations, "simulations", getEnvInt("SIMULATIONS", forecast.DefaultSimulations), "Monte Carlo trials per forecast")
	fs.BoolVar(&cfg.Trend, "trend", getEnvBool("TREND", true), "Also run the trend-adjusted forecast")
	fs.StringVar(&cfg.Percentiles, "percentiles", getEnv("PERCENTILES", "p10,p50,p90"), "Reported percentiles (p90 or 0.90 notation, comma separated)")
	fs.IntVar(&cfg.GradeMin, "grade-min", getEnvInt("GRADE_MIN", forecast.DefaultMinGrade), "Lowest grade on the scale")
	fs.IntVar(&cfg.GradeMax, "grade-max", getEnvInt("GRADE_MAX", forecast.DefaultMaxGrade), "Highest grade on the scale")

	fs.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 5*time.Minute), "Forecast interval")
	fs.DurationVar(&cfg.StaleAfter, "stale-after", getEnvDuration("STALE_AFTER", 0), "Mark snapshots stale after this age (default 2x interval)")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", int64(getEnvInt("MAX_BODY_BYTES", 1<<20)), "Maximum POST /forecast/simulate body size")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.SourceConfig = parseSourceConfig(os.Environ())

	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * cfg.Interval
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the forecaster cannot run with.
func (c *Config) Validate() error {
	if err := storage.ValidateStudent(c.Student); err != nil {
		return fmt.Errorf("--student: %w", err)
	}

	switch c.Source {
	case "http", "postgres", "file":
	default:
		return fmt.Errorf("invalid source %q (must be http, postgres, or file)", c.Source)
	}

	switch c.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid store %q (must be memory or redis)", c.Store)
	}
	if c.Store == "redis" && c.RedisAddr == "" {
		return errors.New("--redis-addr is required when store=redis")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}

	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0, got %v", c.Interval)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be > 0, got %d", c.MaxBodyBytes)
	}

	if _, err := c.ForecastOptions(); err != nil {
		return err
	}
	return nil
}

// ForecastOptions converts the simulation settings into forecast.Options.
func (c *Config) ForecastOptions() (forecast.Options, error) {
	levels, err := forecast.ParsePercentiles(c.Percentiles)
	if err != nil {
		return forecast.Options{}, fmt.Errorf("percentiles: %w", err)
	}

	opts := forecast.DefaultOptions()
	opts.TotalUnits = c.TotalUnits
	opts.Simulations = c.Simulations
	opts.Trend = c.Trend
	opts.Percentiles = levels
	// A zero scale means unset; Parse always fills both bounds.
	if c.GradeMin != 0 || c.GradeMax != 0 {
		opts.Scale = forecast.GradeScale{Min: c.GradeMin, Max: c.GradeMax}
	}

	if err := opts.Validate(); err != nil {
		return forecast.Options{}, err
	}
	return opts, nil
}

const sourceEnvPrefix = "SOURCE_"

// parseSourceConfig collects SOURCE_* variables into a map keyed by the
// lowerCamelCase remainder of the name. SOURCE itself is the kind, not config.
func parseSourceConfig(environ []string) map[string]string {
	config := make(map[string]string)

	for _, env := range environ {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, sourceEnvPrefix) {
			continue
		}
		key := toLowerCamelCase(strings.TrimPrefix(name, sourceEnvPrefix))
		if key == "" {
			continue
		}
		config[key] = value
	}

	return config
}

func toLowerCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")

	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(part)
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
