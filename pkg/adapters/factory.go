package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HatiCode/gradecast/pkg/httpx"
)

// New creates a source based on kind and a generic configuration map.
// This is the central extension point for adding new source types.
//
// Supported kinds:
//   - "http": backend REST feed ("url", optional "method", "headers",
//     "coursesPath", "templateVars")
//   - "postgres": backend database ("dsn", optional "table")
//   - "file": YAML/JSON course file ("path")
//
// The postgres kind opens a connection pool; close it through the returned
// cleanup function. Returns error if kind is unknown or required fields are
// missing.
func New(ctx context.Context, kind string, config map[string]string) (Source, func(), error) {
	switch kind {
	case "http":
		s, err := newHTTP(config)
		return s, func() {}, err
	case "postgres":
		return newPostgres(ctx, config)
	case "file":
		s, err := newFile(config)
		return s, func() {}, err
	default:
		return nil, func() {}, fmt.Errorf("unknown source kind: %s (must be http, postgres, or file)", kind)
	}
}

// newHTTP creates an HTTP source from generic config.
func newHTTP(config map[string]string) (Source, error) {
	url := config["url"]
	if url == "" {
		return nil, fmt.Errorf("http source requires 'url' config")
	}

	var headers map[string]string
	if headersJSON := config["headers"]; headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}

	var templateVars map[string]string
	if varsJSON := config["templateVars"]; varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &templateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}

	src := &HTTPSource{
		URL:          url,
		Method:       config["method"],
		Headers:      headers,
		CoursesPath:  config["coursesPath"],
		TemplateVars: templateVars,
		HTTPClient:   httpx.NewClient(defaultHTTPTimeout),
	}
	if err := src.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	return src, nil
}

// newPostgres opens a pool and wraps it in a PostgresSource.
func newPostgres(ctx context.Context, config map[string]string) (Source, func(), error) {
	dsn := config["dsn"]
	if dsn == "" {
		return nil, func() {}, fmt.Errorf("postgres source requires 'dsn' config")
	}

	src := &PostgresSource{Table: config["table"]}
	if _, err := src.query(); err != nil {
		return nil, func() {}, err
	}

	pool, err := NewPostgresPool(ctx, dsn)
	if err != nil {
		return nil, func() {}, err
	}
	src.Pool = pool
	return src, pool.Close, nil
}

// newFile creates a file source from generic config.
func newFile(config map[string]string) (Source, error) {
	path := config["path"]
	if path == "" {
		return nil, fmt.Errorf("file source requires 'path' config")
	}
	return &FileSource{Path: path}, nil
}
