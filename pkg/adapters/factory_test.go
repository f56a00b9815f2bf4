package adapters

import (
	"context"
	"strings"
	"testing"
)

func TestNew_HTTP(t *testing.T) {
	config := map[string]string{
		"url":          "http://backend:5000/api/courses",
		"headers":      `{"Authorization": "Bearer {{.Token}}"}`,
		"templateVars": `{"Token": "abc"}`,
	}

	src, cleanup, err := New(context.Background(), "http", config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cleanup()

	httpSrc, ok := src.(*HTTPSource)
	if !ok {
		t.Fatalf("expected *HTTPSource, got %T", src)
	}
	if httpSrc.URL != "http://backend:5000/api/courses" {
		t.Errorf("URL = %s", httpSrc.URL)
	}
	if httpSrc.Headers["Authorization"] != "Bearer {{.Token}}" {
		t.Errorf("Headers = %v", httpSrc.Headers)
	}
	if httpSrc.TemplateVars["Token"] != "abc" {
		t.Errorf("TemplateVars = %v", httpSrc.TemplateVars)
	}
	if httpSrc.HTTPClient == nil || httpSrc.HTTPClient.Timeout != defaultHTTPTimeout {
		t.Errorf("HTTPClient = %+v, want a client with timeout %v", httpSrc.HTTPClient, defaultHTTPTimeout)
	}
}

func TestNew_File(t *testing.T) {
	src, cleanup, err := New(context.Background(), "file", map[string]string{"path": "courses.yaml"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cleanup()

	fileSrc, ok := src.(*FileSource)
	if !ok {
		t.Fatalf("expected *FileSource, got %T", src)
	}
	if fileSrc.Path != "courses.yaml" {
		t.Errorf("Path = %s, want courses.yaml", fileSrc.Path)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		config  map[string]string
		wantMsg string
	}{
		{"unknown kind", "prometheus", nil, "unknown source kind"},
		{"http without url", "http", map[string]string{}, "requires 'url'"},
		{"http bad headers", "http", map[string]string{"url": "http://x", "headers": "{"}, "invalid 'headers'"},
		{"http bad vars", "http", map[string]string{"url": "http://x", "templateVars": "["}, "invalid 'templateVars'"},
		{"http bad method", "http", map[string]string{"url": "http://x", "method": "PATCH"}, "invalid method"},
		{"postgres without dsn", "postgres", map[string]string{}, "requires 'dsn'"},
		{"postgres bad table", "postgres", map[string]string{"dsn": "postgres://x", "table": "course; DROP"}, "invalid table"},
		{"file without path", "file", map[string]string{}, "requires 'path'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, cleanup, err := New(context.Background(), tt.kind, tt.config)
			if cleanup == nil {
				t.Fatal("cleanup must never be nil")
			}
			cleanup()
			if err == nil {
				t.Fatalf("expected error, got source %T", src)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}
