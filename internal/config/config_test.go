package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "gradecast", "config.toml") {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "gradecast", "history.db") {
		t.Errorf("DefaultDBPath() = %q", got)
	}
}

func TestXDGFallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/student")

	if got := XDGConfigHome(); got != filepath.Join("/home/student", ".config") {
		t.Errorf("XDGConfigHome() = %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `student = "alice"

[forecast]
total-units = 24
trend = false

[forecast.scale]
max = 5

[source]
backend-url = "http://localhost:5000/api/courses"

[source.headers]
Authorization = "Bearer x"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Student == nil || *cfg.Student != "alice" {
		t.Errorf("Student = %v", cfg.Student)
	}
	if cfg.Forecast.TotalUnits == nil || *cfg.Forecast.TotalUnits != 24 {
		t.Errorf("TotalUnits = %v", cfg.Forecast.TotalUnits)
	}
	if cfg.Forecast.Trend == nil || *cfg.Forecast.Trend {
		t.Errorf("Trend = %v", cfg.Forecast.Trend)
	}
	if cfg.Forecast.Simulations != nil || cfg.Forecast.Scale.Min != nil {
		t.Error("unset key should stay nil")
	}
	if cfg.Forecast.Scale.Max == nil || *cfg.Forecast.Scale.Max != 5 {
		t.Errorf("Scale.Max = %v", cfg.Forecast.Scale.Max)
	}
	if cfg.Source.Headers["Authorization"] != "Bearer x" {
		t.Errorf("Headers = %v", cfg.Source.Headers)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Student != nil {
		t.Error("missing file should give an empty config")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Error("empty path should fail")
	}

	dir := t.TempDir()
	tests := map[string]string{
		"malformed":   "student = ",
		"unknown key": "[forecast]\nsimulation = 10\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(DefaultTemplate), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("template does not parse: %v", err)
	}
}
