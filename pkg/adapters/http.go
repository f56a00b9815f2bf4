package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/httpx"
)

// DefaultCoursesPath is where the backend's /api/courses response keeps its
// course array.
const DefaultCoursesPath = "courses"

// HTTPSource calls a REST endpoint returning course records and extracts
// them with gjson paths.
//
// The default layout matches the backend's course feed:
//
//	{"courses": [{"id": 1, "code": "MATH1051", "name": "Calculus",
//	              "grade": 6, "year": 2023, "semester": "S1"}]}
//
// Field keys are looked up relative to each array element, so a differently
// shaped API can be read by overriding CoursesPath and the *Key fields.
// Missing or null grade, year and semester values are tolerated.
type HTTPSource struct {
	// URL is the endpoint to call (required).
	URL string

	// Method is the HTTP method. Defaults to GET if empty.
	Method string

	// Headers are custom HTTP headers. Values may use template variables
	// from TemplateVars, e.g. "Bearer {{.Token}}".
	Headers map[string]string

	// CoursesPath is the gjson path to the course array. Defaults to
	// DefaultCoursesPath; "@this" reads a top-level array.
	CoursesPath string

	// Per-element keys. Empty values use the backend field names.
	IDKey       string
	CodeKey     string
	NameKey     string
	GradeKey    string
	YearKey     string
	SemesterKey string

	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client

	// TemplateVars are custom variables available in header templates.
	TemplateVars map[string]string
}

// defaultHTTPTimeout bounds a backend request when no client is set.
const defaultHTTPTimeout = 10 * time.Second

func (h *HTTPSource) Name() string { return "http" }

// Collect implements Source.
func (h *HTTPSource) Collect(ctx context.Context) (*CourseList, error) {
	if h.URL == "" {
		return &CourseList{}, errors.New("http source: URL is required")
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = httpx.NewClient(defaultHTTPTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, nil)
	if err != nil {
		return &CourseList{}, fmt.Errorf("create request: %w", err)
	}

	templateData := make(map[string]any, len(h.TemplateVars))
	for k, v := range h.TemplateVars {
		templateData[k] = v
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, templateData)
		if err != nil {
			return &CourseList{}, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return &CourseList{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &CourseList{}, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CourseList{}, fmt.Errorf("read response: %w", err)
	}

	courses, err := h.parseCourses(respBody)
	if err != nil {
		return &CourseList{}, err
	}

	return &CourseList{Courses: courses, FetchedAt: time.Now().UTC()}, nil
}

// parseCourses extracts course records from a JSON document.
func (h *HTTPSource) parseCourses(body []byte) ([]forecast.Course, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}

	path := h.CoursesPath
	if path == "" {
		path = DefaultCoursesPath
	}

	list := gjson.GetBytes(body, path)
	if !list.Exists() {
		return nil, fmt.Errorf("courses path %q not found in response", path)
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("courses path %q is not an array", path)
	}

	elems := list.Array()
	courses := make([]forecast.Course, 0, len(elems))
	for i, elem := range elems {
		if !elem.IsObject() {
			return nil, fmt.Errorf("course[%d]: expected object, got %s", i, elem.Type)
		}

		c := forecast.Course{
			ID:       int(elem.Get(keyOr(h.IDKey, "id")).Int()),
			Code:     elem.Get(keyOr(h.CodeKey, "code")).String(),
			Name:     elem.Get(keyOr(h.NameKey, "name")).String(),
			Year:     int(elem.Get(keyOr(h.YearKey, "year")).Int()),
			Semester: elem.Get(keyOr(h.SemesterKey, "semester")).String(),
		}

		grade := elem.Get(keyOr(h.GradeKey, "grade"))
		switch grade.Type {
		case gjson.Null:
			// missing or explicit null: ungraded
		case gjson.Number:
			if grade.Num != float64(int(grade.Num)) {
				return nil, fmt.Errorf("course[%d]: grade %v is not an integer", i, grade.Num)
			}
			c.Grade = forecast.GradeOf(int(grade.Num))
		case gjson.String:
			if strings.TrimSpace(grade.Str) == "" {
				break
			}
			n := gjson.Parse(grade.Str)
			if n.Type != gjson.Number || n.Num != float64(int(n.Num)) {
				return nil, fmt.Errorf("course[%d]: grade %q is not an integer", i, grade.Str)
			}
			c.Grade = forecast.GradeOf(int(n.Num))
		default:
			return nil, fmt.Errorf("course[%d]: unsupported grade type %s", i, grade.Type)
		}

		courses = append(courses, c)
	}
	return courses, nil
}

func keyOr(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}

// renderTemplate renders a text template with the given data
func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ValidateConfig checks if the source configuration is valid
func (h *HTTPSource) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	switch strings.ToUpper(h.Method) {
	case "", http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("invalid method: %s (must be GET or POST)", h.Method)
	}
	return nil
}
