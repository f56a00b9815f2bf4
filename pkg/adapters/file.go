package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

// FileSource loads courses from a YAML or JSON file. Both a bare list and
// the backend's {"courses": [...]} envelope are accepted:
//
//	courses:
//	  - {id: 1, code: MATH1051, grade: 6, year: 2023, semester: S1}
//	  - {id: 2, code: CSSE1001, grade: null, year: 2024, semester: S1}
type FileSource struct {
	Path string
}

func (f *FileSource) Name() string { return "file" }

type courseFile struct {
	Courses []forecast.Course `yaml:"courses"`
}

// Collect implements Source. The file is re-read on every call.
func (f *FileSource) Collect(ctx context.Context) (*CourseList, error) {
	if f.Path == "" {
		return &CourseList{}, errors.New("file source: path is required")
	}
	if err := ctx.Err(); err != nil {
		return &CourseList{}, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return &CourseList{}, fmt.Errorf("read course file: %w", err)
	}

	courses, err := ParseCourses(data)
	if err != nil {
		return &CourseList{}, fmt.Errorf("parse %s: %w", f.Path, err)
	}

	return &CourseList{Courses: courses, FetchedAt: time.Now().UTC()}, nil
}

// ParseCourses decodes a YAML (or JSON) course document.
func ParseCourses(data []byte) ([]forecast.Course, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var courses []forecast.Course
		if err := doc.Decode(&courses); err != nil {
			return nil, fmt.Errorf("decode course list: %w", err)
		}
		return courses, nil
	case yaml.MappingNode:
		var file courseFile
		if err := doc.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode course file: %w", err)
		}
		return file.Courses, nil
	default:
		return nil, fmt.Errorf("unexpected document kind %v", doc.Kind)
	}
}
