package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

// Report is everything the forecast command prints.
type Report struct {
	Result    forecast.Result
	Summary   forecast.Summary
	Grades    []forecast.GradeCount
	Semesters []forecast.SemesterPoint
}

var unavailableText = map[forecast.Reason]string{
	forecast.ReasonNoGradedCourses: "No graded courses yet; nothing to forecast from.",
	forecast.ReasonDegreeComplete:  "Every unit of the degree is graded; there is nothing left to forecast.",
}

// WriteReport prints the summary, grade table, semester trend and, when the
// forecast is available, its percentiles and histogram.
func WriteReport(w io.Writer, r Report, width int) error {
	s := r.Summary
	summaryRows := [][]string{
		{"Current GPA", fmt.Sprintf("%.2f", s.CurrentGPA)},
		{"Units attempted / passed", fmt.Sprintf("%d / %d", s.AttemptedUnits, s.PassedUnits)},
		{"Units remaining", fmt.Sprintf("%d of %d", s.RemainingUnits, s.TotalUnits)},
		{"Max possible GPA", fmt.Sprintf("%.2f", s.MaxPossibleGPA)},
	}
	if err := Table(w, nil, summaryRows, map[int]bool{1: true}); err != nil {
		return err
	}

	if len(r.Grades) > 0 {
		if err := section(w, "Grades"); err != nil {
			return err
		}
		rows := make([][]string, 0, len(r.Grades))
		for _, g := range r.Grades {
			rows = append(rows, []string{strconv.Itoa(g.Grade), g.Description, strconv.Itoa(g.Count)})
		}
		if err := Table(w, []string{"Grade", "Description", "Courses"}, rows, map[int]bool{0: true, 2: true}); err != nil {
			return err
		}
	}

	if len(r.Semesters) > 0 {
		if err := section(w, "Semesters"); err != nil {
			return err
		}
		rows := make([][]string, 0, len(r.Semesters))
		for _, p := range r.Semesters {
			trend := "-"
			if p.Trend != nil {
				trend = fmt.Sprintf("%.2f", *p.Trend)
			}
			rows = append(rows, []string{p.Key, fmt.Sprintf("%.2f", p.GPA), trend})
		}
		if err := Table(w, []string{"Semester", "GPA", "Trend"}, rows, map[int]bool{1: true, 2: true}); err != nil {
			return err
		}
	}

	if err := section(w, "Forecast"); err != nil {
		return err
	}
	res := r.Result
	if !res.Available {
		msg, ok := unavailableText[res.Reason]
		if !ok {
			msg = "Forecast unavailable."
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	forecastRows := [][]string{
		{"Simulations", strconv.Itoa(res.Simulations)},
		{"Expected final GPA", fmt.Sprintf("%.3f", res.AverageGPA)},
	}
	if res.Trend {
		forecastRows = append(forecastRows, []string{"Trend-adjusted GPA", fmt.Sprintf("%.3f", res.OptimisticAverageGPA)})
	}
	forecastRows = append(forecastRows, []string{"Max possible GPA", fmt.Sprintf("%.3f", res.MaxPossibleGPA)})
	if err := Table(w, nil, forecastRows, map[int]bool{1: true}); err != nil {
		return err
	}

	if len(res.Percentiles) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		headers := []string{"Percentile", "Baseline"}
		if res.Trend {
			headers = append(headers, "Trend-adjusted")
		}
		rows := make([][]string, 0, len(res.Percentiles))
		for _, p := range res.Percentiles {
			row := []string{p.Label, fmt.Sprintf("%.3f", p.Baseline)}
			if p.Optimistic != nil {
				row = append(row, fmt.Sprintf("%.3f", *p.Optimistic))
			}
			rows = append(rows, row)
		}
		if err := Table(w, headers, rows, map[int]bool{1: true, 2: true}); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return Histogram(w, res.Histogram, width)
}

func section(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "\n%s\n", title)
	return err
}
