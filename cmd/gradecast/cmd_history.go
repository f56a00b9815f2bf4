package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HatiCode/gradecast/internal/render"
	"github.com/HatiCode/gradecast/pkg/storage"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var (
		student string
		limit   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved forecasts",
		Long: `History lists the forecasts saved with "gradecast forecast --save",
newest first. Without --student it lists the students that have history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("student") && fileCfg.Student != nil {
				student = *fileCfg.Student
			}
			if limit < 0 {
				return errors.New("--limit must be >= 0")
			}

			dbPath := global.resolvedDBPath(fileCfg)
			if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved forecasts yet. Run gradecast forecast --save.")
				return nil
			}

			st, err := storage.OpenSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer st.Close()

			if student == "" {
				students, err := st.Students(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, students)
				}
				rows := make([][]string, 0, len(students))
				for _, s := range students {
					rows = append(rows, []string{s})
				}
				return render.Table(cmd.OutOrStdout(), []string{"Student"}, rows, nil)
			}

			if err := storage.ValidateStudent(student); err != nil {
				return err
			}
			snapshots, err := st.History(cmd.Context(), student, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snapshots)
			}
			if len(snapshots) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No saved forecasts for %s.\n", student)
				return nil
			}
			return render.Table(cmd.OutOrStdout(), historyHeaders, historyRows(snapshots), map[int]bool{2: true, 3: true, 4: true, 5: true})
		},
	}

	cmd.Flags().StringVar(&student, "student", "", "student whose history to show")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of forecasts to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the history as JSON")

	return cmd
}

var historyHeaders = []string{"Generated", "Source", "Remaining", "Expected", "Trend-adj", "Max"}

func historyRows(snapshots []storage.Snapshot) [][]string {
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		res := s.Forecast
		expected, trendAdj := "-", "-"
		if res.Available {
			expected = formatGPA(res.AverageGPA)
			if s.Trend {
				trendAdj = formatGPA(res.OptimisticAverageGPA)
			}
		}
		rows = append(rows, []string{
			s.GeneratedAt.Local().Format("2006-01-02 15:04"),
			s.Source,
			strconv.Itoa(res.RemainingUnits),
			expected,
			trendAdj,
			formatGPA(res.MaxPossibleGPA),
		})
	}
	return rows
}

func formatGPA(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
