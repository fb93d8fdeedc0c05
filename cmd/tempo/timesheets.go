package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/timecalc"
	"github.com/dori/tempo/internal/weekly"
)

var (
	weekDate string
	weekSeed bool

	logProject string
	logTask    string
	logDate    string
	logStart   string
	logEnd     string
	logMemo    string
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Print the aggregated hours of a week",
	Example: `  tempo week
  tempo week --date lastweek
  tempo week --date 2024-06-05 --seed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := timecalc.ParseReference(weekDate, time.Now())
		if err != nil {
			return err
		}

		a, err := open(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		board := a.Board(api.TaskQuery{})
		if err := board.Load(ctx); err != nil {
			a.Log.Debug("task titles unavailable", zap.Error(err))
		}
		loader := a.Loader(board)

		if weekSeed {
			created, err := loader.Seed(ctx, ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d logs\n", len(created))
		}

		sheet, err := loader.Load(ctx, ref)
		if err != nil {
			return err
		}
		printSheet(cmd.OutOrStdout(), sheet)
		return nil
	},
}

// printSheet renders the week as a table with a totals footer
func printSheet(w io.Writer, sheet *weekly.Sheet) {
	headers := []string{"Task"}
	for _, d := range sheet.Week.Days {
		headers = append(headers, fmt.Sprintf("%s %02d", d.Weekday, d.Date.Day()))
	}
	headers = append(headers, "Total")

	var rows [][]string
	for _, r := range sheet.Rows {
		label := r.Label
		if r.IsBlank() {
			label = "(no entries)"
		}
		row := []string{label}
		for _, h := range r.HoursByDay {
			row = append(row, hours(h))
		}
		rows = append(rows, append(row, hours(r.Total())))
	}

	footer := []string{"Total"}
	for _, h := range sheet.DayTotals {
		footer = append(footer, hours(h))
	}
	rows = append(rows, append(footer, hours(sheet.Total)))

	bold := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := cell
			if row == table.HeaderRow || row == last {
				style = bold
			}
			if col > 0 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})

	fmt.Fprintf(w, "Week of %s\n", sheet.Week.Title())
	fmt.Fprintln(w, t.Render())
}

func hours(h float64) string {
	if h == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", h)
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log time on a project",
	Example: `  tempo log --project p1 --task t9 --start 09:00 --end 12:30 --memo "Quarterly report"
  tempo log --project p1 --date yesterday --start 14:00 --end 16:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := timecalc.ParseReference(logDate, time.Now())
		if err != nil {
			return err
		}
		date := day.Format(timecalc.DateLayout)

		minutes := timecalc.ComputeDuration(date, logStart, date, logEnd)
		if minutes == 0 {
			return fmt.Errorf("end %q must be after start %q", logEnd, logStart)
		}

		a, err := open(false)
		if err != nil {
			return err
		}
		defer a.Close()

		in := model.NewEntryInput(logProject, logTask, a.Config.EmployeeID, date, logStart, date, logEnd, logMemo)
		saved, err := a.API.CreateTimesheet(cmd.Context(), in)
		if err != nil {
			return err
		}

		id := "(no id returned)"
		if saved != nil && saved.ID != "" {
			id = saved.ID
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on %s: %s\n", timecalc.FormatMinutes(minutes), date, id)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <entry-id>",
	Short: "Delete a timesheet entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.API.DeleteTimesheet(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	weekCmd.Flags().StringVar(&weekDate, "date", "today", "Any day of the week: YYYY-MM-DD, today, yesterday, lastweek, monday...")
	weekCmd.Flags().BoolVar(&weekSeed, "seed", false, "Ask the server to create the week's logs first")

	logCmd.Flags().StringVar(&logProject, "project", "", "Project id (required)")
	logCmd.Flags().StringVar(&logTask, "task", "", "Task id")
	logCmd.Flags().StringVar(&logDate, "date", "today", "Day of the entry")
	logCmd.Flags().StringVar(&logStart, "start", "", "Start time, HH:MM (required)")
	logCmd.Flags().StringVar(&logEnd, "end", "", "End time, HH:MM (required)")
	logCmd.Flags().StringVar(&logMemo, "memo", "", "What was done")
	_ = logCmd.MarkFlagRequired("project")
	_ = logCmd.MarkFlagRequired("start")
	_ = logCmd.MarkFlagRequired("end")
}

