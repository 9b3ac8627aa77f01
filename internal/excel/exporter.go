package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/overseer/internal/feedback"
	"github.com/example/overseer/pkg/models"
)

const exportTimeLayout = "2006-01-02 15:04"

// ExportPlan writes a workbook with one row per session of plan.
func ExportPlan(w io.Writer, plan models.StudyPlan) error {
	rows := [][]any{{"Scheduled for", "Kind", "Topic", "Minutes", "Status", "Difficulty", "Notes"}}
	for _, s := range plan.Sessions {
		rows = append(rows, []any{
			formatTime(s.ScheduledFor),
			s.Kind,
			deref(s.Topic),
			s.DurationMinutes,
			s.Status,
			derefInt(s.Difficulty),
			deref(s.Notes),
		})
	}
	return writeWorkbook(w, []sheet{{name: "Plan", rows: rows}})
}

// ExportFeedback writes the feedback statistics as a summary sheet followed by
// one sheet per list.
func ExportFeedback(w io.Writer, stats feedback.Stats) error {
	summary := [][]any{
		{"Metric", "Value"},
		{"Scope", string(stats.Scope)},
		{"Start", formatTime(stats.Start)},
		{"End", formatTime(stats.End)},
		{"Planned hours", stats.PlannedHours},
		{"Actual hours", stats.ActualHours},
		{"Tasks planned", stats.TasksPlanned},
		{"Tasks done", stats.TasksDone},
		{"Completion rate", stats.CompletionRate},
	}

	deferred := [][]any{{"Task", "Title", "Deadline", "Status", "Late days"}}
	for _, d := range stats.DeferredTasks {
		deadline := ""
		if d.Deadline != nil {
			deadline = formatTime(*d.Deadline)
		}
		deferred = append(deferred, []any{d.ID, d.Title, deadline, d.Status, d.LateDays})
	}

	adjustments := [][]any{{"Task", "Title", "Planned", "Actual", "Delta", "Ratio", "Suggested"}}
	for _, a := range stats.EstimateAdjustments {
		adjustments = append(adjustments, []any{a.TaskID, a.Title, a.PlannedMinutes, a.ActualMinutes, a.DeltaMinutes, a.Ratio, a.SuggestedMinutes})
	}

	habits := [][]any{{"Window", "Events", "Hours"}}
	for _, h := range stats.HabitWindows {
		habits = append(habits, []any{h.Window, h.Events, h.Hours})
	}

	return writeWorkbook(w, []sheet{
		{name: "Summary", rows: summary},
		{name: "Deferred", rows: deferred},
		{name: "Adjustments", rows: adjustments},
		{name: "Habits", rows: habits},
	})
}

type sheet struct {
	name string
	rows [][]any
}

func writeWorkbook(w io.Writer, sheets []sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			f.SetSheetName(f.GetSheetName(0), s.name)
		} else {
			f.NewSheet(s.name)
		}
		for r, row := range s.rows {
			for c, value := range row {
				name, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(s.name, name, value); err != nil {
					return fmt.Errorf("failed to write %s!%s: %w", s.name, name, err)
				}
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string { return t.UTC().Format(exportTimeLayout) }
