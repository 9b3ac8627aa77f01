// Package report renders records and statistics for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/example/overseer/internal/feedback"
	"github.com/example/overseer/internal/study"
	"github.com/example/overseer/pkg/models"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// Table renders rows under headers. An empty row set renders the empty message.
func Table(headers []string, rows [][]string, empty string) string {
	if len(rows) == 0 {
		return mutedStyle.Render(empty)
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorSubtle)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func section(title, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body)
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// Subjects renders a subject list.
func Subjects(subjects []models.Subject) string {
	rows := make([][]string, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, s.UECode, s.Description})
	}
	return Table([]string{"ID", "Name", "UE", "Description"}, rows, "No subjects.")
}

// Plan renders a plan with its sessions.
func Plan(plan models.StudyPlan) string {
	var head []string
	head = append(head, field("Plan", fmt.Sprintf("#%d %s", plan.ID, plan.Title)))
	if plan.ExamDate != nil {
		head = append(head, field("Exam", plan.ExamDate.Format(dateLayout)))
	}
	if plan.TotalMinutes != nil {
		head = append(head, field("Budget", fmt.Sprintf("%d min", *plan.TotalMinutes)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(head, "\n"), "", Sessions(plan.Sessions))
}

// Plans renders a plan list without sessions.
func Plans(plans []models.StudyPlan) string {
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		exam := "-"
		if p.ExamDate != nil {
			exam = p.ExamDate.Format(dateLayout)
		}
		done := 0
		for _, s := range p.Sessions {
			if s.Status == models.SessionDone {
				done++
			}
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			strconv.FormatInt(p.SubjectID, 10),
			p.Title,
			exam,
			fmt.Sprintf("%d/%d", done, len(p.Sessions)),
		})
	}
	return Table([]string{"ID", "Subject", "Title", "Exam", "Done"}, rows, "No plans.")
}

// Sessions renders study sessions in the given order.
func Sessions(sessions []models.StudySession) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		topic := "-"
		if s.Topic != nil {
			topic = *s.Topic
		}
		difficulty := "-"
		if s.Difficulty != nil {
			difficulty = strconv.Itoa(*s.Difficulty)
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.ScheduledFor.Format(dateLayout),
			s.Kind,
			topic,
			strconv.Itoa(s.DurationMinutes),
			status(s.Status),
			difficulty,
		})
	}
	return Table([]string{"ID", "Date", "Kind", "Topic", "Min", "Status", "Difficulty"}, rows, "No sessions.")
}

func status(s string) string {
	switch s {
	case models.SessionDone, models.TaskDone:
		return doneStyle.Render(s)
	case models.SessionSkipped:
		return warningStyle.Render(s)
	}
	return s
}

// Progress renders the progress of one subject.
func Progress(subject string, p study.Progress) string {
	avg := "-"
	if p.AvgDifficulty != nil {
		avg = strconv.FormatFloat(*p.AvgDifficulty, 'f', 2, 64)
	}
	body := strings.Join([]string{
		field("Done", strconv.Itoa(p.Done)),
		field("Planned", strconv.Itoa(p.Planned)),
		field("Skipped", strconv.Itoa(p.Skipped)),
		field("Avg difficulty", avg),
		field("Remaining load", fmt.Sprintf("%.2fh", p.FutureLoadHours)),
	}, "\n")
	return section("Progress: "+subject, body)
}

// Cards renders flashcards with their repetition state.
func Cards(cards []models.Card) string {
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		last := "-"
		if c.LastScore != nil {
			last = strconv.Itoa(*c.LastScore)
		}
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Front,
			c.DueAt.Format(dateTimeLayout),
			strconv.Itoa(c.IntervalDays),
			strconv.FormatFloat(c.Ease, 'f', 2, 64),
			strconv.Itoa(c.Streak),
			last,
		})
	}
	return Table([]string{"ID", "Front", "Due", "Interval", "Ease", "Streak", "Last"}, rows, "No cards due.")
}

// Tasks renders a task list.
func Tasks(tasks []models.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		deadline, duration := "-", "-"
		if t.Deadline != nil {
			deadline = t.Deadline.Format(dateTimeLayout)
		}
		if t.DurationMinutes != nil {
			duration = strconv.Itoa(*t.DurationMinutes)
		}
		rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Title, status(t.Status), t.Priority, deadline, duration})
	}
	return Table([]string{"ID", "Title", "Status", "Priority", "Deadline", "Min"}, rows, "No tasks.")
}

// Events renders calendar events.
func Events(events []models.Event) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		task := "-"
		if e.TaskID != nil {
			task = strconv.FormatInt(*e.TaskID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Title,
			e.Kind,
			e.Start.Format(dateTimeLayout),
			e.End.Format(dateTimeLayout),
			task,
		})
	}
	return Table([]string{"ID", "Title", "Kind", "Start", "End", "Task"}, rows, "No events.")
}

// Feedback renders the feedback statistics of one window.
func Feedback(stats feedback.Stats) string {
	summary := strings.Join([]string{
		field("Window", fmt.Sprintf("%s .. %s", stats.Start.Format(dateLayout), stats.End.Add(-time.Second).Format(dateLayout))),
		field("Planned hours", strconv.FormatFloat(stats.PlannedHours, 'f', 2, 64)),
		field("Actual hours", strconv.FormatFloat(stats.ActualHours, 'f', 2, 64)),
		field("Tasks", fmt.Sprintf("%d/%d done", stats.TasksDone, stats.TasksPlanned)),
		field("Completion", fmt.Sprintf("%.1f%%", stats.CompletionRate*100)),
	}, "\n")

	deferred := make([][]string, 0, len(stats.DeferredTasks))
	for _, d := range stats.DeferredTasks {
		deadline := "-"
		if d.Deadline != nil {
			deadline = d.Deadline.Format(dateTimeLayout)
		}
		deferred = append(deferred, []string{strconv.FormatInt(d.ID, 10), d.Title, deadline, d.Status, strconv.Itoa(d.LateDays)})
	}

	adjustments := make([][]string, 0, len(stats.EstimateAdjustments))
	for _, a := range stats.EstimateAdjustments {
		adjustments = append(adjustments, []string{
			a.Title,
			strconv.Itoa(a.PlannedMinutes),
			strconv.FormatFloat(a.ActualMinutes, 'f', 2, 64),
			strconv.FormatFloat(a.Ratio, 'f', 2, 64),
			strconv.Itoa(a.SuggestedMinutes),
		})
	}

	habits := make([][]string, 0, len(stats.HabitWindows))
	for _, h := range stats.HabitWindows {
		habits = append(habits, []string{h.Window, strconv.Itoa(h.Events), strconv.FormatFloat(h.Hours, 'f', 2, 64)})
	}

	return strings.Join([]string{
		section(fmt.Sprintf("Feedback (%s)", stats.Scope), summary),
		section("Deferred tasks", Table([]string{"ID", "Title", "Deadline", "Status", "Late days"}, deferred, "None.")),
		section("Estimate adjustments", Table([]string{"Task", "Planned", "Actual", "Ratio", "Suggested"}, adjustments, "None.")),
		section("Habit windows", Table([]string{"Window", "Events", "Hours"}, habits, "None.")),
	}, "\n\n")
}

// Markdown renders generated text for a terminal of the given width. The raw
// text is returned when rendering fails.
func Markdown(text string, width int) string {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
