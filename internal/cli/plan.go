package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/overseer/internal/excel"
	"github.com/example/overseer/internal/report"
	"github.com/example/overseer/internal/study"
	"github.com/example/overseer/pkg/models"
)

func (a *app) planCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and manage study plans",
	}

	var (
		subjectID int64
		topics    []string
		exam      string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a plan starting today",
		Long: `Generates one revision session per topic, spaced reminders one and three
days after each revision and, when an exam date is given, a consolidation
quiz the day before the exam.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			examDate, err := optionalTime(exam)
			if err != nil {
				return err
			}
			req := study.PlanRequest{
				SubjectID:    subjectID,
				Topics:       topics,
				ExamDate:     examDate,
				TotalMinutes: optionalInt(cmd, "total"),
			}
			req.SessionMinutes, _ = cmd.Flags().GetInt("minutes")
			req.SessionsPerDay, _ = cmd.Flags().GetInt("per-day")

			plan, err := a.svc.GeneratePlan(cmd.Context(), a.owner, req)
			if err != nil {
				return err
			}
			printOut(cmd, report.Plan(*plan))
			return nil
		},
	}
	generate.Flags().Int64Var(&subjectID, "subject", 0, "subject id")
	generate.Flags().StringSliceVar(&topics, "topics", nil, "comma separated topics, in study order")
	generate.Flags().StringVar(&exam, "exam", "", "exam date, YYYY-MM-DD")
	generate.Flags().Int("total", 0, "total study budget in minutes")
	generate.Flags().Int("minutes", 0, "revision session length (default from config)")
	generate.Flags().Int("per-day", 0, "revision sessions per day (default from config)")
	_ = generate.MarkFlagRequired("subject")

	list := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := a.svc.ListPlans(cmd.Context(), a.owner, optionalID(cmd, "subject"))
			if err != nil {
				return err
			}
			printOut(cmd, report.Plans(plans))
			return nil
		},
	}
	list.Flags().Int64("subject", 0, "only plans of this subject")

	show := &cobra.Command{
		Use:   "show <plan>",
		Short: "Show a plan with its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.plan(cmd, args[0])
			if err != nil {
				return err
			}
			printOut(cmd, report.Plan(*plan))
			return nil
		},
	}

	var out string
	export := &cobra.Command{
		Use:   "export <plan>",
		Short: "Export a plan to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.plan(cmd, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("plan-%d.xlsx", plan.ID)
			}
			if err := writeFile(out, func(f *os.File) error { return excel.ExportPlan(f, *plan) }); err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Exported plan #%d to %s", plan.ID, out))
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "output file (default plan-<id>.xlsx)")

	del := &cobra.Command{
		Use:   "delete <plan>",
		Short: "Delete a plan and its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeletePlan(cmd.Context(), a.owner, id); err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Deleted plan #%d", id))
			return nil
		},
	}

	cmd.AddCommand(generate, list, show, export, del)
	return cmd
}

func (a *app) plan(cmd *cobra.Command, arg string) (*models.StudyPlan, error) {
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	return a.svc.GetPlan(cmd.Context(), a.owner, id)
}

func (a *app) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Work through study sessions",
	}

	due := &cobra.Command{
		Use:   "due",
		Short: "List planned sessions that are due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := a.svc.DueSessions(cmd.Context(), a.owner, a.now())
			if err != nil {
				return err
			}
			printOut(cmd, report.Sessions(sessions))
			return nil
		},
	}

	var (
		skip  bool
		notes string
	)
	done := &cobra.Command{
		Use:   "done <session>",
		Short: "Mark a session done, or skipped with --skip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := models.SessionDone
			if skip {
				status = models.SessionSkipped
			}
			upd := study.SessionUpdate{Status: &status, Difficulty: optionalInt(cmd, "difficulty")}
			if notes != "" {
				upd.Notes = &notes
			}
			s, err := a.svc.UpdateSession(cmd.Context(), a.owner, id, upd)
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Session #%d is now %s", s.ID, s.Status))
			return nil
		},
	}
	done.Flags().BoolVar(&skip, "skip", false, "mark the session skipped")
	done.Flags().Int("difficulty", 0, "perceived difficulty, 1 to 5")
	done.Flags().StringVar(&notes, "notes", "", "free text notes")

	cmd.AddCommand(due, done)
	return cmd
}

// writeFile creates path and removes it again when write fails.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
