package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/overseer/internal/report"
	"github.com/example/overseer/pkg/models"
)

func (a *app) subjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage subjects",
	}

	var description, ueCode string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc.CreateSubject(cmd.Context(), a.owner, models.Subject{
				Name:        args[0],
				Description: description,
				UECode:      ueCode,
			})
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Created subject #%d %s", s.ID, s.Name))
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "free text description")
	add.Flags().StringVar(&ueCode, "ue", "", "course unit code")

	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subjects, err := a.svc.ListSubjects(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			printOut(cmd, report.Subjects(subjects))
			return nil
		},
	}

	progress := &cobra.Command{
		Use:   "progress <subject>",
		Short: "Show session progress of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			subject, err := a.svc.GetSubject(cmd.Context(), a.owner, id)
			if err != nil {
				return err
			}
			p, err := a.svc.SubjectProgress(cmd.Context(), a.owner, id)
			if err != nil {
				return err
			}
			printOut(cmd, report.Progress(subject.Name, p))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <subject>",
		Short: "Delete a subject with its plans, sessions and cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteSubject(cmd.Context(), a.owner, id); err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Deleted subject #%d", id))
			return nil
		},
	}

	cmd.AddCommand(add, list, progress, del)
	return cmd
}

func (a *app) taskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	var status, priority, deadline string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := optionalTime(deadline)
			if err != nil {
				return err
			}
			t, err := a.svc.CreateTask(cmd.Context(), a.owner, models.Task{
				Title:           args[0],
				Status:          status,
				Priority:        priority,
				Deadline:        due,
				DurationMinutes: optionalInt(cmd, "minutes"),
				ProjectID:       optionalID(cmd, "project"),
			})
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Created task #%d %s", t.ID, t.Title))
			return nil
		},
	}
	add.Flags().StringVar(&status, "status", models.TaskTodo, "a_faire, en_cours or terminee")
	add.Flags().StringVar(&priority, "priority", "", "priority label")
	add.Flags().StringVar(&deadline, "deadline", "", "deadline, YYYY-MM-DD [HH:MM] UTC")
	add.Flags().Int("minutes", 0, "estimated duration in minutes")
	add.Flags().Int64("project", 0, "project id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.svc.ListTasks(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			printOut(cmd, report.Tasks(tasks))
			return nil
		},
	}

	setStatus := &cobra.Command{
		Use:   "status <task> <status>",
		Short: "Change the status of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.SetTaskStatus(cmd.Context(), a.owner, id, args[1]); err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Task #%d is now %s", id, args[1]))
			return nil
		},
	}

	cmd.AddCommand(add, list, setStatus)
	return cmd
}

func (a *app) eventCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events",
	}

	var kind, start, end string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Record a calendar block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(start)
			if err != nil {
				return err
			}
			to, err := parseTime(end)
			if err != nil {
				return err
			}
			e, err := a.svc.CreateEvent(cmd.Context(), a.owner, models.Event{
				Title:  args[0],
				Kind:   kind,
				Start:  from,
				End:    to,
				TaskID: optionalID(cmd, "task"),
			})
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Created event #%d %s", e.ID, e.Title))
			return nil
		},
	}
	add.Flags().StringVar(&kind, "kind", models.EventFixed, "fixe for time spent, propose for planned time")
	add.Flags().StringVar(&start, "start", "", "start, YYYY-MM-DD HH:MM UTC")
	add.Flags().StringVar(&end, "end", "", "end, YYYY-MM-DD HH:MM UTC")
	add.Flags().Int64("task", 0, "task the time was spent on")
	_ = add.MarkFlagRequired("start")
	_ = add.MarkFlagRequired("end")

	var from, to string
	list := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally those starting in [from, to)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := optionalTime(from)
			if err != nil {
				return err
			}
			hi, err := optionalTime(to)
			if err != nil {
				return err
			}
			if (lo == nil) != (hi == nil) {
				return fmt.Errorf("--from and --to must be given together")
			}
			events, err := a.svc.ListEvents(cmd.Context(), a.owner, lo, hi)
			if err != nil {
				return err
			}
			printOut(cmd, report.Events(events))
			return nil
		},
	}
	list.Flags().StringVar(&from, "from", "", "window start")
	list.Flags().StringVar(&to, "to", "", "window end (exclusive)")

	cmd.AddCommand(add, list)
	return cmd
}
