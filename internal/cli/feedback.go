package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/overseer/internal/ai"
	"github.com/example/overseer/internal/excel"
	"github.com/example/overseer/internal/report"
	"github.com/example/overseer/internal/study"
)

func (a *app) feedbackCommand() *cobra.Command {
	var scope, at, out string
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Compare planned and actual study time over a day, week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := optionalTime(at)
			if err != nil {
				return err
			}
			stats, err := a.svc.Feedback(cmd.Context(), a.owner, scope, anchor)
			if err != nil {
				return err
			}
			printOut(cmd, report.Feedback(stats))

			if out != "" {
				if err := writeFile(out, func(f *os.File) error { return excel.ExportFeedback(f, stats) }); err != nil {
					return err
				}
				printOut(cmd, "Exported feedback to "+out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "day", "day, week or month")
	cmd.Flags().StringVar(&at, "at", "", "any time inside the window (default now)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also export to this .xlsx file")
	return cmd
}

func (a *app) assistCommand() *cobra.Command {
	var (
		req     study.AssistRequest
		file    string
		width   int
		plain   bool
		modeHlp = fmt.Sprintf("%s, %s, %s or %s", ai.ModeSummary, ai.ModeExplanation, ai.ModeExercises, ai.ModeQuiz)
	)
	cmd := &cobra.Command{
		Use:   "assist",
		Short: "Ask the study assistant for a summary, explanation, exercises or a quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				req.Content = string(data)
			}
			text := a.svc.Assist(cmd.Context(), req)
			if !plain {
				text = report.Markdown(text, width)
			}
			printOut(cmd, text)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Subject, "subject", "", "subject name")
	cmd.Flags().StringVar(&req.Topic, "topic", "", "topic within the subject")
	cmd.Flags().StringVar(&req.Content, "content", "", "course notes to work from")
	cmd.Flags().StringVar(&file, "file", "", "read the course notes from a file")
	cmd.Flags().StringVar(&req.Mode, "mode", ai.ModeSummary, modeHlp)
	cmd.Flags().StringVar(&req.Difficulty, "difficulty", "medium", "easy, medium or hard")
	cmd.Flags().IntVar(&req.Items, "items", 5, "number of exercises or questions")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width of the rendered answer")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the raw markdown")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
