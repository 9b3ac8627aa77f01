package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/overseer/internal/excel"
	"github.com/example/overseer/internal/report"
	"github.com/example/overseer/internal/study"
)

func (a *app) cardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Manage and review flashcards",
	}

	var (
		subjectID   int64
		front, back string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a flashcard, due now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.CreateCard(cmd.Context(), a.owner, study.CardCreate{
				SubjectID: subjectID,
				Front:     front,
				Back:      back,
			})
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Created card #%d", c.ID))
			return nil
		},
	}
	add.Flags().Int64Var(&subjectID, "subject", 0, "subject id")
	add.Flags().StringVar(&front, "front", "", "question side")
	add.Flags().StringVar(&back, "back", "", "answer side")
	_ = add.MarkFlagRequired("subject")

	var limit int
	due := &cobra.Command{
		Use:   "due",
		Short: "List the cards to review now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := a.svc.DueCards(cmd.Context(), a.owner, optionalID(cmd, "subject"), a.now(), limit)
			if err != nil {
				return err
			}
			printOut(cmd, report.Cards(cards))
			return nil
		},
	}
	due.Flags().Int64("subject", 0, "only cards of this subject")
	due.Flags().IntVar(&limit, "limit", 20, "maximum number of cards, 0 for all")

	review := &cobra.Command{
		Use:   "review <card> <score>",
		Short: "Record a review, score 1 (forgot) to 5 (perfect)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid score %q", args[1])
			}
			c, err := a.svc.ReviewCard(cmd.Context(), a.owner, id, score, a.now())
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("%s\n\nAnswer: %s\nNext review %s (interval %d days, ease %.2f)",
				c.Front, c.Back, c.DueAt.UTC().Format("2006-01-02 15:04"), c.IntervalDays, c.Ease))
			return nil
		},
	}

	cfg := excel.DefaultImportConfig()
	var importSubject int64
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import flashcards from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FilePath = args[0]
			res, err := excel.ImportCards(cmd.Context(), a.svc, a.owner, importSubject, cfg)
			if err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Processed %d rows: %d created, %d skipped", res.TotalProcessed, res.Created, res.Skipped))
			if len(res.Errors) > 0 {
				printOut(cmd, "Errors:\n"+strings.Join(res.Errors, "\n"))
			}
			return nil
		},
	}
	importCmd.Flags().Int64Var(&importSubject, "subject", 0, "subject id")
	importCmd.Flags().StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "sheet name (default first sheet)")
	importCmd.Flags().StringVar(&cfg.FrontColumn, "front-col", cfg.FrontColumn, "column with the question side")
	importCmd.Flags().StringVar(&cfg.BackColumn, "back-col", cfg.BackColumn, "column with the answer side")
	importCmd.Flags().IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first row to import")
	_ = importCmd.MarkFlagRequired("subject")

	del := &cobra.Command{
		Use:   "delete <card>",
		Short: "Delete a flashcard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteCard(cmd.Context(), a.owner, id); err != nil {
				return err
			}
			printOut(cmd, fmt.Sprintf("Deleted card #%d", id))
			return nil
		},
	}

	cmd.AddCommand(add, due, review, importCmd, del)
	return cmd
}
