// Package cli implements the overseer command line.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/overseer/internal/ai"
	"github.com/example/overseer/internal/config"
	"github.com/example/overseer/internal/database"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/internal/study"
)

// app holds the flags and the components built from them for one invocation.
type app struct {
	configPath string
	owner      int64
	verbose    bool

	cfg config.Config
	log *zap.Logger
	db  *sqlx.DB
	svc *study.Service
	now func() time.Time
}

// Execute runs the root command and exits with a non-zero status on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{now: time.Now})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "overseer",
		Short: "Study planner with spaced repetition flashcards",
		Long: `overseer plans revision sessions before an exam, schedules flashcard
reviews with a spaced repetition algorithm and compares planned with actual
study time.

Run "overseer serve" to start the Telegram bot and the reminder scheduler.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().Int64Var(&a.owner, "owner", 1, "user id the records belong to")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.serveCommand(),
		a.subjectCommand(),
		a.planCommand(),
		a.sessionCommand(),
		a.cardCommand(),
		a.taskCommand(),
		a.eventCommand(),
		a.feedbackCommand(),
		a.assistCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return err
	}

	gen, err := ai.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create text generator: %w", err)
	}

	a.db, err = database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	a.svc = study.New(a.db, study.Options{
		Generator: gen,
		Study:     cfg.Study,
		Logger:    a.log,
		Now:       a.now,
	})
	a.log.Debug("Configuration loaded",
		zap.String("config", a.configPath),
		zap.String("driver", cfg.Database.Driver),
		zap.String("llm_provider", cfg.LLM.Provider))
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var timeLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseTime reads a date or date-time, or an RFC 3339 timestamp. Values
// without an offset are UTC, the zone every record is stored and floored in.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}

// optionalTime parses s unless it is empty.
func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// optionalInt returns a pointer to the value of an int flag only when it was set.
func optionalInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

// optionalID returns a pointer to the value of an int64 flag only when it was set.
func optionalID(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt64(name)
	return &v
}

func printOut(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}
