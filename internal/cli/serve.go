package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/overseer/internal/bot"
	"github.com/example/overseer/internal/scheduler"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := bot.New(a.cfg.Telegram, a.svc, a.log)
			if err != nil {
				return err
			}
			sched := scheduler.New(a.svc, b, a.cfg, a.log)
			b.SetReminder(sched.RunManualCheck)

			g, ctx := errgroup.WithContext(ctx)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			g.Go(func() error { return b.Run(ctx) })
			g.Go(func() error {
				<-ctx.Done()
				sched.Stop()
				return nil
			})

			a.log.Info("Serving. Press Ctrl+C to stop.")
			err = g.Wait()
			a.log.Info("Stopped", zap.Error(err))
			return err
		},
	}
}
