package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anyaat/Atlas/internal/adapters/discord"
	"github.com/anyaat/Atlas/internal/adapters/scheduler"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled sweeps (and the Discord bot when configured)",
		Long: `Run the lifecycle engine until interrupted.

Sweeps run on SWEEP_SCHEDULE. With DISCORD_TOKEN set, notices are posted to
DISCORD_CHANNEL_ID and the /listing command is registered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			runner, err := scheduler.NewRunner(a.sweeper, a.cfg.SweepSchedule, a.log)
			if err != nil {
				return WrapExitError(ExitCommandError, "configure scheduler", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return runner.Run(gctx) })
			if a.session != nil {
				handler := discord.NewHandler(a.service, a.tr, a.cfg.Locale, a.log)
				bot := discord.NewBot(a.session, handler, a.log)
				g.Go(func() error { return bot.Start(gctx) })
			}
			a.log.Info().Str("owner", a.sweeper.Owner()).Msg("atlas serving")
			if err := g.Wait(); err != nil {
				return WrapExitError(ExitCommandError, "serve", err)
			}
			return nil
		},
	}
}
