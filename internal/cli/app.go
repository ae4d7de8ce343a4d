package cli

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/anyaat/Atlas/internal/adapters/discord"
	"github.com/anyaat/Atlas/internal/adapters/logging"
	"github.com/anyaat/Atlas/internal/application"
	"github.com/anyaat/Atlas/internal/config"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
	"github.com/anyaat/Atlas/internal/infrastructure/claim"
	"github.com/anyaat/Atlas/internal/infrastructure/database"
	"github.com/anyaat/Atlas/internal/infrastructure/i18n"
	logsetup "github.com/anyaat/Atlas/internal/infrastructure/logging"
	"github.com/anyaat/Atlas/internal/infrastructure/sqlite"
	"github.com/anyaat/Atlas/internal/ports/output"
	pkgdiscord "github.com/anyaat/Atlas/pkg/discord"
)

// app wires output adapters -> application (use cases) for one command run.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	clock   output.Clock
	tr      *i18n.Translator
	repo    output.ListingRepository
	claimer output.Claimer
	service *application.LifecycleService
	sweeper *application.Sweeper
	session *discordgo.Session // nil without DISCORD_TOKEN
	closers []func()
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	log := logsetup.New(cfg.LogLevel, cfg.LogPretty)
	clk, err := opts.clock()
	if err != nil {
		return nil, err
	}
	table, err := config.LoadTable(cfg.LifecycleProfile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load lifecycle profile", err)
	}

	a := &app{cfg: cfg, log: log, clock: clk, tr: i18n.NewTranslator(cfg.Locale, log)}
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	if cfg.RedisAddr != "" {
		rdb, err := claim.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "connect redis", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.claimer = claim.NewRedisClaimer(rdb, "")
	}
	notifier, err := a.notifier()
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "set up notifier", err)
	}

	a.service = application.NewLifecycleService(lifecycle.NewMachine(table), a.repo, a.claimer, notifier, clk, log)
	a.service.SetClaimTTL(cfg.ClaimTTL)
	a.sweeper = application.NewSweeper(a.service, a.repo, clk, application.SweepConfig{
		Workers: cfg.SweepWorkers,
		Batch:   cfg.SweepBatch,
		Budget:  cfg.SweepBudget,
	}, log)
	log.Debug().Str("driver", cfg.StorageDriver).Str("profile", cfg.LifecycleProfile).
		Bool("redis_claims", cfg.RedisAddr != "").Bool("discord", a.session != nil).Msg("application wired")
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StorageDriver {
	case config.DriverPostgres:
		if err := database.RunMigrations(a.cfg.DatabaseURL, a.log); err != nil {
			return err
		}
		pool, err := database.NewPool(ctx, a.cfg.DatabaseURL, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		repo := database.NewListingRepository(pool, a.clock, a.log)
		a.repo, a.claimer = repo, repo
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, a.cfg.SQLitePath, a.clock, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		a.repo, a.claimer = st, st
	default:
		return fmt.Errorf("unknown storage driver %q", a.cfg.StorageDriver)
	}
	return nil
}

func (a *app) notifier() (output.Notifier, error) {
	if a.cfg.DiscordToken == "" {
		return logging.NewNotifier(a.log), nil
	}
	s, err := discord.NewSession(a.cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	a.session = s
	return discord.NewNotifier(s, a.cfg.DiscordChannelID, a.tr, a.cfg.Locale, a.clock, a.cfg.NotifyRatePerMinute, a.log), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// userError turns a use case error into an exit error with a translated
// message.
func (a *app) userError(err error) error {
	return WrapExitError(ExitFailure, pkgdiscord.DomainErrorMessage(a.tr, a.cfg.Locale, err), err)
}
