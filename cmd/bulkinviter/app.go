package main

import (
	"context"
	"database/sql"
	"io"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stanstork/slack-bulkinviter/internal/config"
	"github.com/stanstork/slack-bulkinviter/internal/inviter"
	"github.com/stanstork/slack-bulkinviter/internal/migration"
	"github.com/stanstork/slack-bulkinviter/internal/progress"
	"github.com/stanstork/slack-bulkinviter/internal/repository"
	"github.com/stanstork/slack-bulkinviter/internal/slackapi"
	"github.com/stanstork/slack-bulkinviter/internal/throttle"
)

const (
	exitOK      = 0
	exitFailure = 1
)

type application struct {
	stdout    io.Writer
	stderr    io.Writer
	fs        afero.Fs
	lookupEnv config.LookupEnvFunc

	newAPI    func(token string, cfg *config.Config, logger zerolog.Logger) inviter.API
	openAudit func(ctx context.Context, dsn string, logger zerolog.Logger) (repository.RunRepository, func() error, error)
}

func newApplication(stdout, stderr io.Writer, fs afero.Fs, lookupEnv config.LookupEnvFunc) *application {
	return &application{
		stdout:    stdout,
		stderr:    stderr,
		fs:        fs,
		lookupEnv: lookupEnv,
		newAPI:    newSlackAPI,
		openAudit: openAuditRepository,
	}
}

func newSlackAPI(token string, cfg *config.Config, logger zerolog.Logger) inviter.API {
	return slackapi.New(token, logger, slackapi.Options{MaxRetries: cfg.MaxRetries})
}

func openAuditRepository(ctx context.Context, dsn string, logger zerolog.Logger) (repository.RunRepository, func() error, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open audit database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "ping audit database")
	}
	if err := migration.RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewRunRepository(db), db.Close, nil
}

// newLogger sets up structured, level-based logging on stderr. Verbose runs
// log diagnostics; otherwise only warnings and errors are written.
func (app *application) newLogger(verbose bool) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: app.stderr, TimeFormat: time.Kitchen}
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(consoleWriter).Level(level).With().Timestamp().Logger()
}

func (app *application) execute(ctx context.Context, args []string) int {
	cmd := app.rootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		progress.NewConsole(app.stdout).Report(progress.Event{Kind: progress.EventFatal, Err: err})
		logger := app.newLogger(false)
		logger.Error().Err(err).Msg("bulkinviter failed")
		return exitFailure
	}
	return exitOK
}

func (app *application) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulkinviter",
		Short: "Invite every eligible workspace member to a Slack channel",
		Long: `Invite every eligible member of a Slack workspace to a channel.

Deleted, guest (restricted and ultra-restricted) accounts and Slackbot are
never invited. Bots and app users are skipped unless --bots or --apps is set.

The token is taken from --token, then --token-file, then the environment
variable named by --token-env (SLACK_API_TOKEN by default, also read from a
.env file). It needs the channels:read, groups:read, users:read,
channels:write.invites and groups:write.invites scopes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          app.runInvite,
	}
	config.RegisterFlags(cmd.Flags())
	config.RegisterPersistentFlags(cmd.PersistentFlags())
	cmd.MarkFlagsMutuallyExclusive("token", "token-env", "token-file")

	cmd.SetOut(app.stdout)
	cmd.SetErr(app.stderr)
	cmd.AddCommand(app.historyCommand())
	return cmd
}

func (app *application) runInvite(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(app.fs, cmd.Flags())
	if err != nil {
		return err
	}
	logger := app.newLogger(cfg.Verbose)
	if err := cfg.Validate(); err != nil {
		return err
	}

	token, source, err := config.ResolveToken(cfg, app.fs, app.lookupEnv)
	if err != nil {
		return err
	}

	logger.Info().
		Str("channel", cfg.Channel).
		Str("token_source", string(source)).
		Str("token_env", cfg.TokenEnv).
		Dur("sleep", cfg.Delay()).
		Int("split", cfg.Split).
		Int("page_size", cfg.PageSize).
		Bool("bots", cfg.IncludeBots).
		Bool("apps", cfg.IncludeApps).
		Bool("dry_run", cfg.DryRun).
		Bool("continue_on_error", cfg.ContinueOnError).
		Bool("audit", cfg.Audit.DatabaseURL != "").
		Msg("settings")

	recorder := inviter.NopRecorder()
	if cfg.Audit.DatabaseURL != "" {
		repo, closeDB, err := app.openAudit(ctx, cfg.Audit.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		recorder = repo
	}

	svc := inviter.NewService(
		app.newAPI(token, cfg, logger),
		throttle.NewPacer(cfg.Delay()),
		progress.NewConsole(app.stdout),
		recorder,
		inviter.Options{
			Channel:         cfg.Channel,
			Policy:          inviter.Policy{IncludeBots: cfg.IncludeBots, IncludeApps: cfg.IncludeApps},
			PageSize:        cfg.PageSize,
			Split:           cfg.Split,
			DryRun:          cfg.DryRun,
			ContinueOnError: cfg.ContinueOnError,
		},
		logger,
	)

	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", res.RunID).
		Str("channel_id", res.Channel.ID).
		Int("targets", res.Targets).
		Int("invited", res.Invited).
		Msg("run complete")
	return nil
}
