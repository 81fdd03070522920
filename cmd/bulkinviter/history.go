package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stanstork/slack-bulkinviter/internal/config"
	"github.com/stanstork/slack-bulkinviter/internal/models"
)

func (app *application) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent invite runs from the audit database",
		Args:  cobra.NoArgs,
		RunE:  app.runHistory,
	}
	cmd.Flags().Int("limit", 20, "Number of runs to list")
	cmd.Flags().String("run", "", "Show the invite batches of one run")
	cmd.Flags().BoolP("verbose", "v", false, "Write diagnostic logs to stderr")
	return cmd
}

func (app *application) runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(app.fs, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Audit.DatabaseURL == "" {
		return errors.Wrap(config.ErrInvalidConfig, "history needs --audit-db or audit.database_url")
	}
	logger := app.newLogger(cfg.Verbose)

	repo, closeDB, err := app.openAudit(ctx, cfg.Audit.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	w := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		run, err := repo.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		batches, err := repo.ListBatches(ctx, runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "run %s on #%s: %s, %d/%d invited\n", run.ID, run.ChannelName, run.Status, run.InvitedCount, run.TargetCount)
		fmt.Fprintln(w, "CHUNK\tSIZE\tOK\tERROR")
		for _, b := range batches {
			fmt.Fprintf(w, "%d\t%d\t%t\t%s\n", b.Number, b.Size, b.Succeeded, deref(b.Error))
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := repo.ListRecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "RUN\tSTARTED\tCHANNEL\tSTATUS\tTARGETS\tINVITED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.RFC3339), r.ChannelName, statusOf(r), r.TargetCount, r.InvitedCount, deref(r.Error))
	}
	return nil
}

func statusOf(r models.InviteRun) models.InviteRunStatus {
	if !r.IsFinished() && r.Status == models.InviteRunStatusRunning {
		return "interrupted?"
	}
	return r.Status
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
