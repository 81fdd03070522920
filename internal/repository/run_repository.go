package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/stanstork/slack-bulkinviter/internal/models"
)

// RunRepository stores the audit trail of invite runs. It satisfies
// inviter.Recorder.
type RunRepository interface {
	StartRun(ctx context.Context, run models.InviteRun) error
	RecordBatch(ctx context.Context, batch models.InviteBatch) error
	FinishRun(ctx context.Context, run models.InviteRun) error
	GetRun(ctx context.Context, id string) (models.InviteRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]models.InviteRun, error)
	ListBatches(ctx context.Context, runID string) ([]models.InviteBatch, error)
}

type runRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) StartRun(ctx context.Context, run models.InviteRun) error {
	const query = `
		INSERT INTO invite_runs (id, channel_name, status, started_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.ChannelName, string(run.Status), run.StartedAt)
	return errors.Wrapf(err, "insert run %s", run.ID)
}

func (r *runRepository) RecordBatch(ctx context.Context, batch models.InviteBatch) error {
	const query = `
		INSERT INTO invite_batches (run_id, number, size, succeeded, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.ExecContext(ctx, query,
		batch.RunID,
		batch.Number,
		batch.Size,
		batch.Succeeded,
		nullableString(batch.Error),
		batch.CreatedAt,
	)
	return errors.Wrapf(err, "insert batch %d of run %s", batch.Number, batch.RunID)
}

func (r *runRepository) FinishRun(ctx context.Context, run models.InviteRun) error {
	const query = `
		UPDATE invite_runs
		SET channel_id = $2,
		    eligible_count = $3,
		    member_count = $4,
		    target_count = $5,
		    invited_count = $6,
		    status = $7,
		    error = $8,
		    finished_at = $9
		WHERE id = $1;
	`
	res, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.ChannelID,
		run.EligibleCount,
		run.MemberCount,
		run.TargetCount,
		run.InvitedCount,
		string(run.Status),
		nullableString(run.Error),
		run.FinishedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update run %s", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "update run %s", run.ID)
	}
	return nil
}

const runColumns = `id, channel_name, channel_id, eligible_count, member_count, target_count, invited_count, status, error, started_at, finished_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (models.InviteRun, error) {
	var (
		run    models.InviteRun
		runErr sql.NullString
	)
	err := s.Scan(
		&run.ID,
		&run.ChannelName,
		&run.ChannelID,
		&run.EligibleCount,
		&run.MemberCount,
		&run.TargetCount,
		&run.InvitedCount,
		&run.Status,
		&runErr,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return models.InviteRun{}, err
	}
	if runErr.Valid {
		run.Error = &runErr.String
	}
	return run, nil
}

func (r *runRepository) GetRun(ctx context.Context, id string) (models.InviteRun, error) {
	query := `SELECT ` + runColumns + ` FROM invite_runs WHERE id = $1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.InviteRun{}, errors.Wrapf(err, "get run %s", id)
	}
	return run, nil
}

func (r *runRepository) ListRecentRuns(ctx context.Context, limit int) ([]models.InviteRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM invite_runs ORDER BY started_at DESC LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []models.InviteRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "list runs")
}

func (r *runRepository) ListBatches(ctx context.Context, runID string) ([]models.InviteBatch, error) {
	const query = `
		SELECT id, run_id, number, size, succeeded, error, created_at
		FROM invite_batches
		WHERE run_id = $1
		ORDER BY number;
	`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "list batches of run %s", runID)
	}
	defer rows.Close()

	var batches []models.InviteBatch
	for rows.Next() {
		var (
			b        models.InviteBatch
			batchErr sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.RunID, &b.Number, &b.Size, &b.Succeeded, &batchErr, &b.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan batch")
		}
		if batchErr.Valid {
			b.Error = &batchErr.String
		}
		batches = append(batches, b)
	}
	return batches, errors.Wrapf(rows.Err(), "list batches of run %s", runID)
}

func nullableString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
