package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stanstork/slack-bulkinviter/internal/migration"
	"github.com/stanstork/slack-bulkinviter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to BULKINVITER_TEST_DATABASE_URL, skipping when unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("BULKINVITER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BULKINVITER_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.RunMigrations(db, zerolog.Nop()))
	return db
}

func TestRunRepositoryLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	run := models.InviteRun{
		ID:          uuid.NewString(),
		ChannelName: "general",
		Status:      models.InviteRunStatusRunning,
		StartedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.StartRun(ctx, run))

	failure := "already_in_channel"
	require.NoError(t, repo.RecordBatch(ctx, models.InviteBatch{RunID: run.ID, Number: 1, Size: 180, Succeeded: true, CreatedAt: time.Now().UTC()}))
	require.NoError(t, repo.RecordBatch(ctx, models.InviteBatch{RunID: run.ID, Number: 2, Size: 180, Error: &failure, CreatedAt: time.Now().UTC()}))

	finished := time.Now().UTC()
	run.ChannelID = "C1"
	run.TargetCount = 360
	run.InvitedCount = 180
	run.Status = models.InviteRunStatusFailed
	run.Error = &failure
	run.FinishedAt = &finished
	require.NoError(t, repo.FinishRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "C1", got.ChannelID)
	assert.Equal(t, 180, got.InvitedCount)
	assert.Equal(t, models.InviteRunStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.True(t, got.IsFinished())

	batches, err := repo.ListBatches(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.True(t, batches[0].Succeeded)
	require.NotNil(t, batches[1].Error)
	assert.Equal(t, failure, *batches[1].Error)

	recent, err := repo.ListRecentRuns(ctx, 50)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)
}

func TestNullableString(t *testing.T) {
	empty := ""
	value := "x"
	assert.Nil(t, nullableString(nil))
	assert.Nil(t, nullableString(&empty))
	assert.Equal(t, "x", nullableString(&value))
}
