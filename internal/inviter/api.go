// Package inviter reconciles a channel's membership with the workspace: it
// resolves the channel, collects eligible users and current members, and
// invites the difference in batches.
package inviter

import (
	"context"

	"github.com/stanstork/slack-bulkinviter/internal/models"
)

// API is the slice of the Slack Web API an invite run needs. Every list
// method returns the cursor of the next page, or "" on the last page.
type API interface {
	ListChannels(ctx context.Context, pageSize int, cursor string) ([]models.Channel, string, error)
	ListUsers(ctx context.Context, pageSize int, cursor string) ([]models.User, string, error)
	ListChannelMembers(ctx context.Context, channelID string, pageSize int, cursor string) ([]string, string, error)
	InviteToChannel(ctx context.Context, channelID string, userIDs []string) error
}

// Pacer is waited on before every remote call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Recorder receives the audit trail of a run.
type Recorder interface {
	StartRun(ctx context.Context, run models.InviteRun) error
	RecordBatch(ctx context.Context, batch models.InviteBatch) error
	FinishRun(ctx context.Context, run models.InviteRun) error
}

type nopRecorder struct{}

func (nopRecorder) StartRun(context.Context, models.InviteRun) error { return nil }
func (nopRecorder) RecordBatch(context.Context, models.InviteBatch) error { return nil }
func (nopRecorder) FinishRun(context.Context, models.InviteRun) error { return nil }

// NopRecorder returns a Recorder that records nothing.
func NopRecorder() Recorder { return nopRecorder{} }
