package models

import "time"

type InviteRunStatus string

const (
	InviteRunStatusRunning   InviteRunStatus = "running"
	InviteRunStatusSucceeded InviteRunStatus = "succeeded"
	InviteRunStatusFailed    InviteRunStatus = "failed"
	InviteRunStatusDryRun    InviteRunStatus = "dry_run"
)

// InviteRun is the audit record of one bulk-invite run against a channel.
type InviteRun struct {
	ID            string          `json:"id"`
	ChannelName   string          `json:"channel_name"`
	ChannelID     string          `json:"channel_id"`
	EligibleCount int             `json:"eligible_count"`
	MemberCount   int             `json:"member_count"`
	TargetCount   int             `json:"target_count"`
	InvitedCount  int             `json:"invited_count"`
	Status        InviteRunStatus `json:"status"`
	Error         *string         `json:"error,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// InviteBatch is one conversations.invite call made during a run.
type InviteBatch struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Number    int       `json:"number"`
	Size      int       `json:"size"`
	Succeeded bool      `json:"succeeded"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished indicates whether the run has been closed out.
func (r InviteRun) IsFinished() bool {
	return r.FinishedAt != nil
}
