package inviter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stanstork/slack-bulkinviter/internal/models"
	"github.com/stanstork/slack-bulkinviter/internal/progress"
	"go.uber.org/multierr"
)

// Options is the per-run configuration handed to every stage.
type Options struct {
	Channel  string
	Policy   Policy
	PageSize int
	Split    int

	// DryRun stops after planning; no invite call is made.
	DryRun bool
	// ContinueOnError keeps dispatching the remaining chunks after a chunk
	// is rejected. The run still fails with every rejection aggregated.
	ContinueOnError bool
}

// Result summarizes a run.
type Result struct {
	RunID    string
	Channel  models.Channel
	Eligible int
	Members  int
	Targets  int
	Batches  int
	Invited  int
	DryRun   bool
}

type Service struct {
	api      API
	pacer    Pacer
	reporter progress.Reporter
	recorder Recorder
	opts     Options
	runID    string
	logger   zerolog.Logger
}

func NewService(api API, pacer Pacer, reporter progress.Reporter, recorder Recorder, opts Options, logger zerolog.Logger) *Service {
	if reporter == nil {
		reporter = progress.Discard()
	}
	if recorder == nil {
		recorder = NopRecorder()
	}
	runID := uuid.NewString()
	return &Service{
		api:      api,
		pacer:    pacer,
		reporter: reporter,
		recorder: recorder,
		opts:     opts,
		runID:    runID,
		logger:   logger.With().Str("component", "inviter").Str("run_id", runID).Logger(),
	}
}

func (s *Service) RunID() string {
	return s.runID
}

// Run resolves the channel, collects eligible users and current members,
// and invites the difference. Each stage completes before the next starts.
func (s *Service) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: s.runID, DryRun: s.opts.DryRun}
	run := models.InviteRun{
		ID:          s.runID,
		ChannelName: s.opts.Channel,
		Status:      models.InviteRunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.recorder.StartRun(ctx, run); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record run start")
	}

	err := s.run(ctx, &res)

	s.finish(ctx, run, res, err)
	return res, err
}

func (s *Service) run(ctx context.Context, res *Result) error {
	s.reporter.Report(progress.Event{Kind: progress.EventChannelSearch, Channel: s.opts.Channel})
	channel, err := s.ResolveChannel(ctx, s.opts.Channel)
	if err != nil {
		return err
	}
	res.Channel = channel
	s.reporter.Report(progress.Event{Kind: progress.EventChannelFound, Channel: channel.Name, ChannelID: channel.ID})

	s.reporter.Report(progress.Event{Kind: progress.EventUsersScan})
	eligible, err := s.CollectEligibleUsers(ctx)
	if err != nil {
		return err
	}
	res.Eligible = eligible.Len()
	s.reporter.Report(progress.Event{Kind: progress.EventUsersCollected, Count: res.Eligible})

	s.reporter.Report(progress.Event{Kind: progress.EventMembersScan, Channel: channel.Name})
	members, err := s.CollectChannelMembers(ctx, channel.ID)
	if err != nil {
		return err
	}
	res.Members = members.Len()
	s.reporter.Report(progress.Event{Kind: progress.EventMembersCollected, Channel: channel.Name, Count: res.Members})

	targets := eligible.Difference(members).Sorted()
	res.Targets = len(targets)
	s.reporter.Report(progress.Event{Kind: progress.EventTargetsComputed, Channel: channel.Name, Count: res.Targets})

	if len(targets) == 0 {
		s.reporter.Report(progress.Event{Kind: progress.EventNothingToDo, Channel: channel.Name})
		s.reporter.Report(progress.Event{Kind: progress.EventDone})
		return nil
	}

	batches, err := PlanBatches(targets, s.opts.Split)
	if err != nil {
		return err
	}
	res.Batches = len(batches)
	if len(batches) > 1 {
		s.logger.Debug().Int("targets", len(targets)).Int("chunks", len(batches)).Msg("more than 999 targets, chunking invites")
	}

	if s.opts.DryRun {
		s.reporter.Report(progress.Event{Kind: progress.EventDryRun, Channel: channel.Name, Count: len(targets), Chunk: len(batches)})
		s.reporter.Report(progress.Event{Kind: progress.EventDone})
		return nil
	}

	invited, err := s.Dispatch(ctx, channel, batches)
	res.Invited = invited
	if err != nil {
		return err
	}
	s.reporter.Report(progress.Event{Kind: progress.EventDone})
	return nil
}

// Dispatch sends one invite call per batch, in order. The first rejected
// batch ends the dispatch unless ContinueOnError is set, in which case every
// rejection is collected and returned once all batches were attempted.
// Cancellation always ends the dispatch.
func (s *Service) Dispatch(ctx context.Context, channel models.Channel, batches [][]string) (int, error) {
	var (
		invited  int
		failures error
	)
	for i, batch := range batches {
		number := i + 1
		if err := s.pacer.Wait(ctx); err != nil {
			return invited, multierr.Append(failures, err)
		}

		s.logger.Debug().Int("chunk", number).Int("size", len(batch)).Msg("inviting chunk")
		s.reporter.Report(progress.Event{Kind: progress.EventChunkInvite, Channel: channel.Name, Chunk: number, Count: len(batch)})

		callErr := s.api.InviteToChannel(ctx, channel.ID, batch)
		s.recordBatch(ctx, number, len(batch), callErr)
		if callErr == nil {
			invited += len(batch)
			continue
		}

		inviteErr := &InviteError{Chunk: number, Size: len(batch), Err: callErr}
		s.reporter.Report(progress.Event{Kind: progress.EventChunkFailed, Channel: channel.Name, Chunk: number, Err: callErr})
		s.logger.Error().Err(callErr).Int("chunk", number).Int("size", len(batch)).Msg("invite call failed")
		if !s.opts.ContinueOnError || ctx.Err() != nil {
			return invited, multierr.Append(failures, inviteErr)
		}
		failures = multierr.Append(failures, inviteErr)
	}
	return invited, failures
}

func (s *Service) recordBatch(ctx context.Context, number, size int, callErr error) {
	batch := models.InviteBatch{
		RunID:     s.runID,
		Number:    number,
		Size:      size,
		Succeeded: callErr == nil,
		CreatedAt: time.Now().UTC(),
	}
	if callErr != nil {
		msg := callErr.Error()
		batch.Error = &msg
	}
	if err := s.recorder.RecordBatch(ctx, batch); err != nil {
		s.logger.Warn().Err(err).Int("chunk", number).Msg("failed to record invite batch")
	}
}

func (s *Service) finish(ctx context.Context, run models.InviteRun, res Result, runErr error) {
	now := time.Now().UTC()
	run.ChannelID = res.Channel.ID
	run.EligibleCount = res.Eligible
	run.MemberCount = res.Members
	run.TargetCount = res.Targets
	run.InvitedCount = res.Invited
	run.FinishedAt = &now

	switch {
	case runErr != nil:
		run.Status = models.InviteRunStatusFailed
		msg := runErr.Error()
		run.Error = &msg
	case res.DryRun:
		run.Status = models.InviteRunStatusDryRun
	default:
		run.Status = models.InviteRunStatusSucceeded
	}

	// the run context may already be cancelled; the audit row still needs closing
	if err := s.recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record run result")
	}
}
