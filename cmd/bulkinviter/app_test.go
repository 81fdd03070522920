package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stanstork/slack-bulkinviter/internal/config"
	"github.com/stanstork/slack-bulkinviter/internal/inviter"
	"github.com/stanstork/slack-bulkinviter/internal/inviter/invitertest"
	"github.com/stanstork/slack-bulkinviter/internal/models"
	"github.com/stanstork/slack-bulkinviter/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRuns struct {
	runs    map[string]models.InviteRun
	order   []string
	batches []models.InviteBatch
	closed  bool
}

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[string]models.InviteRun)}
}

func (m *memRuns) StartRun(_ context.Context, run models.InviteRun) error {
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

func (m *memRuns) RecordBatch(_ context.Context, b models.InviteBatch) error {
	m.batches = append(m.batches, b)
	return nil
}

func (m *memRuns) FinishRun(_ context.Context, run models.InviteRun) error {
	m.runs[run.ID] = run
	return nil
}

func (m *memRuns) GetRun(_ context.Context, id string) (models.InviteRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return models.InviteRun{}, errors.Errorf("run %s not found", id)
	}
	return run, nil
}

func (m *memRuns) ListRecentRuns(_ context.Context, limit int) ([]models.InviteRun, error) {
	var out []models.InviteRun
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[m.order[i]])
	}
	return out, nil
}

func (m *memRuns) ListBatches(_ context.Context, runID string) ([]models.InviteBatch, error) {
	var out []models.InviteBatch
	for _, b := range m.batches {
		if b.RunID == runID {
			out = append(out, b)
		}
	}
	return out, nil
}

type harness struct {
	app    *application
	ws     *invitertest.Workspace
	runs   *memRuns
	fs     afero.Fs
	env    map[string]string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	token  string
	dsn    string
}

func newHarness() *harness {
	h := &harness{
		ws:     invitertest.NewWorkspace(),
		runs:   newMemRuns(),
		fs:     afero.NewMemMapFs(),
		env:    map[string]string{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	h.ws.Channels = []models.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "random"}}
	h.ws.Users = []models.User{
		{ID: "U1", Name: "ada"},
		{ID: "U2", Name: "grace"},
		{ID: "U3", Name: "guest", IsRestricted: true},
		{ID: "U4", Name: "robot", IsBot: true},
		{ID: models.SlackbotUserID, Name: "slackbot", IsBot: true},
	}
	h.ws.Members["C1"] = []string{"U1"}

	lookup := func(key string) (string, bool) {
		v, ok := h.env[key]
		return v, ok
	}
	h.app = newApplication(h.stdout, h.stderr, h.fs, lookup)
	h.app.newAPI = func(token string, _ *config.Config, _ zerolog.Logger) inviter.API {
		h.token = token
		return h.ws
	}
	h.app.openAudit = func(_ context.Context, dsn string, _ zerolog.Logger) (repository.RunRepository, func() error, error) {
		h.dsn = dsn
		return h.runs, func() error { h.runs.closed = true; return nil }, nil
	}
	return h
}

func (h *harness) execute(args ...string) int {
	return h.app.execute(context.Background(), args)
}

func TestInviteRun(t *testing.T) {
	h := newHarness()
	h.env[config.DefaultTokenEnv] = "xoxb-env"

	code := h.execute("--channel", "#general", "--sleep", "0")

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "xoxb-env", h.token)
	require.Len(t, h.ws.Invites, 1)
	assert.Equal(t, []string{"U2"}, h.ws.Invites[0])
	assert.Contains(t, h.stdout.String(), "Found channel general with ID C1")
	assert.Contains(t, h.stdout.String(), "Users to invite to general: 1")
	assert.Contains(t, h.stdout.String(), "Done!")
	assert.NotContains(t, h.stderr.String(), "xoxb-env")
}

func TestInviteRunIncludesBots(t *testing.T) {
	h := newHarness()

	code := h.execute("-c", "general", "--sleep", "0", "-b", "-k", "xoxb-flag")

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "xoxb-flag", h.token)
	require.Len(t, h.ws.Invites, 1)
	assert.Equal(t, []string{"U2", "U4"}, h.ws.Invites[0])
}

func TestInviteRunNothingToDo(t *testing.T) {
	h := newHarness()
	h.ws.Members["C1"] = []string{"U1", "U2"}

	code := h.execute("-c", "general", "--sleep", "0", "-k", "xoxb-flag")

	assert.Equal(t, exitOK, code)
	assert.Empty(t, h.ws.Invites)
	assert.Contains(t, h.stdout.String(), "nothing to do")
}

func TestInviteRunTokenFile(t *testing.T) {
	h := newHarness()
	require.NoError(t, afero.WriteFile(h.fs, "/secrets/slack", []byte("xoxb-file\n"), 0o600))

	code := h.execute("-c", "general", "--sleep", "0", "-f", "/secrets/slack")

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "xoxb-file", h.token)
}

func TestInviteRunFailures(t *testing.T) {
	tests := map[string]struct {
		args    []string
		prepare func(h *harness)
		output  string
	}{
		"missing channel": {
			args:   []string{"-k", "xoxb-flag"},
			output: "channel is required",
		},
		"missing token": {
			args:   []string{"-c", "general"},
			output: "no Slack token",
		},
		"empty token file": {
			args:    []string{"-c", "general", "-f", "/secrets/empty"},
			prepare: func(h *harness) {
				_ = afero.WriteFile(h.fs, "/secrets/empty", nil, 0o600)
			},
			output: "token file is unreadable or empty",
		},
		"conflicting token flags": {
			args:   []string{"-c", "general", "-k", "xoxb-flag", "-f", "/secrets/slack"},
			output: "none of the others can be",
		},
		"unknown channel": {
			args:   []string{"-c", "missing", "--sleep", "0", "-k", "xoxb-flag"},
			output: "channel not found",
		},
		"failed invite": {
			args:    []string{"-c", "general", "--sleep", "0", "-k", "xoxb-flag"},
			prepare: func(h *harness) {
				h.ws.InviteErrors = map[int]error{1: errors.New("restricted_action")}
			},
			output: "restricted_action",
		},
		"unexpected argument": {
			args:   []string{"general"},
			output: "unknown command",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			if tc.prepare != nil {
				tc.prepare(h)
			}
			code := h.execute(tc.args...)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, h.stdout.String(), tc.output)
		})
	}
}

func TestInviteRunRecordsAudit(t *testing.T) {
	h := newHarness()

	code := h.execute("-c", "general", "--sleep", "0", "-k", "xoxb-flag", "--audit-db", "postgres://audit")

	require.Equal(t, exitOK, code)
	assert.Equal(t, "postgres://audit", h.dsn)
	assert.True(t, h.runs.closed)
	require.Len(t, h.runs.order, 1)
	run := h.runs.runs[h.runs.order[0]]
	assert.Equal(t, models.InviteRunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.InvitedCount)
	require.Len(t, h.runs.batches, 1)
	assert.True(t, h.runs.batches[0].Succeeded)
}

func TestInviteRunAuditUnavailable(t *testing.T) {
	h := newHarness()
	h.app.openAudit = func(context.Context, string, zerolog.Logger) (repository.RunRepository, func() error, error) {
		return nil, nil, errors.New("ping audit database: connection refused")
	}

	code := h.execute("-c", "general", "--sleep", "0", "-k", "xoxb-flag", "--audit-db", "postgres://audit")

	assert.Equal(t, exitFailure, code)
	assert.Zero(t, h.ws.ChannelCalls)
	assert.Contains(t, h.stdout.String(), "connection refused")
}

func TestHistory(t *testing.T) {
	h := newHarness()
	require.Equal(t, exitOK, h.execute("-c", "general", "--sleep", "0", "-k", "xoxb-flag", "--audit-db", "postgres://audit"))
	runID := h.runs.order[0]
	h.stdout.Reset()

	require.Equal(t, exitOK, h.execute("history", "--audit-db", "postgres://audit"))
	assert.Contains(t, h.stdout.String(), runID)
	assert.Contains(t, h.stdout.String(), "succeeded")

	h.stdout.Reset()
	require.Equal(t, exitOK, h.execute("history", "--audit-db", "postgres://audit", "--run", runID))
	assert.Contains(t, h.stdout.String(), "1/1 invited")
}

func TestHistoryNeedsDatabase(t *testing.T) {
	h := newHarness()

	code := h.execute("history")

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, h.stdout.String(), "history needs --audit-db")
}
