// Package invitertest provides an in-memory Slack workspace implementing
// inviter.API for tests.
package invitertest

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/stanstork/slack-bulkinviter/internal/models"
)

// Workspace serves channels, users and channel members in cursor pages. The
// cursor is the decimal offset of the next page.
type Workspace struct {
	mu sync.Mutex

	Channels []models.Channel
	Users    []models.User
	Members  map[string][]string

	// InviteErrors fails the invite call with the given 1-based number.
	InviteErrors map[int]error
	// ListErr, when set, fails every list call.
	ListErr error

	ChannelCalls int
	UserCalls    int
	MemberCalls  int
	Invites      [][]string
}

func NewWorkspace() *Workspace {
	return &Workspace{Members: make(map[string][]string)}
}

func page[T any](items []T, pageSize int, cursor string) ([]T, string, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(items) {
			return nil, "", errors.Errorf("invalid_cursor %q", cursor)
		}
		offset = n
	}
	end := offset + pageSize
	if end >= len(items) {
		return items[offset:], "", nil
	}
	return items[offset:end], strconv.Itoa(end), nil
}

func (w *Workspace) ListChannels(_ context.Context, pageSize int, cursor string) ([]models.Channel, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ChannelCalls++
	if w.ListErr != nil {
		return nil, "", w.ListErr
	}
	return page(w.Channels, pageSize, cursor)
}

func (w *Workspace) ListUsers(_ context.Context, pageSize int, cursor string) ([]models.User, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.UserCalls++
	if w.ListErr != nil {
		return nil, "", w.ListErr
	}
	return page(w.Users, pageSize, cursor)
}

func (w *Workspace) ListChannelMembers(_ context.Context, channelID string, pageSize int, cursor string) ([]string, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.MemberCalls++
	if w.ListErr != nil {
		return nil, "", w.ListErr
	}
	if !w.hasChannel(channelID) {
		return nil, "", errors.New("channel_not_found")
	}
	return page(w.Members[channelID], pageSize, cursor)
}

func (w *Workspace) InviteToChannel(_ context.Context, channelID string, userIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := append([]string(nil), userIDs...)
	w.Invites = append(w.Invites, batch)
	if err := w.InviteErrors[len(w.Invites)]; err != nil {
		return err
	}
	if !w.hasChannel(channelID) {
		return errors.New("channel_not_found")
	}
	w.Members[channelID] = append(w.Members[channelID], batch...)
	return nil
}

// Invited returns how many users were invited across all calls, failed calls included.
func (w *Workspace) Invited() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.Invites {
		n += len(b)
	}
	return n
}

func (w *Workspace) hasChannel(id string) bool {
	for _, ch := range w.Channels {
		if ch.ID == id {
			return true
		}
	}
	return false
}

// CountingPacer never blocks and counts its waits.
type CountingPacer struct {
	mu    sync.Mutex
	Waits int
}

func (p *CountingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Waits++
	return ctx.Err()
}
