package inviter

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrDuplicateChannel = errors.New("more than one channel matches the name")
	ErrSplitTooSmall    = errors.New("split factor leaves a chunk above the invite limit")
)

// InviteError is a conversations.invite call rejected by Slack.
type InviteError struct {
	Chunk int
	Size  int
	Err   error
}

func (e *InviteError) Error() string {
	return fmt.Sprintf("invite chunk #%d (%d users): %v", e.Chunk, e.Size, e.Err)
}

func (e *InviteError) Unwrap() error {
	return e.Err
}
