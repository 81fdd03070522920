package slackapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stanstork/slack-bulkinviter/internal/models"
	"github.com/stanstork/slack-bulkinviter/internal/throttle"
)

var conversationTypes = []string{"public_channel", "private_channel"}

type Options struct {
	// MaxRetries bounds the retries of a call answered with HTTP 429.
	MaxRetries int
	// APIURL overrides the Slack Web API base URL. It must end with a slash.
	APIURL     string
	HTTPClient *http.Client
	Debug      bool
}

// Client implements inviter.API on top of slack-go. It is not safe for
// concurrent use.
type Client struct {
	api        *slack.Client
	maxRetries int
	logger     zerolog.Logger

	// users.list cursors live inside slack.UserPagination, so the client
	// hands out its own opaque cursors and keeps the pagination state here.
	userPages map[string]slack.UserPagination
	userSeq   int
}

func New(token string, logger zerolog.Logger, opts Options) *Client {
	logger = logger.With().Str("component", "slack-api").Logger()
	slackOpts := []slack.Option{
		slack.OptionDebug(opts.Debug),
		slack.OptionHTTPClient(withLogging(opts.HTTPClient, logger)),
	}
	if opts.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(opts.APIURL))
	}

	return &Client{
		api:        slack.New(token, slackOpts...),
		maxRetries: opts.MaxRetries,
		logger:     logger,
		userPages:  make(map[string]slack.UserPagination),
	}
}

type channelPage struct {
	channels []slack.Channel
	next     string
}

func (c *Client) ListChannels(ctx context.Context, pageSize int, cursor string) ([]models.Channel, string, error) {
	params := &slack.GetConversationsParameters{
		Cursor:          cursor,
		ExcludeArchived: true,
		Limit:           pageSize,
		Types:           conversationTypes,
	}
	page, err := throttle.Do(ctx, c.maxRetries, retryAfter, c.onRetry("conversations.list"), func() (channelPage, error) {
		channels, next, err := c.api.GetConversationsContext(ctx, params)
		return channelPage{channels: channels, next: next}, err
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "conversations.list")
	}

	out := make([]models.Channel, 0, len(page.channels))
	for _, ch := range page.channels {
		out = append(out, models.Channel{ID: ch.ID, Name: ch.Name, IsPrivate: ch.IsPrivate})
	}
	c.logger.Debug().Str("cursor", cursor).Str("next", page.next).Int("channels", len(out)).Msg("conversations.list page")
	return out, page.next, nil
}

// ListUsers pages through users.list. The page after the last one comes
// back empty without a remote call.
func (c *Client) ListUsers(ctx context.Context, pageSize int, cursor string) ([]models.User, string, error) {
	var page slack.UserPagination
	if cursor == "" {
		page = c.api.GetUsersPaginated(slack.GetUsersOptionLimit(pageSize))
	} else {
		p, ok := c.userPages[cursor]
		if !ok {
			return nil, "", errors.Errorf("users.list: unknown cursor %q", cursor)
		}
		delete(c.userPages, cursor)
		page = p
	}

	next, err := throttle.Do(ctx, c.maxRetries, retryAfter, c.onRetry("users.list"), func() (slack.UserPagination, error) {
		return page.Next(ctx)
	})
	if page.Done(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "users.list")
	}

	out := make([]models.User, 0, len(next.Users))
	for _, u := range next.Users {
		out = append(out, models.User{
			ID:                u.ID,
			Name:              u.Name,
			Deleted:           u.Deleted,
			IsRestricted:      u.IsRestricted,
			IsUltraRestricted: u.IsUltraRestricted,
			IsBot:             u.IsBot,
			IsAppUser:         u.IsAppUser,
		})
	}

	c.userSeq++
	token := fmt.Sprintf("users-%d", c.userSeq)
	c.userPages[token] = next
	c.logger.Debug().Str("cursor", cursor).Int("users", len(out)).Msg("users.list page")
	return out, token, nil
}

type memberPage struct {
	members []string
	next    string
}

func (c *Client) ListChannelMembers(ctx context.Context, channelID string, pageSize int, cursor string) ([]string, string, error) {
	params := &slack.GetUsersInConversationParameters{
		ChannelID: channelID,
		Cursor:    cursor,
		Limit:     pageSize,
	}
	page, err := throttle.Do(ctx, c.maxRetries, retryAfter, c.onRetry("conversations.members"), func() (memberPage, error) {
		members, next, err := c.api.GetUsersInConversationContext(ctx, params)
		return memberPage{members: members, next: next}, err
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "conversations.members")
	}

	c.logger.Debug().Str("cursor", cursor).Str("next", page.next).Int("members", len(page.members)).Msg("conversations.members page")
	return page.members, page.next, nil
}

// InviteToChannel invites userIDs in one conversations.invite call. The
// returned error carries Slack's error code, e.g. already_in_channel.
func (c *Client) InviteToChannel(ctx context.Context, channelID string, userIDs []string) error {
	_, err := throttle.Do(ctx, c.maxRetries, retryAfter, c.onRetry("conversations.invite"), func() (*slack.Channel, error) {
		return c.api.InviteUsersToConversationContext(ctx, channelID, userIDs...)
	})
	if err != nil {
		return errors.Wrap(err, "conversations.invite")
	}
	return nil
}

func retryAfter(err error) (time.Duration, bool) {
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

func (c *Client) onRetry(method string) throttle.OnRetryFunc {
	return func(n uint, err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Uint("retry", n).
			Dur("wait", wait).
			Msg("rate limited by Slack, retrying")
	}
}
