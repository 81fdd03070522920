package inviter

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stanstork/slack-bulkinviter/internal/models"
)

// CollectEligibleUsers returns the IDs of every workspace member the policy
// allows to be invited. The users listing includes deleted and deactivated
// accounts; the policy filters them out.
func (s *Service) CollectEligibleUsers(ctx context.Context) (IDSet, error) {
	eligible := make(IDSet)
	seen := 0

	fetch := func(ctx context.Context, cursor string) ([]models.User, string, error) {
		return s.api.ListUsers(ctx, s.opts.PageSize, cursor)
	}
	pages, err := Paginate(ctx, s.pacer, fetch, func(page []models.User) (bool, error) {
		seen += len(page)
		for _, u := range page {
			if s.opts.Policy.ShouldInvite(u) {
				eligible.Add(u.ID)
			}
		}
		s.logger.Debug().Int("users", len(page)).Int("eligible", eligible.Len()).Msg("users page")
		return true, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}

	s.logger.Debug().Int("pages", pages).Int("seen", seen).Int("eligible", eligible.Len()).Msg("users collected")
	return eligible, nil
}

// CollectChannelMembers returns the IDs of everyone already in channelID.
func (s *Service) CollectChannelMembers(ctx context.Context, channelID string) (IDSet, error) {
	members := make(IDSet)

	fetch := func(ctx context.Context, cursor string) ([]string, string, error) {
		return s.api.ListChannelMembers(ctx, channelID, s.opts.PageSize, cursor)
	}
	pages, err := Paginate(ctx, s.pacer, fetch, func(page []string) (bool, error) {
		members.Add(page...)
		s.logger.Debug().Int("members", len(page)).Msg("channel members page")
		return true, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list members of %s", channelID)
	}

	s.logger.Debug().Int("pages", pages).Int("members", members.Len()).Msg("channel members collected")
	return members, nil
}
