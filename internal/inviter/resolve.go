package inviter

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stanstork/slack-bulkinviter/internal/models"
)

// ResolveChannel scans the non-archived public and private channels for an
// exact name match and stops on the page that holds it.
func (s *Service) ResolveChannel(ctx context.Context, name string) (models.Channel, error) {
	var matches []models.Channel

	fetch := func(ctx context.Context, cursor string) ([]models.Channel, string, error) {
		return s.api.ListChannels(ctx, s.opts.PageSize, cursor)
	}
	pages, err := Paginate(ctx, s.pacer, fetch, func(page []models.Channel) (bool, error) {
		for _, ch := range page {
			if ch.Name == name {
				matches = append(matches, ch)
			}
		}
		switch len(matches) {
		case 0:
			s.logger.Debug().Int("channels", len(page)).Msgf("channel %s not on this page", name)
			return true, nil
		case 1:
			return false, nil
		default:
			return false, errors.Wrapf(ErrDuplicateChannel, "%d channels named %q", len(matches), name)
		}
	})
	if err != nil {
		return models.Channel{}, errors.Wrap(err, "list channels")
	}
	if len(matches) == 0 {
		return models.Channel{}, errors.Wrapf(ErrChannelNotFound, "no channel named %q in %d page(s)", name, pages)
	}

	s.logger.Debug().Int("pages", pages).Str("channel_id", matches[0].ID).Msg("channel resolved")
	return matches[0], nil
}
