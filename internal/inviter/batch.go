package inviter

import "github.com/pkg/errors"

// MaxInviteBatch is the most user IDs Slack accepts in one conversations.invite call.
const MaxInviteBatch = 999

// Partition splits items into exactly parts contiguous, non-overlapping
// chunks whose sizes differ by at most one. Chunk i spans
// [i*n/parts, (i+1)*n/parts). Chunks may be empty when parts > len(items).
func Partition[T any](items []T, parts int) [][]T {
	if parts < 1 {
		parts = 1
	}
	n := len(items)
	out := make([][]T, parts)
	for i := range out {
		out[i] = items[i*n/parts : (i+1)*n/parts]
	}
	return out
}

// PlanBatches turns the sorted invite targets into invite calls. Up to
// MaxInviteBatch targets go out in one call; more are split into split
// chunks. A split too small for the target count fails before any call.
func PlanBatches(targets []string, split int) ([][]string, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	if len(targets) <= MaxInviteBatch {
		return [][]string{targets}, nil
	}

	batches := make([][]string, 0, split)
	for _, chunk := range Partition(targets, split) {
		if len(chunk) == 0 {
			continue
		}
		if len(chunk) > MaxInviteBatch {
			return nil, errors.Wrapf(ErrSplitTooSmall,
				"split %d leaves %d users in a chunk for %d targets, limit is %d",
				split, len(chunk), len(targets), MaxInviteBatch)
		}
		batches = append(batches, chunk)
	}
	return batches, nil
}
