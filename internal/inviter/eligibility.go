package inviter

import "github.com/stanstork/slack-bulkinviter/internal/models"

// Policy decides which workspace members are invited.
type Policy struct {
	IncludeBots bool
	IncludeApps bool
}

// ShouldInvite reports whether u is eligible. Deleted, restricted (guest)
// and ultra-restricted accounts and Slackbot are never eligible; bots and
// app users only when the policy includes them.
func (p Policy) ShouldInvite(u models.User) bool {
	return !u.Deleted &&
		!u.IsRestricted &&
		!u.IsUltraRestricted &&
		(p.IncludeBots || !u.IsBot) &&
		(p.IncludeApps || !u.IsAppUser) &&
		!u.IsSystemBot()
}
