package models

// SlackbotUserID is the workspace's built-in system bot. It is never invited.
const SlackbotUserID = "USLACKBOT"

// User is the slice of a workspace member record needed to decide eligibility.
type User struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Deleted           bool   `json:"deleted"`
	IsRestricted      bool   `json:"is_restricted"`
	IsUltraRestricted bool   `json:"is_ultra_restricted"`
	IsBot             bool   `json:"is_bot"`
	IsAppUser         bool   `json:"is_app_user"`
}

// IsSystemBot reports whether u is the built-in Slackbot account.
func (u User) IsSystemBot() bool {
	return u.ID == SlackbotUserID
}
