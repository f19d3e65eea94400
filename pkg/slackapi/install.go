package slackapi

import (
	"context"
	"errors"
)

// ErrOrgAllowListRequired refuses to start an org-wide install that anyone
// in the enterprise could drive.
var ErrOrgAllowListRequired = errors.New("ALLOWED_USERS must be set (comma-separated user IDs) when running as an org-level app")

// Identity is the bot user and the installation it belongs to.
type Identity struct {
	UserID       string
	BotID        string
	TeamID       string
	EnterpriseID string
}

// OrgLevel reports whether the app is installed across an enterprise rather
// than into one workspace.
func (i Identity) OrgLevel() bool {
	return i.EnterpriseID != "" && i.TeamID == ""
}

// Identify runs auth.test.
func (c *Client) Identify(ctx context.Context) (Identity, error) {
	resp, err := c.AuthTest(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:       resp.UserID,
		BotID:        resp.BotID,
		TeamID:       resp.TeamID,
		EnterpriseID: resp.EnterpriseID,
	}, nil
}

// CheckInstallation enforces the startup rules for the installation.
func CheckInstallation(id Identity, allowFrom []string) error {
	if id.OrgLevel() && len(allowFrom) == 0 {
		return ErrOrgAllowListRequired
	}
	return nil
}
