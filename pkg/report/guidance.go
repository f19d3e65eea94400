package report

import "slackadder/pkg/invite"

const privateChannelGuidance = "Add SlackAdder to the channel first (private channels require a manual invite)."

var guidanceByCode = map[string]string{
	invite.CodeMissingScope:        "SlackAdder is missing a required scope. An admin needs to reinstall the app with the latest manifest.",
	invite.CodeNotInChannel:        privateChannelGuidance,
	invite.CodeCantInvite:          "This member can't be invited to the channel.",
	invite.CodeRestrictedAction:    "Workspace policy blocks this action. Ask an admin to allow invites in this channel, or invite manually.",
	invite.CodeChannelNotFound:     "Channel not found. Check the name, or add SlackAdder to the channel if it is private.",
	invite.CodeIsArchived:          "The channel is archived. Unarchive it first.",
	invite.CodeUserNotFound:        "The member to invite was not found in this workspace.",
	invite.CodeCantInviteSelf:      "SlackAdder can't invite itself.",
	invite.CodeUserIsRestricted:    "Guests can only be added to channels by an admin.",
	invite.CodeUserIsUltraRestrict: "Single-channel guests can only be added to channels by an admin.",
	invite.CodeRateLimited:         "Slack kept rate limiting the request. Try again in a few minutes.",
	invite.CodeTimeout:             "Slack did not answer in time. Try again later.",
	invite.CodeNetwork:             "Slack could not be reached. Try again later.",
	invite.CodeServiceUnavailable:  "Slack is having trouble right now. Try again later.",
	invite.CodeInternalError:       "Slack is having trouble right now. Try again later.",
	invite.CodeFatalError:          "Slack is having trouble right now. Try again later.",
	invite.CodeRequestTimeout:      "Slack did not answer in time. Try again later.",
}

// Guidance returns operator advice for a remote error code. joinSkipped
// tells whether the bot skipped joining the channel, which turns an invite
// refusal into the private-channel case.
func Guidance(code string, joinSkipped bool) string {
	if joinSkipped && (code == invite.CodeCantInvite || code == invite.CodeNotInChannel) {
		return privateChannelGuidance
	}
	return guidanceByCode[code]
}
