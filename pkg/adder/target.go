package adder

import (
	"regexp"
	"strings"
)

var (
	userMentionPattern = regexp.MustCompile(`^<@([UW][A-Z0-9]+)(?:\|[^>]+)?>$`)
	userIDPattern      = regexp.MustCompile(`^[UW][A-Z0-9]+$`)
)

// ParseTarget extracts the member to invite from a mention such as
// <@U123> or <@U123|name>, or from a raw user ID.
func ParseTarget(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", &UsageError{Message: "Missing bot user ID to invite"}
	}

	if m := userMentionPattern.FindStringSubmatch(token); m != nil {
		return m[1], nil
	}
	if upper := strings.ToUpper(token); userIDPattern.MatchString(upper) {
		return upper, nil
	}

	return "", &UsageError{Message: "Couldn't understand which bot to invite. Mention it or provide the user ID."}
}
