// Package resolver turns command tokens into an ordered, deduplicated set of
// channels, expanding named groups along the way.
package resolver

import (
	"regexp"
	"strings"
)

// Kind is the closed set of token classes.
type Kind int

const (
	// KindChannelID is a literal channel ID such as C1234567890.
	KindChannelID Kind = iota + 1
	// KindChannelMention is a #name reference; the name is turned into an
	// ID later by the transport.
	KindChannelMention
	// KindGroupName is anything else: a (possibly unknown) group name.
	KindGroupName
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindChannelID:
		return "channel_id"
	case KindChannelMention:
		return "channel_mention"
	case KindGroupName:
		return "group_name"
	default:
		return "unknown"
	}
}

// Token is a classified command token.
type Token struct {
	Raw  string
	Kind Kind
	// Value is the normalized form: upper-cased ID, "#" + lower-cased name,
	// or lower-cased group key.
	Value string
}

var (
	channelIDPattern   = regexp.MustCompile(`^[CG][A-Z0-9]{8,}$`)
	channelNamePattern = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{N}_.-]{1,80}$`)
)

// Classify assigns raw to exactly one Kind. isGroup reports whether a bare
// word names a configured group; it may be nil.
//
// Order matters: Slack channel links (<#C123|name>) and #names are checked
// first, then configured group names, then the literal ID pattern. A bare
// word that is neither is returned as KindGroupName; Resolve decides whether
// it can still be tried as a channel name.
func Classify(raw string, isGroup func(string) bool) (Token, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Token{}, &ResolutionError{Token: raw, Reason: ReasonInvalidToken}
	}

	if strings.HasPrefix(trimmed, "<#") {
		if !strings.HasSuffix(trimmed, ">") {
			return Token{}, &ResolutionError{Token: raw, Reason: ReasonInvalidToken}
		}
		body := trimmed[2 : len(trimmed)-1]
		if i := strings.IndexByte(body, '|'); i >= 0 {
			body = body[:i]
		}
		id := strings.ToUpper(body)
		if !channelIDPattern.MatchString(id) {
			return Token{}, &ResolutionError{Token: raw, Reason: ReasonInvalidToken}
		}
		return Token{Raw: raw, Kind: KindChannelID, Value: id}, nil
	}

	if strings.HasPrefix(trimmed, "#") {
		name := strings.ToLower(strings.TrimPrefix(trimmed, "#"))
		if !channelNamePattern.MatchString(name) {
			return Token{}, &ResolutionError{Token: raw, Reason: ReasonInvalidToken}
		}
		return Token{Raw: raw, Kind: KindChannelMention, Value: "#" + name}, nil
	}

	if strings.ContainsAny(trimmed, " \t\r\n<>") {
		return Token{}, &ResolutionError{Token: raw, Reason: ReasonInvalidToken}
	}

	if isGroup != nil && isGroup(trimmed) {
		return Token{Raw: raw, Kind: KindGroupName, Value: strings.ToLower(trimmed)}, nil
	}

	if id, ok := bareChannelID(trimmed); ok {
		return Token{Raw: raw, Kind: KindChannelID, Value: id}, nil
	}

	return Token{Raw: raw, Kind: KindGroupName, Value: strings.ToLower(trimmed)}, nil
}

// bareChannelID accepts IDs typed in any case. A lower-case word only counts
// when it has a digit, so names like "contractors" stay words.
func bareChannelID(s string) (string, bool) {
	id := strings.ToUpper(s)
	if !channelIDPattern.MatchString(id) {
		return "", false
	}
	if id != s && !strings.ContainsAny(id, "0123456789") {
		return "", false
	}
	return id, true
}
