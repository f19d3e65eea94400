package resolver

import (
	"errors"
	"strings"

	"slackadder/pkg/groups"
)

// ResolvedChannel is one target channel.
type ResolvedChannel struct {
	// ID is the channel ID or "#name".
	ID string
	// Source is the first command token that produced this channel.
	Source string
	// Group is the group the channel came from, if any.
	Group string
	// Bare marks a command word that named no group and is tried as a
	// channel name instead.
	Bare bool
}

// IsName reports whether the channel still needs name-to-ID resolution.
func (c ResolvedChannel) IsName() bool {
	return strings.HasPrefix(c.ID, "#")
}

// UnresolvedToken is a token that contributed no channel.
type UnresolvedToken = ResolutionError

// Result is the outcome of Resolve.
type Result struct {
	Channels   []ResolvedChannel
	Unresolved []UnresolvedToken
}

// Empty reports whether nothing resolved to a channel.
func (r Result) Empty() bool {
	return len(r.Channels) == 0
}

// GroupSource is the part of the group store the resolver needs.
type GroupSource interface {
	Lookup(name string) (groups.Group, bool)
	Has(name string) bool
}

// Resolve expands tokens into channels in first-seen order. Duplicate
// channels collapse onto their first occurrence. Groups are expanded one
// level only: a group member naming another group is reported as
// ReasonNestedGroup. A word that is not a group becomes a "#name" channel
// marked Bare; Canonicalize reports it if no such channel exists.
func Resolve(tokens []string, source GroupSource) Result {
	r := &resolution{
		source:         source,
		seenChannel:    map[string]bool{},
		seenUnresolved: map[string]bool{},
	}

	for _, raw := range tokens {
		tok, err := Classify(raw, r.isGroup)
		if err != nil {
			r.fail(err)
			continue
		}

		switch tok.Kind {
		case KindChannelID, KindChannelMention:
			r.add(ResolvedChannel{ID: tok.Value, Source: raw})
		case KindGroupName:
			if r.isGroup(raw) {
				r.expand(raw)
				continue
			}
			r.bare(raw, tok)
		}
	}

	return r.result
}

type resolution struct {
	source         GroupSource
	result         Result
	seenChannel    map[string]bool
	seenUnresolved map[string]bool
}

func (r *resolution) isGroup(name string) bool {
	return r.source != nil && r.source.Has(name)
}

func (r *resolution) add(ch ResolvedChannel) bool {
	if r.seenChannel[ch.ID] {
		return false
	}
	r.seenChannel[ch.ID] = true
	r.result.Channels = append(r.result.Channels, ch)
	return true
}

func (r *resolution) fail(err error) {
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		return
	}
	key := strings.ToLower(resErr.Group) + "\x00" + strings.ToLower(resErr.Token) + "\x00" + string(resErr.Reason)
	if r.seenUnresolved[key] {
		return
	}
	r.seenUnresolved[key] = true
	r.result.Unresolved = append(r.result.Unresolved, *resErr)
}

// bare treats a word that names no group as a channel name, the way the
// bot has always accepted "team-support" for "#team-support".
func (r *resolution) bare(raw string, tok Token) {
	if !channelNamePattern.MatchString(tok.Value) {
		r.fail(&ResolutionError{Token: raw, Reason: ReasonUnknownGroup})
		return
	}
	r.add(ResolvedChannel{ID: "#" + tok.Value, Source: raw, Bare: true})
}

func (r *resolution) expand(raw string) {
	var (
		group groups.Group
		ok    bool
	)
	if r.source != nil {
		group, ok = r.source.Lookup(raw)
	}
	if !ok {
		r.fail(&ResolutionError{Token: raw, Reason: ReasonUnknownGroup})
		return
	}

	contributed := 0
	for _, member := range group.Channels {
		tok, err := Classify(member, r.isGroup)
		if err != nil {
			var resErr *ResolutionError
			if errors.As(err, &resErr) {
				resErr.Group = group.Name
			}
			r.fail(err)
			continue
		}

		ch := ResolvedChannel{Source: raw, Group: group.Name}
		switch tok.Kind {
		case KindChannelID, KindChannelMention:
			ch.ID = tok.Value
		case KindGroupName:
			if r.isGroup(member) {
				r.fail(&ResolutionError{Token: member, Group: group.Name, Reason: ReasonNestedGroup})
				continue
			}
			// Group files list plain channel names without the #.
			if !channelNamePattern.MatchString(tok.Value) {
				r.fail(&ResolutionError{Token: member, Group: group.Name, Reason: ReasonInvalidToken})
				continue
			}
			ch.ID = "#" + tok.Value
		}
		r.add(ch)
		contributed++
	}

	if contributed == 0 {
		r.fail(&ResolutionError{Token: raw, Reason: ReasonEmptyGroup})
	}
}
