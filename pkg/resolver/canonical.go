package resolver

import (
	"context"
	"errors"
	"strings"
)

// ErrChannelNotFound is returned by a NameLookup when no channel has the name.
var ErrChannelNotFound = errors.New("channel not found")

// NameLookup maps a channel name (without #) to its ID.
type NameLookup interface {
	ResolveChannelID(ctx context.Context, name string) (string, error)
}

// Canonicalize replaces "#name" channels with their IDs and collapses any
// duplicates that only became visible after the lookup. Names that cannot be
// found move to Unresolved. Order of first appearance is kept.
func Canonicalize(ctx context.Context, res Result, lookup NameLookup) Result {
	if lookup == nil {
		return res
	}

	out := Result{Unresolved: append([]UnresolvedToken(nil), res.Unresolved...)}
	seen := make(map[string]bool, len(res.Channels))

	for _, ch := range res.Channels {
		if ch.IsName() {
			name := strings.TrimPrefix(ch.ID, "#")
			id, err := lookup.ResolveChannelID(ctx, name)
			if err != nil {
				out.Unresolved = append(out.Unresolved, lookupFailure(ch, err))
				continue
			}
			ch.ID = id
			ch.Bare = false
		}
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		out.Channels = append(out.Channels, ch)
	}

	return out
}

func lookupFailure(ch ResolvedChannel, err error) ResolutionError {
	if !errors.Is(err, ErrChannelNotFound) {
		return ResolutionError{Token: ch.ID, Group: ch.Group, Reason: ReasonLookupFailed, Err: err}
	}
	if ch.Bare {
		return ResolutionError{Token: ch.Source, Reason: ReasonUnknownChannelOrGroup}
	}
	return ResolutionError{Token: ch.ID, Group: ch.Group, Reason: ReasonUnknownChannel, Err: err}
}
