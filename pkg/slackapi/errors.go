package slackapi

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/slack-go/slack"

	"slackadder/pkg/invite"
)

var errorCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var transientCodes = map[string]bool{
	invite.CodeInternalError:      true,
	invite.CodeFatalError:         true,
	invite.CodeServiceUnavailable: true,
	invite.CodeRequestTimeout:     true,
}

// classify maps slack-go errors onto the retry taxonomy.
func classify(op, channel string, err error) *invite.APIError {
	if err == nil {
		return nil
	}

	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return &invite.APIError{
			Op:         op,
			Channel:    channel,
			Code:       invite.CodeRateLimited,
			Kind:       invite.KindThrottled,
			RetryAfter: rateLimited.RetryAfter,
			Err:        err,
		}
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return &invite.APIError{Op: op, Channel: channel, Code: slackErr.Err, Kind: codeKind(slackErr.Err), Err: err}
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		apiErr := &invite.APIError{
			Op:      op,
			Channel: channel,
			Code:    fmt.Sprintf("http_%d", statusErr.Code),
			Kind:    invite.KindPermanent,
			Err:     err,
		}
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			apiErr.Code = invite.CodeRateLimited
			apiErr.Kind = invite.KindThrottled
		case statusErr.Code >= http.StatusInternalServerError:
			apiErr.Kind = invite.KindTransient
		}
		return apiErr
	}

	// Some endpoints surface the error code as a bare error string.
	if code := err.Error(); errorCodePattern.MatchString(code) {
		return &invite.APIError{Op: op, Channel: channel, Code: code, Kind: codeKind(code), Err: err}
	}

	return invite.Classify(op, channel, err)
}

func codeKind(code string) invite.Kind {
	switch {
	case code == invite.CodeRateLimited:
		return invite.KindThrottled
	case transientCodes[code]:
		return invite.KindTransient
	default:
		return invite.KindPermanent
	}
}

// asError keeps a nil *APIError from turning into a non-nil error.
func asError(apiErr *invite.APIError) error {
	if apiErr == nil {
		return nil
	}
	return apiErr
}
