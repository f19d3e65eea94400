package slackapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"slackadder/pkg/invite"
	"slackadder/pkg/resolver"
)

// fakeSlack serves canned Web API responses keyed by method name.
type fakeSlack struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

func newFakeSlack(t *testing.T) (*fakeSlack, *Client) {
	t.Helper()

	f := &fakeSlack{handlers: map[string]http.HandlerFunc{}, calls: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[1:]
		_ = r.ParseForm()

		f.mu.Lock()
		f.calls[method]++
		h := f.handlers[method]
		f.mu.Unlock()

		if h == nil {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"ok":true}`)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client := New(Options{BotToken: "xoxb-test", APIURL: srv.URL + "/", CacheTTL: time.Minute}, nil, nil)
	client.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return f, client
}

func (f *fakeSlack) handle(method string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeSlack) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestJoinAndInvite(t *testing.T) {
	f, client := newFakeSlack(t)

	var gotUsers, gotChannel string
	f.handle(methodJoin, jsonReply(`{"ok":true,"channel":{"id":"C1"}}`))
	f.handle(methodInvite, func(w http.ResponseWriter, r *http.Request) {
		gotUsers, gotChannel = r.FormValue("users"), r.FormValue("channel")
		jsonReply(`{"ok":false,"error":"already_in_channel"}`)(w, r)
	})

	ctx := context.Background()
	if err := client.JoinChannel(ctx, "C1"); err != nil {
		t.Fatalf("JoinChannel error: %v", err)
	}

	err := client.InviteMember(ctx, "C1", "U1")
	var apiErr *invite.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != invite.CodeAlreadyInChannel || apiErr.Kind != invite.KindPermanent || apiErr.Op != methodInvite {
		t.Fatalf("unexpected classification: %+v", apiErr)
	}
	if gotUsers != "U1" || gotChannel != "C1" {
		t.Fatalf("invite sent users=%q channel=%q", gotUsers, gotChannel)
	}
}

func TestJoinRateLimitedCarriesRetryAfter(t *testing.T) {
	f, client := newFakeSlack(t)
	f.handle(methodJoin, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := client.JoinChannel(context.Background(), "C1")

	var apiErr *invite.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != invite.KindThrottled {
		t.Fatalf("expected throttled error, got %v", err)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("retry after = %v", apiErr.RetryAfter)
	}
}

func TestJoinServerErrorIsTransient(t *testing.T) {
	f, client := newFakeSlack(t)
	f.handle(methodJoin, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var apiErr *invite.APIError
	err := client.JoinChannel(context.Background(), "C1")
	if !errors.As(err, &apiErr) || apiErr.Kind != invite.KindTransient || apiErr.Code != "http_502" {
		t.Fatalf("expected transient http_502, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		kind invite.Kind
	}{
		{"missing scope", slack.SlackErrorResponse{Err: "missing_scope"}, invite.CodeMissingScope, invite.KindPermanent},
		{"internal error", slack.SlackErrorResponse{Err: "internal_error"}, invite.CodeInternalError, invite.KindTransient},
		{"ratelimited body", slack.SlackErrorResponse{Err: "ratelimited"}, invite.CodeRateLimited, invite.KindThrottled},
		{"rate limited", &slack.RateLimitedError{RetryAfter: 3 * time.Second}, invite.CodeRateLimited, invite.KindThrottled},
		{"status 503", slack.StatusCodeError{Code: 503, Status: "503 Service Unavailable"}, "http_503", invite.KindTransient},
		{"status 404", slack.StatusCodeError{Code: 404, Status: "404 Not Found"}, "http_404", invite.KindPermanent},
		{"deadline", context.DeadlineExceeded, invite.CodeTimeout, invite.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(methodJoin, "C1", tt.err)
			if got.Code != tt.code || got.Kind != tt.kind {
				t.Fatalf("classify(%v) = %s/%v, want %s/%v", tt.err, got.Code, got.Kind, tt.code, tt.kind)
			}
		})
	}

	if classify(methodJoin, "C1", nil) != nil || asError(nil) != nil {
		t.Fatalf("nil errors must stay nil")
	}
}

func TestResolveChannelIDPaginatesAndCaches(t *testing.T) {
	f, client := newFakeSlack(t)
	f.handle(methodList, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("cursor") == "" {
			jsonReply(`{"ok":true,"channels":[{"id":"C1","name":"General"}],"response_metadata":{"next_cursor":"page2"}}`)(w, r)
			return
		}
		jsonReply(`{"ok":true,"channels":[{"id":"C2","name":"team-support"}],"response_metadata":{"next_cursor":""}}`)(w, r)
	})

	ctx := context.Background()
	id, err := client.ResolveChannelID(ctx, "#Team-Support")
	if err != nil || id != "C2" {
		t.Fatalf("ResolveChannelID = %q, %v", id, err)
	}
	if n := f.count(methodList); n != 2 {
		t.Fatalf("conversations.list called %d times, want 2", n)
	}

	id, err = client.ResolveChannelID(ctx, "general")
	if err != nil || id != "C1" {
		t.Fatalf("cached ResolveChannelID = %q, %v", id, err)
	}
	if n := f.count(methodList); n != 2 {
		t.Fatalf("cached lookup hit the API: %d calls", n)
	}

	if _, err := client.ResolveChannelID(ctx, "missing"); !errors.Is(err, resolver.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestResolveChannelIDRetriesThrottledListing(t *testing.T) {
	f, client := newFakeSlack(t)
	var calls int
	f.handle(methodList, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		jsonReply(`{"ok":true,"channels":[{"id":"C9","name":"ops"}]}`)(w, r)
	})

	id, err := client.ResolveChannelID(context.Background(), "ops")
	if err != nil || id != "C9" {
		t.Fatalf("ResolveChannelID = %q, %v", id, err)
	}
}
