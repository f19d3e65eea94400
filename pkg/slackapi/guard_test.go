package slackapi

import (
	"context"
	"net/http"
	"testing"
)

func TestGuardRefusesGuests(t *testing.T) {
	f, client := newFakeSlack(t)
	f.handle(methodUser, jsonReply(`{"ok":true,"user":{"id":"U1","is_restricted":true}}`))
	guard := NewGuard(client, true, true)

	ctx := context.Background()
	reason, err := guard.Check(ctx, "U1", "")
	if err != nil || reason != MsgGuestDenied {
		t.Fatalf("Check = %q, %v", reason, err)
	}

	_, _ = guard.Check(ctx, "U1", "")
	if f.count(methodUser) != 1 {
		t.Fatalf("user lookups should be cached, got %d calls", f.count(methodUser))
	}
}

func TestGuardRefusesSharedChannels(t *testing.T) {
	f, client := newFakeSlack(t)
	f.handle(methodUser, jsonReply(`{"ok":true,"user":{"id":"U1"}}`))
	f.handle(methodInfo, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("channel") == "CSHARED" {
			jsonReply(`{"ok":true,"channel":{"id":"CSHARED","is_ext_shared":true}}`)(w, r)
			return
		}
		jsonReply(`{"ok":true,"channel":{"id":"CLOCAL"}}`)(w, r)
	})
	guard := NewGuard(client, true, true)
	ctx := context.Background()

	if reason, err := guard.Check(ctx, "U1", "CSHARED"); err != nil || reason != MsgExternalDenied {
		t.Fatalf("shared channel: %q, %v", reason, err)
	}
	if reason, err := guard.Check(ctx, "U1", "CLOCAL"); err != nil || reason != "" {
		t.Fatalf("local channel: %q, %v", reason, err)
	}

	before := f.count(methodInfo)
	if reason, _ := guard.Check(ctx, "U1", "D123"); reason != MsgExternalDenied {
		t.Fatalf("direct messages should be refused, got %q", reason)
	}
	if f.count(methodInfo) != before {
		t.Fatalf("direct message check should not call the API")
	}
}

func TestGuardMissingScope(t *testing.T) {
	f, client := newFakeSlack(t)
	f.handle(methodUser, jsonReply(`{"ok":false,"error":"missing_scope"}`))
	guard := NewGuard(client, true, false)

	reason, err := guard.Check(context.Background(), "U1", "C1")
	if err == nil || reason != MsgUsersScopeMissing {
		t.Fatalf("Check = %q, %v", reason, err)
	}
}

func TestGuardDisabledChecks(t *testing.T) {
	f, client := newFakeSlack(t)
	guard := NewGuard(client, false, false)

	if reason, err := guard.Check(context.Background(), "U1", "D1"); reason != "" || err != nil {
		t.Fatalf("Check = %q, %v", reason, err)
	}
	if f.count(methodUser)+f.count(methodInfo) != 0 {
		t.Fatalf("disabled guard should not call the API")
	}
}
