package invite

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 8 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 8 * time.Second},
		{30, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Fatalf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	if got := (Backoff{}).Delay(3); got != 0 {
		t.Fatalf("zero backoff should not wait, got %v", got)
	}
}

func TestClientSucceedsFirstTry(t *testing.T) {
	tr := newFakeTransport()
	client, rec := newTestClient(tr, 5)

	res := client.Join(context.Background(), "C1")
	if res.Err != nil || res.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Waits) != 0 || len(rec.delays) != 0 {
		t.Fatalf("no waits expected, got %v / %v", res.Waits, rec.delays)
	}
}

func TestClientHonorsRetryAfter(t *testing.T) {
	tr := newFakeTransport()
	tr.script(EndpointJoin, "C1", throttled(20*time.Millisecond), throttled(30*time.Millisecond))
	client, rec := newTestClient(tr, 5)

	start := time.Now()
	res := client.Join(context.Background(), "C1")
	elapsed := time.Since(start)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", res.Attempts)
	}
	want := []time.Duration{20 * time.Millisecond, 30 * time.Millisecond}
	if len(res.Waits) != len(want) || res.Waits[0] != want[0] || res.Waits[1] != want[1] {
		t.Fatalf("waits = %v, want %v", res.Waits, want)
	}
	if res.RetryAfterHonored != 50*time.Millisecond {
		t.Fatalf("retry-after honored = %v", res.RetryAfterHonored)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("returned after %v, before the advertised waits elapsed", elapsed)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("throttle with Retry-After must not use backoff, got %v", rec.delays)
	}
}

func TestClientThrottleWithoutRetryAfterBacksOff(t *testing.T) {
	tr := newFakeTransport()
	tr.script(EndpointInvite, "C1", throttled(0))
	client, rec := newTestClient(tr, 5)

	res := client.Invite(context.Background(), "C1", "U1")
	if res.Err != nil || res.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(rec.delays) != 1 || rec.delays[0] != time.Second {
		t.Fatalf("backoff delays = %v", rec.delays)
	}
}

func TestClientPermanentErrorIsNotRetried(t *testing.T) {
	tr := newFakeTransport()
	tr.script(EndpointInvite, "C1", permanent(CodeMissingScope))
	client, _ := newTestClient(tr, 5)

	res := client.Invite(context.Background(), "C1", "U1")
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", res.Attempts)
	}
	var apiErr *APIError
	if !errors.As(res.Err, &apiErr) || apiErr.Kind != KindPermanent || apiErr.Code != CodeMissingScope {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if n := tr.count(EndpointInvite, "C1"); n != 1 {
		t.Fatalf("invite called %d times", n)
	}
}

func TestClientExhaustsRetries(t *testing.T) {
	tr := newFakeTransport()
	tr.script(EndpointJoin, "C1", transient(), transient(), transient(), transient(), transient(), nil)
	client, rec := newTestClient(tr, 5)

	res := client.Join(context.Background(), "C1")

	var exhausted *RetriesExhaustedError
	if !errors.As(res.Err, &exhausted) {
		t.Fatalf("expected RetriesExhaustedError, got %v", res.Err)
	}
	if exhausted.Attempts != 5 || res.Attempts != 5 {
		t.Fatalf("attempts = %d/%d, want 5", exhausted.Attempts, res.Attempts)
	}
	if exhausted.Last.Code != CodeServiceUnavailable {
		t.Fatalf("last error = %v", exhausted.Last)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", rec.delays, want)
		}
	}
}

func TestClientCallTimeoutIsTransient(t *testing.T) {
	tr := newFakeTransport()
	tr.onCall = func(ctx context.Context, _ fakeCall) error {
		<-ctx.Done()
		return ctx.Err()
	}
	client, _ := newTestClient(tr, 2)
	client.cfg.CallTimeout = 10 * time.Millisecond

	res := client.Join(context.Background(), "C1")

	var exhausted *RetriesExhaustedError
	if !errors.As(res.Err, &exhausted) || exhausted.Last.Code != CodeTimeout {
		t.Fatalf("expected exhausted timeout, got %v", res.Err)
	}
}

func TestClientAbortBeforeFirstAttempt(t *testing.T) {
	tr := newFakeTransport()
	client, _ := newTestClient(tr, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := client.Join(ctx, "C1")
	if !errors.Is(res.Err, ErrAborted) || res.Attempts != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if tr.total() != 0 {
		t.Fatalf("transport called after abort")
	}
}

func TestClientAbortDuringBackoff(t *testing.T) {
	tr := newFakeTransport()
	tr.script(EndpointJoin, "C1", transient(), transient())
	client, rec := newTestClient(tr, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.hook = cancel

	res := client.Join(ctx, "C1")
	if !IsAborted(res.Err) {
		t.Fatalf("expected abort, got %v", res.Err)
	}
	var apiErr *APIError
	if !errors.As(res.Err, &apiErr) || apiErr.Code != CodeServiceUnavailable {
		t.Fatalf("abort should carry the last error, got %v", res.Err)
	}
	if res.Attempts != 1 || tr.total() != 1 {
		t.Fatalf("no new attempt may start after abort: %+v", res)
	}
}

func TestClientInFlightCallSurvivesAbort(t *testing.T) {
	tr := newFakeTransport()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr.onCall = func(callCtx context.Context, _ fakeCall) error {
		cancel()
		return callCtx.Err()
	}
	client, _ := newTestClient(tr, 5)

	res := client.Join(ctx, "C1")
	if res.Err != nil || res.Attempts != 1 {
		t.Fatalf("in-flight attempt should finish normally: %+v", res)
	}
}

func TestClassify(t *testing.T) {
	if Classify("op", "C1", nil) != nil {
		t.Fatalf("nil error should classify to nil")
	}

	got := Classify("conversations.join", "C1", context.DeadlineExceeded)
	if got.Kind != KindTransient || got.Code != CodeTimeout {
		t.Fatalf("deadline: %+v", got)
	}

	got = Classify("conversations.join", "C1", errors.New("weird"))
	if got.Kind != KindPermanent || got.Code != CodeUnknown {
		t.Fatalf("unknown: %+v", got)
	}

	pre := &APIError{Code: CodeIsArchived, Kind: KindPermanent}
	got = Classify("conversations.invite", "C9", pre)
	if got != pre || got.Op != "conversations.invite" || got.Channel != "C9" {
		t.Fatalf("classified error should pass through with context: %+v", got)
	}
}

func TestCodeOf(t *testing.T) {
	last := &APIError{Code: CodeRateLimited, Kind: KindThrottled}
	if got := CodeOf(&RetriesExhaustedError{Attempts: 5, Last: last}); got != CodeRateLimited {
		t.Fatalf("CodeOf(exhausted) = %q", got)
	}
	if got := CodeOf(errors.New("x")); got != "" {
		t.Fatalf("CodeOf(plain) = %q", got)
	}
}
