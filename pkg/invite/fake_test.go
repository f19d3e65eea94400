package invite

import (
	"context"
	"sync"
	"time"
)

type fakeCall struct {
	endpoint Endpoint
	channel  string
	user     string
}

// fakeTransport replays scripted errors per endpoint and channel. Once a
// script runs out every call succeeds.
type fakeTransport struct {
	mu      sync.Mutex
	scripts map[Endpoint]map[string][]error
	calls   []fakeCall
	delay   func(channel string) time.Duration
	onCall  func(ctx context.Context, call fakeCall) error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{scripts: map[Endpoint]map[string][]error{}}
}

func (f *fakeTransport) script(ep Endpoint, channel string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scripts[ep] == nil {
		f.scripts[ep] = map[string][]error{}
	}
	f.scripts[ep][channel] = append(f.scripts[ep][channel], errs...)
}

func (f *fakeTransport) JoinChannel(ctx context.Context, channel string) error {
	return f.handle(ctx, fakeCall{endpoint: EndpointJoin, channel: channel})
}

func (f *fakeTransport) InviteMember(ctx context.Context, channel, user string) error {
	return f.handle(ctx, fakeCall{endpoint: EndpointInvite, channel: channel, user: user})
}

func (f *fakeTransport) handle(ctx context.Context, call fakeCall) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	var next error
	if queue := f.scripts[call.endpoint][call.channel]; len(queue) > 0 {
		next = queue[0]
		f.scripts[call.endpoint][call.channel] = queue[1:]
	}
	delay, onCall := f.delay, f.onCall
	f.mu.Unlock()

	if delay != nil {
		time.Sleep(delay(call.channel))
	}
	if onCall != nil {
		if err := onCall(ctx, call); err != nil {
			return err
		}
	}
	return next
}

func (f *fakeTransport) count(ep Endpoint, channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.endpoint == ep && (channel == "" || c.channel == channel) {
			n++
		}
	}
	return n
}

func (f *fakeTransport) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func throttled(d time.Duration) error {
	return &APIError{Code: CodeRateLimited, Kind: KindThrottled, RetryAfter: d}
}

func transient() error {
	return &APIError{Code: CodeServiceUnavailable, Kind: KindTransient}
}

func permanent(code string) error {
	return &APIError{Code: code, Kind: KindPermanent}
}

// sleepRecorder replaces real backoff sleeps.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	hook   func()
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

func newTestClient(tr Transport, maxAttempts int) (*Client, *sleepRecorder) {
	client := NewClient(tr, nil, ClientConfig{
		MaxAttempts: maxAttempts,
		Backoff:     Backoff{Base: time.Second, Max: 8 * time.Second},
		CallTimeout: time.Second,
	}, nil)
	rec := &sleepRecorder{}
	client.sleep = rec.sleep
	return client, rec
}
