package channels

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeChannel struct {
	id       string
	startErr error
	log      *[]string
	mu       *sync.Mutex
}

func (f *fakeChannel) ID() string   { return f.id }
func (f *fakeChannel) Name() string { return "fake " + f.id }

func (f *fakeChannel) Start(ctx context.Context) error {
	f.note("start " + f.id)
	return f.startErr
}

func (f *fakeChannel) Stop(ctx context.Context) error {
	f.note("stop " + f.id)
	return nil
}

func (f *fakeChannel) note(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.log = append(*f.log, s)
}

func newFakes(ids ...string) ([]*fakeChannel, *[]string) {
	var (
		log []string
		mu  sync.Mutex
	)
	out := make([]*fakeChannel, 0, len(ids))
	for _, id := range ids {
		out = append(out, &fakeChannel{id: id, log: &log, mu: &mu})
	}
	return out, &log
}

func TestManagerStartsInOrderAndStopsInReverse(t *testing.T) {
	m := NewManager(nil)
	fakes, log := newFakes("b", "a")
	for _, f := range fakes {
		if err := m.Register(f); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start a", "start b", "stop b", "stop a"}
	if len(*log) != len(want) {
		t.Fatalf("expected %v, got %v", want, *log)
	}
	for i := range want {
		if (*log)[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, *log)
		}
	}
}

func TestManagerStartFailureStopsStarted(t *testing.T) {
	m := NewManager(nil)
	fakes, log := newFakes("a", "b")
	fakes[1].startErr = errors.New("invalid_auth")
	for _, f := range fakes {
		if err := m.Register(f); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	if err := m.Start(); err == nil {
		t.Fatalf("expected start to fail")
	}

	want := []string{"start a", "start b", "stop a"}
	if len(*log) != len(want) {
		t.Fatalf("expected %v, got %v", want, *log)
	}
	for i := range want {
		if (*log)[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, *log)
		}
	}
}

func TestManagerRejectsDuplicates(t *testing.T) {
	m := NewManager(nil)
	fakes, _ := newFakes("a", "a")

	if err := m.Register(fakes[0]); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(fakes[1]); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := m.GetChannel("a"); err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if err := m.Unregister("a"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if len(m.ListChannels()) != 0 {
		t.Fatalf("expected no channels after unregister")
	}
}
