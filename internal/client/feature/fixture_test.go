package feature

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"screenlog/internal/client/bus"
	"screenlog/internal/client/notify"
	"screenlog/internal/client/optimistic"
	clientrealtime "screenlog/internal/client/realtime"
	"screenlog/internal/client/store"
)

type harness struct {
	bus   *bus.Bus
	store *store.Store
	coord *optimistic.Coordinator
	notes *notifications
}

type notifications struct {
	mu       sync.Mutex
	messages []string
	kinds    []notify.Kind
}

func (n *notifications) fn(message string, kind notify.Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	n.kinds = append(n.kinds, kind)
}

func (n *notifications) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := bus.New(zerolog.Nop())
	st := store.New(store.NewMemStorage(), b, zerolog.Nop())
	n := &notifications{}
	return &harness{
		bus:   b,
		store: st,
		coord: optimistic.NewCoordinator(st, n.fn, zerolog.Nop()),
		notes: n,
	}
}

// stubSource is an in-memory subscription source; tests push documents
// to subjects by hand.
type stubSource struct {
	mu       sync.Mutex
	handlers map[string][]clientrealtime.Handler
}

func newStubSource() *stubSource {
	return &stubSource{handlers: make(map[string][]clientrealtime.Handler)}
}

func (s *stubSource) Subscribe(subject string, fn clientrealtime.Handler) (clientrealtime.Subscription, error) {
	s.mu.Lock()
	s.handlers[subject] = append(s.handlers[subject], fn)
	s.mu.Unlock()
	return stubSub{}, nil
}

func (s *stubSource) push(t *testing.T, subject string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal push: %v", err)
	}
	s.dispatch(subject, clientrealtime.Document{Found: true, Data: data})
}

func (s *stubSource) pushGone(subject string) {
	s.dispatch(subject, clientrealtime.Document{Found: false})
}

func (s *stubSource) dispatch(subject string, doc clientrealtime.Document) {
	s.mu.Lock()
	fns := append([]clientrealtime.Handler(nil), s.handlers[subject]...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(doc)
	}
}

type stubSub struct{}

func (stubSub) Unsubscribe() {}
