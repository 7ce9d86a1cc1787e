// Package optimistic is the single helper behind every user-facing
// toggle: apply the new value locally right away, confirm it remotely,
// roll back exactly and tell the user if the remote call fails. Each
// feature hook parameterizes it with its own capture/apply/commit/
// rollback functions instead of re-deriving the dance per hook.
package optimistic

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"screenlog/internal/client/notify"
	"screenlog/internal/client/store"
)

// ErrInFlight is returned when a mutation for the same key is still
// unresolved. The second toggle is ignored, not queued: serializing
// per key is what keeps a fast double-click from flapping state.
var ErrInFlight = errors.New("optimistic: mutation already in flight for key")

// Mutation describes one optimistic state change.
type Mutation[T any] struct {
	// Key serializes mutations: two mutations with the same key never
	// overlap. Independent keys proceed concurrently.
	Key string
	// Capture reads the value(s) Rollback needs, before Apply runs.
	Capture func() T
	// Apply puts the new value into local state immediately.
	Apply func()
	// Commit issues the remote mutation. A nil error confirms the
	// applied value; any error triggers Rollback.
	Commit func(ctx context.Context) error
	// Rollback restores the captured prior value(s) exactly.
	Rollback func(prev T)
	// FailureMessage is shown to the user when Commit fails. Empty
	// falls back to a generic message.
	FailureMessage string
}

// Coordinator tracks in-flight mutations and owns the pending ledger
// bookkeeping, so the ledger invariant holds for every feature that
// goes through it.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	store    *store.Store
	notify   notify.Func
	log      zerolog.Logger
}

func NewCoordinator(st *store.Store, notifyFn notify.Func, logger zerolog.Logger) *Coordinator {
	if notifyFn == nil {
		notifyFn = notify.Discard
	}
	return &Coordinator{
		inflight: make(map[string]struct{}),
		store:    st,
		notify:   notifyFn,
		log:      logger,
	}
}

// InFlight reports whether a mutation for key is unresolved.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

// Run executes one optimistic mutation to completion. The local value
// reflects the intended end-state the moment Apply returns, regardless
// of when (or whether) the network confirms it. Commit failures are
// never retried here; the value is rolled back and the user told once.
func Run[T any](c *Coordinator, ctx context.Context, m Mutation[T]) error {
	c.mu.Lock()
	if _, busy := c.inflight[m.Key]; busy {
		c.mu.Unlock()
		return ErrInFlight
	}
	c.inflight[m.Key] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, m.Key)
		c.mu.Unlock()
	}()

	prev := m.Capture()
	m.Apply()
	c.store.StartOptimisticUpdate(m.Key, prev)

	if err := m.Commit(ctx); err != nil {
		m.Rollback(prev)
		c.store.RollbackOptimisticUpdate(m.Key)

		msg := m.FailureMessage
		if msg == "" {
			msg = "Something went wrong. Your change was not saved."
		}
		c.log.Debug().Err(err).Str("key", m.Key).Msg("optimistic mutation rolled back")
		c.notify(msg, notify.Error)
		return err
	}

	c.store.CompleteOptimisticUpdate(m.Key)
	return nil
}
