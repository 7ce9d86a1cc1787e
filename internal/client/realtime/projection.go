package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// FetchFunc is the one-shot read that seeds a projection before its
// subscription is live. found false means the subject does not exist.
type FetchFunc[T any] func(ctx context.Context) (value T, found bool, err error)

// Projection mirrors one subject's server-side document. Between a
// Watch and the next Stop (or re-Watch) exactly one subscription is
// active; every accepted update replaces the held value wholesale.
type Projection[T any] struct {
	mu       sync.Mutex
	source   Source
	defaults T
	current  T
	found    bool
	sub      Subscription
	gen      uint64
	onValue  func(value T, found bool)
	log      zerolog.Logger
}

func NewProjection[T any](source Source, defaults T, logger zerolog.Logger) *Projection[T] {
	return &Projection[T]{
		source:   source,
		defaults: defaults,
		current:  defaults,
		log:      logger,
	}
}

// OnValue registers a callback invoked with every accepted value,
// including the defaults applied on not-found. Set it before Watch.
func (p *Projection[T]) OnValue(fn func(value T, found bool)) {
	p.mu.Lock()
	p.onValue = fn
	p.mu.Unlock()
}

// Value returns the currently held value.
func (p *Projection[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Found reports whether the held value came from the server (as
// opposed to being the defaults).
func (p *Projection[T]) Found() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.found
}

// Watch points the projection at a subject: any previous subscription
// is torn down first, the value resets to defaults, a one-shot fetch
// seeds state so consumers are not blank while the stream attaches,
// then the streaming subscription takes over. A fetch that resolves
// after the projection moved on is discarded.
func (p *Projection[T]) Watch(ctx context.Context, subject string, fetch FetchFunc[T]) error {
	p.mu.Lock()
	p.teardownLocked()
	p.gen++
	gen := p.gen
	p.current = p.defaults
	p.found = false
	p.mu.Unlock()

	if fetch != nil {
		value, found, err := fetch(ctx)
		if err != nil {
			p.log.Debug().Err(err).Str("subject", subject).Msg("projection seed fetch failed")
		} else {
			p.accept(gen, value, found)
		}
	}

	sub, err := p.source.Subscribe(subject, func(doc Document) {
		p.deliver(gen, doc)
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.gen != gen {
		// Watch or Stop raced us; this subscription is already stale.
		p.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	p.sub = sub
	p.mu.Unlock()
	return nil
}

// Stop tears down the active subscription. Safe to call repeatedly.
func (p *Projection[T]) Stop() {
	p.mu.Lock()
	p.gen++
	p.teardownLocked()
	p.mu.Unlock()
}

func (p *Projection[T]) teardownLocked() {
	if p.sub != nil {
		sub := p.sub
		p.sub = nil
		// Unsubscribe outside would be nicer but sources must tolerate
		// reentrant teardown anyway; all provided ones do.
		sub.Unsubscribe()
	}
}

func (p *Projection[T]) deliver(gen uint64, doc Document) {
	if !doc.Found {
		var zero T
		p.accept(gen, zero, false)
		return
	}

	var value T
	if err := json.Unmarshal(doc.Data, &value); err != nil {
		p.log.Debug().Err(err).Msg("projection: ignoring undecodable push")
		return
	}
	p.accept(gen, value, true)
}

// accept installs a value if the projection has not moved on. Not-found
// resets to defaults rather than holding a stale server value.
func (p *Projection[T]) accept(gen uint64, value T, found bool) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	if found {
		p.current = value
	} else {
		p.current = p.defaults
	}
	p.found = found
	cb := p.onValue
	current := p.current
	p.mu.Unlock()

	if cb != nil {
		cb(current, found)
	}
}
