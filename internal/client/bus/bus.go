// Package bus is the in-process publish/subscribe channel that decouples
// the client store, the feature hooks and whatever renders their state.
// Emission is synchronous and panic-isolated per handler.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives events for one kind.
type Handler func(Event)

// Subscription identifies one registration. The zero value is inert:
// unsubscribing it is a no-op.
type Subscription struct {
	kind Kind
	id   uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bus fans events out to subscribed handlers. Instances are constructed
// and injected explicitly; there is no package-level bus.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[Kind][]entry
	log      zerolog.Logger
}

func New(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Kind][]entry),
		log:      logger,
	}
}

// Subscribe registers fn for events of the given kind. A nil handler is
// logged and ignored. The same function may be registered more than
// once; each registration fires separately per emit.
func (b *Bus) Subscribe(kind Kind, fn Handler) Subscription {
	if fn == nil {
		b.log.Warn().Stringer("kind", kind).Msg("bus: ignoring nil handler")
		return Subscription{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], entry{id: b.nextID, fn: fn})
	return Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe removes one registration. Unknown or zero subscriptions
// are no-ops. An emptied handler list is dropped from the map.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[sub.kind]
	for i, e := range list {
		if e.id == sub.id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.handlers, sub.kind)
	} else {
		b.handlers[sub.kind] = list
	}
}

// Emit delivers a locally-originated event.
func (b *Bus) Emit(p Payload) {
	b.EmitFrom(OriginLocal, p)
}

// EmitFrom delivers an event with an explicit origin. Handlers run
// synchronously in registration order against a snapshot of the list
// taken at emit time, so a handler that subscribes or unsubscribes
// mid-emit does not affect this delivery. A panicking handler is logged
// and does not stop its siblings.
func (b *Bus) EmitFrom(origin Origin, p Payload) {
	if p == nil {
		return
	}
	ev := Event{Kind: p.payloadKind(), Origin: origin, Payload: p}

	b.mu.Lock()
	snapshot := make([]entry, len(b.handlers[ev.Kind]))
	copy(snapshot, b.handlers[ev.Kind])
	b.mu.Unlock()

	for _, e := range snapshot {
		b.invoke(e, ev)
	}
}

func (b *Bus) invoke(e entry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Stringer("kind", ev.Kind).
				Interface("panic", r).
				Msg("bus: handler panicked")
		}
	}()
	e.fn(ev)
}
