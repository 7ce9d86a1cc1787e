// Package realtime reconciles server-pushed documents into client
// state: a projection seeds itself with a one-shot read, then replaces
// its value with every push from a subscription source. Server wins on
// every push; there is no client-side merge.
package realtime

import "encoding/json"

// Document is one delivery from a subscription source. Found false
// means the subject does not exist server-side.
type Document struct {
	Found bool
	Data  json.RawMessage
}

// Handler receives documents for one subject.
type Handler func(doc Document)

// Subscription is a live attachment to one subject. Unsubscribe is
// idempotent: tearing down an already-torn-down subscription is a
// no-op.
type Subscription interface {
	Unsubscribe()
}

// Source hands out subscriptions to subjects. The websocket source
// talks to the server hub; tests substitute their own.
type Source interface {
	Subscribe(subject string, fn Handler) (Subscription, error)
}
