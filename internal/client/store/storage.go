package store

import "sync"

// Storage is the persistence slot behind the store plus its change
// notification. It is the only channel between concurrently running
// screenlog processes ("tabs"): swapping the implementation swaps the
// cross-tab transport without touching reconciliation.
//
// Watch may also fire for this process's own writes. The store's
// deep-equality check makes those deliveries no-ops, so implementations
// do not need to suppress them.
type Storage interface {
	// Get returns the slot's contents, or nil when the slot is empty.
	Get(slot string) ([]byte, error)
	// Set replaces the slot's contents.
	Set(slot string, data []byte) error
	// Watch calls fn with the new contents whenever the slot changes.
	// The returned stop function is idempotent.
	Watch(slot string, fn func(data []byte)) (stop func(), err error)
}

// MemStorage is an in-process Storage shared by every store attached to
// it. Tests use one MemStorage with two stores to stand in for two tabs
// sharing a browser origin.
type MemStorage struct {
	mu       sync.Mutex
	slots    map[string][]byte
	watchers map[string]map[int]func([]byte)
	nextID   int
	writes   map[string]int
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		slots:    make(map[string][]byte),
		watchers: make(map[string]map[int]func([]byte)),
		writes:   make(map[string]int),
	}
}

func (m *MemStorage) Get(slot string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStorage) Set(slot string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	m.slots[slot] = stored
	m.writes[slot]++
	fns := make([]func([]byte), 0, len(m.watchers[slot]))
	for _, fn := range m.watchers[slot] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	// Deliver outside the lock; watchers re-enter their own stores.
	for _, fn := range fns {
		fn(stored)
	}
	return nil
}

func (m *MemStorage) Watch(slot string, fn func(data []byte)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	if m.watchers[slot] == nil {
		m.watchers[slot] = make(map[int]func([]byte))
	}
	m.watchers[slot][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers[slot], id)
			m.mu.Unlock()
		})
	}, nil
}

// WriteCount reports how many times a slot has been written. Tests use
// it to prove one originating mutation results in exactly one persist.
func (m *MemStorage) WriteCount(slot string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[slot]
}

// Corrupt overwrites a slot with unparseable bytes without notifying
// watchers, simulating on-disk damage.
func (m *MemStorage) Corrupt(slot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = []byte("{not json")
}
