package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/internal/client/bus"
	"screenlog/internal/client/notify"
	"screenlog/internal/client/store"
)

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

func newFixture(t *testing.T) (*Coordinator, *store.Store, *notifications) {
	t.Helper()
	st := store.New(store.NewMemStorage(), bus.New(zerolog.Nop()), zerolog.Nop())
	n := &notifications{}
	return NewCoordinator(st, n.fn, zerolog.Nop()), st, n
}

func TestSuccessLeavesAppliedValueAndClearsPending(t *testing.T) {
	c, st, n := newFixture(t)

	value := "before"
	err := Run(c, context.Background(), Mutation[string]{
		Key:      "k1",
		Capture:  func() string { return value },
		Apply:    func() { value = "after" },
		Commit:   func(context.Context) error { return nil },
		Rollback: func(prev string) { value = prev },
	})

	require.NoError(t, err)
	assert.Equal(t, "after", value)
	assert.Zero(t, st.PendingCount())
	assert.Empty(t, n.messages)
}

func TestFailureRestoresPriorValueExactlyAndNotifiesOnce(t *testing.T) {
	c, st, n := newFixture(t)

	value := "before"
	err := Run(c, context.Background(), Mutation[string]{
		Key:            "k1",
		Capture:        func() string { return value },
		Apply:          func() { value = "after" },
		Commit:         func(context.Context) error { return errors.New("network down") },
		Rollback:       func(prev string) { value = prev },
		FailureMessage: "Could not save.",
	})

	require.Error(t, err)
	assert.Equal(t, "before", value)
	assert.Zero(t, st.PendingCount(), "rolled-back mutation leaves no pending entry")
	require.Len(t, n.messages, 1, "the user hears about the failure exactly once")
	assert.Equal(t, "Could not save.", n.messages[0])
	assert.Equal(t, notify.Error, n.kinds[0])
}

func TestPendingEntryExistsWhileCommitRuns(t *testing.T) {
	c, st, _ := newFixture(t)

	var duringCommit bool
	err := Run(c, context.Background(), Mutation[int]{
		Key:     "k1",
		Capture: func() int { return 0 },
		Apply:   func() {},
		Commit: func(context.Context) error {
			_, duringCommit = st.Pending("k1")
			return nil
		},
		Rollback: func(int) {},
	})

	require.NoError(t, err)
	assert.True(t, duringCommit)
	_, after := st.Pending("k1")
	assert.False(t, after)
}

func TestSecondToggleForSameKeyIsIgnoredWhileFirstPending(t *testing.T) {
	c, _, _ := newFixture(t)

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var firstErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		firstErr = Run(c, context.Background(), Mutation[bool]{
			Key:     "favorite_movie_42",
			Capture: func() bool { return false },
			Apply:   func() {},
			Commit: func(context.Context) error {
				close(firstEntered)
				<-release
				return nil
			},
			Rollback: func(bool) {},
		})
	}()

	<-firstEntered
	assert.True(t, c.InFlight("favorite_movie_42"))

	err := Run(c, context.Background(), Mutation[bool]{
		Key:      "favorite_movie_42",
		Capture:  func() bool { return false },
		Apply:    func() { t.Error("second toggle must not apply while first is pending") },
		Commit:   func(context.Context) error { return nil },
		Rollback: func(bool) {},
	})
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	<-done
	require.NoError(t, firstErr)
	assert.False(t, c.InFlight("favorite_movie_42"))
}

func TestIndependentKeysProceedConcurrently(t *testing.T) {
	c, _, _ := newFixture(t)

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = Run(c, context.Background(), Mutation[int]{
			Key:     "a",
			Capture: func() int { return 0 },
			Apply:   func() {},
			Commit: func(context.Context) error {
				close(firstEntered)
				<-release
				return nil
			},
			Rollback: func(int) {},
		})
	}()

	<-firstEntered
	err := Run(c, context.Background(), Mutation[int]{
		Key:      "b",
		Capture:  func() int { return 0 },
		Apply:    func() {},
		Commit:   func(context.Context) error { return nil },
		Rollback: func(int) {},
	})
	assert.NoError(t, err, "a pending mutation on one key never blocks another key")

	close(release)
	<-done
}

func TestDefaultFailureMessage(t *testing.T) {
	c, _, n := newFixture(t)

	_ = Run(c, context.Background(), Mutation[int]{
		Key:      "k",
		Capture:  func() int { return 0 },
		Apply:    func() {},
		Commit:   func(context.Context) error { return errors.New("boom") },
		Rollback: func(int) {},
	})

	require.Len(t, n.messages, 1)
	assert.NotEmpty(t, n.messages[0])
}
