package eventlog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/events"
)

type fakeRedeliveryStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	entries []*Entry
}

func (f *fakeRedeliveryStore) FetchRedeliverable(ctx context.Context, olderThan time.Time, limit int) ([]*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, olderThan)
	return f.entries, nil
}

func (f *fakeRedeliveryStore) lastCutoff() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cutoffs) == 0 {
		return time.Time{}, false
	}
	return f.cutoffs[len(f.cutoffs)-1], true
}

type fakeRedeliverer struct {
	mu        sync.Mutex
	published []uuid.UUID
}

func (f *fakeRedeliverer) PublishThroughEventBus(ctx context.Context, evt events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, evt.EventID())
	return nil
}

func (f *fakeRedeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestListenerFallbackSweepRedelivers(t *testing.T) {
	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	entry, err := NewEntry(evt, uuid.New())
	require.NoError(t, err)

	store := &fakeRedeliveryStore{entries: []*Entry{entry}}
	redeliverer := &fakeRedeliverer{}

	cfg := DefaultListenerConfig()
	listener, err := NewListener(cfg, store, redeliverer)
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	listener.clock = clock
	start := clock.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = listener.Start(ctx)
	}()

	// Both the fallback and ping tickers must be armed before advancing.
	clock.BlockUntil(2)
	clock.Advance(cfg.FallbackInterval)

	require.Eventually(t, func() bool {
		return redeliverer.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cutoff, ok := store.lastCutoff()
	require.True(t, ok)
	wantCutoff := start.Add(cfg.FallbackInterval).Add(-cfg.GracePeriod)
	require.True(t, cutoff.Equal(wantCutoff), "cutoff %v, want %v", cutoff, wantCutoff)

	require.Eventually(t, func() bool {
		swept, _ := listener.Stats()
		return swept == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestListenerWithoutDatabaseURLSkipsNotifySession(t *testing.T) {
	cfg := DefaultListenerConfig()
	listener, err := NewListener(cfg, &fakeRedeliveryStore{}, &fakeRedeliverer{})
	require.NoError(t, err)
	require.Nil(t, listener.pg)
	require.NoError(t, listener.Stop())
}
