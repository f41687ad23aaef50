package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/events"
)

// ListenerConfig holds redelivery listener settings.
type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // channel the event_log insert trigger notifies
	FallbackInterval time.Duration // sweep cadence when no notifications arrive
	GracePeriod      time.Duration // how long the request path gets before a row is considered abandoned
	PingInterval     time.Duration
	BatchSize        int
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "event_log_entries",
		FallbackInterval: 30 * time.Second,
		GracePeriod:      time.Minute,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// RedeliveryStore is what the listener needs from the outbox store.
type RedeliveryStore interface {
	FetchRedeliverable(ctx context.Context, olderThan time.Time, limit int) ([]*Entry, error)
}

// Redeliverer drives one entry through the publish state machine; satisfied
// by integration.Service.
type Redeliverer interface {
	PublishThroughEventBus(ctx context.Context, evt events.Event) error
}

// Listener re-drives undelivered outbox entries from outside the request
// path. NOTIFY wakeups and a fallback ticker both trigger the same sweep;
// the sweep only touches rows older than the grace period, so it never races
// the request that just wrote them.
type Listener struct {
	store     RedeliveryStore
	redeliver Redeliverer
	pg        *pq.Listener
	clock     clockwork.Clock
	cfg       ListenerConfig

	mu        sync.Mutex
	swept     uint64
	lastSweep time.Time
}

// NewListener builds a listener. With an empty DatabaseURL no LISTEN/NOTIFY
// session is opened and only the fallback sweep runs.
func NewListener(cfg ListenerConfig, store RedeliveryStore, redeliver Redeliverer) (*Listener, error) {
	l := &Listener{
		store:     store,
		redeliver: redeliver,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
	}

	if cfg.DatabaseURL != "" {
		pgl := pq.NewListener(
			cfg.DatabaseURL,
			10*time.Second,
			time.Minute,
			func(ev pq.ListenerEventType, err error) {
				if err != nil {
					log.Error().Err(err).Msg("listener event")
				}
			},
		)
		if err := pgl.Listen(cfg.NotifyChannel); err != nil {
			return nil, fmt.Errorf("listen to channel %s: %w", cfg.NotifyChannel, err)
		}
		l.pg = pgl
		log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for event log notifications")
	}

	return l, nil
}

// Start runs the listener until ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	fallback := l.clock.NewTicker(l.cfg.FallbackInterval)
	ping := l.clock.NewTicker(l.cfg.PingInterval)
	defer fallback.Stop()
	defer ping.Stop()

	var notify <-chan *pq.Notification
	if l.pg != nil {
		notify = l.pg.Notify
	}

	log.Info().
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Dur("grace_period", l.cfg.GracePeriod).
		Msg("redelivery listener started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("redelivery listener shutting down")
			return l.Stop()
		case note := <-notify:
			if note == nil {
				// nil notification means the connection was re-established
				continue
			}
			if err := l.sweep(ctx); err != nil {
				log.Error().Err(err).Msg("failed to sweep after notification")
			}
		case <-fallback.Chan():
			if err := l.sweep(ctx); err != nil {
				log.Error().Err(err).Msg("failed to sweep undelivered entries")
			}
		case <-ping.Chan():
			if l.pg != nil {
				if err := l.pg.Ping(); err != nil {
					log.Error().Err(err).Msg("failed to ping listener connection")
				}
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.pg != nil {
		return l.pg.Close()
	}
	return nil
}

// Stats reports entries swept and the last sweep time, for health checks.
func (l *Listener) Stats() (uint64, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.swept, l.lastSweep
}

// sweep republishes every redeliverable entry older than the grace period.
// Each entry goes through the full state machine again, so a failure simply
// leaves it PublishedFailed for the next sweep.
func (l *Listener) sweep(ctx context.Context) error {
	cutoff := l.clock.Now().Add(-l.cfg.GracePeriod)
	entries, err := l.store.FetchRedeliverable(ctx, cutoff, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch redeliverable entries: %w", err)
	}

	delivered := 0
	for _, entry := range entries {
		if err := l.redeliver.PublishThroughEventBus(ctx, entry.Event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", entry.EventID.String()).
				Str("event_type_name", entry.EventTypeName).
				Msg("redelivery attempt failed")
			continue
		}
		delivered++
	}

	l.mu.Lock()
	l.swept += uint64(delivered)
	l.lastSweep = l.clock.Now()
	l.mu.Unlock()

	if len(entries) > 0 {
		log.Info().
			Int("total", len(entries)).
			Int("redelivered", delivered).
			Msg("swept undelivered event log entries")
	}
	return nil
}
