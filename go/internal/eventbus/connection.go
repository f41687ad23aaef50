package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ConnState is the persistent connection's lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StatePermanentlyFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StatePermanentlyFailed:
		return "PermanentlyFailed"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// ConnectionConfig holds broker connection settings.
type ConnectionConfig struct {
	URL           string
	Name          string // connection name reported to the broker
	MaxRetries    int    // attempts per EnsureConnected call
	RetryBaseWait time.Duration
	ReconnectWait time.Duration
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		URL:           nats.DefaultURL,
		Name:          "placehub",
		MaxRetries:    5,
		RetryBaseWait: 500 * time.Millisecond,
		ReconnectWait: 2 * time.Second,
	}
}

// PersistentConnection owns the single shared broker connection for the
// process. It connects lazily on first use and recovers from transient
// failures; broker-initiated disconnects flip the state back to Disconnected
// so the next EnsureConnected call re-triggers recovery. The raw connection
// is never handed out for ad hoc use.
type PersistentConnection struct {
	cfg ConnectionConfig

	mu    sync.Mutex // serializes reconnect attempts
	state atomic.Int32
	nc    atomic.Pointer[nats.Conn]

	// seams for tests
	dial    func() (*nats.Conn, error)
	healthy func(nc *nats.Conn) bool
}

func NewPersistentConnection(cfg ConnectionConfig) *PersistentConnection {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConnectionConfig().MaxRetries
	}
	if cfg.RetryBaseWait <= 0 {
		cfg.RetryBaseWait = DefaultConnectionConfig().RetryBaseWait
	}
	c := &PersistentConnection{cfg: cfg}
	c.dial = c.dialBroker
	c.healthy = func(nc *nats.Conn) bool { return nc != nil && nc.IsConnected() }
	return c
}

// State reports the current connection state.
func (c *PersistentConnection) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *PersistentConnection) setState(s ConnState) {
	c.state.Store(int32(s))
}

// IsConnected reports transport-level connectivity, for health checks.
func (c *PersistentConnection) IsConnected() bool {
	return c.State() == StateConnected && c.healthy(c.nc.Load())
}

// EnsureConnected returns immediately when the connection is up and healthy.
// Otherwise it serializes callers and attempts to connect with exponential
// backoff over a bounded retry budget. Exhausting the budget leaves the
// connection PermanentlyFailed and returns ErrConnectionFailed; a later call
// starts a fresh budget, so one outage never bricks publishing for good.
func (c *PersistentConnection) EnsureConnected(ctx context.Context) error {
	// Fast path, no lock on the happy path.
	if c.State() == StateConnected && c.healthy(c.nc.Load()) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the lock: a concurrent caller may have reconnected.
	if c.State() == StateConnected && c.healthy(c.nc.Load()) {
		return nil
	}

	c.setState(StateConnecting)

	var lastErr error
	wait := c.cfg.RetryBaseWait
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				c.setState(StateDisconnected)
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		nc, err := c.dial()
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", c.cfg.MaxRetries).
				Str("url", c.cfg.URL).
				Msg("broker connect attempt failed")
			continue
		}

		if old := c.nc.Swap(nc); old != nil {
			old.Close()
		}
		c.setState(StateConnected)
		log.Info().Str("url", c.cfg.URL).Int("attempt", attempt).Msg("broker connected")
		return nil
	}

	c.setState(StatePermanentlyFailed)
	return fmt.Errorf("%w: %d attempts against %s: %v", ErrConnectionFailed, c.cfg.MaxRetries, c.cfg.URL, lastErr)
}

// Channel returns a fresh JetStream context over the shared connection: one
// logical channel per publish or consumer session, never shared across
// concurrent operations. EnsureConnected must have succeeded first.
func (c *PersistentConnection) Channel() (jetstream.JetStream, error) {
	nc := c.nc.Load()
	if c.State() != StateConnected || !c.healthy(nc) {
		return nil, ErrNotConnected
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return js, nil
}

// Close tears the connection down for process shutdown.
func (c *PersistentConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nc := c.nc.Swap(nil); nc != nil {
		nc.Close()
	}
	c.setState(StateDisconnected)
}

func (c *PersistentConnection) dialBroker() (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(c.cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("broker disconnected")
			c.setState(StateDisconnected)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("broker reconnected")
			c.setState(StateConnected)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			c.setState(StateDisconnected)
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("broker async error")
		}),
	}
	return nats.Connect(c.cfg.URL, opts...)
}
