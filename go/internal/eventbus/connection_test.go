package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func testConnection(maxRetries int) *PersistentConnection {
	cfg := DefaultConnectionConfig()
	cfg.MaxRetries = maxRetries
	cfg.RetryBaseWait = time.Millisecond
	c := NewPersistentConnection(cfg)
	c.healthy = func(nc *nats.Conn) bool { return nc != nil }
	return c
}

func TestEnsureConnectedExhaustsRetryBudget(t *testing.T) {
	c := testConnection(3)
	var attempts int
	c.dial = func() (*nats.Conn, error) {
		attempts++
		return nil, errors.New("connection refused")
	}

	err := c.EnsureConnected(context.Background())
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.Equal(t, 3, attempts)
	require.Equal(t, StatePermanentlyFailed, c.State())
	require.False(t, c.IsConnected())

	_, err = c.Channel()
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestEnsureConnectedRecoversAfterPermanentFailure(t *testing.T) {
	c := testConnection(2)
	fail := true
	c.dial = func() (*nats.Conn, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return &nats.Conn{}, nil
	}

	err := c.EnsureConnected(context.Background())
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.Equal(t, StatePermanentlyFailed, c.State())

	// A later call starts over with a fresh budget.
	fail = false
	require.NoError(t, c.EnsureConnected(context.Background()))
	require.Equal(t, StateConnected, c.State())
	require.True(t, c.IsConnected())
}

func TestEnsureConnectedFastPathSkipsDial(t *testing.T) {
	c := testConnection(2)
	var attempts int
	c.dial = func() (*nats.Conn, error) {
		attempts++
		return &nats.Conn{}, nil
	}

	require.NoError(t, c.EnsureConnected(context.Background()))
	require.NoError(t, c.EnsureConnected(context.Background()))
	require.Equal(t, 1, attempts)
}

func TestEnsureConnectedHonorsContextCancellation(t *testing.T) {
	c := testConnection(5)
	c.dial = func() (*nats.Conn, error) {
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.EnsureConnected(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateDisconnected, c.State())
}
