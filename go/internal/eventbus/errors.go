package eventbus

import "errors"

var (
	// ErrConnectionFailed means the broker could not be reached within the
	// retry budget. Fatal for the current publish attempt, not the process.
	ErrConnectionFailed = errors.New("eventbus: broker connection failed")

	// ErrNotConnected is returned by Channel when no healthy connection has
	// been established via EnsureConnected.
	ErrNotConnected = errors.New("eventbus: broker not connected")

	// ErrPublish wraps a broker-side rejection of a publish.
	ErrPublish = errors.New("eventbus: publish rejected")
)
