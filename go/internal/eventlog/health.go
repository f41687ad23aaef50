package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BrokerStatus reports transport-level broker connectivity.
type BrokerStatus interface {
	IsConnected() bool
}

// HealthStatus is one health check snapshot.
type HealthStatus struct {
	Healthy           bool
	UndeliveredCount  int
	EntriesSwept      uint64
	LastSweepTime     time.Time
	DatabaseConnected bool
	BrokerConnected   bool
	Errors            []string
}

// HealthChecker inspects the delivery pipeline's moving parts: database,
// broker connection and the redelivery listener's progress.
type HealthChecker struct {
	db       *sql.DB
	broker   BrokerStatus
	repo     *Repository
	listener *Listener

	// pending rows above this count get flagged
	pendingThreshold int
}

func NewHealthChecker(db *sql.DB, broker BrokerStatus, repo *Repository, listener *Listener) *HealthChecker {
	return &HealthChecker{
		db:               db,
		broker:           broker,
		repo:             repo,
		listener:         listener,
		pendingThreshold: 1000,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.DatabaseConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.broker != nil {
		status.BrokerConnected = h.broker.IsConnected()
		if !status.BrokerConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "broker disconnected")
		}
	}

	if h.listener != nil {
		status.EntriesSwept, status.LastSweepTime = h.listener.Stats()
	}

	if status.DatabaseConnected {
		count, err := h.repo.CountUndelivered(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count undelivered entries: %v", err))
		} else {
			status.UndeliveredCount = count
			if count > h.pendingThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high undelivered entry count: %d", count))
			}
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":            status.Healthy,
		"undelivered_count":  status.UndeliveredCount,
		"entries_swept":      status.EntriesSwept,
		"last_sweep_time":    status.LastSweepTime,
		"database_connected": status.DatabaseConnected,
		"broker_connected":   status.BrokerConnected,
		"errors":             status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(response)
}
