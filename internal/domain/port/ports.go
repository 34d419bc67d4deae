package port

import (
	"context"
	"time"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/event"
)

// CacheStore defines the key-value store backing the prediction cache.
type CacheStore interface {
	// Get returns the value stored under key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// SetEx stores value under key with the given time-to-live.
	SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// PredictionRepository defines the persistence port for the prediction audit log.
type PredictionRepository interface {
	// Save persists one audit record.
	Save(ctx context.Context, record AuditRecord) error
}

// AuditRecord is one served prediction as stored in the audit log.
type AuditRecord struct {
	ID           string
	PassengerID  int64
	Fingerprint  string
	Prediction   int
	Source       string
	ModelVersion string
	CreatedAt    time.Time
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, events ...event.DomainEvent) error
}
