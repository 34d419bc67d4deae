package kafka

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Config holds Kafka producer parameters.
type Config struct {
	Brokers  []string
	ClientID string

	// BatchTimeout bounds how long a partial batch waits before flushing.
	BatchTimeout time.Duration

	// WriteTimeout bounds a single write to the brokers.
	WriteTimeout time.Duration

	// TLS enables TLS for broker connections when non-nil.
	TLS *tls.Config

	// Async makes Publish return before the brokers acknowledge. Delivery
	// failures are then only logged.
	Async bool

	// Logger receives writer errors. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ClientID == "" {
		c.ClientID = "titanic-api"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
