// Package cacheaside short-circuits repeated predictions through a shared
// key-value store. The store is optional: every store failure degrades to an
// uncached computation and never fails the request.
package cacheaside

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"
)

// DefaultTTL is how long a cached prediction lives.
const DefaultTTL = time.Hour

// ComputeFunc produces a fresh prediction on a cache miss.
type ComputeFunc func(record *model.PassengerRecord) (*model.PredictionResult, error)

// Entry is the serialized prediction response held in the store.
type Entry struct {
	PassengerName string `json:"passenger_name"`
	Prediction    int    `json:"prediction"`
	Success       bool   `json:"success"`
	Source        string `json:"source"`
}

// Layer implements get-or-compute over a CacheStore.
type Layer struct {
	store    port.CacheStore
	ttl      time.Duration
	logger   *slog.Logger
	lookups  metric.Int64Counter
	failures metric.Int64Counter
}

// NewLayer creates a cache-aside layer. A nil store disables caching. A
// non-positive ttl falls back to DefaultTTL.
func NewLayer(store port.CacheStore, ttl time.Duration, meter metric.Meter, logger *slog.Logger) (*Layer, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	lookups, err := meter.Int64Counter("titanic_cache_lookups_total",
		metric.WithDescription("Prediction cache lookups by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookup counter: %w", err)
	}
	failures, err := meter.Int64Counter("titanic_cache_errors_total",
		metric.WithDescription("Prediction cache store failures by operation"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache error counter: %w", err)
	}
	return &Layer{
		store:    store,
		ttl:      ttl,
		logger:   logger,
		lookups:  lookups,
		failures: failures,
	}, nil
}

// Enabled reports whether a store is attached.
func (l *Layer) Enabled() bool {
	return l.store != nil
}

// GetOrCompute returns the cached prediction for the record when present,
// otherwise computes it and stores a copy tagged as cached. Errors from
// compute are returned unchanged; store errors are absorbed.
func (l *Layer) GetOrCompute(ctx context.Context, record *model.PassengerRecord, compute ComputeFunc) (*model.PredictionResult, error) {
	if l.store == nil {
		l.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "disabled")))
		return compute(record)
	}

	fingerprint, err := Fingerprint(record)
	if err != nil {
		l.logger.Warn("failed to fingerprint record, skipping cache", "error", err)
		return compute(record)
	}
	key := Key(fingerprint)

	if cached, ok := l.read(ctx, key); ok {
		l.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "hit")))
		return cached, nil
	}
	l.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "miss")))

	result, err := compute(record)
	if err != nil {
		return nil, err
	}

	l.write(ctx, key, result)
	return result, nil
}

func (l *Layer) read(ctx context.Context, key string) (*model.PredictionResult, bool) {
	data, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.degraded(ctx, &model.CacheUnavailableError{Op: "get", Err: err})
		return nil, false
	}
	if !found {
		return nil, false
	}

	result, err := decodeEntry(data)
	if err != nil {
		l.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return nil, false
	}
	return result, true
}

func (l *Layer) write(ctx context.Context, key string, result *model.PredictionResult) {
	data, err := json.Marshal(Entry{
		PassengerName: result.PassengerName(),
		Prediction:    result.Label().Int(),
		Success:       true,
		Source:        valueobject.SourceCache.String(),
	})
	if err != nil {
		l.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := l.store.SetEx(ctx, key, l.ttl, data); err != nil {
		l.degraded(ctx, &model.CacheUnavailableError{Op: "setex", Err: err})
	}
}

func (l *Layer) degraded(ctx context.Context, err *model.CacheUnavailableError) {
	l.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", err.Op)))
	l.logger.Warn("prediction cache degraded, serving uncached", "error", err)
}

func decodeEntry(data []byte) (*model.PredictionResult, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Success {
		return nil, errors.New("entry not marked successful")
	}
	label, err := valueobject.SurvivalFromClass(e.Prediction)
	if err != nil {
		return nil, err
	}
	return model.NewPredictionResult(e.PassengerName, label, valueobject.SourceCache), nil
}
