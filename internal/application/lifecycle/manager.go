// Package lifecycle owns the process-wide serving state: the loaded
// prediction pipeline and the cache connection.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/metric"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/cacheaside"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
)

// State is a serving lifecycle phase.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PipelineLoader deserializes the prediction pipeline from an artifact path.
type PipelineLoader func(path string) (*service.Pipeline, error)

// CacheConnector opens the cache store connection.
type CacheConnector func(ctx context.Context) (port.CacheStore, error)

// Config holds the manager's startup parameters.
type Config struct {
	ModelPath string
	CacheTTL  time.Duration
}

// Status is a point-in-time snapshot of the serving state.
type Status struct {
	State        State
	ModelLoaded  bool
	ModelVersion string
	CacheEnabled bool
}

// Ready reports whether predictions can be served.
func (s Status) Ready() bool {
	return s.State == StateReady && s.ModelLoaded
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Manager drives the uninitialized -> ready -> draining -> stopped state
// machine. Transitions take the write lock; requests only take the read lock
// long enough to snapshot the handles.
type Manager struct {
	mu       sync.RWMutex
	state    State
	pipeline *service.Pipeline
	store    port.CacheStore
	cache    *cacheaside.Layer
	loadErr  error
	closers  []closer

	cfg       Config
	loader    PipelineLoader
	connector CacheConnector
	meter     metric.Meter
	logger    *slog.Logger
}

// NewManager creates a manager in the uninitialized state. A nil connector
// runs without a cache.
func NewManager(cfg Config, loader PipelineLoader, connector CacheConnector, meter metric.Meter, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		loader:    loader,
		connector: connector,
		meter:     meter,
		logger:    logger,
	}
}

// OnShutdown registers a resource to release during Shutdown, after the
// cache connection. Closers run in reverse registration order.
func (m *Manager) OnShutdown(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closers = append(m.closers, closer{name: name, fn: fn})
}

// Start loads the model and connects the cache, then moves to ready. A
// missing model or cache is logged and does not fail startup.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUninitialized {
		return fmt.Errorf("cannot start from state %s", m.state)
	}

	pipeline, err := m.loader(m.cfg.ModelPath)
	if err != nil {
		m.loadErr = err
		m.logger.Error("failed to load model artifact, predictions disabled",
			"path", m.cfg.ModelPath,
			"error", err,
		)
	} else {
		m.pipeline = pipeline
		m.logger.Info("model artifact loaded",
			"path", m.cfg.ModelPath,
			"version", pipeline.Version(),
		)
	}

	m.store = m.connectCache(ctx)

	layer, err := cacheaside.NewLayer(m.store, m.cfg.CacheTTL, m.meter, m.logger)
	if err != nil {
		return fmt.Errorf("failed to create cache layer: %w", err)
	}
	m.cache = layer

	m.state = StateReady
	m.logger.Info("serving lifecycle ready",
		"model_loaded", m.pipeline != nil,
		"cache_enabled", m.store != nil,
	)
	return nil
}

func (m *Manager) connectCache(ctx context.Context) port.CacheStore {
	if m.connector == nil {
		m.logger.Info("no cache configured, caching disabled")
		return nil
	}
	store, err := m.connector(ctx)
	if err != nil {
		m.logger.Warn("failed to connect to cache, caching disabled", "error", err)
		return nil
	}
	if err := store.Ping(ctx); err != nil {
		m.logger.Warn("cache unreachable, caching disabled", "error", err)
		if cerr := store.Close(); cerr != nil {
			m.logger.Warn("failed to close cache connection", "error", cerr)
		}
		return nil
	}
	m.logger.Info("connected to cache")
	return store
}

// Predict serves one prediction through the cache-aside layer. Outside the
// ready state, or without a loaded model, it fails with ModelUnavailableError.
func (m *Manager) Predict(ctx context.Context, record *model.PassengerRecord) (*model.PredictionResult, error) {
	m.mu.RLock()
	state, pipeline, cache, loadErr := m.state, m.pipeline, m.cache, m.loadErr
	m.mu.RUnlock()

	if state != StateReady {
		return nil, &model.ModelUnavailableError{Reason: "service is " + state.String()}
	}
	if pipeline == nil {
		return nil, &model.ModelUnavailableError{Reason: "model artifact not loaded", Err: loadErr}
	}
	return cache.GetOrCompute(ctx, record, pipeline.Run)
}

// Status returns a snapshot of the serving state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		State:        m.state,
		ModelLoaded:  m.pipeline != nil,
		CacheEnabled: m.store != nil,
	}
	if m.pipeline != nil {
		s.ModelVersion = m.pipeline.Version()
	}
	return s
}

// Shutdown releases the model handle, closes the cache connection and runs
// the registered closers. In-flight requests keep the handles they already
// hold. Close errors are aggregated.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateDraining, StateStopped:
		return nil
	case StateUninitialized:
		m.state = StateStopped
		return nil
	}

	m.state = StateDraining
	m.logger.Info("serving lifecycle draining")

	m.pipeline = nil

	var result *multierror.Error
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close cache: %w", err))
		}
		m.store = nil
	}
	for i := len(m.closers) - 1; i >= 0; i-- {
		c := m.closers[i]
		if err := c.fn(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s: %w", c.name, err))
		}
	}

	m.state = StateStopped
	m.logger.Info("serving lifecycle stopped")
	return result.ErrorOrNil()
}
