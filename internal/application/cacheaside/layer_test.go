package cacheaside_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/cacheaside"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"
)

// memoryStore is an in-memory CacheStore with injectable failures.
type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	gets    int
	setExes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) SetEx(_ context.Context, key string, ttl time.Duration, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setExes++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return s.getErr }
func (s *memoryStore) Close() error               { return nil }

type countingCompute struct {
	calls int
	err   error
}

func (c *countingCompute) fn(record *model.PassengerRecord) (*model.PredictionResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	label := valueobject.DidNotSurvive
	if record.Sex() == "female" {
		label = valueobject.Survived
	}
	return model.NewPredictionResult(record.Name(), label, valueobject.SourceModel), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLayer(t *testing.T, store *memoryStore) *cacheaside.Layer {
	t.Helper()
	var l *cacheaside.Layer
	var err error
	if store == nil {
		l, err = cacheaside.NewLayer(nil, 0, noop.NewMeterProvider().Meter("test"), discardLogger())
	} else {
		l, err = cacheaside.NewLayer(store, 0, noop.NewMeterProvider().Meter("test"), discardLogger())
	}
	require.NoError(t, err)
	return l
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	store := newMemoryStore()
	layer := newLayer(t, store)
	compute := &countingCompute{}
	record := newRecord(t, nil)
	ctx := context.Background()

	first, err := layer.GetOrCompute(ctx, record, compute.fn)
	require.NoError(t, err)
	assert.True(t, valueobject.SourceModel.Equal(first.Source()))

	second, err := layer.GetOrCompute(ctx, record, compute.fn)
	require.NoError(t, err)
	assert.True(t, valueobject.SourceCache.Equal(second.Source()))

	assert.True(t, first.Label().Equal(second.Label()))
	assert.Equal(t, first.PassengerName(), second.PassengerName())
	assert.Equal(t, 1, compute.calls)
	assert.True(t, layer.Enabled())
}

func TestGetOrCompute_StoredEntry(t *testing.T) {
	store := newMemoryStore()
	layer := newLayer(t, store)
	record := newRecord(t, nil)

	_, err := layer.GetOrCompute(context.Background(), record, (&countingCompute{}).fn)
	require.NoError(t, err)

	fp, err := cacheaside.Fingerprint(record)
	require.NoError(t, err)
	key := cacheaside.Key(fp)

	require.Contains(t, store.data, key)
	assert.Equal(t, time.Hour, store.ttls[key])

	var entry cacheaside.Entry
	require.NoError(t, json.Unmarshal(store.data[key], &entry))
	assert.Equal(t, cacheaside.Entry{
		PassengerName: "Test Passenger",
		Prediction:    0,
		Success:       true,
		Source:        "cache",
	}, entry)
}

func TestGetOrCompute_FailOpen(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	layer := newLayer(t, store)
	compute := &countingCompute{}
	record := newRecord(t, func(a *model.PassengerAttributes) { a.Sex = "female" })

	for range 3 {
		result, err := layer.GetOrCompute(context.Background(), record, compute.fn)
		require.NoError(t, err)
		assert.True(t, result.Label().Bool())
		assert.True(t, valueobject.SourceModel.Equal(result.Source()))
	}
	assert.Equal(t, 3, compute.calls)
	assert.Equal(t, 3, store.setExes)
}

func TestGetOrCompute_NoStore(t *testing.T) {
	layer := newLayer(t, nil)
	compute := &countingCompute{}

	for range 2 {
		result, err := layer.GetOrCompute(context.Background(), newRecord(t, nil), compute.fn)
		require.NoError(t, err)
		assert.True(t, valueobject.SourceModel.Equal(result.Source()))
	}
	assert.Equal(t, 2, compute.calls)
	assert.False(t, layer.Enabled())
}

func TestGetOrCompute_CorruptEntryIsMiss(t *testing.T) {
	store := newMemoryStore()
	layer := newLayer(t, store)
	compute := &countingCompute{}
	record := newRecord(t, nil)

	fp, err := cacheaside.Fingerprint(record)
	require.NoError(t, err)

	for _, payload := range []string{`{oops`, `{"prediction":7,"success":true}`, `{"prediction":1,"success":false}`} {
		store.data[cacheaside.Key(fp)] = []byte(payload)

		result, err := layer.GetOrCompute(context.Background(), record, compute.fn)
		require.NoError(t, err)
		assert.True(t, valueobject.SourceModel.Equal(result.Source()))
	}
	assert.Equal(t, 3, compute.calls)

	result, err := layer.GetOrCompute(context.Background(), record, compute.fn)
	require.NoError(t, err)
	assert.True(t, valueobject.SourceCache.Equal(result.Source()))
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	store := newMemoryStore()
	layer := newLayer(t, store)
	boom := model.NewValidationError("Sex", "unsupported value")

	_, err := layer.GetOrCompute(context.Background(), newRecord(t, nil), (&countingCompute{err: boom}).fn)

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.data)
}

func TestNewLayer_CustomTTL(t *testing.T) {
	store := newMemoryStore()
	layer, err := cacheaside.NewLayer(store, 5*time.Minute, noop.NewMeterProvider().Meter("test"), discardLogger())
	require.NoError(t, err)

	_, err = layer.GetOrCompute(context.Background(), newRecord(t, nil), (&countingCompute{}).fn)
	require.NoError(t, err)

	for _, ttl := range store.ttls {
		assert.Equal(t, 5*time.Minute, ttl)
	}
}

func TestGetOrCompute_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	store := newMemoryStore()
	layer, err := cacheaside.NewLayer(store, 0, provider.Meter("test"), discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	record := newRecord(t, nil)
	compute := &countingCompute{}
	for range 3 {
		_, err := layer.GetOrCompute(ctx, record, compute.fn)
		require.NoError(t, err)
	}
	store.getErr = errors.New("down")
	_, err = layer.GetOrCompute(ctx, record, compute.fn)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), counterValue(t, rm, "titanic_cache_lookups_total", attribute.String("result", "hit")))
	assert.Equal(t, int64(2), counterValue(t, rm, "titanic_cache_lookups_total", attribute.String("result", "miss")))
	assert.Equal(t, int64(1), counterValue(t, rm, "titanic_cache_errors_total", attribute.String("op", "get")))
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
					return dp.Value
				}
			}
		}
	}
	return 0
}
