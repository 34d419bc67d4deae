package kafka

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_Defaults(t *testing.T) {
	p := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})

	assert.Equal(t, 10*time.Millisecond, p.cfg.BatchTimeout)
	assert.Equal(t, 5*time.Second, p.cfg.WriteTimeout)
	assert.Empty(t, p.writers)
}

func TestProducer_WriterPerTopic(t *testing.T) {
	p := NewProducer(Config{Brokers: []string{"kafka:9092"}, TLS: &tls.Config{MinVersion: tls.VersionTLS12}})

	a, err := p.writer("titanic.predictions")
	require.NoError(t, err)
	b, err := p.writer("titanic.predictions")
	require.NoError(t, err)
	c, err := p.writer("other")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "titanic.predictions", a.Topic)
	assert.Equal(t, kafkago.RequireAll, a.RequiredAcks)
	transport, ok := a.Transport.(*kafkago.Transport)
	require.True(t, ok)
	assert.NotNil(t, transport.TLS)
	assert.Equal(t, "titanic-api", transport.ClientID)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)

	_, err = p.writer("titanic.predictions")
	assert.Error(t, err, "closed producers reject new writers")
}

func TestProducer_PublishNothing(t *testing.T) {
	p := NewProducer(Config{Brokers: []string{"127.0.0.1:1"}})
	assert.NoError(t, p.Publish(context.Background(), "titanic.predictions"))
	assert.Empty(t, p.writers)
}

func TestToKafkaMessages(t *testing.T) {
	out := toKafkaMessages([]Message{{
		Key:   []byte("fingerprint"),
		Value: []byte(`{"prediction":1}`),
		Headers: map[string]string{
			"event_type":   "titanic.prediction.completed",
			"content_type": "application/json",
		},
	}})

	require.Len(t, out, 1)
	assert.Equal(t, []byte("fingerprint"), out[0].Key)
	require.Len(t, out[0].Headers, 2)
	assert.Equal(t, "content_type", out[0].Headers[0].Key)
	assert.Equal(t, "event_type", out[0].Headers[1].Key)
	assert.Equal(t, []byte("titanic.prediction.completed"), out[0].Headers[1].Value)
}

func TestProducer_PublishUnreachable(t *testing.T) {
	p := NewProducer(Config{Brokers: []string{"127.0.0.1:1"}, WriteTimeout: 200 * time.Millisecond})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Publish(ctx, "titanic.predictions", Message{Value: []byte("x")})
	assert.Error(t, err)
}

func TestProducer_AsyncWriter(t *testing.T) {
	p := NewProducer(Config{Brokers: []string{"kafka:9092"}, Async: true})
	defer p.Close()

	w, err := p.writer("titanic.predictions")
	require.NoError(t, err)
	assert.True(t, w.Async)
	assert.NotNil(t, w.Completion)
}
