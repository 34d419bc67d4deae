//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/event"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/kafka"
	pkgkafka "github.com/enesgulerml/titanic-mlops-k8s/pkg/kafka"
	"github.com/enesgulerml/titanic-mlops-k8s/pkg/testutil"
)

func TestPublisher_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kc := testutil.NewKafkaContainer(ctx, t)
	defer kc.Cleanup(t)

	producer := pkgkafka.NewProducer(pkgkafka.Config{Brokers: kc.Brokers})
	defer producer.Close()

	const topic = "titanic.predictions.it"
	pub := kafka.NewPublisher(producer, topic, discardLogger())
	evt := event.NewPredictionCompleted(42, "fp-42", 1, "model", "random_forest@abc")

	// The first write may race topic auto-creation.
	require.Eventually(t, func() bool {
		return pub.Publish(ctx, evt) == nil
	}, 30*time.Second, time.Second)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   kc.Brokers,
		Topic:     topic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	var got event.PredictionCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, evt.EventID, got.EventID)
	assert.Equal(t, "fp-42", string(msg.Key))
}
