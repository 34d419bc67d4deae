package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	kafkago "github.com/segmentio/kafka-go"
)

// Message is one record to publish. Headers are sent in key order.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Producer publishes through one lazily created writer per topic.
type Producer struct {
	cfg Config

	mu      sync.Mutex
	writers map[string]*kafkago.Writer
	closed  bool
}

// NewProducer creates a Producer. No connection is made until the first
// Publish.
func NewProducer(cfg Config) *Producer {
	return &Producer{
		cfg:     cfg.withDefaults(),
		writers: make(map[string]*kafkago.Writer),
	}
}

// Publish writes messages to topic. Records with the same key land on the
// same partition.
func (p *Producer) Publish(ctx context.Context, topic string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	w, err := p.writer(topic)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, toKafkaMessages(messages)...); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes every writer. Publishing after Close fails.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var result *multierror.Error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close writer for %s: %w", topic, err))
		}
	}
	p.writers = make(map[string]*kafkago.Writer)
	return result.ErrorOrNil()
}

func (p *Producer) writer(topic string) (*kafkago.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("kafka producer closed")
	}
	if w, ok := p.writers[topic]; ok {
		return w, nil
	}

	logger := p.cfg.Logger.With("component", "kafka", "topic", topic)
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(p.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           p.cfg.BatchTimeout,
		WriteTimeout:           p.cfg.WriteTimeout,
		RequiredAcks:           kafkago.RequireAll,
		Async:                  p.cfg.Async,
		AllowAutoTopicCreation: true,
		Transport: &kafkago.Transport{
			ClientID: p.cfg.ClientID,
			TLS:      p.cfg.TLS,
		},
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	if p.cfg.Async {
		w.Completion = func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Warn("async kafka delivery failed", "messages", len(messages), "error", err)
			}
		}
	}
	p.writers[topic] = w
	return w, nil
}

func toKafkaMessages(messages []Message) []kafkago.Message {
	out := make([]kafkago.Message, 0, len(messages))
	for _, msg := range messages {
		km := kafkago.Message{Key: msg.Key, Value: msg.Value}
		keys := make([]string, 0, len(msg.Headers))
		for k := range msg.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			km.Headers = append(km.Headers, kafkago.Header{Key: k, Value: []byte(msg.Headers[k])})
		}
		out = append(out, km)
	}
	return out
}
