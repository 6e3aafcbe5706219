package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Observer receives one call per publish attempt.
type Observer func(topic string, ok bool, bytes int, elapsed time.Duration)

// Producer writes JSON decision events to Kafka.
type Producer struct {
	writer  Writer
	observe Observer
	now     func() time.Time
}

func defaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		RequiredAcks: int(kafka.RequireAll),
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewProducer builds a writer for cfg.Brokers. Events are keyed, so the hash
// balancer keeps each symbol on one partition unless HashByKey is off.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	comp, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var bal kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            comp,
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: cfg.AutoCreateTopic,
	}
	return NewProducerWithWriter(w, cfg.Observer), nil
}

// NewProducerWithWriter wraps an existing writer. observe may be nil.
func NewProducerWithWriter(w Writer, observe Observer) *Producer {
	if observe == nil {
		observe = func(string, bool, int, time.Duration) {}
	}
	return &Producer{writer: w, observe: observe, now: time.Now}
}

// Publish writes value to topic. []byte and string values are sent as is,
// anything else is JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value any) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}

	start := p.now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: payload,
		Time:  start,
	})
	p.observe(topic, err == nil, len(payload), p.now().Sub(start))
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kafka encode: %w", err)
	}
	return b, nil
}

func parseCompression(name string) (kafka.Compression, error) {
	switch name {
	case "", "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("kafka: unknown compression %q", name)
}
