package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
)

// ProducerConfig configures the round-rated / dead-letter producer.
type ProducerConfig struct {
	Brokers          []string
	RoundRatedTopic  string
	DeadLetterTopic  string
	ClientCertPEM    string
	ClientKeyPEM     string
	BatchTimeout     time.Duration
}

// Producer publishes the round-rated notification and dead-letter
// messages.
type Producer struct {
	writer *kafka.Writer
	cfg    ProducerConfig
	logger ectologger.Logger
}

// NewProducer creates a Producer. Topic is left unset on the writer so
// each call can target either the round-rated or dead-letter topic.
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	dialer, err := (ConsumerConfig{ClientCertPEM: cfg.ClientCertPEM, ClientKeyPEM: cfg.ClientKeyPEM}).dialer()
	if err != nil {
		return nil, err
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialContext, TLS: dialer.TLS},
	}

	return &Producer{writer: writer, cfg: cfg, logger: logger}, nil
}

// PublishRoundRated publishes the outbound round-rated notification.
func (p *Producer) PublishRoundRated(ctx context.Context, event RoundRatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal round-rated event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.cfg.RoundRatedTopic,
		Key:   []byte(strconv.FormatInt(event.RoundID, 10)),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish round-rated event: %w", err)
	}
	return nil
}

// PublishDeadLetter publishes an undecodable or unhandled message for
// later replay investigation. It never returns an error to the caller
// beyond logging: a dead-letter publish failure must not block the
// harness from committing the original offset.
func (p *Producer) PublishDeadLetter(ctx context.Context, envelope DeadLetterEnvelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to marshal dead-letter envelope")
		return
	}

	msg := kafka.Message{
		Topic: p.cfg.DeadLetterTopic,
		Value: payload,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish dead-letter message")
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
