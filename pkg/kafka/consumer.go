package kafka

import (
	"context"
	"crypto/tls"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
)

// MessageHandler decodes and dispatches one message's raw value.
type MessageHandler func(ctx context.Context, value []byte) error

// ConsumerConfig configures a single-topic reader.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// ClientCertPEM/ClientKeyPEM, when both set, enable mutual TLS
	// against the broker (KAFKA_CLIENT_CERT / KAFKA_CLIENT_CERT_KEY).
	ClientCertPEM string
	ClientKeyPEM  string
	MaxWait       time.Duration
}

func (cfg ConsumerConfig) dialer() (*kafka.Dialer, error) {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if cfg.ClientCertPEM == "" || cfg.ClientKeyPEM == "" {
		return dialer, nil
	}

	cert, err := tls.X509KeyPair([]byte(cfg.ClientCertPEM), []byte(cfg.ClientKeyPEM))
	if err != nil {
		return nil, err
	}
	dialer.TLS = &tls.Config{Certificates: []tls.Certificate{cert}}
	return dialer, nil
}

// Consumer is the harness for one topic: subscribe, decode, dispatch,
// commit only after dispatch returns.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  ectologger.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewConsumer creates a Consumer bound to one topic under cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger ectologger.Logger) (*Consumer, error) {
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}

	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		Dialer:         dialer,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        maxWait,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // commit explicitly, per message dispatch
	})

	return &Consumer{reader: reader, handler: handler, logger: logger}, nil
}

// Start begins consuming in a background goroutine.
func (c *Consumer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.WithContext(ctx).WithField("topic", c.reader.Config().Topic).Infof("Kafka consumer started")
}

// Stop signals the consume loop to exit and waits for it to drain
// in-flight work: shutdown allows in-flight calculations to complete,
// but dispatches no new messages.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if err == context.Canceled || err == io.EOF {
				return
			}
			c.logger.WithContext(ctx).WithError(err).Errorf("Failed to fetch message")
			continue
		}

		// Stop cancels ctx to end fetching; a dispatch already under way
		// runs to completion rather than being cancelled with it.
		c.dispatch(context.WithoutCancel(ctx), msg)
	}
}

// dispatch hands the message value to the handler and always commits
// afterward, whether the handler succeeded or raised an unhandled
// error. The bus contract is at-least-once with best-effort side
// effects, so failures are not poison-pillable here.
func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if err := c.handler(ctx, msg.Value); err != nil {
		log.WithError(err).Errorf("Dispatch failed, committing anyway")
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Errorf("Failed to commit message")
	}
}
