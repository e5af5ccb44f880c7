package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// SourceService identifies BlindDock in envelopes.
const SourceService = "blinddock"

const maxMessageBytes = 1 << 20

var ErrProducerClosed = errors.New(errors.CodeMessaging, "producer closed")

// Writer abstracts kafka.Writer for testing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerMetrics counts published messages.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
}

// Producer publishes job requests and job events.
type Producer struct {
	writer  Writer
	cfg     config.KafkaConfig
	logger  logging.Logger
	closed  atomic.Bool
	metrics *ProducerMetrics
}

// NewProducer builds a hash-balanced writer for the configured brokers.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		Transport:    transport,
	}
	return NewProducerWithWriter(w, cfg, log), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w Writer, cfg config.KafkaConfig, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{writer: w, cfg: cfg, logger: log.Named("kafka-producer"), metrics: &ProducerMetrics{}}
}

// Publish writes one message.
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "value required")
	}
	if len(msg.Value) > maxMessageBytes {
		return errors.New(errors.ErrCodeValidation, "message too large").WithDetailf("%d bytes", len(msg.Value))
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.metrics.MessagesFailed.Add(1)
		return errors.Wrap(err, errors.CodeMessaging, "publish failed").WithDetail(msg.Topic)
	}
	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(msg.Value)))
	p.logger.Debug("Message published",
		logging.String("topic", msg.Topic),
		logging.String("key", string(msg.Key)),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// PublishJobEvent publishes ev on the event topic keyed by job id, so that
// the events of one job stay ordered.
func (p *Producer) PublishJobEvent(ctx context.Context, ev app.JobEvent) error {
	return p.publishEnvelope(ctx, p.cfg.EventTopic, string(ev.Type), ev.JobID, ev)
}

// PublishJobRequest enqueues req for a worker.
func (p *Producer) PublishJobRequest(ctx context.Context, req app.Request) error {
	if req.JobID == "" {
		return errors.InvalidParam("job id is required")
	}
	return p.publishEnvelope(ctx, p.cfg.RequestTopic, EventTypeJobRequested, req.JobID, req)
}

func (p *Producer) publishEnvelope(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := NewEnvelope(eventType, SourceService, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// Metrics returns the live counters.
func (p *Producer) Metrics() *ProducerMetrics { return p.metrics }

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

func toKafkaMessage(msg *Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{Topic: msg.Topic, Key: msg.Key, Value: msg.Value, Headers: headers, Time: ts}
}

//Personal.AI order the ending
