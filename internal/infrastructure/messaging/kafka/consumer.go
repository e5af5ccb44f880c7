package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

const maxRetryBackoff = 30 * time.Second

// Handler processes one message.  A nil error commits the offset.
type Handler func(ctx context.Context, msg *Message) error

// Reader abstracts kafka.Reader for testing.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends dead letters.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// ConsumerMetrics counts consumed messages.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
}

// Consumer reads the request topic in a consumer group and hands each
// message to its handler, retrying transient failures and dead-lettering
// the rest.
type Consumer struct {
	reader     Reader
	handler    Handler
	deadLetter Publisher
	cfg        config.KafkaConfig
	topic      string
	logger     logging.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *ConsumerMetrics
}

// NewConsumer joins cfg.GroupID on the request topic.  deadLetter may be nil,
// in which case exhausted messages are dropped after logging.
func NewConsumer(cfg config.KafkaConfig, handler Handler, deadLetter Publisher, log logging.Logger) (*Consumer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka: group id required")
	}
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.RequestTopic,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        time.Second,
		SessionTimeout: 30 * time.Second,
		StartOffset:    kafka.FirstOffset,
		Dialer:         dialer,
	})
	return NewConsumerWithReader(r, cfg, handler, deadLetter, log), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r Reader, cfg config.KafkaConfig, handler Handler, deadLetter Publisher, log logging.Logger) *Consumer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     r,
		handler:    handler,
		deadLetter: deadLetter,
		cfg:        cfg,
		topic:      cfg.RequestTopic,
		logger:     log.Named("kafka-consumer"),
		metrics:    &ConsumerMetrics{},
	}
}

// Start runs the consume loop in the background until Close or ctx ends.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Run(ctx)
	}()
	c.logger.Info("Kafka consumer started", logging.String("group", c.cfg.GroupID), logging.String("topic", c.topic))
	return nil
}

// Run consumes until ctx is done.  A message whose handling is interrupted
// by cancellation is left uncommitted for redelivery.
func (c *Consumer) Run(ctx context.Context) {
	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		c.metrics.MessagesConsumed.Add(1)

		if err := c.process(ctx, fromKafkaMessage(m)); err != nil {
			c.logger.Warn("message left uncommitted", logging.Int64("offset", m.Offset), logging.Err(err))
			return
		}
		c.metrics.MessagesProcessed.Add(1)
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("CommitMessages failed", logging.Int64("offset", m.Offset), logging.Err(err))
		}
	}
}

// process returns an error only when ctx ended before the message was dealt
// with.
func (c *Consumer) process(ctx context.Context, msg *Message) error {
	backoff := c.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = c.handler(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsPermanent(err) || attempt >= c.cfg.MaxRetries {
			break
		}
		c.metrics.MessagesRetried.Add(1)
		c.logger.Warn("handler failed, retrying", logging.Int("attempt", attempt+1), logging.Err(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff *= 2; backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
	c.deadLetterMessage(ctx, msg, err)
	return nil
}

func (c *Consumer) deadLetterMessage(ctx context.Context, msg *Message, cause error) {
	c.logger.Error("Message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(cause))
	if c.deadLetter == nil {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["error_message"] = cause.Error()
	dl := &Message{Topic: DeadLetterTopic(msg.Topic), Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("Failed to send to dead letter queue", logging.Err(err))
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

// Metrics returns the live counters.
func (c *Consumer) Metrics() *ConsumerMetrics { return c.metrics }

// Close stops the loop and closes the reader.
func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.running.Store(false)
	return c.reader.Close()
}

// IsPermanent reports errors that no retry can fix.
func IsPermanent(err error) bool {
	switch errors.GetCode(err) {
	case errors.CodeSerialization, errors.CodeValidation, errors.CodeInvalidParam:
		return true
	}
	return false
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// ─────────────────────────────────────────────────────────────────────────────
// Job request handling
// ─────────────────────────────────────────────────────────────────────────────

// JobExecutor runs a docking request.
type JobExecutor interface {
	Execute(ctx context.Context, req app.Request) (*app.Outcome, error)
}

// JobRequestHandler decodes request envelopes and executes them.  Failed
// jobs are recorded and announced by the executor, so they are acknowledged
// here; so is a job already held by another worker.
func JobRequestHandler(exec JobExecutor, log logging.Logger) Handler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("job-requests")
	return func(ctx context.Context, msg *Message) error {
		env, err := DecodeEnvelope(msg)
		if err != nil {
			return err
		}
		if env.EventType != EventTypeJobRequested {
			log.Warn("unexpected event type ignored", logging.String("event_type", env.EventType))
			return nil
		}
		var req app.Request
		if err := env.DecodePayload(&req); err != nil {
			return err
		}
		if req.JobID == "" {
			req.JobID = string(msg.Key)
		}

		out, err := exec.Execute(ctx, req)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.IsCode(err, errors.CodeJobLocked):
			log.Info("job held by another worker", logging.JobID(req.JobID))
			return nil
		case out != nil:
			log.Info("job finished with failure", logging.JobID(req.JobID), logging.Err(err))
			return nil
		}
		return err
	}
}

//Personal.AI order the ending
