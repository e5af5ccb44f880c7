package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

const (
	// EventTypeJobRequested marks a request envelope on the request topic.
	EventTypeJobRequested = "docking.job.requested"

	// SchemaVersion is stamped on every envelope.
	SchemaVersion = "v1"

	deadLetterSuffix = ".dlq"
)

// DeadLetterTopic names the dead-letter topic of topic.
func DeadLetterTopic(topic string) string { return topic + deadLetterSuffix }

// Message is a transport-neutral Kafka record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Envelope wraps every payload published by BlindDock.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType, source string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *Envelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeSerialization, "envelope has no payload").WithDetail(e.EventID)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload").WithDetail(e.EventID)
	}
	return nil
}

// ToMessage encodes the envelope for topic under key.
func (e *Envelope) ToMessage(topic, key string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a message value.
func DecodeEnvelope(msg *Message) (*Envelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeSerialization, "empty message value")
	}
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic management
// ─────────────────────────────────────────────────────────────────────────────

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// Conn abstracts kafka.Conn for testing.
type Conn interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the docking topics.
type TopicManager struct {
	conn   Conn
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(cfg config.KafkaConfig, log logging.Logger) (*TopicManager, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := dialer.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMessaging, "failed to dial kafka").WithDetail(cfg.Brokers[0])
	}
	return NewTopicManagerWithConn(conn, log), nil
}

// NewTopicManagerWithConn wraps an existing connection.
func NewTopicManagerWithConn(conn Conn, log logging.Logger) *TopicManager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: log.Named("kafka-topics")}
}

// EnsureTopics creates every missing topic.
func (m *TopicManager) EnsureTopics(ctx context.Context, specs []TopicSpec) error {
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if spec.Name == "" || spec.NumPartitions <= 0 || spec.ReplicationFactor <= 0 {
			return errors.New(errors.ErrCodeValidation, "invalid topic spec").WithDetail(spec.Name)
		}
		if m.exists(spec.Name) {
			continue
		}
		tc := kafka.TopicConfig{
			Topic:             spec.Name,
			NumPartitions:     spec.NumPartitions,
			ReplicationFactor: spec.ReplicationFactor,
		}
		if spec.RetentionMs > 0 {
			tc.ConfigEntries = []kafka.ConfigEntry{{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(spec.RetentionMs, 10)}}
		}
		if err := m.conn.CreateTopics(tc); err != nil && !m.exists(spec.Name) {
			return errors.Wrap(err, errors.CodeMessaging, "failed to create topic").WithDetail(spec.Name)
		}
		m.logger.Info("Topic created", logging.String("topic", spec.Name))
	}
	return nil
}

func (m *TopicManager) exists(name string) bool {
	partitions, err := m.conn.ReadPartitions(name)
	return err == nil && len(partitions) > 0
}

// Close closes the connection.
func (m *TopicManager) Close() error { return m.conn.Close() }

// DefaultTopics lists the request, event and dead-letter topics.
func DefaultTopics(cfg config.KafkaConfig) []TopicSpec {
	const day = int64(24 * 3600 * 1000)
	return []TopicSpec{
		{Name: cfg.RequestTopic, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: cfg.EventTopic, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 30 * day},
		{Name: DeadLetterTopic(cfg.RequestTopic), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 30 * day},
	}
}

//Personal.AI order the ending
