// Package kafka carries docking job requests to workers and job events to
// subscribers over Kafka.
package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ValidateConfig checks the fields required to reach the brokers.
func ValidateConfig(cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "kafka: brokers required")
	}
	if cfg.RequestTopic == "" || cfg.EventTopic == "" {
		return errors.New(errors.ErrCodeValidation, "kafka: request and event topics required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "kafka: max_retries must be >= 0")
	}
	if cfg.SASLMechanism != "" && (cfg.SASLUsername == "" || cfg.SASLPassword == "") {
		return errors.New(errors.ErrCodeValidation, "kafka: SASL credentials required")
	}
	return nil
}

func saslMechanism(cfg config.KafkaConfig) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
	}
	return nil, errors.Newf(errors.ErrCodeValidation, "kafka: unsupported SASL mechanism %q", cfg.SASLMechanism)
}

func tlsConfig(cfg config.KafkaConfig) (*tls.Config, error) {
	if !cfg.TLSEnabled {
		return nil, nil
	}
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "kafka: cannot read CA file")
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(pem)
		tc.RootCAs = pool
	}
	return tc, nil
}

func newTransport(cfg config.KafkaConfig) (*kafka.Transport, error) {
	mech, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}
	tc, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{DialTimeout: 10 * time.Second, SASL: mech, TLS: tc}, nil
}

func newDialer(cfg config.KafkaConfig) (*kafka.Dialer, error) {
	mech, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}
	tc, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, SASLMechanism: mech, TLS: tc}, nil
}

//Personal.AI order the ending
