package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/pkg/logging"
	"github.com/isectech/banking-log-generator/shared/common"
)

// KafkaConfig represents the Kafka sink configuration
type KafkaConfig struct {
	Brokers      []string      `json:"brokers" yaml:"brokers" mapstructure:"brokers"`
	Topic        string        `json:"topic" yaml:"topic" mapstructure:"topic"`
	BatchSize    int           `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxAttempts  int           `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
	Compression  string        `json:"compression" yaml:"compression" mapstructure:"compression"`
	// Encoding of message values: json or msgpack
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`

	// Circuit breaker settings
	FailureThreshold uint32        `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`
	BreakerTimeout   time.Duration `json:"breaker_timeout" yaml:"breaker_timeout" mapstructure:"breaker_timeout"`
}

// DefaultKafkaConfig returns the Kafka sink defaults
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "banking-logs",
		BatchSize:        100,
		BatchTimeout:     10 * time.Millisecond,
		WriteTimeout:     30 * time.Second,
		MaxAttempts:      3,
		Compression:      "snappy",
		Encoding:         EncodingJSON,
		FailureThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// Message value encodings
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// messageWriter is the part of *kafka.Writer the sink uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes records as JSON messages keyed by user id
type KafkaSink struct {
	writer  messageWriter
	encode  func(entity.Record) ([]byte, error)
	breaker *gobreaker.CircuitBreaker
	config  KafkaConfig
	logger  *logging.Logger
	pending []kafka.Message
	closed  bool
}

// NewKafkaSink creates a sink backed by a kafka-go writer
func NewKafkaSink(config KafkaConfig, logger *logging.Logger) (*KafkaSink, error) {
	if len(config.Brokers) == 0 {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "at least one kafka broker is required")
	}
	if config.Topic == "" {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "kafka topic is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	compression, err := parseCompression(config.Compression)
	if err != nil {
		return nil, err
	}
	if _, err := encoderFor(config.Encoding); err != nil {
		return nil, err
	}

	logger = logger.WithComponent("kafka-sink")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  config.MaxAttempts,
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Compression:  compression,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("Kafka writer: "+msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf("Kafka writer: "+msg, args...))
		}),
	}

	logger.Info("Kafka sink initialized",
		zap.Strings("brokers", config.Brokers),
		zap.String("topic", config.Topic),
		zap.Int("batch_size", config.BatchSize),
	)

	return newKafkaSink(writer, config, logger), nil
}

func newKafkaSink(writer messageWriter, config KafkaConfig, logger *logging.Logger) *KafkaSink {
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	encode, err := encoderFor(config.Encoding)
	if err != nil {
		encode = encodeJSON
	}

	s := &KafkaSink{
		writer:  writer,
		encode:  encode,
		config:  config,
		logger:  logger,
		pending: make([]kafka.Message, 0, config.BatchSize),
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka-sink:" + config.Topic,
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return s
}

// Name returns the sink kind
func (s *KafkaSink) Name() string {
	return NameKafka
}

// Write queues rec and publishes the batch once it is full
func (s *KafkaSink) Write(ctx context.Context, rec entity.Record) error {
	if s.closed {
		return common.NewAppError(common.ErrCodeSinkWrite, "sink is closed")
	}

	value, err := s.encode(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", rec.RecordType(), err)
	}

	s.pending = append(s.pending, kafka.Message{
		Key:   []byte(rec.Subject()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "transaction_type", Value: []byte(rec.RecordType())},
			{Key: "content_type", Value: []byte(contentType(s.config.Encoding))},
		},
	})

	if len(s.pending) >= s.config.BatchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush publishes queued messages. A failed batch is dropped.
func (s *KafkaSink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	batch := s.pending
	s.pending = make([]kafka.Message, 0, s.config.BatchSize)

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.writer.WriteMessages(ctx, batch...)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return common.NewAppErrorWithCause(common.ErrCodeServiceUnavailable,
				"kafka sink circuit breaker is open", err)
		}
		s.logger.Error("Failed to publish batch",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return common.ErrExternalService("kafka", err)
	}

	s.logger.Debug("Batch published", zap.Int("batch_size", len(batch)))
	return nil
}

// State reports the circuit breaker state
func (s *KafkaSink) State() gobreaker.State {
	return s.breaker.State()
}

// Close publishes remaining messages and closes the writer
func (s *KafkaSink) Close() error {
	if s.closed {
		return nil
	}

	ctx := context.Background()
	if s.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.WriteTimeout)
		defer cancel()
	}

	flushErr := s.Flush(ctx)
	s.closed = true

	if err := s.writer.Close(); err != nil {
		return common.WrapError(err, common.ErrCodeExternalService, "failed to close kafka writer")
	}
	return flushErr
}

func parseCompression(name string) (kafka.Compression, error) {
	switch name {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput,
			"unsupported kafka compression", name)
	}
}

func encoderFor(encoding string) (func(entity.Record) ([]byte, error), error) {
	switch encoding {
	case "", EncodingJSON:
		return encodeJSON, nil
	case EncodingMsgpack:
		return encodeMsgpack, nil
	default:
		return nil, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput,
			"unsupported kafka message encoding", encoding)
	}
}

func encodeJSON(rec entity.Record) ([]byte, error) {
	return json.Marshal(rec)
}

// encodeMsgpack keys fields by their json names so both encodings share a schema
func encodeMsgpack(rec entity.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contentType(encoding string) string {
	if encoding == EncodingMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}
