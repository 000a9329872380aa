package orderreader

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order-reader/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/config"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
)

// Reader consumes order intake messages from the order topic. It reads
// a single partition so arrival order is total; the engine's arrival
// sequence is assigned in read order.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      *logger.Logger
}

// NewReader creates a Kafka reader for the order intake topic. It
// returns an implementation of the OrderReader interface.
func NewReader(cfg config.KafkaConfig, log *logger.Logger) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.OrderTopic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset positions the reader. Pass -1 (or any negative) to start
// from the latest offset.
func (r *Reader) SetOffset(offset int64) error {
	if offset < 0 {
		offset = kafka.LastOffset
	}
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return errors.NewErrorDetails(err.Error(), string(errors.KafkaReadError), "offset")
	}
	return nil
}

// ReadMessage reads the next message and parses it as an OrderMessage.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderMessage, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		return kafka.Message{}, nil, errors.NewErrorDetails(err.Error(), string(errors.KafkaReadError), "")
	}

	var order orderreaderv1.OrderMessage
	if err := json.Unmarshal(msg.Value, &order); err != nil {
		r.logError(err, "UnmarshalOrder")
		return kafka.Message{}, nil, errors.NewErrorDetails(err.Error(), string(errors.KafkaReadError), "payload")
	}
	order.Offset = msg.Offset

	r.logger.Debug("order message read",
		logger.Field{Key: "action", Value: string(order.Action)},
		logger.Field{Key: "orderID", Value: order.OrderID},
		logger.Field{Key: "asset", Value: string(order.Asset)},
		logger.Field{Key: "offset", Value: msg.Offset},
	)

	return msg, &order, nil
}

// Close shuts down the underlying Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// CommitMessages acknowledges processed messages. No-op without a
// consumer group: the snapshot's stored offset is the resume point.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return nil
}
