package tradepublisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/config"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
)

// event is the wire envelope of the trade topic. Order updates and
// executed trades share the topic, discriminated by kind, so consumers
// see them in execution order.
type event struct {
	Kind  string         `json:"kind"`
	Order *orderv1.Order `json:"order,omitempty"`
	Trade *tradev1.Trade `json:"trade,omitempty"`
}

// Publisher streams executed trades and order state changes to the
// trade topic. It implements the Persistence gateway; durability here
// means the event reached the broker.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      *logger.Logger
}

// NewPublisher creates a Kafka publisher for the trade topic.
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.TradeTopic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// StoreOrder publishes the order's latest state, keyed by order id.
func (p *Publisher) StoreOrder(ctx context.Context, order *orderv1.Order) error {
	return p.publish(ctx, order.ID, event{Kind: "order", Order: order})
}

// StoreTrade publishes an executed trade, keyed by trade id.
func (p *Publisher) StoreTrade(ctx context.Context, trade *tradev1.Trade) error {
	return p.publish(ctx, trade.ID, event{Kind: "trade", Trade: trade})
}

func (p *Publisher) publish(ctx context.Context, key string, ev event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.KafkaWriteError), "payload")
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "kind", Value: ev.Kind},
			logger.Field{Key: "key", Value: key},
		)
		return errors.NewErrorDetails(err.Error(), string(errors.KafkaWriteError), "")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
