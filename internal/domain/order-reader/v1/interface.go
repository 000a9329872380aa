package orderreaderv1

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
)

// Action discriminates intake messages.
type Action string

const (
	// ActionPlace submits a new limit order.
	ActionPlace Action = "place"
	// ActionCancel cancels a resting order by id.
	ActionCancel Action = "cancel"
)

// OrderMessage is the wire payload of the order intake topic.
type OrderMessage struct {
	Action      Action            `json:"action"`
	OrderID     string            `json:"orderID"`
	OwnerID     string            `json:"ownerID"`
	Asset       orderv1.AssetType `json:"asset"`
	Side        orderv1.Side      `json:"side"`
	Price       decimal.Decimal   `json:"price"`
	Quantity    decimal.Decimal   `json:"quantity"`
	RECAttached bool              `json:"recAttached"`
	Offset      int64             `json:"-"` // stream offset, set by the reader
}

// PlaceRequest converts the message into an engine submission request.
func (m *OrderMessage) PlaceRequest() *orderv1.PlaceOrderRequest {
	return &orderv1.PlaceOrderRequest{
		OrderID:     m.OrderID,
		OwnerID:     m.OwnerID,
		Asset:       m.Asset,
		Side:        m.Side,
		Price:       m.Price,
		Quantity:    m.Quantity,
		RECAttached: m.RECAttached,
	}
}

// OrderReader defines the interface for reading order messages from the
// intake stream.
type OrderReader interface {
	// ReadMessage reads a message and returns the offset and parsed order
	ReadMessage(ctx context.Context) (kafka.Message, *OrderMessage, error)
	// SetOffset sets the offset for the reader
	SetOffset(offset int64) error
	// Close closes the reader
	Close() error

	// CommitMessages commits the messages to Kafka after processing
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}
