package tradestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
)

// Key layout:
//
//	order/<orderID>                 latest order state
//	trade/<asset>/<seq>             executed trade, seq zero-padded so
//	                                iteration order is execution order
type Store struct {
	db     *pebble.DB
	logger *logger.Logger
}

// Open opens (or creates) the durable store at dir.
func Open(dir string, log *logger.Logger) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "dir")
	}
	return &Store{db: db, logger: log}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreOrder upserts the order's latest state.
func (s *Store) StoreOrder(ctx context.Context, order *orderv1.Order) error {
	value, err := json.Marshal(order)
	if err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "order")
	}
	if err := s.db.Set(orderKey(order.ID), value, pebble.Sync); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "order")
	}
	return nil
}

// StoreTrade appends an executed trade. Trades are immutable; a second
// write of the same sequence overwrites with identical bytes, which
// keeps replay idempotent.
func (s *Store) StoreTrade(ctx context.Context, trade *tradev1.Trade) error {
	value, err := json.Marshal(trade)
	if err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "trade")
	}
	if err := s.db.Set(tradeKey(trade.Asset, trade.Sequence), value, pebble.Sync); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "trade")
	}
	return nil
}

// GetOrder returns the stored state of an order.
func (s *Store) GetOrder(orderID string) (*orderv1.Order, error) {
	value, closer, err := s.db.Get(orderKey(orderID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, errors.NewErrorDetails(
				fmt.Sprintf("unknown order id %s", orderID),
				string(errors.OrderNotFoundError), "orderID",
			)
		}
		return nil, errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "orderID")
	}
	defer closer.Close()

	var order orderv1.Order
	if err := json.Unmarshal(value, &order); err != nil {
		return nil, errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "order")
	}
	return &order, nil
}

// ScanTrades iterates an asset's trades in execution order.
func (s *Store) ScanTrades(asset orderv1.AssetType, fn func(*tradev1.Trade) error) error {
	prefix := []byte(fmt.Sprintf("trade/%s/", asset))
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: append(append([]byte{}, prefix...), '~'),
	})
	if err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "asset")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var trade tradev1.Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			return errors.NewErrorDetails(err.Error(), string(errors.TradeStoreError), "trade")
		}
		if err := fn(&trade); err != nil {
			return err
		}
	}
	return iter.Error()
}

func orderKey(orderID string) []byte {
	return []byte("order/" + orderID)
}

func tradeKey(asset orderv1.AssetType, seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%s/%020d", asset, seq))
}
