// Command kafka-producer generates random order traffic against the
// order intake topic. Development tool for exercising the matching
// engine end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	orderreaderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order-reader/v1"
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
)

var assets = []orderv1.AssetType{orderv1.AssetSolar, orderv1.AssetWind, orderv1.AssetHydro}

// base price per asset, in currency units per MWh.
var basePrices = map[orderv1.AssetType]float64{
	orderv1.AssetSolar: 3.50,
	orderv1.AssetWind:  3.20,
	orderv1.AssetHydro: 2.90,
}

func randomID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(charset[rand.Intn(len(charset))])
	}
	return b.String()
}

func randomOrder(spread float64) *orderreaderv1.OrderMessage {
	asset := assets[rand.Intn(len(assets))]
	side := orderv1.SideBuy
	if rand.Float64() < 0.5 {
		side = orderv1.SideSell
	}

	// Buyers bid a touch below the base, sellers ask a touch above, so
	// a fraction of the flow crosses.
	price := basePrices[asset]
	if side == orderv1.SideBuy {
		price += (rand.Float64()*1.2 - 0.8) * spread
	} else {
		price += (rand.Float64()*1.2 - 0.4) * spread
	}
	if price <= 0 {
		price = basePrices[asset]
	}
	qty := 1 + rand.Float64()*499

	return &orderreaderv1.OrderMessage{
		Action:      orderreaderv1.ActionPlace,
		OrderID:     randomID(rand.Intn(4) + 5),
		OwnerID:     randomID(rand.Intn(4) + 6),
		Asset:       asset,
		Side:        side,
		Price:       decimal.NewFromFloat(price).Round(orderv1.Scale),
		Quantity:    decimal.NewFromFloat(qty).Round(orderv1.Scale),
		RECAttached: side == orderv1.SideSell && rand.Float64() < 0.4,
	}
}

func main() {
	var (
		brokers  = flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
		topic    = flag.String("topic", "orders", "order intake topic")
		count    = flag.Int("count", 100, "number of orders to produce")
		interval = flag.Duration("interval", 50*time.Millisecond, "delay between orders")
		spread   = flag.Float64("spread", 0.25, "max price deviation from the asset base price")
	)
	flag.Parse()

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: strings.Split(*brokers, ","),
		Topic:   *topic,
	})
	defer writer.Close()

	ctx := context.Background()
	for i := 0; i < *count; i++ {
		msg := randomOrder(*spread)
		value, err := json.Marshal(msg)
		if err != nil {
			log.Fatalf("marshal order: %v", err)
		}

		err = writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(msg.OrderID),
			Value: value,
		})
		if err != nil {
			log.Fatalf("write order %d: %v", i, err)
		}

		log.Printf("produced %s %s %s %s @ %s", msg.OrderID, msg.Asset, msg.Side, msg.Quantity, msg.Price)
		time.Sleep(*interval)
	}

	log.Printf("done: %d orders produced to %s", *count, *topic)
}
