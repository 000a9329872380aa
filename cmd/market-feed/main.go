// Command market-feed tails the market update channels published by the
// matching engine. It is a development tool for watching depth changes
// live without wiring up a downstream consumer.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gatewayv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/gateway/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/config"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	log = l
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	redisConfig := redis.DefaultConfig()
	redisConfig.Addrs = strings.Split(cfg.RedisConfig.Addrs, ",")
	redisConfig.Password = cfg.RedisConfig.Password
	redisConfig.Username = cfg.RedisConfig.Username
	redisConfig.DB = cfg.RedisConfig.DB
	rclient := redis.NewClient(log, redisConfig)

	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
		return
	}
	defer rclient.Disconnect(context.Background())

	if err := rclient.Ping(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "ping_redis"})
		return
	}

	channels := make([]string, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		asset := strings.ToUpper(strings.TrimSpace(a))
		channels = append(channels, fmt.Sprintf("%s.%s", cfg.RedisConfig.DefaultChannel, asset))
	}

	log.Info("tailing market updates", logger.Field{Key: "channels", Value: channels})

	for ctx.Err() == nil {
		if err := tail(ctx, rclient, channels); err != nil && ctx.Err() == nil {
			log.Error(err, logger.Field{Key: "action", Value: "tail_market_updates"})
			if !rclient.Reconnect(ctx) {
				return
			}
		}
	}
}

// tail subscribes to the given channels and prints updates until the
// subscription breaks or ctx is cancelled.
func tail(ctx context.Context, rclient redis.Client, channels []string) error {
	sub, err := rclient.Subscribe(ctx, channels...)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}

		var update gatewayv1.MarketUpdate
		if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
			log.Warn("undecodable market update",
				logger.Field{Key: "channel", Value: msg.Channel},
			)
			continue
		}
		printUpdate(&update)
	}
}

func printUpdate(update *gatewayv1.MarketUpdate) {
	bestBid, bestAsk := "-", "-"
	if len(update.Bids) > 0 {
		bestBid = update.Bids[0].Price.String()
	}
	if len(update.Asks) > 0 {
		bestAsk = update.Asks[0].Price.String()
	}
	fmt.Printf("%s  %-6s v%-6d bid %-8s ask %-8s levels %d/%d\n",
		time.Now().Format(time.TimeOnly),
		update.Asset, update.Version, bestBid, bestAsk,
		len(update.Bids), len(update.Asks),
	)
}
