package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	app "github.com/TIWARINEERAJ/GreenIEX/internal/app/engine"
	gatewayv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/gateway/v1"
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/matching"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/notifier"
	orderreader "github.com/TIWARINEERAJ/GreenIEX/internal/usecase/order-reader"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/snapshot"
	tradepublisher "github.com/TIWARINEERAJ/GreenIEX/internal/usecase/trade-publisher"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/tradelog"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/tradestore"
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

	policy, err := matching.ParsePolicy(cfg.Policy)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "parse_policy"})
		return
	}

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

	store, err := tradestore.Open(cfg.TradeStoreConfig.Dir, log)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "open_tradestore"})
		return
	}
	defer store.Close()

	assets := make([]orderv1.AssetType, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		assets = append(assets, orderv1.AssetType(strings.ToUpper(strings.TrimSpace(a))))
	}
	catalog := gatewayv1.NewStaticCatalog(assets...)
	oReader := orderreader.NewReader(cfg.KafkaConfig, log)
	tPublisher := tradepublisher.NewPublisher(cfg.KafkaConfig, log)
	defer tPublisher.Close()
	snapshotStore := snapshot.NewSnapshotStore(rclient, "greeniex.snapshot", log)
	marketNotifier := notifier.New(rclient, cfg.RedisConfig.DefaultChannel, log)

	engine := app.New(catalog, tradelog.New(), log,
		app.WithPolicy(policy),
		app.WithPersistence(store),
		app.WithPersistence(tPublisher),
		app.WithNotification(marketNotifier),
	)

	service, err := app.NewService(engine, oReader, snapshotStore, log, &app.ServiceOptions{
		SnapshotInterval:    cfg.SnapshotConfig.Interval,
		SnapshotOffsetDelta: cfg.SnapshotConfig.OffsetDelta,
	})
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "init_service"})
		return
	}

	if err := service.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_service"})
		return
	}

	log.Info("matching engine started",
		logger.Field{Key: "assets", Value: cfg.Assets},
		logger.Field{Key: "policy", Value: cfg.Policy},
	)

	sig := <-sigChan
	log.Info("received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := service.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_service"})
	}

	if err := rclient.Disconnect(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "disconnect_redis"})
	}

	log.Info("matching engine shutdown complete")
}
