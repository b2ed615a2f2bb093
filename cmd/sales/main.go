package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-digital-market/internal/config"
	kafkax "github.com/ariefcatur/go-digital-market/internal/kafka"
	"github.com/ariefcatur/go-digital-market/internal/logging"
	"github.com/ariefcatur/go-digital-market/internal/orders"
	"github.com/ariefcatur/go-digital-market/internal/postgres"
	"github.com/ariefcatur/go-digital-market/internal/redisx"
	"github.com/ariefcatur/go-digital-market/internal/sales"
	"github.com/ariefcatur/go-digital-market/internal/sellers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("config")
	}
	name := cfg.ServiceName + "-sales"
	log := logging.New(cfg.LogLevel, name)

	if err := run(cfg, name, log); err != nil {
		log.Fatal().Err(err).Msg("sales consumer exited")
	}
}

func run(cfg config.Config, name string, log zerolog.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required for event dedup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := postgres.Connect(connectCtx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	sellerSvc, err := sellers.NewService(&sellers.Repo{DB: db}, bcrypt.DefaultCost, log)
	if err != nil {
		return err
	}
	svc := &sales.Service{
		Dedup:   redisx.NewDedup(rdb, name),
		Sellers: sellerSvc,
		Log:     log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.SalesGroup, orders.TopicOrderPlaced, cfg.SalesWorkers, log)
	log.Info().
		Str("group", cfg.SalesGroup).
		Str("topic", orders.TopicOrderPlaced).
		Int("workers", cfg.SalesWorkers).
		Msg("sales consumer started")
	return cons.Start(ctx, svc.HandleOrderPlaced)
}
