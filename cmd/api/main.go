package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-digital-market/internal/catalog"
	"github.com/ariefcatur/go-digital-market/internal/config"
	"github.com/ariefcatur/go-digital-market/internal/httpx"
	kafkax "github.com/ariefcatur/go-digital-market/internal/kafka"
	"github.com/ariefcatur/go-digital-market/internal/logging"
	"github.com/ariefcatur/go-digital-market/internal/metrics"
	"github.com/ariefcatur/go-digital-market/internal/orders"
	"github.com/ariefcatur/go-digital-market/internal/postgres"
	"github.com/ariefcatur/go-digital-market/internal/pricing"
	"github.com/ariefcatur/go-digital-market/internal/redisx"
	"github.com/ariefcatur/go-digital-market/internal/sellers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.ServiceName)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
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
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info().Msg("schema migrated")
	}

	engine, err := pricing.New(cfg.CommissionRate)
	if err != nil {
		return err
	}
	orderSvc := orders.NewService(&orders.Repo{DB: db}, engine, orders.Config{
		CommissionDestination: cfg.CommissionDestination,
		MaxAttempts:           cfg.OrderMaxAttempts,
	}, log)
	sellerSvc, err := sellers.NewService(&sellers.Repo{DB: db}, bcrypt.DefaultCost, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	limiter := httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	oh := &httpx.OrdersHandler{
		Orders:  orderSvc,
		Metrics: m,
		Log:     log,
		Service: cfg.ServiceName,
		Timeout: cfg.RequestTimeout,
		Limit:   limiter.Middleware,
	}

	// Redis is optional: without it listings are uncached and Idempotency-Key is ignored.
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
		}
		oh.Cache = redisx.NewOrderListCache(rdb, cfg.OrderListCacheTTL)
		oh.Idem = redisx.NewIdempotency(rdb, 2*cfg.RequestTimeout)
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		prod.Start()
		oh.Events = prod
	}

	router := httpx.NewRouter(log, cfg.RequestTimeout+time.Second, m.Handler())
	oh.Register(router)
	(&httpx.ProductsHandler{Catalog: &catalog.Repo{DB: db}, Log: log, Timeout: cfg.RequestTimeout}).Register(router)
	(&httpx.SellersHandler{Sellers: sellerSvc, Log: log, Timeout: cfg.RequestTimeout, Limit: limiter.Middleware}).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if prod != nil {
			prod.Close()      // late publishes get ErrProducerClosed
			prod.WaitClosed() // flush queued events
		}
		return err
	})
	return g.Wait()
}
