package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/instasupply/internal/kafka"
	"github.com/xenking/instasupply/internal/storage/postgres"
	"github.com/xenking/instasupply/internal/storage/redisx"
)

// RunWorker consumes notification events and stores them. Health endpoints
// are served on cfg.Kafka.WorkerAddr.
func RunWorker(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	if !cfg.Kafka.Enabled {
		return errors.New("notification worker needs kafka: set INSTA_KAFKA_ENABLED=true")
	}
	lg.Info("Initializing worker",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.Group),
		zap.Int("workers", cfg.Kafka.Workers),
	)

	pool, rdb, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer func() { _ = rdb.Close() }()

	healthSvc := newHealth(pool, rdb)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	server := &http.Server{
		Addr:              cfg.Kafka.WorkerAddr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	h := kafka.NewNotificationHandler(
		postgres.NewNotificationRepository(pool),
		redisx.NewDedup(rdb, cfg.Kafka.Group),
	)
	consumer := kafka.NewConsumer(
		kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Group, cfg.Kafka.Topic),
		cfg.Kafka.Workers,
		lg.Named("consumer"),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(consumer.Run(gctx, h.Handle), "consume")
	})
	g.Go(func() error {
		return serve(gctx, lg, GracefulConfig{ShutdownTimeout: cfg.Graceful.ShutdownTimeout}, server, healthSvc)
	})
	return g.Wait()
}
