package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/campaign"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/product"
	"github.com/xenking/instasupply/internal/domain/profile"
	"github.com/xenking/instasupply/internal/domain/review"
	"github.com/xenking/instasupply/internal/domain/store"
	"github.com/xenking/instasupply/internal/handler"
	"github.com/xenking/instasupply/internal/kafka"
	"github.com/xenking/instasupply/internal/mail"
	"github.com/xenking/instasupply/internal/storage/postgres"
	"github.com/xenking/instasupply/internal/storage/redisx"
	"github.com/xenking/instasupply/pkg/health"
	"github.com/xenking/instasupply/pkg/httpmiddleware"
)

const serviceName = "insta-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.Bool("kafka", cfg.Kafka.Enabled))

	pool, rdb, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer func() { _ = rdb.Close() }()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(
			kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			cfg.Kafka.Buffer,
			lg.Named("kafka"),
		)
	}

	var mailer auth.Mailer = mail.NewLogMailer(lg.Named("mail"))
	if cfg.SMTP.Mail().Enabled() {
		mailer = mail.NewSMTPMailer(cfg.SMTP.Mail())
	}

	api, healthSvc, err := newAPI(ctx, cfg, apiDeps{
		pool:     pool,
		rdb:      rdb,
		producer: producer,
		mailer:   mailer,
		meter:    m.MeterProvider(),
		tracer:   m.TracerProvider(),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           api,
	}

	// The producer outlives the server so that requests drained during
	// shutdown can still publish.
	producerCtx, stopProducer := context.WithCancel(context.WithoutCancel(ctx))
	defer stopProducer()

	g, gctx := errgroup.WithContext(ctx)
	if producer != nil {
		g.Go(func() error {
			return errors.Wrap(producer.Run(producerCtx), "kafka producer")
		})
	}
	g.Go(func() error {
		defer stopProducer()
		return serve(gctx, lg, cfg.Graceful, server, healthSvc)
	})
	return g.Wait()
}

// apiDeps are the external resources the API is assembled from.
type apiDeps struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	producer *kafka.Producer
	mailer   auth.Mailer
	meter    metric.MeterProvider
	tracer   trace.TracerProvider
}

// newAPI assembles repositories, domain services and the middleware chain.
// Notifications go through Kafka when a producer is given, straight to the
// store otherwise.
func newAPI(ctx context.Context, cfg *Config, d apiDeps) (http.Handler, *health.Health, error) {
	healthSvc := newHealth(d.pool, d.rdb)

	// Repositories.
	productRepo := postgres.NewProductRepository(d.pool)
	orderRepo := postgres.NewOrderRepository(d.pool)
	notificationRepo := postgres.NewNotificationRepository(d.pool)
	supplierRepo := postgres.NewSupplierRepository(d.pool)
	storeRepo := postgres.NewStoreRepository(d.pool)
	reviewRepo := postgres.NewReviewRepository(d.pool)
	campaignRepo := postgres.NewCampaignRepository(d.pool)

	var emitter notification.Emitter = notification.NewStoreEmitter(notificationRepo)
	if d.producer != nil {
		emitter = kafka.NewPublisher(d.producer, serviceName)
	}

	// Domain services.
	productService := product.NewService(productRepo)
	orderService := order.NewService(
		order.ServiceConfig{StrictTransitions: cfg.Orders.StrictTransitions},
		productRepo,
		orderRepo,
		emitter,
	)
	notificationService := notification.NewService(notificationRepo)
	authService := auth.NewService(
		auth.Config{OTPTTL: cfg.OTP.TTL, BcryptCost: cfg.OTP.BcryptCost},
		supplierRepo,
		redisx.NewOTPStore(d.rdb),
		d.mailer,
		auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL),
		redisx.NewDenylist(d.rdb),
	)

	// HTTP handlers.
	h, err := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		handler.Services{
			Orders:        orderService,
			Products:      productService,
			Notifications: notificationService,
			Auth:          authService,
			Reviews:       review.NewService(reviewRepo, supplierRepo, storeRepo, emitter),
			Campaigns:     campaign.NewService(campaignRepo, productRepo, emitter),
			Store:         store.NewService(storeRepo),
			Profiles:      profile.NewService(supplierRepo, storeRepo, orderRepo),
		},
		d.meter.Meter("github.com/xenking/instasupply/internal/handler"),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create handler")
	}

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", h.Routes())

	return otelhttp.NewHandler(
		httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", "Authorization", "X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:        cfg.RateLimit.Max,
				Window:     cfg.RateLimit.Window,
				TrustProxy: cfg.RateLimit.TrustProxy,
			}, redisx.NewWindowCounter(d.rdb)),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
		),
		serviceName,
		otelhttp.WithTracerProvider(d.tracer),
		otelhttp.WithMeterProvider(d.meter),
	), healthSvc, nil
}

// connect opens PostgreSQL with migrations applied and Redis.
func connect(ctx context.Context, cfg *Config) (*pgxpool.Pool, *redis.Client, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	rdb, err := redisx.New(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "connect redis")
	}
	return pool, rdb, nil
}

func newHealth(pool *pgxpool.Pool, rdb *redis.Client) *health.Health {
	h := health.New()
	h.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	h.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	h.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	h.SetReady(true)
	return h
}

// serve runs server until ctx is done, then flips readiness, waits for load
// balancers to notice, and drains connections.
func serve(ctx context.Context, lg *zap.Logger, cfg GracefulConfig, server *http.Server, h *health.Health) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		h.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.ReadinessDelay))
		time.Sleep(cfg.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
	}()

	lg.Info("Server listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
