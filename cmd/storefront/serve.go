package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_merch/internal/cache"
	"github.com/fjod/go_merch/internal/catalog"
	"github.com/fjod/go_merch/internal/checkout"
	"github.com/fjod/go_merch/internal/config"
	"github.com/fjod/go_merch/internal/consumer"
	"github.com/fjod/go_merch/internal/contact"
	"github.com/fjod/go_merch/internal/fulfillment"
	healthgrpc "github.com/fjod/go_merch/internal/grpc"
	h "github.com/fjod/go_merch/internal/http"
	"github.com/fjod/go_merch/internal/logger"
	"github.com/fjod/go_merch/internal/metrics"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/fjod/go_merch/internal/publisher"
	"github.com/fjod/go_merch/internal/storefront"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// app is the wiring shared by serve and replay.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	metrics  *metrics.Metrics
	outbound *http.Client
	relay    *fulfillment.Relay
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("error during cleanup")
		}
	}
}

func setup(ctx context.Context, configPath string) (*app, error) {
	v := config.New(configPath)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log := logger.New(os.Stdout, cfg.LogLevel, appName)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.Watch(v, func(next *config.Config, err error) {
		if err != nil {
			log.Error().Err(err).Msg("failed to reload config")
			return
		}
		lvl := logger.SetLevel(next.LogLevel)
		log.Info().Str("level", lvl.String()).Msg("log level reloaded")
	})

	a := &app{
		cfg:      cfg,
		log:      log,
		metrics:  metrics.New(),
		outbound: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}

	var store cache.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = cache.NewRedisStore(rdb, cfg.IdempotencyTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, relay idempotency is per process")
		store = cache.NewMemoryStore(cfg.IdempotencyTTL)
	}

	var deadLetter publisher.DeadLetter = publisher.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		deadLetter = publisher.NewKafkaDeadLetter(brokers...)
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, failed relays are only logged")
	}
	a.closers = append(a.closers, deadLetter.Close)

	orders := fulfillment.NewClient(cfg.FulfillmentURL, a.outbound, fulfillment.BreakerSettings{
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	})
	a.relay = fulfillment.NewRelay(orders, store, deadLetter, a.metrics, cfg.FulfillmentTimeout)
	return a, nil
}

func run(ctx context.Context, configPath string) error {
	a, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.log

	processor := newProcessor(cfg.StripeSecretKey, a.outbound, log)

	repo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Msg("catalog migrations completed")

	initiator := checkout.NewInitiator(processor, checkout.SessionConfig{
		SuccessURL:        cfg.SuccessURL(),
		CancelURL:         cfg.CancelURL(),
		ShippingCountries: cfg.ShipTo(),
	}, cfg.ProcessorTimeout)
	svc := storefront.NewService(checkout.NewRetriever(processor, cfg.ProcessorTimeout), a.relay)
	mailer := contact.NewRelay(cfg.MailRelayHost, cfg.MailRelayPort, a.outbound, cfg.ContactTimeout)

	if cfg.StripeWebhookSecret == "" {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, webhook deliveries will be rejected")
	}
	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			ContactPerMinute:   cfg.ContactRateLimitPerMin,
		},
		h.Handlers{
			Products: h.NewProductHandler(repo, cfg.RequestTimeout),
			Cart:     h.NewCartHandler(),
			Checkout: h.NewCheckoutHandler(initiator, svc, a.metrics, cfg.CancelURL()),
			Webhook:  h.NewWebhookHandler(svc, cfg.StripeWebhookSecret, a.metrics),
			Contact:  h.NewContactHandler(mailer),
		},
		a.metrics,
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	health := healthgrpc.NewServer(log)

	errCh := make(chan error, 2)
	go func() {
		if err := health.Serve(grpcLis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()
	health.SetServing(true)

	runErr := waitForShutdown(ctx, log, errCh)

	health.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	health.Stop()

	log.Info().Msg("server exited")
	return runErr
}

// newProcessor falls back to payment.Misconfigured when the key is missing
// or not a secret key.
func newProcessor(secretKey string, httpClient *http.Client, log zerolog.Logger) payment.Processor {
	p, err := payment.NewStripeProcessor(secretKey, httpClient)
	if err != nil {
		log.Error().Err(err).Msg("payment processor misconfigured, checkout will fail")
		return payment.Misconfigured{Err: err}
	}
	return p
}

// replay feeds parked orders from the dead letter topic back through the relay.
func replay(ctx context.Context, configPath string) error {
	a, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	brokers := a.cfg.Brokers()
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required to replay failed relays")
	}

	c := consumer.NewConsumer(a.relay, a.cfg.ReplayDelay, a.log, brokers...)
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.log.Info().
			Strs("brokers", brokers).
			Str("topic", publisher.DeadLetterTopic).
			Dur("delay", a.cfg.ReplayDelay).
			Msg("replaying failed relays")
		c.Run(ctx)
	}()

	err = waitForShutdown(ctx, a.log, nil)
	cancel()
	<-done
	return err
}

// waitForShutdown blocks until a signal, a listener error or ctx is done.
func waitForShutdown(ctx context.Context, log zerolog.Logger, errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("listener failed, shutting down")
		return err
	case <-ctx.Done():
		return nil
	}
}
