package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphbill/graphbill/internal/billing"
	"github.com/graphbill/graphbill/internal/config"
	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/payments"
	"github.com/graphbill/graphbill/internal/store"
	"github.com/graphbill/graphbill/internal/web"
	"github.com/graphbill/graphbill/internal/webhooks"
)

var serveDevLogs bool

func init() {
	serveCmd.Flags().BoolVar(&serveDevLogs, "dev-logs", false, "Use human-readable console logging")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and webhook consumer",
	Long:  "Connect to Neo4j and Redis, then serve the JSON:API surface and the provider webhook endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log, err := newLogger(serveDevLogs)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.close(context.Background())

		worker := webhooks.NewWorker(app.dispatcher, app.retries, cfg.Webhooks.RedeliverInterval, log)
		go worker.Run(ctx)

		server := web.NewServer(cfg.Server.Addr(), app.api.Routes(), log)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

// app bundles the wired services so serve and sync share construction.
type app struct {
	store      *store.Store
	rdb        *redis.Client
	syncer     *payments.Syncer
	retries    *webhooks.RetryStore
	dispatcher *webhooks.Dispatcher
	api        *web.API
}

func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	st, err := store.New(ctx, store.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}
	if err := st.EnsureConstraints(ctx, billing.Labels()); err != nil {
		st.Close(ctx)
		return nil, fmt.Errorf("ensuring constraints: %w", err)
	}

	registry := graph.NewRegistry()
	if err := billing.RegisterTypes(registry); err != nil {
		st.Close(ctx)
		return nil, err
	}
	engine := graph.NewEngine(registry)

	customers := billing.NewCustomerRepository(st, engine)
	products := billing.NewProductRepository(st, engine)
	prices := billing.NewPriceRepository(st, engine)
	subscriptions := billing.NewSubscriptionRepository(st, engine)
	invoices := billing.NewInvoiceRepository(st, engine)

	provider := payments.NewStripeAPI(cfg.Provider.APIKey)
	syncer := payments.NewSyncer(provider, customers, products, prices, subscriptions, invoices, log)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	retries := webhooks.NewRetryStore(rdb, cfg.Webhooks.AttemptTTL)
	dispatcher := webhooks.NewDispatcher(retries, cfg.Webhooks.MaxAttempts, log)
	webhooks.RegisterSyncHandlers(dispatcher, syncer)

	api := web.NewAPI(customers, products, prices, subscriptions, invoices,
		dispatcher, cfg.Provider.WebhookSecret, log)
	if cfg.Server.RateLimit > 0 {
		api.WithRateLimiter(web.NewRateLimiter(rdb, cfg.Server.RateLimit, cfg.Server.RateWindow))
	}

	return &app{
		store:      st,
		rdb:        rdb,
		syncer:     syncer,
		retries:    retries,
		dispatcher: dispatcher,
		api:        api,
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.rdb.Close()
	a.store.Close(ctx)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
