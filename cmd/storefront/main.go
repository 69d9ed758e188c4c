package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cache"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
	storefrontHttp "github.com/vasiliy-maslov/ecommerce-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/payment"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	switch flag.Arg(0) {
	case "", "serve":
		err = serve(cfg)
	case "seed":
		err = seed(cfg, flag.Args()[1:])
	default:
		err = fmt.Errorf("unknown command %q (want serve or seed)", flag.Arg(0))
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Storefront exited with error")
	}
}

func setupLogger(app config.AppConfig) {
	level, err := zerolog.ParseLevel(app.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if app.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = log.With().Str("service", "storefront").Logger()
}

func openDatabase(cfg *config.Config) (*db.Postgres, error) {
	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return db.New(ctx, cfg.Postgres)
}

func serve(cfg *config.Config) error {
	log.Info().Msg("Storefront starting...")

	pg, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()

	var catalogRepo catalog.Repository = catalog.NewRepository(pg.SQLX)
	var invalidator checkout.CacheInvalidator
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(context.Background(), cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, serving catalog without cache")
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close redis client")
				}
			}()
			cached := cache.NewCachedRepository(catalogRepo, rdb, cfg.Redis.TTL)
			catalogRepo = cached
			invalidator = cached
		}
	}

	customerRepo := customer.NewRepository(pg.Pool)
	revocations := auth.NewRevocationStore(pg.Pool)

	purgeCtx, cancelPurge := context.WithTimeout(context.Background(), 5*time.Second)
	if purged, err := revocations.PurgeExpired(purgeCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to purge expired token revocations")
	} else if purged > 0 {
		log.Info().Int64("purged", purged).Msg("Expired token revocations purged")
	}
	cancelPurge()

	services := storefrontHttp.Services{
		Catalog:   catalog.NewService(catalogRepo),
		Cart:      cart.NewService(cart.NewRepository(pg.Pool)),
		Orders:    order.NewService(order.NewRepository(pg.Pool)),
		Customers: customer.NewService(customerRepo),
		Auth:      auth.NewService(customerRepo, revocations, auth.NewTokenManager(cfg.Auth)),
		Checkout: checkout.NewService(
			checkout.NewPostgresStore(pg.Pool),
			customerRepo,
			payment.NewRandomAuthorizer(cfg.Payment.DenialRate, nil),
			invalidator,
		),
	}
	limiter := storefrontHttp.NewIPRateLimiter(cfg.Auth.RateRPS, cfg.Auth.RateBurst)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      storefrontHttp.NewRouter(services, limiter, cfg.App.TrustProxy),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("could not listen on %s: %w", cfg.App.Port, err)
	case <-stopCh:
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("Storefront stopped gracefully.")
	return nil
}

func seed(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	file := fs.String("file", "products.yaml", "YAML file with the products to create")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	products, err := catalog.ParseSeed(f)
	if err != nil {
		return err
	}

	pg, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, err := catalog.Seed(ctx, catalog.NewService(catalog.NewRepository(pg.SQLX)), products)
	log.Info().Int("created", created).Int("total", len(products)).Str("file", *file).Msg("Catalog seeded")
	return err
}
