package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/farearbitrage/internal/arbitrage"
	"github.com/dharmasatrya/farearbitrage/internal/booking"
	"github.com/dharmasatrya/farearbitrage/internal/cache"
	"github.com/dharmasatrya/farearbitrage/internal/config"
	"github.com/dharmasatrya/farearbitrage/internal/handler"
	"github.com/dharmasatrya/farearbitrage/internal/metrics"
	"github.com/dharmasatrya/farearbitrage/internal/providers"
	"github.com/dharmasatrya/farearbitrage/internal/quote"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
	"github.com/dharmasatrya/farearbitrage/internal/strategy"
)

func main() {
	cfg := config.Load()
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := initializeProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize provider: %v", err)
	}
	log.Printf("Using quote provider %s", provider.Name())

	quoteCache, err := initializeCache(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize quote cache: %v", err)
	}
	defer quoteCache.Close()

	rateLimiter := ratelimit.NewProviderLimiterWithDefaults()
	rateLimiter.SetProviderLimit(provider.Name(), cfg.ProviderRPS, cfg.ProviderBurst)

	budget := ratelimit.NewBudget(cfg.RateBudget)
	budget.StartPeriodResetter(ctx, cfg.BudgetPeriod)
	log.Printf("Rate budget: %d upstream calls (reset period: %v)", cfg.RateBudget, cfg.BudgetPeriod)

	quotes := quote.NewClient(provider, quoteCache, rateLimiter, budget, quote.Config{
		Timeout: cfg.ProviderTimeout,
	})

	search := arbitrage.NewEngine(quotes, budget, arbitrage.Config{
		Timeout: cfg.SearchTimeout,
		Strategies: strategy.Options{
			Concurrency: cfg.StrategyConcurrency,
			MaxResults:  cfg.MaxResults,
		},
	})

	store := booking.NewStore(nil)
	store.StartSweeper(ctx, cfg.SessionSweepInterval)
	bookings := booking.NewEngine(store, search, quotes, booking.Config{
		SessionTTL: cfg.SessionTTL,
	})

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(handler.Metrics())

	handler.Routes(e,
		handler.NewSearchHandler(search),
		handler.NewBookingHandler(bookings, nil),
		handler.NewBudgetHandler(budget),
	)

	go func() {
		log.Printf("Starting fare arbitrage server on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func initializeProvider(cfg *config.Config) (providers.Provider, error) {
	if cfg.ProviderURL != "" {
		return providers.NewHTTPProvider(providers.HTTPConfig{
			BaseURL: cfg.ProviderURL,
			APIKey:  cfg.ProviderAPIKey,
			Timeout: cfg.ProviderTimeout,
		}), nil
	}
	return providers.NewFixtureProvider(0)
}

func initializeCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.QuoteTTL,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("Redis quote cache enabled (host: %s:%s, TTL: %v)", cfg.RedisHost, cfg.RedisPort, cfg.QuoteTTL)
		return redisCache, nil
	case config.CacheNone:
		log.Println("Quote cache disabled")
		return cache.NewNoOpCache(), nil
	default:
		memoryCache := cache.NewMemoryCache(cache.MemoryConfig{
			TTL:        cfg.QuoteTTL,
			MaxEntries: cfg.CacheMaxEntries,
		})
		memoryCache.StartSweeper(ctx, cfg.CacheSweepInterval)
		log.Printf("In-memory quote cache enabled (TTL: %v, max entries: %d)", cfg.QuoteTTL, cfg.CacheMaxEntries)
		return memoryCache, nil
	}
}
