package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/mizutanik/postbox/internal/config"
	"github.com/mizutanik/postbox/internal/feed"
	"github.com/mizutanik/postbox/internal/handler"
	"github.com/mizutanik/postbox/internal/middleware"
	"github.com/mizutanik/postbox/internal/model/message"
	"github.com/mizutanik/postbox/internal/session"
	"github.com/mizutanik/postbox/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := newStore(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open submission store: %v", err)
	}

	// Rate limiting is optional; without Redis the form simply runs
	// unthrottled.
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("warning: redis unreachable, rate limiting degraded: %v", err)
		}
		limiter = middleware.NewRateLimiter(client, cfg.RateLimit.PerMinute)
		log.Printf("rate limiting enabled: %d submissions per minute per client", cfg.RateLimit.PerMinute)
	} else {
		log.Println("REDIS_ADDR not set, rate limiting disabled")
	}

	sessions, err := session.New(cfg.Session)
	if err != nil {
		log.Fatalf("failed to build session store: %v", err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("failed to parse templates: %v", err)
	}

	hub := feed.NewHub()
	defer hub.Close()

	router, err := handler.NewRouter(cfg, renderer, sessions, store, hub, limiter)
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	startServer(ctx, cfg.Server, router)
}

// newStore selects the submission store by driver. A postgres store that
// cannot be reached is a boot failure; the memory store never fails.
func newStore(cfg config.StoreConfig) (message.Store, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		store, err := message.OpenPostgres(cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		log.Println("submission store: postgres")
		return store, nil
	default:
		log.Println("submission store: in-memory (submissions reset on restart)")
		return message.NewMemoryStore(), nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("postbox listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
