package main // Entry point of the marketplace API

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/config"
	"github.com/campuswork/marketplace/internal/database"
	"github.com/campuswork/marketplace/internal/handler"
	"github.com/campuswork/marketplace/internal/kv"
	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/middleware"
	"github.com/campuswork/marketplace/internal/queue"
	"github.com/campuswork/marketplace/internal/repository"
	"github.com/campuswork/marketplace/internal/router"
	"github.com/campuswork/marketplace/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, rdb, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer closeBackend()

	var events queue.Publisher = queue.Nop{}
	if cfg.RabbitURL != "" {
		pub, err := queue.NewAMQPPublisher(cfg.RabbitURL, queue.Exchange)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			defer func() { _ = pub.Close() }()
			events = pub
		}
	}

	store := repository.NewStore(backend, cfg.KVPrefix, log.Named("store"))
	clk := clock.NewSystem()
	users := service.NewDirectory(store, cfg.BcryptCost, log.Named("users"))
	inbox := service.NewInbox(store, clk, log.Named("inbox"))
	ledger := service.NewLedger(store, users, inbox, clk, events, log.Named("ledger"))
	wallet := service.NewWallet(store, users, inbox, clk, events, log.Named("wallet"))
	chat := service.NewChat(store, clk, log.Named("chat"))
	catalog := service.NewCatalog(store, log.Named("catalog"))
	sessions := service.NewSessions(store, users, clk, cfg.AccessTTL(), log.Named("sessions"))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log.Named("http")))

	auth := middleware.JWTAuth(cfg.JWTSecret, sessions)
	limiter := middleware.RateLimit(cfg.RateLimit, rdb, log.Named("ratelimit"))
	perAccount := middleware.AccountRateLimit(cfg.RateLimit, rdb, log.Named("ratelimit"))
	hlog := log.Named("handler")

	router.RegisterRoutes(e, handler.NewHealthHandler(store, hlog))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg.JWTSecret, cfg.AccessTTL(), users, sessions, clk, hlog), auth, limiter, perAccount)
	catalogHandler := handler.NewCatalogHandler(catalog, hlog)
	router.RegisterPublic(e, catalogHandler)
	router.RegisterAccount(e,
		handler.NewNotificationHandler(inbox, cfg.PollInterval, hlog),
		handler.NewChatHandler(chat, cfg.PollInterval, hlog),
		auth)
	router.RegisterBookings(e,
		handler.NewBookingHandler(ledger, hlog),
		handler.NewWalletHandler(wallet, sessions, hlog),
		auth)
	router.RegisterFreelancer(e, catalogHandler, auth)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("storage", cfg.StorageDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("bye")
}

// openBackend connects the configured storage driver. The Redis client is
// also returned for the rate limiter; it is nil when Redis is not reachable.
func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (kv.Store, *redis.Client, func(), error) {
	switch cfg.StorageDriver {
	case "redis":
		rdb, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		return kv.NewRedis(rdb), rdb, func() { _ = rdb.Close() }, nil

	case "mysql":
		db, err := database.Open(ctx, database.Settings{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		backend := kv.NewMySQL(db)
		if err := backend.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		rdb := optionalRedis(cfg, log)
		return backend, rdb, func() {
			_ = db.Close()
			if rdb != nil {
				_ = rdb.Close()
			}
		}, nil
	}

	log.Warn("using in-memory storage, state is lost on restart")
	rdb := optionalRedis(cfg, log)
	return kv.NewMemory(), rdb, func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}, nil
}

// optionalRedis connects Redis for rate limiting only. Failure disables the
// limiter instead of stopping the server.
func optionalRedis(cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		return nil
	}
	return rdb
}
