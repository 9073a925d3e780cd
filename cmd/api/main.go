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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/config"
	"github.com/harentsoaR/clinic-portal/internal/events"
	"github.com/harentsoaR/clinic-portal/internal/forms"
	"github.com/harentsoaR/clinic-portal/internal/handlers"
	"github.com/harentsoaR/clinic-portal/internal/identity"
	"github.com/harentsoaR/clinic-portal/internal/logging"
	"github.com/harentsoaR/clinic-portal/internal/metrics"
	"github.com/harentsoaR/clinic-portal/internal/services"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/store"
	"github.com/harentsoaR/clinic-portal/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "clinic-portal")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is NOT SET.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Document Store ---
	var backend store.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using the in-memory store; data is lost on exit")
		backend = store.NewMemory()
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			cancel()
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			cancel()
			logger.Fatal("failed to ping MongoDB", zap.Error(err))
		}
		mdb := store.NewMongo(client.Database(cfg.MongoDatabase))
		if err := mdb.EnsureIndexes(connectCtx); err != nil {
			logger.Warn("failed to ensure indexes", zap.Error(err))
		}
		cancel()
		defer client.Disconnect(context.Background())
		logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		backend = mdb
	}
	st := store.Instrument(backend, m)

	// --- Session Storage ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	flags := session.NewRedisFlags(rdb)

	// --- Identity Provider ---
	signer := utils.NewTokenSigner(cfg.JWTSecret, cfg.TokenTTL)
	idOpts := identity.LocalOptions{BcryptCost: cfg.BcryptCost}
	if mailer := services.NewSendGridMailer(services.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		ResetURL:  cfg.PasswordResetURL,
	}, logger); mailer != nil {
		idOpts.Mailer = mailer
	} else {
		logger.Warn("SENDGRID_API_KEY not set; password reset email is disabled")
	}
	if cfg.GoogleClientID != "" {
		idOpts.Verifier = identity.GoogleVerifier{ClientID: cfg.GoogleClientID}
	}
	provider := identity.NewLocal(st, signer, logger, idOpts)

	resolver := session.NewResolver(st, flags, logger)
	provider.Subscribe(resolver.OnChange)

	// --- Initialize Services ---
	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = events.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("events disabled", zap.Error(err))
		}
		defer publisher.Close()
	}

	var sms services.SMSSender
	if cfg.TextbeltAPIKey != "" {
		sms = services.NewTextbelt(cfg.TextbeltURL, cfg.TextbeltAPIKey)
	}
	notificationSvc := services.NewNotificationService(sms, logger)
	defer notificationSvc.Wait()

	accounts := services.NewAccounts(st, provider, publisher, m, logger)
	appointments := services.NewAppointments(st, notificationSvc, publisher, logger)
	formCtl := forms.NewController(st, logger, forms.Options{
		Credentials:   provider,
		Deleter:       accounts,
		Confirmations: session.NewTokens(rdb),
		ConfirmTTL:    cfg.DeletionConfirmTTL,
		Metrics:       m,
	})

	caches := cache.NewRegistry(cfg.TokenTTL)
	h := handlers.NewHandler(st, provider, resolver, caches, formCtl, accounts, appointments, m, logger)

	go sweep(ctx, accounts, caches, cfg.SweepInterval, cfg.SweepGrace, logger)

	// --- Gin Router ---
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	h.Routes(r, signer, flags)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// sweep replays unfinished account operations and evicts idle dashboard
// snapshots until ctx is cancelled.
func sweep(ctx context.Context, accounts *services.Accounts, caches *cache.Registry, interval, grace time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := caches.Evict(); n > 0 {
				logger.Debug("idle dashboard snapshots evicted", zap.Int("count", n))
			}
			n, err := accounts.Sweep(ctx, grace)
			if err != nil {
				logger.Warn("operation sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("operations replayed", zap.Int("count", n))
			}
		}
	}
}
