package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"messagely/internal/auth"
	"messagely/internal/config"
	"messagely/internal/db"
	"messagely/internal/events"
	"messagely/internal/handlers"
	"messagely/internal/middleware"
	"messagely/internal/observability"
	"messagely/internal/rabbitmq"
	"messagely/internal/repositories"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(cfg.Auth.SecretKey) == "" {
		logger.Fatalf("auth secret key is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer database.Close()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.Auth.SecretKey), time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	userRepo := repositories.NewUserRepo(database, hasher)
	messageRepo := repositories.NewMessageRepo(database)

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()
	logger.Infof("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	emitter := events.NewEmitter(publisher, "messagely", logger)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, emitter)
	userHandler := handlers.NewUserHandler(userRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, emitter)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	requireAuth := middleware.RequireAuth(tokens)
	requireSameUser := middleware.RequireSameUser(tokens)

	router.POST("/login", authHandler.Login)
	router.POST("/register", authHandler.Register)

	router.GET("/users", requireAuth, userHandler.List)
	router.GET("/users/:username", requireSameUser, userHandler.Get)
	router.GET("/users/:username/to", requireSameUser, userHandler.MessagesTo)
	router.GET("/users/:username/from", requireSameUser, userHandler.MessagesFrom)

	router.GET("/messages/:id", requireAuth, messageHandler.Get)
	router.POST("/messages", requireAuth, messageHandler.Create)
	router.POST("/messages/:id/read", requireAuth, messageHandler.MarkRead)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
}
