package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/everkeep/backend/config"
	"github.com/everkeep/backend/internal/api/handler"
	"github.com/everkeep/backend/internal/feedcache"
	"github.com/everkeep/backend/internal/repository"
	"github.com/everkeep/backend/internal/service"
	"github.com/everkeep/backend/pkg/database"
	"github.com/everkeep/backend/pkg/logger"
	"github.com/everkeep/backend/pkg/middleware"
	"github.com/everkeep/backend/pkg/response"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Server.Mode); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		logger.Error("database open failed", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// The feed service degrades to uncached reads, so a down cache is
		// only worth a warning at startup.
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	contentRepo := repository.NewContentRepository(db)
	statementRepo := repository.NewStatementRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	memorialRepo := repository.NewMemorialRepository(db)

	cacheStore := feedcache.NewStore(rdb, cfg.Redis.Timeout)
	builder := service.NewFeedBuilder(contentRepo, cfg.Feed)
	prefs := service.NewPreferenceSource(likeRepo, followRepo, contentRepo, memorialRepo, cfg.Feed)
	renderer := service.NewRenderer()
	feedService := service.NewFeedService(cfg.Feed, cacheStore, builder, contentRepo, statementRepo, memorialRepo, prefs, renderer)
	contentService := service.NewContentService(contentRepo, likeRepo, feedService)

	rebuilder := service.NewLaneRebuilder(feedService, cfg.Feed.RebuildQueueSize)
	stopRebuilder := rebuilder.Start(cfg.Feed.RebuildWorkers)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
	engine.Use(middleware.Identity(cfg.Auth.JWTSecret))

	h := handler.New(feedService, contentService, rebuilder)
	v1 := engine.Group("/api/v1")
	{
		v1.GET("/feeds/:lane", h.GetLane)
		v1.POST("/statements", h.RecordStatement)
		v1.POST("/memorials/:id/feed/rebuild", h.RebuildMemorialLane)
		v1.POST("/posts", h.CreatePost)
		v1.POST("/posts/:id/publish", h.PublishPost)
		v1.POST("/posts/:id/like", h.LikePost)
		v1.DELETE("/posts/:id/like", h.UnlikePost)
		v1.POST("/posts/:id/impression", h.RecordImpression)
	}
	engine.GET("/healthz", func(c *gin.Context) { response.Success(c, gin.H{"status": "ok"}) })

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	_ = stopRebuilder(ctx)
	_ = rdb.Close()
	logger.Info("server stopped")
}
