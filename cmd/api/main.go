package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"deal-fit/internal/config"
	"deal-fit/internal/db"
	apihttp "deal-fit/internal/http"
	"deal-fit/internal/repository"
	"deal-fit/internal/service"
	"deal-fit/internal/upstream"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var archives []service.DocumentArchive
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()

		ctxDB, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.Ping(ctxDB, pool); err != nil {
			logger.Warn("pitch deck archive disabled: db ping", zap.Error(err))
		} else if err := db.EnsureSchema(ctxDB, pool); err != nil {
			logger.Warn("pitch deck archive disabled: schema", zap.Error(err))
		} else {
			archives = append(archives, repository.NewPgDocumentRepository(pool))
		}
		cancel()
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			archives = append(archives, service.NewRedisDocumentArchive(redisClient, cfg.ArchiveTTL))
		}
		cancel()
	}

	upstreamClient := upstream.NewHTTPClient(cfg.APIURL, nil, logger)
	queryGW := service.NewQueryGateway(upstreamClient, cfg.IsProduction(), cfg.UpstreamTimeout, logger)
	uploadGW := service.NewUploadGateway(upstreamClient, cfg.MaxUploadBytes, service.NewMultiArchive(archives...), logger)

	if decision := queryGW.Degraded(); decision.Degraded() {
		logger.Warn("matching service not configured, serving canned responses",
			zap.String("mode", decision.Mode.String()),
			zap.String("reason", decision.Reason),
		)
	}

	metrics := apihttp.NewMetrics()
	chatHandler := apihttp.NewChatHandler(logger, queryGW, metrics)
	uploadHandler := apihttp.NewUploadHandler(logger, uploadGW, cfg.MaxUploadBytes, metrics)
	infoHandler := apihttp.NewInfoHandler(cfg.AppEnv, cfg.SchedulingURL, queryGW.Degraded)
	router := apihttp.NewRouter(logger, metrics, chatHandler, uploadHandler, infoHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("env", cfg.AppEnv),
		zap.String("upstream", upstreamClient.Endpoint()),
		zap.Int("archives", len(archives)),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
