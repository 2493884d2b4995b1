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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mgreer/candy-depot/internal/adapter/handler"
	"github.com/mgreer/candy-depot/internal/adapter/storage"
	"github.com/mgreer/candy-depot/internal/core/service"
	"github.com/mgreer/candy-depot/internal/port"
)

func main() {
	viper.SetDefault("http_addr", ":4567")
	viper.SetDefault("db_path", "candy.db")
	viper.SetDefault("redis_addr", "")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("candy")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("failed to read config: %v", err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := storage.Open(viper.GetString("db_path"))
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("store opened", zap.String("path", viper.GetString("db_path")))

	var cache port.CacheRepository
	var rdb *redis.Client
	if addr := viper.GetString("redis_addr"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("restock cache enabled", zap.String("addr", addr))
	}

	inventory := service.NewInventoryService(store, cache, logger)

	mux := http.NewServeMux()
	handler.NewHTTPHandler(inventory, logger).Register(mux)

	httpServer := &http.Server{
		Addr:    viper.GetString("http_addr"),
		Handler: handler.Middleware(mux, logger),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	logger.Info("connections closed")
}
