package orderservice

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dinehub/cmd/orderservice/server"
	"dinehub/pkg/config"
	"dinehub/pkg/logger"
)

func Main() {
	port := flag.Int("port", 3000, "HTTP port for the API")
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	logger := logger.NewLogger("order-service")
	logger.Info("startup", "service_started", "Order Service starting")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("startup", "config_load_failed", "Failed to load configuration", err)
		log.Fatal(err)
	}

	srv := server.NewServer(*port, cfg, logger)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("startup", "server_start_failed", "Failed to start server", err)
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown", "graceful_shutdown", "Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "shutdown_failed", "Server forced to shutdown", err)
		log.Fatal(err)
	}

	logger.Info("shutdown", "service_stopped", "Server exiting")
}
