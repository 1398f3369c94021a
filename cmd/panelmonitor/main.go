package panelmonitor

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dinehub/internal/panelmonitor"
	"dinehub/pkg/logger"
)

func Main() {
	addr := flag.String("addr", "localhost:3000", "host:port of the order service")
	role := flag.String("role", panelmonitor.RoleWaiter, "panel stream to watch: waiter or kitchen")
	clientID := flag.String("client-id", "", "restaurant client_id to watch (required)")
	flag.Parse()

	logger := logger.NewLogger("panel-monitor")
	logger.Info("startup", "service_started", "Panel Monitor starting")

	monitor, err := panelmonitor.NewMonitor(*addr, *role, *clientID, logger)
	if err != nil {
		logger.Error("startup", "monitor_setup_failed", "Invalid panel monitor flags", err)
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := monitor.Start(ctx); err != nil {
			logger.Error("startup", "monitor_start_failed", "Failed to start monitor", err)
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown", "graceful_shutdown", "Shutting down monitor...")
	cancel()
	monitor.Stop()

	logger.Info("shutdown", "service_stopped", "Monitor exiting")
}
