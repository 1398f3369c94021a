package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dinehub/internal/notify"
	"dinehub/internal/notify/hub"
	"dinehub/internal/notify/relay"
	"dinehub/internal/orderservice/db"
	"dinehub/internal/orderservice/handler"
	"dinehub/internal/orderservice/service"
	"dinehub/internal/orderservice/ws"
	"dinehub/internal/tenant"
	"dinehub/pkg/config"
	pkgdb "dinehub/pkg/db"
	"dinehub/pkg/logger"
	"dinehub/pkg/rabbitmq"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	port   int
	config *config.Config
	logger *logger.Logger

	httpServer  *http.Server
	dbPool      *pgxpool.Pool
	rabbitMQ    *rabbitmq.RabbitMQ
	broadcaster notify.Broadcaster
	panels      *ws.Handler

	relayGroup  *errgroup.Group
	relayCancel context.CancelFunc
}

func NewServer(port int, cfg *config.Config, log *logger.Logger) *Server {
	return &Server{
		port:   port,
		config: cfg,
		logger: log,
	}
}

func (s *Server) Start() error {
	pool, err := pkgdb.ConnectDB(&s.config.Database, s.logger)
	if err != nil {
		return err
	}
	s.dbPool = pool

	// The local hub serves a single instance. With the relay enabled,
	// events also travel through RabbitMQ so panels on other instances
	// see them too.
	localHub := hub.New(s.logger)
	s.broadcaster = localHub
	if s.config.Notifications.RelayEnabled {
		rm, err := rabbitmq.ConnectRabbitMQ(&s.config.RabbitMQ, s.logger)
		if err != nil {
			return err
		}
		s.rabbitMQ = rm

		r, err := relay.New(localHub, rm, s.config.Notifications.Exchange, s.logger)
		if err != nil {
			return err
		}
		s.broadcaster = r

		ctx, cancel := context.WithCancel(context.Background())
		s.relayCancel = cancel
		s.relayGroup, ctx = errgroup.WithContext(ctx)
		s.relayGroup.Go(func() error {
			return r.Run(ctx)
		})
	}

	orderStore := db.NewOrderDB(s.dbPool, s.logger)
	registry := tenant.NewRegistry(s.dbPool, s.logger)
	orderService := service.NewOrderService(orderStore, registry, s.broadcaster, s.logger)

	orderHandler := handler.NewOrderHandler(orderService, registry, s.logger)
	s.panels = ws.NewHandler(registry, s.broadcaster, s.config.Notifications.SendBuffer, s.logger)

	mux := http.NewServeMux()
	orderHandler.Register(mux)
	s.panels.Register(mux)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("startup", "server_started", fmt.Sprintf("Order Service started on port %d", s.port))
	return s.httpServer.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status": "healthy", "service": "order-service"}`)
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	// Shutdown does not wait for upgraded connections.
	if s.panels != nil {
		s.panels.CloseAll()
	}

	if s.relayCancel != nil {
		s.relayCancel()
		if err := s.relayGroup.Wait(); err != nil {
			s.logger.Warn("shutdown", "relay_stopped", "Relay exited with error", err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}
	if s.rabbitMQ != nil {
		s.rabbitMQ.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	return shutdownErr
}
