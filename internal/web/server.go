package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/momentum_pulse/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	coord   *usecase.TradeCoordinator
	metrics http.Handler
	logger  *zap.Logger
	timeNow func() time.Time
}

// NewServer wires the HTTP surface. A nil metrics handler leaves /metrics
// unregistered.
func NewServer(
	port int,
	coord *usecase.TradeCoordinator,
	metrics http.Handler,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:  http.NewServeMux(),
		coord:   coord,
		metrics: metrics,
		logger:  logger,
		timeNow: time.Now,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Signals
	s.router.HandleFunc("POST /webhook", s.handleWebhook)

	// Prices
	s.router.HandleFunc("POST /price", s.handlePrice)

	// Exits
	s.router.HandleFunc("POST /exit/{symbol}", s.handleExit)

	// State
	s.router.HandleFunc("GET /active-trades", s.handleActiveTrades)
	s.router.HandleFunc("GET /tracked-trades", s.handleTrackedTrades)
	s.router.HandleFunc("GET /trades", s.handleTrades)

	// Status
	s.router.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
