package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vitos/momentum_pulse/internal/domain"
	"go.uber.org/zap"
)

const (
	maxBodyBytes      = 1 << 20
	defaultTradeLimit = 50
	maxTradeLimit     = 1000
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}

// errorStatus maps coordinator errors onto HTTP codes.
func errorStatus(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSymbolBusy):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	s.logger.Info("Webhook received", zap.ByteString("payload", body))

	sig, err := domain.DecodeSignal(body)
	if err != nil {
		s.logger.Warn("Invalid signal", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.coord.OnSignal(r.Context(), sig)
	if err != nil {
		s.logger.Error("Webhook error", zap.String("symbol", sig.Symbol), zap.Error(err))
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Price <= 0 {
		s.writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	d, ok, err := s.coord.OnPriceUpdate(r.Context(), req.Symbol, req.Price)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no tracked trade for "+req.Symbol)
		return
	}
	if err != nil {
		s.logger.Error("Stop loss exit failed", zap.String("symbol", req.Symbol), zap.Error(err))
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	res, err := s.coord.ManualExit(r.Context(), symbol)
	if err != nil {
		s.logger.Error("Exit error", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleActiveTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"active_trades": s.coord.ListActive()})
}

func (s *Server) handleTrackedTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tracked_trades": s.coord.ListTracked()})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTradeLimit)
	}

	trades, err := s.coord.ListTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      s.timeNow().Format(time.RFC3339),
		"dry_run":        s.coord.DryRun(),
		"tracked_trades": len(s.coord.ListTracked()),
	})
}
