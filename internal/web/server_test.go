package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/momentum_pulse/internal/domain"
	"github.com/vitos/momentum_pulse/internal/infrastructure/storage"
	"github.com/vitos/momentum_pulse/internal/usecase"
	"go.uber.org/zap"
)

type MockBroker struct {
	mu       sync.Mutex
	PlaceErr error
	CloseErr error
	Placed   []domain.OrderSpec
	Closed   []domain.CloseSpec
}

func (m *MockBroker) LookupInstrument(ctx context.Context, symbol string) (*domain.Instrument, error) {
	return &domain.Instrument{Symbol: symbol, Token: "tok-" + symbol}, nil
}

func (m *MockBroker) PlaceOrder(ctx context.Context, spec domain.OrderSpec) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaceErr != nil {
		return nil, m.PlaceErr
	}
	m.Placed = append(m.Placed, spec)
	return &domain.OrderConfirmation{OrderID: "ord-1", Status: "Ok"}, nil
}

func (m *MockBroker) ClosePosition(ctx context.Context, spec domain.CloseSpec) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloseErr != nil {
		return nil, m.CloseErr
	}
	m.Closed = append(m.Closed, spec)
	return &domain.OrderConfirmation{OrderID: "close-1", Status: "Ok"}, nil
}

func (m *MockBroker) GetPositions(ctx context.Context) ([]*domain.Position, error) {
	return nil, nil
}

type neverOpen struct{}

func (neverOpen) IsOpen(time.Time) bool { return false }

type testEnv struct {
	broker *MockBroker
	coord  *usecase.TradeCoordinator
	srv    *Server
}

func newTestEnv(t *testing.T, dryRun bool, calendar domain.TradingCalendar) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broker := &MockBroker{}
	engine := usecase.NewTrailingStopEngine(zap.NewNop())
	coord := usecase.NewTradeCoordinator(broker, engine, calendar, store, nil, zap.NewNop(), dryRun)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics")) })
	return &testEnv{broker: broker, coord: coord, srv: NewServer(0, coord, metrics, zap.NewNop())}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const niftySignal = `{"symbol":"NIFTY","option_type":"CE","strike":"24000","qty":50,"sl_percent":10}`

func TestWebhook_PlacesOrder(t *testing.T) {
	env := newTestEnv(t, false, usecase.AlwaysOpen{})

	rec, out := env.do(t, http.MethodPost, "/webhook", niftySignal)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])

	order := out["order"].(map[string]interface{})
	assert.Equal(t, "ord-1", order["confirmation"].(map[string]interface{})["order_id"])
	assert.Equal(t, 21600.0, order["order"].(map[string]interface{})["sl_level"])

	trade := out["trade"].(map[string]interface{})
	assert.Equal(t, 24000.0, trade["entry_price"])
	assert.Equal(t, 21600.0, trade["current_sl"])
	require.Len(t, env.broker.Placed, 1)
}

func TestWebhook_Simulated(t *testing.T) {
	env := newTestEnv(t, true, usecase.AlwaysOpen{})

	rec, out := env.do(t, http.MethodPost, "/webhook", niftySignal)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "simulated", out["status"])
	assert.Empty(t, env.broker.Placed)
}

func TestWebhook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		placeErr   error
		wantStatus int
		wantMsg    string
	}{
		{name: "not json", body: `nope`, wantStatus: http.StatusBadRequest, wantMsg: "body"},
		{name: "missing field", body: `{"symbol":"NIFTY","option_type":"CE","strike":"1","qty":1}`, wantStatus: http.StatusBadRequest, wantMsg: "sl_percent"},
		{name: "bad option type", body: `{"symbol":"NIFTY","option_type":"XX","strike":"1","qty":1,"sl_percent":5}`, wantStatus: http.StatusBadRequest, wantMsg: "option_type"},
		{name: "broker failure", body: niftySignal, placeErr: errors.New("gateway timeout"), wantStatus: http.StatusBadGateway, wantMsg: "gateway timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false, usecase.AlwaysOpen{})
			env.broker.PlaceErr = tt.placeErr

			rec, out := env.do(t, http.MethodPost, "/webhook", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "error", out["status"])
			assert.Contains(t, out["message"], tt.wantMsg)
			assert.Empty(t, env.coord.ListActive())
		})
	}
}

func TestWebhook_OutsideWindowRejected(t *testing.T) {
	env := newTestEnv(t, false, neverOpen{})

	rec, out := env.do(t, http.MethodPost, "/webhook", niftySignal)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", out["status"])
	assert.Equal(t, usecase.ReasonOutsideWindow, out["reason"])
	assert.Empty(t, env.broker.Placed)
}

func TestPrice_TrailsThenCloses(t *testing.T) {
	env := newTestEnv(t, false, usecase.AlwaysOpen{})
	rec, _ := env.do(t, http.MethodPost, "/webhook", niftySignal)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := env.do(t, http.MethodPost, "/price", `{"symbol":"NIFTY","price":25000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hold", out["action"])
	assert.Equal(t, 22500.0, out["current_sl"])

	rec, out = env.do(t, http.MethodPost, "/price", `{"symbol":"NIFTY","price":22400}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "close", out["action"])
	assert.Equal(t, domain.ReasonStopLoss, out["reason"])

	require.Len(t, env.broker.Closed, 1)
	assert.Equal(t, domain.SideSell, env.broker.Closed[0].Side)
	assert.Equal(t, 50, env.broker.Closed[0].Quantity)

	_, out = env.do(t, http.MethodGet, "/active-trades", "")
	assert.Empty(t, out["active_trades"])

	rec, out = env.do(t, http.MethodGet, "/trades?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	trades := out["trades"].([]interface{})
	require.Len(t, trades, 2)
	assert.Equal(t, "close", trades[0].(map[string]interface{})["event"])
	assert.Equal(t, "open", trades[1].(map[string]interface{})["event"])
}

func TestPrice_Errors(t *testing.T) {
	env := newTestEnv(t, false, usecase.AlwaysOpen{})

	rec, _ := env.do(t, http.MethodPost, "/price", `{"symbol":"NIFTY","price":100}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/price", `{"symbol":"NIFTY","price":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/price", `{"price":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/price", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrice_CloseFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, false, usecase.AlwaysOpen{})
	env.do(t, http.MethodPost, "/webhook", niftySignal)
	env.broker.CloseErr = errors.New("rejected by exchange")

	rec, out := env.do(t, http.MethodPost, "/price", `{"symbol":"NIFTY","price":1000}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, out["message"], "rejected by exchange")
	assert.Contains(t, env.coord.ListActive(), "NIFTY")
}

func TestExit(t *testing.T) {
	env := newTestEnv(t, false, usecase.AlwaysOpen{})

	rec, out := env.do(t, http.MethodPost, "/exit/NIFTY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_active_trade", out["status"])

	env.do(t, http.MethodPost, "/webhook", niftySignal)

	env.broker.CloseErr = errors.New("down")
	rec, _ = env.do(t, http.MethodPost, "/exit/NIFTY", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	env.broker.CloseErr = nil
	rec, out = env.do(t, http.MethodPost, "/exit/NIFTY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, domain.ReasonManual, out["reason"])

	_, out = env.do(t, http.MethodGet, "/tracked-trades", "")
	assert.Empty(t, out["tracked_trades"])
}

func TestTrades_BadLimit(t *testing.T) {
	env := newTestEnv(t, false, usecase.AlwaysOpen{})
	for _, q := range []string{"abc", "0", "-3"} {
		rec, _ := env.do(t, http.MethodGet, "/trades?limit="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, true, usecase.AlwaysOpen{})
	env.do(t, http.MethodPost, "/webhook", niftySignal)

	rec, out := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, true, out["dry_run"])
	assert.Equal(t, 1.0, out["tracked_trades"])

	rec, _ = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())

	rec, _ = env.do(t, http.MethodGet, "/webhook", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
