package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/momentum_pulse/internal/domain"
	"go.uber.org/zap"
)

const (
	AliceBlueBaseURL = "https://api.aliceblueonline.com"

	defaultTimeout = 10 * time.Second
)

type Credentials struct {
	AppID       string
	APIKey      string
	AccessToken string
	UserID      string
}

// AliceBlueAdapter implements domain.Broker over the AliceBlue REST API.
type AliceBlueAdapter struct {
	creds   Credentials
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewAliceBlueAdapter(creds Credentials, baseURL string, timeout time.Duration, logger *zap.Logger) *AliceBlueAdapter {
	if baseURL == "" {
		baseURL = AliceBlueBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AliceBlueAdapter{
		creds:   creds,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// --- REST API ---

func (a *AliceBlueAdapter) sendRequest(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = jsonBody
	}

	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+a.creds.AccessToken)
	req.Header.Set("X-AppID", a.creds.AppID)
	if a.creds.APIKey != "" {
		req.Header.Set("X-API-Key", a.creds.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}

func (a *AliceBlueAdapter) LookupInstrument(ctx context.Context, symbol string) (*domain.Instrument, error) {
	resp, err := a.sendRequest(ctx, http.MethodGet, "/api/master", url.Values{"searchsymbol": {symbol}}, nil)
	if err != nil {
		return nil, err
	}

	var result []struct {
		Token         flexString `json:"token"`
		Symbol        string     `json:"symbol"`
		TradingSymbol string     `json:"trading_symbol"`
		Exchange      string     `json:"exch"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("decode instrument master: %w", err)
	}

	if len(result) == 0 || result[0].Token == "" || result[0].Token == "0" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInstrumentNotFound, symbol)
	}

	raw := result[0]
	inst := &domain.Instrument{
		Symbol:        raw.Symbol,
		Token:         string(raw.Token),
		TradingSymbol: raw.TradingSymbol,
		Exchange:      raw.Exchange,
	}
	if inst.Symbol == "" {
		inst.Symbol = symbol
	}
	return inst, nil
}

func (a *AliceBlueAdapter) PlaceOrder(ctx context.Context, spec domain.OrderSpec) (*domain.OrderConfirmation, error) {
	payload := map[string]interface{}{
		"symboltoken":     spec.Token,
		"tradingsymbol":   spec.TradingSymbol,
		"transactiontype": strings.ToUpper(string(spec.Side)),
		"ordertype":       string(domain.OrderTypeMarket),
		"quantity":        spec.Quantity,
		"price":           0,
		"stoplosses":      spec.StopLevel,
		"userid":          a.creds.UserID,
	}

	resp, err := a.sendRequest(ctx, http.MethodPost, "/api/orders/regular", nil, payload)
	if err != nil {
		return nil, err
	}

	conf, err := decodeOrderResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("aliceblue order error: %w", err)
	}
	a.logger.Info("Order placed",
		zap.String("trading_symbol", spec.TradingSymbol),
		zap.String("order_id", conf.OrderID))
	return conf, nil
}

func (a *AliceBlueAdapter) ClosePosition(ctx context.Context, spec domain.CloseSpec) (*domain.OrderConfirmation, error) {
	token := spec.Token
	if token == "" {
		inst, err := a.LookupInstrument(ctx, spec.Symbol)
		if err != nil {
			return nil, err
		}
		token = inst.Token
	}

	side := spec.Side
	if side == "" {
		side = domain.SideSell
	}
	qty := spec.Quantity
	if qty <= 0 {
		qty = 1
	}

	payload := map[string]interface{}{
		"symboltoken":     token,
		"transactiontype": string(side),
		"ordertype":       string(domain.OrderTypeMarket),
		"quantity":        qty,
		"userid":          a.creds.UserID,
	}
	if spec.TradingSymbol != "" {
		payload["tradingsymbol"] = spec.TradingSymbol
	}

	resp, err := a.sendRequest(ctx, http.MethodPost, "/api/orders/regular", nil, payload)
	if err != nil {
		return nil, err
	}

	conf, err := decodeOrderResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("aliceblue close error: %w", err)
	}
	a.logger.Info("Position closed", zap.String("symbol", spec.Symbol), zap.String("order_id", conf.OrderID))
	return conf, nil
}

func (a *AliceBlueAdapter) GetPositions(ctx context.Context) ([]*domain.Position, error) {
	resp, err := a.sendRequest(ctx, http.MethodGet, "/api/positions", url.Values{"userid": {a.creds.UserID}}, nil)
	if err != nil {
		return nil, err
	}

	var result []struct {
		Symbol        string     `json:"Symbol"`
		TradingSymbol string     `json:"Tsym"`
		Token         flexString `json:"Token"`
		NetQty        string     `json:"Netqty"`
		AvgPrice      string     `json:"NetBuyavgprc"`
		LastPrice     string     `json:"LTP"`
		UnrealisedPnl string     `json:"unrealisedprofitloss"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	positions := make([]*domain.Position, 0, len(result))
	for _, raw := range result {
		qty, _ := strconv.Atoi(raw.NetQty)
		avg := parsePrice(raw.AvgPrice)
		ltp := parsePrice(raw.LastPrice)
		pnl := parsePrice(raw.UnrealisedPnl)

		positions = append(positions, &domain.Position{
			Symbol:        raw.Symbol,
			TradingSymbol: raw.TradingSymbol,
			Token:         string(raw.Token),
			Quantity:      qty,
			AveragePrice:  avg,
			LastPrice:     ltp,
			UnrealizedPnL: pnl,
		})
	}
	return positions, nil
}

// parsePrice reads a broker price field. Unparsable and non-finite values
// read as zero.
func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(string(data))
	return nil
}

type orderResponse struct {
	Stat    string `json:"stat"`
	OrderID string `json:"NOrdNo"`
	Message string `json:"emsg"`
}

// decodeOrderResponse accepts both the single object and the one-element
// array forms the order endpoint returns.
func decodeOrderResponse(body []byte) (*domain.OrderConfirmation, error) {
	var r orderResponse
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []orderResponse
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("empty order response")
		}
		r = list[0]
	} else if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, err
	}

	if strings.EqualFold(r.Stat, "Not_Ok") {
		return nil, fmt.Errorf("%s", r.Message)
	}
	return &domain.OrderConfirmation{OrderID: r.OrderID, Status: r.Stat, Message: r.Message}, nil
}
