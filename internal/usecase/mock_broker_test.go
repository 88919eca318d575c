package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitos/momentum_pulse/internal/domain"
)

type MockBroker struct {
	mu sync.Mutex

	LookupErr    error
	PlaceErr     error
	CloseErr     error
	PositionsErr error
	Positions    []*domain.Position
	PlaceEntered chan struct{}
	PlaceBlock   chan struct{} // when set, PlaceOrder waits on it

	Placed  []domain.OrderSpec
	Closed  []domain.CloseSpec
	Lookups []string
}

func (m *MockBroker) LookupInstrument(ctx context.Context, symbol string) (*domain.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, symbol)
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	return &domain.Instrument{Symbol: symbol, Token: "tok-" + symbol}, nil
}

func (m *MockBroker) PlaceOrder(ctx context.Context, spec domain.OrderSpec) (*domain.OrderConfirmation, error) {
	if m.PlaceEntered != nil {
		m.PlaceEntered <- struct{}{}
	}
	if m.PlaceBlock != nil {
		<-m.PlaceBlock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaceErr != nil {
		return nil, m.PlaceErr
	}
	m.Placed = append(m.Placed, spec)
	return &domain.OrderConfirmation{OrderID: fmt.Sprintf("ord-%d", len(m.Placed)), Status: "complete"}, nil
}

func (m *MockBroker) ClosePosition(ctx context.Context, spec domain.CloseSpec) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloseErr != nil {
		return nil, m.CloseErr
	}
	m.Closed = append(m.Closed, spec)
	return &domain.OrderConfirmation{OrderID: fmt.Sprintf("close-%d", len(m.Closed)), Status: "complete"}, nil
}

func (m *MockBroker) GetPositions(ctx context.Context) ([]*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	return m.Positions, nil
}

func (m *MockBroker) setPositions(p []*domain.Position) {
	m.mu.Lock()
	m.Positions = p
	m.mu.Unlock()
}

func (m *MockBroker) placedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Placed)
}

func (m *MockBroker) closedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Closed)
}

type MockJournal struct {
	mu      sync.Mutex
	Records []*domain.TradeRecord
	Err     error
}

func (m *MockJournal) SaveTrade(ctx context.Context, r *domain.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, r)
	return nil
}

func (m *MockJournal) ListTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records, nil
}

type MockMetrics struct {
	mu      sync.Mutex
	Signals map[string]int
	Orders  map[string]int
	Exits   map[string]int
	Tracked int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Signals: map[string]int{}, Orders: map[string]int{}, Exits: map[string]int{}}
}

func (m *MockMetrics) ObserveSignal(status string) {
	m.mu.Lock()
	m.Signals[status]++
	m.mu.Unlock()
}

func (m *MockMetrics) ObserveOrder(result string) {
	m.mu.Lock()
	m.Orders[result]++
	m.mu.Unlock()
}

func (m *MockMetrics) ObserveExit(reason, result string) {
	m.mu.Lock()
	m.Exits[reason+"/"+result]++
	m.mu.Unlock()
}

func (m *MockMetrics) SetTrackedTrades(n int) {
	m.mu.Lock()
	m.Tracked = n
	m.mu.Unlock()
}
