package bot

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"triarb/internal/exchange"
)

// fakeGateway - программируемый шлюз для тестов торгового ядра
type fakeGateway struct {
	fetchTickers   func(ctx context.Context) ([]exchange.Ticker, error)
	placeOrder     func(ctx context.Context, req exchange.OrderRequest) (string, error)
	getOrderStatus func(ctx context.Context, pair, orderID string) (*exchange.OrderStatus, error)
	fetchBalances  func(ctx context.Context) (map[string]float64, error)

	mu     sync.Mutex
	placed []exchange.OrderRequest
}

func (f *fakeGateway) FetchTickers(ctx context.Context) ([]exchange.Ticker, error) {
	if f.fetchTickers == nil {
		return nil, errors.New("fetchTickers not stubbed")
	}
	return f.fetchTickers(ctx)
}

func (f *fakeGateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (string, error) {
	f.mu.Lock()
	f.placed = append(f.placed, req)
	f.mu.Unlock()

	if f.placeOrder == nil {
		return "order-1", nil
	}
	return f.placeOrder(ctx, req)
}

func (f *fakeGateway) GetOrderStatus(ctx context.Context, pair, orderID string) (*exchange.OrderStatus, error) {
	if f.getOrderStatus == nil {
		return &exchange.OrderStatus{Status: exchange.OrderStatusClosed}, nil
	}
	return f.getOrderStatus(ctx, pair, orderID)
}

func (f *fakeGateway) FetchBalances(ctx context.Context) (map[string]float64, error) {
	if f.fetchBalances == nil {
		return map[string]float64{}, nil
	}
	return f.fetchBalances(ctx)
}

// placedOrders возвращает копию размещённых ордеров
func (f *fakeGateway) placedOrders() []exchange.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]exchange.OrderRequest, len(f.placed))
	copy(out, f.placed)
	return out
}

// captureSink собирает опубликованные события
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// loopStatuses возвращает статусы событий EventLoopState для петли
func (s *captureSink) loopStatuses(loopID string) []string {
	var out []string
	for _, e := range s.all() {
		if e.Type == EventLoopState && e.LoopID == loopID {
			out = append(out, e.Status)
		}
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
