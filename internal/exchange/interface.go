package exchange

import "context"

// Gateway определяет контракт аутентифицированного шлюза биржи.
//
// Все сетевые операции ограничены контекстом; реализация сама добавляет
// таймаут запроса если его нет у вызывающего.
type Gateway interface {
	// FetchTickers получает верх стакана для всех спотовых пар
	FetchTickers(ctx context.Context) ([]Ticker, error)

	// PlaceOrder размещает лимитный ордер (по умолчанию immediate-or-cancel)
	// и возвращает идентификатор ордера
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)

	// GetOrderStatus возвращает статус и исполненный объём ордера
	GetOrderStatus(ctx context.Context, pair, orderID string) (*OrderStatus, error)

	// FetchBalances возвращает доступные балансы по валютам
	FetchBalances(ctx context.Context) (map[string]float64, error)
}

// Ticker - верх стакана одной пары
type Ticker struct {
	Pair string  `json:"pair"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
}

// OrderRequest - параметры размещаемого ордера
type OrderRequest struct {
	Pair     string
	Side     string // buy, sell
	Quantity float64
	Price    float64

	// Type и TimeInForce по умолчанию "limit" и "ioc"
	Type        string
	TimeInForce string
}

// OrderStatus - статус ордера на бирже
type OrderStatus struct {
	Status         string  `json:"status"` // open, closed, cancelled
	FilledQuantity float64 `json:"filled_quantity"`
}

// ExchangeError представляет ошибку, возвращённую API биржи
// (отклонение ордера, невалидная подпись и т.п.)
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return e.Exchange + ": " + e.Code + ": " + e.Message
	}
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Side constants for orders
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order status constants (значения Gate.io spot API)
const (
	OrderStatusOpen      = "open"
	OrderStatusClosed    = "closed"
	OrderStatusCancelled = "cancelled"
)
