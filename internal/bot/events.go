package bot

import "time"

// ============================================================
// События для презентационного слоя
// ============================================================
//
// Торговый цикл отправляет события fire-and-forget: сканер никогда
// не блокируется на медленном потребителе. Потребитель (websocket hub)
// получает read-only копии и не имеет доступа к состоянию сканера.

// EventType тип события
type EventType string

const (
	// EventBalanceUpdated - изменение баланса валюты
	EventBalanceUpdated EventType = "balanceUpdate"
	// EventLoopState - изменение состояния петли (pct, статус)
	EventLoopState EventType = "loopUpdate"
	// EventLog - строка журнала для UI
	EventLog EventType = "log"
)

// Event - одно событие торгового цикла.
// Плоская структура: поля заполняются в зависимости от Type.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// EventBalanceUpdated
	Currency string  `json:"currency,omitempty"`
	Amount   float64 `json:"amount,omitempty"`

	// EventLoopState
	LoopID string  `json:"loopId,omitempty"`
	Pct    float64 `json:"pct,omitempty"`
	Status string  `json:"status,omitempty"`

	// EventLog
	Message string `json:"message,omitempty"`
}

// EventSink принимает события торгового цикла.
// Реализация обязана не блокировать вызывающего (сброс при переполнении).
type EventSink interface {
	Publish(Event)
}

// NopSink отбрасывает все события. Используется в тестах
// и при работе без UI.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// BalanceEvent создаёт событие изменения баланса
func BalanceEvent(currency string, amount float64) Event {
	return Event{
		Type:      EventBalanceUpdated,
		Timestamp: time.Now(),
		Currency:  currency,
		Amount:    amount,
	}
}

// LoopEvent создаёт событие состояния петли
func LoopEvent(loopID string, pct float64, status string) Event {
	return Event{
		Type:      EventLoopState,
		Timestamp: time.Now(),
		LoopID:    loopID,
		Pct:       pct,
		Status:    status,
	}
}

// LogEvent создаёт событие журнала
func LogEvent(message string) Event {
	return Event{
		Type:      EventLog,
		Timestamp: time.Now(),
		Message:   message,
	}
}
