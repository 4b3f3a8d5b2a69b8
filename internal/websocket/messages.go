package websocket

import (
	"time"

	"triarb/internal/bot"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeLoopUpdate - обновление состояния петли (доходность, статус)
	// Отправляется на каждом цикле сканирования для каждой активной петли
	MessageTypeLoopUpdate MessageType = "loopUpdate"

	// MessageTypeBalanceUpdate - обновление баланса валюты
	// Отправляется после успешной сделки и после покупки транша
	MessageTypeBalanceUpdate MessageType = "balanceUpdate"

	// MessageTypeLog - строка журнала для панели событий UI
	MessageTypeLog MessageType = "log"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// LoopUpdateMessage - сообщение об изменении состояния петли
type LoopUpdateMessage struct {
	BaseMessage
	LoopID string  `json:"loop_id"`
	Pct    float64 `json:"pct"`
	Status string  `json:"status"` // Ready, Simulated, Executed, Disabled, RolledBack, RollbackFailed
}

// BalanceUpdateMessage - сообщение об обновлении баланса валюты
type BalanceUpdateMessage struct {
	BaseMessage
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
}

// LogMessage - строка журнала
type LogMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// MessageFromEvent конвертирует событие торгового ядра в типизированное
// WebSocket сообщение. Возвращает nil для неизвестных типов.
func MessageFromEvent(e bot.Event) interface{} {
	base := BaseMessage{Timestamp: e.Timestamp}

	switch e.Type {
	case bot.EventLoopState:
		base.Type = MessageTypeLoopUpdate
		return &LoopUpdateMessage{
			BaseMessage: base,
			LoopID:      e.LoopID,
			Pct:         e.Pct,
			Status:      e.Status,
		}
	case bot.EventBalanceUpdated:
		base.Type = MessageTypeBalanceUpdate
		return &BalanceUpdateMessage{
			BaseMessage: base,
			Currency:    e.Currency,
			Balance:     e.Amount,
		}
	case bot.EventLog:
		base.Type = MessageTypeLog
		return &LogMessage{
			BaseMessage: base,
			Message:     e.Message,
		}
	default:
		return nil
	}
}
