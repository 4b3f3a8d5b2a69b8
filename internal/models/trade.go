package models

import "time"

// Режимы исполнения
const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

// TradeRecord - запись в журнале сделок о завершённой попытке исполнения.
//
// Журнал хранит только историю: бот никогда не восстанавливает из него
// своё состояние после рестарта.
type TradeRecord struct {
	ID           int       `json:"id" db:"id"`
	LoopID       string    `json:"loop_id" db:"loop_id"`
	Mode         string    `json:"mode" db:"mode"`                             // live, simulated
	Status       string    `json:"status" db:"status"`                         // SUCCESS, ROLLED_BACK, ROLLBACK_FAILED
	ProfitPct    float64   `json:"profit_pct" db:"profit_pct"`                 // ожидаемая доходность на момент триггера
	Profit       float64   `json:"profit" db:"profit"`                         // прибыль в котируемой валюте
	Leg1Filled   float64   `json:"leg1_filled" db:"leg1_filled"`
	Leg2Filled   float64   `json:"leg2_filled" db:"leg2_filled"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
