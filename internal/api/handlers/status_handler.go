package handlers

import (
	"net/http"

	"triarb/internal/bot"
)

// StatusProvider отдаёт снимок состояния сканера
type StatusProvider interface {
	Status() bot.Status
}

// StatusHandler обрабатывает запросы состояния бота.
//
// Endpoints:
// - GET /api/v1/status - текущий режим, балансы, счётчики циклов
type StatusHandler struct {
	scanner StatusProvider
}

// NewStatusHandler создает новый StatusHandler
func NewStatusHandler(scanner StatusProvider) *StatusHandler {
	return &StatusHandler{scanner: scanner}
}

// GetStatus возвращает снимок состояния сканера.
//
// GET /api/v1/status
//
// Response 200 OK:
//
//	{
//	  "mode": "simulated",
//	  "running": true,
//	  "quote_balance": 1003.1,
//	  "asset_balance": 2.0,
//	  "profit_counter": 1.1,
//	  "loops_total": 12,
//	  "loops_disabled": 1,
//	  "cycles": 420,
//	  "last_scan": "2026-08-29T12:00:00Z"
//	}
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusInternalServerError, "scanner not initialized", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.scanner.Status())
}
