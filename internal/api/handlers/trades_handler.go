package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"triarb/internal/models"
	"triarb/internal/repository"
)

// TradeHistory читает журнал завершённых попыток
type TradeHistory interface {
	GetRecent(ctx context.Context, limit int) ([]*models.TradeRecord, error)
	GetByID(ctx context.Context, id int) (*models.TradeRecord, error)
	TotalProfit(ctx context.Context) (float64, error)
}

// TradesHandler обрабатывает запросы истории сделок.
//
// Endpoints:
// - GET /api/v1/trades?limit=50 - последние сделки, новые первыми
// - GET /api/v1/trades/{id} - одна сделка по идентификатору
// - GET /api/v1/trades/profit - суммарная прибыль успешных сделок
//
// Доступен только при включённом журнале (DB_ENABLED).
type TradesHandler struct {
	history TradeHistory
}

// NewTradesHandler создает новый TradesHandler
func NewTradesHandler(history TradeHistory) *TradesHandler {
	return &TradesHandler{history: history}
}

// GetTrades возвращает последние сделки.
//
// GET /api/v1/trades?limit=50
//
// Query Parameters:
// - limit (optional): количество записей (по умолчанию 50, максимум 500)
//
// Response 200 OK:
//
//	[
//	  {
//	    "id": 2,
//	    "loop_id": "ETH_USDT→BTC_ETH→BTC_USDT",
//	    "mode": "live",
//	    "status": "SUCCESS",
//	    "profit_pct": 0.0031,
//	    "profit": 3.1,
//	    ...
//	  }
//	]
func (h *TradesHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal disabled", nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
		if limit > 500 {
			limit = 500
		}
	}

	trades, err := h.history.GetRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trades", err)
		return
	}

	// Пустой журнал отдаём как [], а не null
	if trades == nil {
		trades = []*models.TradeRecord{}
	}

	writeJSON(w, http.StatusOK, trades)
}

// GetTrade возвращает одну сделку по идентификатору.
//
// GET /api/v1/trades/{id}
//
// Response 200 OK: запись журнала
// Response 404 Not Found: {"error": "trade not found"}
func (h *TradesHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal disabled", nil)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer", nil)
		return
	}

	trade, err := h.history.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			writeError(w, http.StatusNotFound, "trade not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get trade", err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// GetTotalProfit возвращает суммарную прибыль успешных сделок.
//
// GET /api/v1/trades/profit
//
// Response 200 OK:
//
//	{"total_profit": 46.85}
func (h *TradesHandler) GetTotalProfit(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal disabled", nil)
		return
	}

	total, err := h.history.TotalProfit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get total profit", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{"total_profit": total})
}
