package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Stopper кооперативно останавливает торговый цикл
type Stopper interface {
	Stop()
}

// ControlHandler обрабатывает управляющие запросы.
//
// Endpoints:
// - POST /api/v1/stop - остановить сканер (защищён токеном)
type ControlHandler struct {
	scanner Stopper
	logger  *zap.Logger
}

// NewControlHandler создает новый ControlHandler
func NewControlHandler(scanner Stopper, logger *zap.Logger) *ControlHandler {
	return &ControlHandler{scanner: scanner, logger: logger}
}

// Stop выставляет флаг остановки сканера.
//
// POST /api/v1/stop
//
// Остановка кооперативная: флаг проверяется в начале каждого цикла
// сканирования, сделка в полёте доводится до конца (включая откат).
// Ответ 200 означает "остановка запрошена", не "бот остановлен".
//
// Response 200 OK:
//
//	{"message": "stop requested"}
func (h *ControlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusInternalServerError, "scanner not initialized", nil)
		return
	}

	h.scanner.Stop()
	h.logger.Info("stop requested via api", zap.String("remote", r.RemoteAddr))

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "stop requested"})
}
