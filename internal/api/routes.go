package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"triarb/internal/api/handlers"
	"triarb/internal/api/middleware"
	"triarb/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Scanner interface {
		handlers.StatusProvider
		handlers.Stopper
	}
	Trades handlers.TradeHistory // nil при выключенном журнале
	Hub    *websocket.Hub
	Logger *zap.Logger

	// ControlTokenHash - bcrypt-хеш токена для управляющих endpoints
	ControlTokenHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения.
//
// Структура маршрутов:
//
//	/health              - liveness probe
//	/metrics             - Prometheus метрики
//	/ws/stream           - WebSocket для real-time обновлений UI
//	/api/v1/
//	├── GET  /status         - снимок состояния сканера
//	├── GET  /trades         - последние сделки из журнала
//	├── GET  /trades/profit  - суммарная прибыль
//	└── POST /stop           - остановить бот (bcrypt-токен)
//
// Middleware: Recovery и Logging на всех маршрутах, CORS на /api/v1,
// ControlAuth только на управляющих.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.CORS())

	statusHandler := handlers.NewStatusHandler(deps.Scanner)
	api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET", "OPTIONS")

	tradesHandler := handlers.NewTradesHandler(deps.Trades)
	api.HandleFunc("/trades", tradesHandler.GetTrades).Methods("GET", "OPTIONS")
	api.HandleFunc("/trades/profit", tradesHandler.GetTotalProfit).Methods("GET", "OPTIONS")
	api.HandleFunc("/trades/{id:[0-9]+}", tradesHandler.GetTrade).Methods("GET", "OPTIONS")

	// Управляющие endpoints за отдельным auth middleware
	control := api.PathPrefix("").Subrouter()
	control.Use(middleware.ControlAuth(deps.ControlTokenHash, deps.Logger))

	controlHandler := handlers.NewControlHandler(deps.Scanner, deps.Logger)
	control.HandleFunc("/stop", controlHandler.Stop).Methods("POST")

	return router
}
