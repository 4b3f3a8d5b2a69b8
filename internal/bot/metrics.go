package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений (ROLLBACK_FAILED, отключённые петли)

// ============ Метрики цикла сканирования ============

// ScanCycleDuration - длительность одного цикла сканирования всех петель
var ScanCycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "scanner",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full scan cycle over all loops",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
)

// TickerRefreshDuration - длительность обновления снапшота тикеров
var TickerRefreshDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "scanner",
		Name:      "ticker_refresh_duration_seconds",
		Help:      "Duration of a ticker snapshot refresh",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
)

// LoopsActive - количество активных (не отключённых) петель
var LoopsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "scanner",
		Name:      "loops_active",
		Help:      "Number of loops still eligible for scanning",
	},
)

// LoopsDisabled - количество петель, навсегда исключённых из сканирования
var LoopsDisabled = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "scanner",
		Name:      "loops_disabled_total",
		Help:      "Loops permanently disabled after a price fetch failure",
	},
)

// YieldObserved - наблюдаемая доходность петель
var YieldObserved = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "scanner",
		Name:      "yield_observed_pct",
		Help:      "Observed forward yield of loops (fraction, not percent)",
		Buckets:   []float64{-0.01, -0.005, -0.002, 0, 0.001, 0.002, 0.005, 0.01, 0.02},
	},
)

// OpportunitiesDetected - петли, превысившие порог доходности
var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "scanner",
		Name:      "opportunities_detected_total",
		Help:      "Number of loops whose yield exceeded the profit threshold",
	},
	[]string{"loop"},
)

// ============ Метрики исполнения ============

// TradesTotal - завершённые попытки исполнения по результату
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "executor",
		Name:      "trades_total",
		Help:      "Completed execution attempts",
	},
	[]string{"mode", "result"}, // mode: live, simulated; result: success, rolled_back, rollback_failed
)

// ProfitTotal - суммарная реализованная прибыль в котируемой валюте
var ProfitTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "executor",
		Name:      "profit_total",
		Help:      "Total realized profit in quote currency units",
	},
)

// OrderFillWaitDuration - время ожидания исполнения ордера
var OrderFillWaitDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "executor",
		Name:      "order_fill_wait_seconds",
		Help:      "Time spent polling for an order fill",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
	},
	[]string{"leg"},
)

// RollbacksTotal - компенсирующие продажи по результату
var RollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "executor",
		Name:      "rollbacks_total",
		Help:      "Compensating sell attempts",
	},
	[]string{"result"}, // result: ok, failed
)

// ============ Метрики состояния ============

// QuoteBalance - текущий баланс котируемой валюты
var QuoteBalance = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "ledger",
		Name:      "quote_balance",
		Help:      "Current quote currency balance owned by the scanner",
	},
)

// ProfitCounter - неконвертированная прибыль в накопительном счётчике
var ProfitCounter = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "ledger",
		Name:      "profit_counter",
		Help:      "Unconverted profit waiting for the next tranche purchase",
	},
)

// TranchePurchases - выполненные покупки накопительного актива
var TranchePurchases = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "ledger",
		Name:      "tranche_purchases_total",
		Help:      "Executed accumulation asset tranche purchases",
	},
)

// EventsDropped - события, сброшенные из-за переполнения буфера UI
var EventsDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "UI events dropped because the hub buffer was full",
	},
)

// ============ Вспомогательные функции ============

// RecordTrade записывает завершённую попытку исполнения
func RecordTrade(mode, result string, profit float64) {
	TradesTotal.WithLabelValues(mode, result).Inc()
	if result == "success" && profit > 0 {
		ProfitTotal.Add(profit)
	}
}

// RecordRollback записывает результат компенсирующей продажи
func RecordRollback(ok bool) {
	if ok {
		RollbacksTotal.WithLabelValues("ok").Inc()
	} else {
		RollbacksTotal.WithLabelValues("failed").Inc()
	}
}

// RecordEventDropped записывает сброс события при переполнении буфера
func RecordEventDropped() {
	EventsDropped.Inc()
}
