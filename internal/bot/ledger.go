package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AccumulationLedger накапливает реализованную прибыль и конвертирует её
// в периодические покупки вторичного актива фиксированными траншами.
//
// Счётчик ведётся в единицах котируемой валюты. Как только он достигает
// порога, выполняется покупка одного транша и счётчик уменьшается на
// порог - в цикле, пока счётчик не опустится ниже порога.
//
// Сама покупка делегируется через TranchePurchaser: живой режим размещает
// IOC ордер, симуляция напрямую зачисляет актив. Леджер не знает про биржу.
type AccumulationLedger struct {
	counter    float64
	threshold  float64
	trancheQty float64
	pair       string

	logger *zap.Logger
	events EventSink
}

// TranchePurchaser выполняет покупку одного транша накопительного актива
type TranchePurchaser func(ctx context.Context, pair string, qty float64) error

// NewAccumulationLedger создаёт леджер накопления
func NewAccumulationLedger(threshold, trancheQty float64, pair string, logger *zap.Logger, events EventSink) *AccumulationLedger {
	return &AccumulationLedger{
		threshold:  threshold,
		trancheQty: trancheQty,
		pair:       pair,
		logger:     logger,
		events:     events,
	}
}

// Add увеличивает счётчик неконвертированной прибыли.
// Отрицательная прибыль счётчик не уменьшает.
func (l *AccumulationLedger) Add(profit float64) {
	if profit <= 0 {
		return
	}
	l.counter += profit
	ProfitCounter.Set(l.counter)
}

// Counter возвращает текущее значение счётчика
func (l *AccumulationLedger) Counter() float64 {
	return l.counter
}

// Pair возвращает пару накопительного актива
func (l *AccumulationLedger) Pair() string {
	return l.pair
}

// Drain выкупает все доступные транши за один проход: пока счётчик не
// опустится ниже порога, выполняется покупка trancheQty и счётчик
// уменьшается на порог.
//
// При ошибке покупки проход останавливается, счётчик за неудавшийся транш
// НЕ уменьшается - прибыль не теряется, следующий Drain повторит покупку.
// Возвращает число выполненных траншей.
func (l *AccumulationLedger) Drain(ctx context.Context, purchase TranchePurchaser) (int, error) {
	if l.threshold <= 0 {
		return 0, nil
	}

	tranches := 0
	for l.counter >= l.threshold {
		if err := purchase(ctx, l.pair, l.trancheQty); err != nil {
			l.logger.Error("tranche purchase failed, keeping counter",
				zap.String("pair", l.pair),
				zap.Float64("counter", l.counter),
				zap.Error(err))
			l.events.Publish(LogEvent(fmt.Sprintf("Покупка транша %s не удалась: %v", l.pair, err)))
			ProfitCounter.Set(l.counter)
			return tranches, err
		}

		l.counter -= l.threshold
		tranches++
		TranchePurchases.Inc()

		l.logger.Info("tranche purchased",
			zap.String("pair", l.pair),
			zap.Float64("qty", l.trancheQty),
			zap.Float64("counter", l.counter))
	}

	ProfitCounter.Set(l.counter)
	return tranches, nil
}
