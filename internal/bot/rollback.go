package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triarb/internal/exchange"
	"triarb/internal/models"
)

// RollbackCoordinator выполняет best-effort компенсацию частично
// исполненной петли: распродаёт приобретённые активы обратно в котируемую
// валюту по текущим bid-ценам.
//
// Порядок обратный: сначала нога 2 (актив B), затем нога 1 (актив A).
// Компенсации изолированы - сбой одной не отменяет попытку другой.
// Повторов нет: неудавшаяся компенсация оставляет открытую позицию
// и фиксируется как ROLLBACK_FAILED. Это терминальное состояние,
// закрывать позицию оператору придётся вручную.
type RollbackCoordinator struct {
	gateway exchange.Gateway
	cache   *TickerCache
	pacer   OrderPacer
	logger  *zap.Logger
	events  EventSink
}

// OrderPacer выдерживает минимальную паузу между размещениями ордеров
type OrderPacer interface {
	Wait(ctx context.Context) error
}

// NewRollbackCoordinator создаёт координатор отката
func NewRollbackCoordinator(gateway exchange.Gateway, cache *TickerCache, pacer OrderPacer, logger *zap.Logger, events EventSink) *RollbackCoordinator {
	return &RollbackCoordinator{
		gateway: gateway,
		cache:   cache,
		pacer:   pacer,
		logger:  logger,
		events:  events,
	}
}

// Compensate переводит попытку в ROLLING_BACK, распродаёт исполненные ноги
// и завершает попытку в ROLLED_BACK либо ROLLBACK_FAILED.
func (r *RollbackCoordinator) Compensate(ctx context.Context, att *models.ExecutionAttempt) {
	if err := transition(att, models.StateRollingBack); err != nil {
		r.logger.Error("rollback from unexpected state", zap.String("state", att.State), zap.Error(err))
		return
	}

	r.logger.Warn("rolling back partially executed loop",
		zap.String("loop", att.Loop.ID()),
		zap.Float64("leg1_filled", att.Leg1Filled),
		zap.Float64("leg2_filled", att.Leg2Filled))

	failed := false

	// Нога 2 первой: актив B дальше всего от котируемой валюты
	if att.Leg2Filled > 0 {
		if err := r.sellBack(ctx, att.Leg2Pair, att.Leg2Filled); err != nil {
			failed = true
			r.reportFailure(att, att.Leg2Pair, err)
		} else {
			RecordRollback(true)
		}
	}

	if att.Leg1Filled > 0 {
		if err := r.sellBack(ctx, att.Leg1Pair, att.Leg1Filled); err != nil {
			failed = true
			r.reportFailure(att, att.Leg1Pair, err)
		} else {
			RecordRollback(true)
		}
	}

	if failed {
		_ = transition(att, models.StateRollbackFailed)
		r.events.Publish(LoopEvent(att.Loop.ID(), 0, "RollbackFailed"))
		return
	}

	_ = transition(att, models.StateRolledBack)
	r.events.Publish(LoopEvent(att.Loop.ID(), 0, "RolledBack"))
}

// sellBack продаёт qty по текущему bid пары одним IOC ордером, без повторов
func (r *RollbackCoordinator) sellBack(ctx context.Context, pair string, qty float64) error {
	book, err := r.cache.BookFor(ctx, pair)
	if err != nil {
		return fmt.Errorf("rollback price for %s: %w", pair, err)
	}

	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}

	orderID, err := r.gateway.PlaceOrder(ctx, exchange.OrderRequest{
		Pair:     pair,
		Side:     exchange.SideSell,
		Quantity: qty,
		Price:    book.Bid,
	})
	if err != nil {
		return fmt.Errorf("rollback sell %s: %w", pair, err)
	}

	r.logger.Info("compensating sell placed",
		zap.String("pair", pair),
		zap.Float64("qty", qty),
		zap.Float64("price", book.Bid),
		zap.String("order_id", orderID))

	return nil
}

func (r *RollbackCoordinator) reportFailure(att *models.ExecutionAttempt, pair string, err error) {
	RecordRollback(false)
	r.logger.Error("compensation failed, open position requires manual recovery",
		zap.String("loop", att.Loop.ID()),
		zap.String("pair", pair),
		zap.Error(err))
	r.events.Publish(LogEvent(fmt.Sprintf("ОТКАТ НЕ УДАЛСЯ для %s: %v - требуется ручное вмешательство", pair, err)))
}
