package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"triarb/internal/exchange"
	"triarb/internal/models"
	"triarb/pkg/utils"
)

// ExecutionEngine проводит три последовательные конвертации петли.
//
// Живой режим: на каждую ногу размещается IOC лимитный ордер, затем
// исполнение опрашивается до статуса closed либо до истечения окна
// ожидания. Дальше используется ФАКТИЧЕСКИ исполненный объём, а не
// запрошенный - частичное исполнение сжимает последующие ноги.
// Нулевое исполнение после окна ожидания - провал ноги: следующая нога
// не размещается (ордер нулевого объёма биржа всё равно отвергнет).
//
// Симуляция: та же арифметика, что и у сканера, без единого сетевого
// вызова. Оба пути обязаны давать одинаковые числа на одинаковых входах.
type ExecutionEngine struct {
	gateway  exchange.Gateway
	cache    *TickerCache
	rollback *RollbackCoordinator
	pacer    OrderPacer
	logger   *zap.Logger
	events   EventSink

	fee       float64
	fillWait  time.Duration
	fillPoll  time.Duration
	simulated bool
}

// ExecutionResult - итог одной попытки исполнения
type ExecutionResult struct {
	State      string  // терминальное состояние попытки
	EndBalance float64 // котируемая валюта после попытки
	Profit     float64 // EndBalance - стартовый баланс (0 при откате)
	Pct        float64 // ожидаемая доходность на момент триггера
	Leg1Filled float64 // фактическое исполнение ноги 1
	Leg2Filled float64 // фактическое исполнение ноги 2
	Err        string  // причина отката, пусто при успехе
}

// Success возвращает true если петля прошла все три ноги
func (r ExecutionResult) Success() bool {
	return r.State == models.StateSuccess
}

// NewExecutionEngine создаёт движок исполнения.
// simulated=true полностью отключает сетевые вызовы.
func NewExecutionEngine(
	gateway exchange.Gateway,
	cache *TickerCache,
	rollback *RollbackCoordinator,
	pacer OrderPacer,
	logger *zap.Logger,
	events EventSink,
	fee float64,
	fillWait, fillPoll time.Duration,
	simulated bool,
) *ExecutionEngine {
	return &ExecutionEngine{
		gateway:   gateway,
		cache:     cache,
		rollback:  rollback,
		pacer:     pacer,
		logger:    logger,
		events:    events,
		fee:       fee,
		fillWait:  fillWait,
		fillPoll:  fillPoll,
		simulated: simulated,
	}
}

// Simulated возвращает true если движок работает без сетевых вызовов
func (e *ExecutionEngine) Simulated() bool {
	return e.simulated
}

// Execute проводит петлю через три ноги на стартовом балансе balance.
// books - стаканы трёх ног, снятые сканером в момент триггера.
func (e *ExecutionEngine) Execute(ctx context.Context, loop models.Loop, books [3]models.Book, balance float64) ExecutionResult {
	yield := YieldFromBooks(balance, books, e.fee)

	if e.simulated {
		return e.executeSimulated(loop, yield, balance)
	}
	return e.executeLive(ctx, loop, books, balance, yield)
}

// executeSimulated применяет арифметику доходности напрямую к балансам
func (e *ExecutionEngine) executeSimulated(loop models.Loop, yield LoopYield, balance float64) ExecutionResult {
	e.logger.Info("simulated loop executed",
		zap.String("loop", loop.ID()),
		zap.Float64("start", balance),
		zap.Float64("end", yield.End),
		zap.Float64("pct", yield.Pct))

	RecordTrade(models.ModeSimulated, "success", yield.Profit)
	e.events.Publish(LoopEvent(loop.ID(), yield.Pct, "Simulated"))

	return ExecutionResult{
		State:      models.StateSuccess,
		EndBalance: yield.End,
		Profit:     yield.Profit,
		Pct:        yield.Pct,
		Leg1Filled: yield.Leg1Qty,
		Leg2Filled: yield.Leg2Qty,
	}
}

// executeLive размещает три реальных ордера с откатом при любом сбое
func (e *ExecutionEngine) executeLive(ctx context.Context, loop models.Loop, books [3]models.Book, balance float64, yield LoopYield) ExecutionResult {
	att := models.NewExecutionAttempt(loop)

	// Нога 1: покупка A за котируемую валюту на весь баланс
	qty1 := balance / books[0].Ask
	filled1, err := e.runLeg(ctx, att, 1, att.Leg1Pair, exchange.SideBuy, qty1, books[0].Ask,
		models.StateLeg1Placed, models.StateLeg1Filled)
	if err != nil {
		return e.abort(ctx, att, balance, yield, fmt.Errorf("leg1: %w", err))
	}

	// Нога 2: покупка B за фактически полученный объём A
	availA := utils.ApplyFee(filled1, e.fee)
	qty2 := availA / books[1].Ask
	filled2, err := e.runLeg(ctx, att, 2, att.Leg2Pair, exchange.SideBuy, qty2, books[1].Ask,
		models.StateLeg2Placed, models.StateLeg2Filled)
	if err != nil {
		return e.abort(ctx, att, balance, yield, fmt.Errorf("leg2: %w", err))
	}

	// Нога 3: продажа фактически полученного объёма B за котируемую валюту
	availB := utils.ApplyFee(filled2, e.fee)
	filled3, err := e.runLeg(ctx, att, 3, att.Leg3Pair, exchange.SideSell, availB, books[2].Bid,
		models.StateLeg3Placed, models.StateLeg3Filled)
	if err != nil {
		return e.abort(ctx, att, balance, yield, fmt.Errorf("leg3: %w", err))
	}

	end := utils.ApplyFee(filled3*books[2].Bid, e.fee)
	profit := end - balance
	// В событие и результат уходит фактическая доходность по исполненным
	// объёмам, а не прогноз на момент триггера (при частичных исполнениях
	// они расходятся)
	pct := utils.PctChange(balance, end)

	_ = transition(att, models.StateSuccess)

	e.logger.Info("loop executed",
		zap.String("loop", loop.ID()),
		zap.Float64("start", balance),
		zap.Float64("end", end),
		zap.Float64("profit", profit))

	RecordTrade(models.ModeLive, "success", profit)
	e.events.Publish(LoopEvent(loop.ID(), pct, "Executed"))

	return ExecutionResult{
		State:      models.StateSuccess,
		EndBalance: end,
		Profit:     profit,
		Pct:        pct,
		Leg1Filled: att.Leg1Filled,
		Leg2Filled: att.Leg2Filled,
	}
}

// runLeg размещает ордер одной ноги и дожидается исполнения.
// Возвращает фактически исполненный объём; нулевое исполнение - ошибка.
// Частично наблюдённый объём при ошибке опроса записывается в att
// вызывающим кодом ДО отката - для этого runLeg обновляет att сам.
func (e *ExecutionEngine) runLeg(ctx context.Context, att *models.ExecutionAttempt, leg int, pair, side string, qty, price float64, placedState, filledState string) (float64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("computed zero quantity for %s", pair)
	}

	if err := e.pacer.Wait(ctx); err != nil {
		return 0, err
	}

	orderID, err := e.gateway.PlaceOrder(ctx, exchange.OrderRequest{
		Pair:     pair,
		Side:     side,
		Quantity: qty,
		Price:    price,
	})
	if err != nil {
		return 0, fmt.Errorf("place %s %s: %w", side, pair, err)
	}

	if err := transition(att, placedState); err != nil {
		return 0, err
	}

	e.logger.Debug("leg order placed",
		zap.Int("leg", leg),
		zap.String("pair", pair),
		zap.String("side", side),
		zap.Float64("qty", qty),
		zap.Float64("price", price),
		zap.String("order_id", orderID))

	start := time.Now()
	filled, err := e.waitForFill(ctx, pair, orderID)
	OrderFillWaitDuration.WithLabelValues(legLabel(leg)).Observe(time.Since(start).Seconds())

	// Наблюдённый частичный объём фиксируем даже при ошибке опроса:
	// откат должен знать, что компенсировать
	e.recordFill(att, leg, filled)

	if err != nil {
		return filled, fmt.Errorf("fill status %s: %w", pair, err)
	}
	if filled <= 0 {
		return 0, fmt.Errorf("order %s for %s expired with zero fill", orderID, pair)
	}

	if err := transition(att, filledState); err != nil {
		return filled, err
	}

	return filled, nil
}

// waitForFill опрашивает статус ордера до закрытия или истечения окна.
// Возвращает последний наблюдённый исполненный объём в любом случае.
func (e *ExecutionEngine) waitForFill(ctx context.Context, pair, orderID string) (float64, error) {
	deadline := time.Now().Add(e.fillWait)
	var filled float64

	for {
		status, err := e.gateway.GetOrderStatus(ctx, pair, orderID)
		if err != nil {
			return filled, err
		}

		filled = status.FilledQuantity

		// IOC: cancelled означает "остаток снят", исполненная часть валидна
		if status.Status == exchange.OrderStatusClosed || status.Status == exchange.OrderStatusCancelled {
			return filled, nil
		}

		if !time.Now().Before(deadline) {
			// Окно истекло: работаем с тем, что успело исполниться
			return filled, nil
		}

		select {
		case <-time.After(e.fillPoll):
		case <-ctx.Done():
			return filled, ctx.Err()
		}
	}
}

// abort откатывает попытку и сводит результат к неизменному балансу
func (e *ExecutionEngine) abort(ctx context.Context, att *models.ExecutionAttempt, balance float64, yield LoopYield, cause error) ExecutionResult {
	e.logger.Error("loop execution failed, rolling back",
		zap.String("loop", att.Loop.ID()),
		zap.String("state", att.State),
		zap.Error(cause))

	e.rollback.Compensate(ctx, att)

	RecordTrade(models.ModeLive, strings.ToLower(att.State), 0)

	return ExecutionResult{
		State:      att.State,
		EndBalance: balance,
		Pct:        yield.Pct,
		Leg1Filled: att.Leg1Filled,
		Leg2Filled: att.Leg2Filled,
		Err:        cause.Error(),
	}
}

func (e *ExecutionEngine) recordFill(att *models.ExecutionAttempt, leg int, filled float64) {
	switch leg {
	case 1:
		att.Leg1Filled = filled
	case 2:
		att.Leg2Filled = filled
	}
}

func legLabel(leg int) string {
	return fmt.Sprintf("leg%d", leg)
}
