package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"triarb/internal/exchange"
	"triarb/internal/models"
)

// TradeJournal пишет завершённые попытки в журнал сделок.
// Журнал - только история: состояние из него никогда не восстанавливается.
type TradeJournal interface {
	Record(ctx context.Context, trade models.TradeRecord) error
}

// Status - read-only снимок состояния сканера для API и UI
type Status struct {
	Mode          string    `json:"mode"`
	Running       bool      `json:"running"`
	QuoteBalance  float64   `json:"quote_balance"`
	AssetBalance  float64   `json:"asset_balance"`
	ProfitCounter float64   `json:"profit_counter"`
	LoopsTotal    int       `json:"loops_total"`
	LoopsDisabled int       `json:"loops_disabled"`
	Cycles        int64     `json:"cycles"`
	LastScan      time.Time `json:"last_scan"`
}

// Scanner - единственная горутина торгового цикла.
//
// Владеет всем изменяемым состоянием: балансами, множеством отключённых
// петель, счётчиком прибыли и кэшем тикеров. Других писателей нет,
// поэтому внутри цикла нет блокировок. Наружу уходят только события
// (fire-and-forget) и периодически обновляемая копия Status.
//
// Петли обходятся последовательно; исполнение сделки (включая откат)
// блокирует цикл до завершения. Остановка кооперативная: флаг
// проверяется в начале каждого цикла, сделка в полёте всегда
// доводится до конца.
type Scanner struct {
	cache   *TickerCache
	engine  *ExecutionEngine
	ledger  *AccumulationLedger
	gateway exchange.Gateway
	pacer   OrderPacer
	logger  *zap.Logger
	events  EventSink
	journal TradeJournal // опционален, nil = без журнала

	quote        string
	accumAsset   string
	fee          float64
	threshold    float64
	scanInterval time.Duration

	loops []models.Loop

	balance      float64
	assetBalance float64

	cycles  int64
	stopped atomic.Bool

	mu     sync.RWMutex
	status Status
}

// ScannerDeps - зависимости сканера
type ScannerDeps struct {
	Cache   *TickerCache
	Engine  *ExecutionEngine
	Ledger  *AccumulationLedger
	Gateway exchange.Gateway
	Pacer   OrderPacer
	Logger  *zap.Logger
	Events  EventSink
	Journal TradeJournal
}

// NewScanner создаёт сканер над заранее обнаруженным набором петель
func NewScanner(
	deps ScannerDeps,
	loops []models.Loop,
	quoteCurrency string,
	fee, profitThreshold float64,
	scanInterval time.Duration,
	startBalance, startAssetBalance float64,
) *Scanner {
	accumAsset, _, ok := models.SplitPair(deps.Ledger.Pair())
	if !ok {
		accumAsset = deps.Ledger.Pair()
	}

	events := deps.Events
	if events == nil {
		events = NopSink{}
	}

	s := &Scanner{
		cache:        deps.Cache,
		engine:       deps.Engine,
		ledger:       deps.Ledger,
		gateway:      deps.Gateway,
		pacer:        deps.Pacer,
		logger:       deps.Logger,
		events:       events,
		journal:      deps.Journal,
		quote:        quoteCurrency,
		accumAsset:   accumAsset,
		fee:          fee,
		threshold:    profitThreshold,
		scanInterval: scanInterval,
		loops:        loops,
		balance:      startBalance,
		assetBalance: startAssetBalance,
	}

	QuoteBalance.Set(s.balance)
	LoopsActive.Set(float64(len(loops)))
	s.updateStatus(true)

	return s
}

// Stop взводит кооперативный флаг остановки. Текущая сделка (включая
// её откат) доводится до конца, флаг срабатывает на границе цикла.
func (s *Scanner) Stop() {
	s.stopped.Store(true)
}

// Status возвращает копию текущего состояния сканера
func (s *Scanner) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run крутит циклы сканирования до остановки, отмены контекста
// или исчерпания баланса. Блокирует вызывающую горутину.
func (s *Scanner) Run(ctx context.Context) {
	s.logger.Info("scanner started",
		zap.String("mode", s.mode()),
		zap.Int("loops", len(s.loops)),
		zap.Float64("balance", s.balance),
		zap.Float64("threshold", s.threshold))
	s.events.Publish(LogEvent(fmt.Sprintf("Сканер запущен: %d петель, баланс %.4f %s", len(s.loops), s.balance, s.quote)))

	defer func() {
		s.updateStatus(false)
		s.logger.Info("scanner stopped", zap.Int64("cycles", s.cycles))
		s.events.Publish(LogEvent("Сканер остановлен"))
	}()

	for {
		if s.stopped.Load() {
			s.logger.Info("stop requested")
			return
		}
		if ctx.Err() != nil {
			return
		}
		if s.balance <= 0 {
			s.logger.Warn("quote balance exhausted, terminating", zap.Float64("balance", s.balance))
			s.events.Publish(LogEvent("Баланс исчерпан, сканирование остановлено"))
			return
		}

		s.runCycle(ctx)
		s.cycles++
		s.updateStatus(true)

		select {
		case <-time.After(s.scanInterval):
		case <-ctx.Done():
			return
		}
	}
}

// runCycle обходит все активные петли один раз
func (s *Scanner) runCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		ScanCycleDuration.Observe(time.Since(start).Seconds())
	}()

	for i := range s.loops {
		loop := &s.loops[i]
		if loop.Disabled {
			continue
		}

		books, err := s.fetchBooks(ctx, loop)
		if err != nil {
			// Одна плохая петля никогда не прерывает цикл
			s.disableLoop(loop, err)
			continue
		}

		yield := YieldFromBooks(s.balance, books, s.fee)
		YieldObserved.Observe(yield.Pct)

		// Статус петли публикуется независимо от решения о входе
		s.events.Publish(LoopEvent(loop.ID(), yield.Pct, "Ready"))

		if yield.Pct <= s.threshold {
			continue
		}

		OpportunitiesDetected.WithLabelValues(loop.ID()).Inc()
		s.logger.Info("opportunity detected",
			zap.String("loop", loop.ID()),
			zap.Float64("pct", yield.Pct),
			zap.Float64("threshold", s.threshold))

		res := s.engine.Execute(ctx, *loop, books, s.balance)
		s.recordTrade(ctx, loop.ID(), res)

		if !res.Success() {
			continue
		}

		s.balance = res.EndBalance
		QuoteBalance.Set(s.balance)
		s.events.Publish(BalanceEvent(s.quote, s.balance))

		s.ledger.Add(res.Profit)
		if _, err := s.ledger.Drain(ctx, s.purchaseTranche); err != nil {
			s.logger.Warn("ledger drain interrupted", zap.Error(err))
		}
	}
}

// fetchBooks собирает стаканы трёх ног петли
func (s *Scanner) fetchBooks(ctx context.Context, loop *models.Loop) ([3]models.Book, error) {
	var books [3]models.Book
	for i, pair := range loop.Pairs {
		book, err := s.cache.BookFor(ctx, pair)
		if err != nil {
			return books, err
		}
		books[i] = book
	}
	return books, nil
}

// disableLoop навсегда исключает петлю из сканирования
func (s *Scanner) disableLoop(loop *models.Loop, cause error) {
	loop.Disabled = true
	LoopsDisabled.Inc()
	LoopsActive.Dec()

	s.logger.Warn("loop permanently disabled",
		zap.String("loop", loop.ID()),
		zap.Error(cause))
	s.events.Publish(LoopEvent(loop.ID(), 0, "Disabled"))
}

// purchaseTranche выполняет покупку одного транша накопительного актива.
// Живой режим: IOC покупка по текущему ask; симуляция: прямое зачисление.
func (s *Scanner) purchaseTranche(ctx context.Context, pair string, qty float64) error {
	if !s.engine.Simulated() {
		book, err := s.cache.BookFor(ctx, pair)
		if err != nil {
			return fmt.Errorf("tranche price for %s: %w", pair, err)
		}
		if err := s.pacer.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.gateway.PlaceOrder(ctx, exchange.OrderRequest{
			Pair:     pair,
			Side:     exchange.SideBuy,
			Quantity: qty,
			Price:    book.Ask,
		}); err != nil {
			return fmt.Errorf("tranche buy %s: %w", pair, err)
		}
	}

	s.assetBalance += qty
	s.events.Publish(BalanceEvent(s.accumAsset, s.assetBalance))
	return nil
}

// recordTrade пишет завершённую попытку в журнал (если он подключён)
func (s *Scanner) recordTrade(ctx context.Context, loopID string, res ExecutionResult) {
	if s.journal == nil {
		return
	}

	rec := models.TradeRecord{
		LoopID:       loopID,
		Mode:         s.mode(),
		Status:       res.State,
		ProfitPct:    res.Pct,
		Profit:       res.Profit,
		Leg1Filled:   res.Leg1Filled,
		Leg2Filled:   res.Leg2Filled,
		ErrorMessage: res.Err,
	}

	if err := s.journal.Record(ctx, rec); err != nil {
		// Журнал - история, его сбой не должен останавливать торговлю
		s.logger.Warn("trade journal write failed", zap.Error(err))
	}
}

func (s *Scanner) mode() string {
	if s.engine.Simulated() {
		return models.ModeSimulated
	}
	return models.ModeLive
}

func (s *Scanner) updateStatus(running bool) {
	disabled := 0
	for i := range s.loops {
		if s.loops[i].Disabled {
			disabled++
		}
	}

	s.mu.Lock()
	s.status = Status{
		Mode:          s.mode(),
		Running:       running && !s.stopped.Load(),
		QuoteBalance:  s.balance,
		AssetBalance:  s.assetBalance,
		ProfitCounter: s.ledger.Counter(),
		LoopsTotal:    len(s.loops),
		LoopsDisabled: disabled,
		Cycles:        s.cycles,
		LastScan:      time.Now(),
	}
	s.mu.Unlock()
}
