package bot

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"triarb/internal/exchange"
	"triarb/internal/models"
	"triarb/pkg/ratelimit"
)

type fakeJournal struct {
	mu      sync.Mutex
	records []models.TradeRecord
}

func (j *fakeJournal) Record(ctx context.Context, trade models.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, trade)
	return nil
}

func (j *fakeJournal) all() []models.TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.TradeRecord, len(j.records))
	copy(out, j.records)
	return out
}

// newSimScanner собирает полный стек сканера в симуляции
func newSimScanner(t *testing.T, gw *fakeGateway, sink EventSink, journal TradeJournal, threshold, startBalance float64) *Scanner {
	t.Helper()
	if gw.fetchTickers == nil {
		gw.fetchTickers = func(ctx context.Context) ([]exchange.Ticker, error) { return triangleTickers(), nil }
	}

	cache := testCache(t, gw)
	pacer := ratelimit.NewIntervalLimiter(0)
	rb := NewRollbackCoordinator(gw, cache, pacer, testLogger(), sink)
	engine := NewExecutionEngine(gw, cache, rb, pacer, testLogger(), sink,
		0.001, 30*time.Millisecond, time.Millisecond, true)
	ledger := NewAccumulationLedger(5.0, 2.0, "GT_USDT", testLogger(), sink)

	loops := DiscoverLoops(cache.Snapshot(), "USDT")

	return NewScanner(ScannerDeps{
		Cache:   cache,
		Engine:  engine,
		Ledger:  ledger,
		Gateway: gw,
		Pacer:   pacer,
		Logger:  testLogger(),
		Events:  sink,
		Journal: journal,
	}, loops, "USDT", 0.001, threshold, time.Millisecond, startBalance, 0)
}

func TestScannerEndToEndSimulated(t *testing.T) {
	gw := &fakeGateway{}
	sink := &captureSink{}
	journal := &fakeJournal{}
	s := newSimScanner(t, gw, sink, journal, 0.002, 1000)

	s.runCycle(context.Background())

	// Доходность петли по формуле: end = S/a1*(1-f)/a2*(1-f)*b3*(1-f)
	want := ComputeYield(1000, 2000, 0.05, 105, 0.001)
	if want.Pct <= 0.002 {
		t.Fatalf("fixture must exceed threshold, pct = %v", want.Pct)
	}

	// Симуляция: баланс становится ровно end, счётчик прибыли растёт на profit
	st := s.Status()
	if math.Abs(st.QuoteBalance-want.End) > 1e-9 {
		t.Errorf("balance = %v, want %v", st.QuoteBalance, want.End)
	}

	// Леджер выкупил все доступные транши: floor(profit/5) покупок по 2 GT
	tranches := math.Floor(want.Profit / 5.0)
	if math.Abs(st.AssetBalance-tranches*2.0) > 1e-9 {
		t.Errorf("asset balance = %v, want %v", st.AssetBalance, tranches*2.0)
	}
	wantCounter := want.Profit - tranches*5.0
	if math.Abs(st.ProfitCounter-wantCounter) > 1e-9 {
		t.Errorf("profit counter = %v, want %v (C mod T)", st.ProfitCounter, wantCounter)
	}

	// Симуляция не размещает ордеров
	if len(gw.placedOrders()) != 0 {
		t.Errorf("simulated scan placed %d orders", len(gw.placedOrders()))
	}

	// Статусы петли: Ready (всегда) затем Simulated (триггер)
	statuses := sink.loopStatuses("ETH_USDT→BTC_ETH→BTC_USDT")
	if len(statuses) != 2 || statuses[0] != "Ready" || statuses[1] != "Simulated" {
		t.Errorf("loop statuses = %v, want [Ready Simulated]", statuses)
	}

	// Журнал получил запись об успехе
	records := journal.all()
	if len(records) != 1 {
		t.Fatalf("journal records = %d, want 1", len(records))
	}
	if records[0].Status != models.StateSuccess || records[0].Mode != models.ModeSimulated {
		t.Errorf("journal record = %+v", records[0])
	}
}

func TestScannerBelowThresholdNoTrade(t *testing.T) {
	gw := &fakeGateway{}
	sink := &captureSink{}
	// Порог заведомо выше доходности фикстуры
	s := newSimScanner(t, gw, sink, nil, 0.5, 1000)

	s.runCycle(context.Background())

	st := s.Status()
	if st.QuoteBalance != 1000 {
		t.Errorf("balance = %v, want unchanged 1000", st.QuoteBalance)
	}
	if st.ProfitCounter != 0 {
		t.Errorf("profit counter = %v, want 0", st.ProfitCounter)
	}

	// Статус Ready публикуется независимо от решения о входе
	statuses := sink.loopStatuses("ETH_USDT→BTC_ETH→BTC_USDT")
	if len(statuses) != 1 || statuses[0] != "Ready" {
		t.Errorf("loop statuses = %v, want [Ready]", statuses)
	}
}

func TestScannerDisablesLoopOnPriceFailure(t *testing.T) {
	// BTC_ETH пропадает из снапшота после обнаружения
	full := true
	gw := &fakeGateway{
		fetchTickers: func(ctx context.Context) ([]exchange.Ticker, error) {
			if full {
				return triangleTickers(), nil
			}
			return []exchange.Ticker{
				{Pair: "ETH_USDT", Bid: 1999, Ask: 2000},
				{Pair: "BTC_USDT", Bid: 105, Ask: 106},
			}, nil
		},
	}
	sink := &captureSink{}
	s := newSimScanner(t, gw, sink, nil, 0.5, 1000)

	full = false
	// Форсируем устаревание, чтобы следующий BookFor перечитал тикеры
	s.cache.snapshot.CapturedAt = time.Now().Add(-time.Minute)

	s.runCycle(context.Background())

	loopID := "ETH_USDT→BTC_ETH→BTC_USDT"
	statuses := sink.loopStatuses(loopID)
	if len(statuses) != 1 || statuses[0] != "Disabled" {
		t.Fatalf("loop statuses = %v, want [Disabled]", statuses)
	}

	st := s.Status()
	if st.LoopsDisabled != 1 {
		t.Errorf("disabled loops = %d, want 1", st.LoopsDisabled)
	}

	// Отключённая петля пропускается во всех последующих циклах
	s.runCycle(context.Background())
	if got := sink.loopStatuses(loopID); len(got) != 1 {
		t.Errorf("disabled loop re-evaluated: statuses = %v", got)
	}
}

func TestScannerRunStopsOnFlag(t *testing.T) {
	gw := &fakeGateway{}
	s := newSimScanner(t, gw, NopSink{}, nil, 0.5, 1000)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after Stop()")
	}

	if s.Status().Running {
		t.Error("status still reports running after stop")
	}
}

func TestScannerRunStopsOnContextCancel(t *testing.T) {
	gw := &fakeGateway{}
	s := newSimScanner(t, gw, NopSink{}, nil, 0.5, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after context cancel")
	}
}

func TestScannerRunStopsOnExhaustedBalance(t *testing.T) {
	gw := &fakeGateway{}
	s := newSimScanner(t, gw, NopSink{}, nil, 0.5, 0)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop with zero balance")
	}
}
