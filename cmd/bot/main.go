package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"triarb/internal/api"
	"triarb/internal/bot"
	"triarb/internal/config"
	"triarb/internal/exchange"
	"triarb/internal/repository"
	"triarb/internal/websocket"
	"triarb/pkg/ratelimit"
	"triarb/pkg/retry"
	"triarb/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// .env опционален: в контейнере конфигурация приходит из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	gateway := exchange.NewGate(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.ClockOffset,
		cfg.Exchange.RequestTimeout,
	)

	// Проба credentials определяет режим: live при успешном чтении
	// балансов, иначе симуляция на фиксированном стартовом балансе
	simulated, startBalance := detectMode(gateway, cfg, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()

	// Журнал сделок опционален
	var journal *repository.TradeRepository
	if cfg.Database.Enabled {
		db, err := initDatabase(cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		journal = repository.NewTradeRepository(db)
		logger.Info("trade journal enabled", zap.String("dsn", cfg.Database.DSNWithoutPassword()))
	}

	cache := bot.NewTickerCache(gateway, cfg.Bot.TickerTTL, logger)

	// Первый снимок рынка обязателен: без него нечего обнаруживать
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	primeCfg := retry.StartupConfig()
	primeCfg.RetryIf = retry.RetryIfNotContext
	err = retry.Do(startupCtx, func() error {
		return cache.Refresh(startupCtx)
	}, primeCfg)
	cancelStartup()
	if err != nil {
		logger.Fatal("failed to fetch initial tickers", zap.Error(err))
	}

	loops := bot.DiscoverLoops(cache.Snapshot(), cfg.Bot.QuoteCurrency)
	if len(loops) == 0 {
		logger.Fatal("no triangular loops discovered",
			zap.String("quote", cfg.Bot.QuoteCurrency))
	}
	logger.Info("loops discovered",
		zap.Int("count", len(loops)),
		zap.String("quote", cfg.Bot.QuoteCurrency))

	pacer := ratelimit.NewIntervalLimiter(cfg.Bot.OrderInterval)
	rollback := bot.NewRollbackCoordinator(gateway, cache, pacer, logger, hub)
	engine := bot.NewExecutionEngine(
		gateway, cache, rollback, pacer, logger, hub,
		cfg.Bot.TakerFee,
		cfg.Bot.FillWait, cfg.Bot.FillPollInterval,
		simulated,
	)
	ledger := bot.NewAccumulationLedger(
		cfg.Bot.AccumThreshold,
		cfg.Bot.AccumTrancheQty,
		cfg.Bot.AccumPair,
		logger, hub,
	)

	deps := bot.ScannerDeps{
		Cache:   cache,
		Engine:  engine,
		Ledger:  ledger,
		Gateway: gateway,
		Pacer:   pacer,
		Logger:  logger,
		Events:  hub,
	}
	if journal != nil {
		deps.Journal = journal
	}

	scanner := bot.NewScanner(
		deps,
		loops,
		cfg.Bot.QuoteCurrency,
		cfg.Bot.TakerFee,
		cfg.Bot.ProfitThreshold,
		cfg.Bot.ScanInterval,
		startBalance,
		0,
	)

	scanCtx, cancelScan := context.WithCancel(context.Background())
	defer cancelScan()

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner.Run(scanCtx)
	}()

	apiDeps := &api.Dependencies{
		Scanner:          scanner,
		Hub:              hub,
		Logger:           logger,
		ControlTokenHash: cfg.Auth.ControlTokenHash,
	}
	if journal != nil {
		apiDeps.Trades = journal
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(apiDeps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case <-scanDone:
		// Сканер остановился сам (нулевой баланс или запрос через API)
		logger.Info("scanner finished, shutting down")
	}

	// Остановка кооперативная: сделка в полёте доводится до конца
	scanner.Stop()
	select {
	case <-scanDone:
	case <-time.After(30 * time.Second):
		logger.Warn("scanner did not stop in time, cancelling")
		cancelScan()
		<-scanDone
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}

	exchange.GetGlobalHTTPClient().Close()
	logger.Info("bot exited")
}

// detectMode пробует прочитать балансы и выбирает режим работы.
//
// Любой отказ credentials переводит бот в симуляцию на фиксированном
// стартовом балансе: арифметика циклов в обоих режимах одна и та же,
// поэтому симуляция остаётся честной репетицией live-торговли.
func detectMode(gateway exchange.Gateway, cfg *config.Config, logger *zap.Logger) (simulated bool, startBalance float64) {
	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		logger.Warn("api credentials not configured, running simulated",
			zap.Float64("start_balance", cfg.Bot.SimStartBalance))
		return true, cfg.Bot.SimStartBalance
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Отклонение ключей биржей не лечится повтором - только сетевые сбои
	probeCfg := retry.StartupConfig()
	probeCfg.RetryIf = retry.RetryIfNotPermanent

	balances, err := retry.DoWithResult(ctx, func() (map[string]float64, error) {
		probeCtx, probeCancel := context.WithTimeout(ctx, cfg.Exchange.RequestTimeout)
		defer probeCancel()

		bals, err := gateway.FetchBalances(probeCtx)
		var exErr *exchange.ExchangeError
		if errors.As(err, &exErr) {
			return nil, retry.Permanent(err)
		}
		return bals, err
	}, probeCfg)

	if err != nil {
		logger.Warn("credential probe failed, running simulated",
			zap.Error(err),
			zap.Float64("start_balance", cfg.Bot.SimStartBalance))
		return true, cfg.Bot.SimStartBalance
	}

	balance := balances[cfg.Bot.QuoteCurrency]
	if balance <= 0 {
		logger.Warn("zero quote balance, running simulated",
			zap.String("quote", cfg.Bot.QuoteCurrency),
			zap.Float64("start_balance", cfg.Bot.SimStartBalance))
		return true, cfg.Bot.SimStartBalance
	}

	logger.Info("running live",
		zap.String("quote", cfg.Bot.QuoteCurrency),
		zap.Float64("balance", balance))
	return false, balance
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
