package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triarb/internal/exchange"
	"triarb/internal/models"
)

// ErrPriceUnavailable - пара отсутствует в снапшоте или её стакан пуст
var ErrPriceUnavailable = errors.New("price unavailable")

// TickerCache хранит последний снимок рынка и обновляет его по TTL.
//
// Слой сознательно без backoff: неудачное обновление оставляет кэш и его
// timestamp нетронутыми, поэтому следующий вызов повторит запрос сразу.
// Устаревший снапшот лучше пустого - сканер продолжает работать на
// stale-данных пока биржа недоступна.
//
// Единственный писатель - горутина сканера, поэтому мьютекс не нужен.
type TickerCache struct {
	gateway exchange.Gateway
	ttl     time.Duration
	logger  *zap.Logger

	snapshot models.MarketSnapshot

	// подменяется в тестах
	now func() time.Time
}

// NewTickerCache создаёт кэш тикеров с заданным TTL
func NewTickerCache(gateway exchange.Gateway, ttl time.Duration, logger *zap.Logger) *TickerCache {
	return &TickerCache{
		gateway: gateway,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Refresh обновляет снапшот если текущий старше TTL.
// При ошибке сети кэш остаётся прежним, ошибка возвращается вызывающему.
func (c *TickerCache) Refresh(ctx context.Context) error {
	if c.snapshot.Books != nil && c.snapshot.Age(c.now()) <= c.ttl {
		return nil
	}

	start := c.now()
	tickers, err := c.gateway.FetchTickers(ctx)
	if err != nil {
		return fmt.Errorf("refresh tickers: %w", err)
	}
	TickerRefreshDuration.Observe(c.now().Sub(start).Seconds())

	books := make(map[string]models.Book, len(tickers))
	for _, t := range tickers {
		books[t.Pair] = models.Book{Bid: t.Bid, Ask: t.Ask}
	}

	// Замена атомарна с точки зрения читателей снапшота:
	// полный новый map вместо поэлементной правки старого
	c.snapshot = models.MarketSnapshot{
		Books:      books,
		CapturedAt: c.now(),
	}

	return nil
}

// BookFor возвращает верх стакана пары из текущего кэша.
//
// Сетевые сбои обновления не всплывают: кэш отдаёт устаревшие данные.
// ErrPriceUnavailable возвращается только если пары нет в снапшоте
// или одна из её цен пуста - это повод навсегда отключить петлю.
func (c *TickerCache) BookFor(ctx context.Context, pair string) (models.Book, error) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("ticker refresh failed, serving stale snapshot",
			zap.String("pair", pair),
			zap.Error(err))
	}

	book, ok := c.snapshot.Books[pair]
	if !ok || book.Empty() {
		return models.Book{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, pair)
	}

	return book, nil
}

// Snapshot возвращает копию текущего снапшота (для обнаружения петель)
func (c *TickerCache) Snapshot() models.MarketSnapshot {
	books := make(map[string]models.Book, len(c.snapshot.Books))
	for p, b := range c.snapshot.Books {
		books[p] = b
	}
	return models.MarketSnapshot{Books: books, CapturedAt: c.snapshot.CapturedAt}
}
