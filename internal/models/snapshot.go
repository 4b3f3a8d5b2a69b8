package models

import "time"

// Book - верх стакана одной пары (лучшие bid и ask)
type Book struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// Empty возвращает true если хотя бы одна из цен отсутствует
func (b Book) Empty() bool {
	return b.Bid <= 0 || b.Ask <= 0
}

// MarketSnapshot - снимок рынка: пара → верх стакана плюс момент снятия.
//
// Снапшот считается свежим пока его возраст не превышает настроенный TTL.
// Неудачное обновление оставляет предыдущий снапшот на месте (stale-but-available),
// а не очищает его.
type MarketSnapshot struct {
	Books      map[string]Book `json:"books"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Age возвращает возраст снапшота относительно now
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// Pairs возвращает множество идентификаторов пар снапшота
func (s MarketSnapshot) Pairs() map[string]struct{} {
	pairs := make(map[string]struct{}, len(s.Books))
	for p := range s.Books {
		pairs[p] = struct{}{}
	}
	return pairs
}
