package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - Token Bucket лимитер для контроля частоты запросов к REST API.
//
// Ведро наполняется токенами с постоянной скоростью (rate токенов/сек),
// ёмкость ограничена burst, каждый запрос потребляет один токен.
//
// В исполнителе сделок используется с rate = 1/ORDER_INTERVAL и burst = 1:
// это даёт гарантированную минимальную паузу между последовательными
// ордерами (лимит Gate.io ~10 запросов/сек).
type RateLimiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewRateLimiter создаёт новый rate limiter
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = rate * 2
	}
	if burst < rate {
		burst = rate
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// NewIntervalLimiter создаёт лимитер с минимальной паузой interval
// между последовательными запросами (burst = 1)
func NewIntervalLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		// без паузы: ведро практически не опустошается
		return NewRateLimiter(1e9, 1)
	}
	rl := NewRateLimiter(1/interval.Seconds(), 1)
	rl.burst = 1
	rl.tokens = 1
	return rl
}

// refill пополняет токены на основе прошедшего времени.
// ВАЖНО: вызывается под lock'ом.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}

	rl.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		// Время ожидания до следующего токена
		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Allow проверяет доступность токена без блокировки
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// Tokens возвращает текущее количество доступных токенов (для мониторинга)
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate возвращает скорость пополнения токенов (токенов/сек)
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}
