// Package repository - журнал сделок в PostgreSQL.
//
// Журнал хранит только историю завершённых попыток: бот никогда не
// восстанавливает из него состояние после рестарта. Подключение
// опционально (DB_ENABLED), без БД бот работает полностью.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"triarb/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с таблицей trades
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Record сохраняет завершённую попытку исполнения
func (r *TradeRepository) Record(ctx context.Context, trade models.TradeRecord) error {
	query := `
		INSERT INTO trades (loop_id, mode, status, profit_pct, profit, leg1_filled, leg2_filled, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		trade.LoopID,
		trade.Mode,
		trade.Status,
		trade.ProfitPct,
		trade.Profit,
		trade.Leg1Filled,
		trade.Leg2Filled,
		trade.ErrorMessage,
		trade.CreatedAt,
	)

	return err
}

// GetByID возвращает сделку по ID
func (r *TradeRepository) GetByID(ctx context.Context, id int) (*models.TradeRecord, error) {
	query := `
		SELECT id, loop_id, mode, status, profit_pct, profit, leg1_filled, leg2_filled, error_message, created_at
		FROM trades
		WHERE id = $1`

	trade := &models.TradeRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&trade.ID,
		&trade.LoopID,
		&trade.Mode,
		&trade.Status,
		&trade.ProfitPct,
		&trade.Profit,
		&trade.Leg1Filled,
		&trade.Leg2Filled,
		&trade.ErrorMessage,
		&trade.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	return trade, nil
}

// GetRecent возвращает последние limit сделок, новые первыми
func (r *TradeRepository) GetRecent(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, loop_id, mode, status, profit_pct, profit, leg1_filled, leg2_filled, error_message, created_at
		FROM trades
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{}
		err := rows.Scan(
			&trade.ID,
			&trade.LoopID,
			&trade.Mode,
			&trade.Status,
			&trade.ProfitPct,
			&trade.Profit,
			&trade.Leg1Filled,
			&trade.Leg2Filled,
			&trade.ErrorMessage,
			&trade.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}

// TotalProfit возвращает суммарную прибыль успешных сделок
func (r *TradeRepository) TotalProfit(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(SUM(profit), 0)
		FROM trades
		WHERE status = $1`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, models.StateSuccess).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}
