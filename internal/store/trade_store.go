package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Trade는 체결된 거래 기록을 정의합니다
type Trade struct {
	ID          int64     `json:"id"`
	OrderID     string    `json:"orderId"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	OrderType   string    `json:"orderType"`
	Reason      string    `json:"reason"`
	RealizedPnL float64   `json:"realizedPnL"`
	ExecutedAt  time.Time `json:"executedAt"`
}

// TradeStore는 거래 기록 저장소입니다
type TradeStore struct {
	db  *DB
	log zerolog.Logger
}

// NewTradeStore는 새로운 거래 기록 저장소를 생성합니다
func NewTradeStore(db *DB, log zerolog.Logger) *TradeStore {
	return &TradeStore{
		db:  db,
		log: log.With().Str("store", "trade").Logger(),
	}
}

// RecordTrade는 거래 기록을 저장합니다
func (s *TradeStore) RecordTrade(ctx context.Context, trade Trade) error {
	query := `
		INSERT INTO trades
		(order_id, symbol, side, quantity, price, order_type, reason, realized_pnl, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.conn.ExecContext(ctx, query,
		trade.OrderID,
		strings.ToUpper(strings.TrimSpace(trade.Symbol)),
		strings.ToUpper(trade.Side),
		trade.Quantity,
		trade.Price,
		trade.OrderType,
		trade.Reason,
		trade.RealizedPnL,
		trade.ExecutedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("거래 기록 저장 실패: %w", err)
	}

	s.log.Debug().
		Str("symbol", trade.Symbol).
		Str("side", trade.Side).
		Int64("quantity", trade.Quantity).
		Msg("거래 기록 저장")

	return nil
}

// RecentTrades는 최근 거래 기록을 최신순으로 반환합니다
func (s *TradeStore) RecentTrades(ctx context.Context, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, order_id, symbol, side, quantity, price, order_type, reason, realized_pnl, executed_at
		FROM trades
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("거래 기록 조회 실패: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		var executedAt string
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Side, &t.Quantity,
			&t.Price, &t.OrderType, &t.Reason, &t.RealizedPnL, &executedAt); err != nil {
			return nil, fmt.Errorf("거래 기록 스캔 실패: %w", err)
		}
		executed, err := time.Parse(time.RFC3339, executedAt)
		if err != nil {
			s.log.Warn().Err(err).Int64("id", t.ID).Str("executedAt", executedAt).
				Msg("거래 기록의 체결 시각을 해석하지 못했습니다")
		}
		t.ExecutedAt = executed
		trades = append(trades, t)
	}

	return trades, rows.Err()
}
