package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WatchlistStore는 감시 종목 저장소입니다
type WatchlistStore struct {
	db  *DB
	log zerolog.Logger
}

// NewWatchlistStore는 새로운 감시 종목 저장소를 생성합니다
func NewWatchlistStore(db *DB, log zerolog.Logger) *WatchlistStore {
	return &WatchlistStore{
		db:  db,
		log: log.With().Str("store", "watchlist").Logger(),
	}
}

// Seed는 설정에서 받은 초기 종목을 저장소에 병합합니다
// 이미 존재하는 종목은 변경하지 않습니다
func (s *WatchlistStore) Seed(ctx context.Context, symbols []string) error {
	now := time.Now().Format(time.RFC3339)

	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}

		_, err := s.db.conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO watchlist (symbol, added_at) VALUES (?, ?)`,
			symbol, now)
		if err != nil {
			return fmt.Errorf("감시 종목 추가 실패 (%s): %w", symbol, err)
		}
	}

	return nil
}

// Add는 감시 종목을 추가합니다
func (s *WatchlistStore) Add(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("종목 코드가 비어 있습니다")
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (symbol, added_at) VALUES (?, ?)`,
		symbol, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("감시 종목 추가 실패: %w", err)
	}

	s.log.Info().Str("symbol", symbol).Msg("감시 종목 추가")
	return nil
}

// Remove는 감시 종목을 제거합니다
func (s *WatchlistStore) Remove(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("감시 종목 제거 실패: %w", err)
	}

	s.log.Info().Str("symbol", symbol).Msg("감시 종목 제거")
	return nil
}

// Symbols는 감시 종목 목록을 반환합니다
func (s *WatchlistStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("감시 종목 조회 실패: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("감시 종목 스캔 실패: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}
