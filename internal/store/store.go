// internal/store/store.go
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // 순수 Go SQLite 드라이버
)

// DB는 SQLite 연결을 감싸는 구조체입니다
type DB struct {
	conn *sql.DB
	path string
}

// NewDB는 새로운 SQLite 연결을 생성합니다
// 동시 접근을 위해 WAL 모드를 사용합니다
func NewDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("데이터베이스 디렉토리 생성 실패: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("데이터베이스 열기 실패: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("데이터베이스 연결 확인 실패: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	db := &DB{conn: conn, path: dbPath}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// migrate는 필요한 테이블을 생성합니다
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id     TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		side         TEXT NOT NULL,
		quantity     INTEGER NOT NULL,
		price        REAL NOT NULL,
		order_type   TEXT NOT NULL,
		reason       TEXT,
		realized_pnl REAL NOT NULL DEFAULT 0,
		executed_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

	CREATE TABLE IF NOT EXISTS watchlist (
		symbol   TEXT PRIMARY KEY,
		added_at TEXT NOT NULL
	);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("스키마 생성 실패: %w", err)
	}
	return nil
}

// Close는 데이터베이스 연결을 닫습니다
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn은 내부 sql.DB 연결을 반환합니다
func (db *DB) Conn() *sql.DB {
	return db.conn
}
