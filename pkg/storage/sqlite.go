package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Регистрирует драйвер "sqlite3"
)

// SQLite - хранилище слотов в файле SQLite.
//
// Структура таблицы:
//   CREATE TABLE kv (
//       key        TEXT PRIMARY KEY,
//       value      TEXT NOT NULL,
//       updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//   );
//
// Каждый Set - отдельный upsert, запись на диск сразу.
type SQLite struct {
	db    *sql.DB
	table string
}

// Проверка что SQLite реализует KeyValue
var _ KeyValue = (*SQLite)(nil)

// OpenSQLite открывает (или создаёт) файл базы и таблицу слотов.
//
// path ":memory:" допустим для тестов.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// Одно соединение: ":memory:" живёт только в нём, а конкуренции записей у нас нет
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, table: "kv"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Get читает слот.
func (s *SQLite) Get(key string) (string, bool, error) {
	var value string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table)

	err := s.db.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("database query failed: %w", err)
	}
	return value, true, nil
}

// Set перезаписывает слот (upsert).
func (s *SQLite) Set(key, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, s.table)
	if _, err := s.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete удаляет слот.
func (s *SQLite) Delete(key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table)
	if _, err := s.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close закрывает базу.
func (s *SQLite) Close() error {
	return s.db.Close()
}
