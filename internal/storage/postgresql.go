package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
)

// Storage — реализация KV поверх PostgreSQL: таблица kv_store с jsonb-значением.
// Upsert по первичному ключу даёт требуемую атомарность записи.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Get возвращает значение по ключу.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "storage.Get"

	var value []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
	return value, true, nil
}

// Set сохраняет значение по ключу, перезаписывая существующее.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	const op = "storage.Set"

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
	return nil
}

// Update атомарно заменяет значение по ключу в одной транзакции.
// Advisory-блокировка по хэшу ключа сериализует конкурирующие
// read-check-write даже для ещё не существующей строки, которую
// SELECT ... FOR UPDATE заблокировать не может.
func (s *Storage) Update(ctx context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error {
	const op = "storage.Update"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}

	var current []byte
	found := true
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1`, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
		current = nil
	} else if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}

	next, err := fn(current, found)
	if err != nil {
		// Доменный отказ: транзакция откатывается, ошибка уходит как есть.
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, next); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
	return nil
}

// Delete удаляет значение по ключу.
func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.Delete"

	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
	return nil
}
