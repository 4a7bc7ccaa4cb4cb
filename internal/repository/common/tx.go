package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxFunc — тело атомарной единицы работы. Всё внутри либо фиксируется
// целиком, либо откатывается целиком.
type TxFunc func(tx *sqlx.Tx) error

// TxRunner выполняет функцию в одной транзакции БД. Сервисы зависят от
// интерфейса, чтобы в тестах подменять транзакцию заглушкой.
type TxRunner interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// Store — TxRunner поверх пула sqlx.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// WithinTx открывает транзакцию, выполняет fn и фиксирует результат.
// Любая ошибка fn откатывает транзакцию без частичных изменений.
func (s *Store) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}
