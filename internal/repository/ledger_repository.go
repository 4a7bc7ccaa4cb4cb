package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravtsov/marketplace-backend/internal/escrow"
	"github.com/dkravtsov/marketplace-backend/internal/models"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeFrozen    = errors.New("frozen balance would drop below zero")
)

// Refs связывает записи леджера с породившей их сущностью.
type Refs struct {
	PurchaseID *uuid.UUID
	RequestID  *uuid.UUID
	DisputeID  *uuid.UUID
	AdminID    *uuid.UUID
}

// Допуск на шум арифметики с плавающей точкой при проверке инвариантов.
const balanceEpsilon = 1e-9

// LedgerRepository — единственный код, который изменяет балансы
// пользователей, баланс площадки и пишет в журнал транзакций.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetBalance возвращает баланс пользователя. Чтение не пишет в таблицу:
// отсутствие строки означает нулевой баланс, строка создаётся только
// первым движением средств.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	err := r.db.GetContext(ctx, &balance, `
		SELECT user_id, available, frozen, updated_at FROM user_balances WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.UserBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger repository: get balance %w", err)
	}
	return &balance, nil
}

// GetPlatformBalance возвращает накопленный баланс площадки.
func (r *LedgerRepository) GetPlatformBalance(ctx context.Context) (*models.PlatformBalance, error) {
	var balance models.PlatformBalance
	err := r.db.GetContext(ctx, &balance, `SELECT id, total, updated_at FROM platform_balance WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: get platform balance %w", err)
	}
	return &balance, nil
}

// Deposit пополняет свободный баланс пользователя.
func (r *LedgerRepository) Deposit(ctx context.Context, userID uuid.UUID, amount float64, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: deposit update balance %w", err)
	}

	var transaction models.Transaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (user_id, amount, direction, reason, description)
		VALUES ($1, $2, 'credit', 'deposit', $3)
		RETURNING id, user_id, admin_id, amount, direction, reason, purchase_id, request_id, dispute_id, description, created_at
	`, userID, amount, description)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: deposit create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, admin_id, amount, direction, reason, purchase_id, request_id, dispute_id, description, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}

// ApplySettlement применяет расчёт внутри переданной транзакции:
// блокирует строки балансов FOR UPDATE в порядке возрастания идентификаторов,
// проверяет инварианты неотрицательности и пишет записи леджера. Частичное
// применение невозможно — откат транзакции отменяет всё.
func (r *LedgerRepository) ApplySettlement(ctx context.Context, tx *sqlx.Tx, s escrow.Settlement, refs Refs) error {
	deltas := make([]escrow.BalanceDelta, len(s.Deltas))
	copy(deltas, s.Deltas)
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].UserID.String() < deltas[j].UserID.String()
	})

	for _, d := range deltas {
		if err := r.applyDelta(ctx, tx, d); err != nil {
			return err
		}
	}

	if s.Platform != 0 {
		if err := r.applyPlatformDelta(ctx, tx, s.Platform); err != nil {
			return err
		}
	}

	for _, e := range s.Entries {
		if err := r.appendEntry(ctx, tx, e, refs); err != nil {
			return err
		}
	}

	return nil
}

func (r *LedgerRepository) applyDelta(ctx context.Context, tx *sqlx.Tx, d escrow.BalanceDelta) error {
	// Строка баланса могла ещё не существовать (исполнитель без пополнений).
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, d.UserID)
	if err != nil {
		return fmt.Errorf("ledger repository: ensure balance row %w", err)
	}

	var balance models.UserBalance
	err = tx.GetContext(ctx, &balance, `
		SELECT user_id, available, frozen, updated_at FROM user_balances WHERE user_id = $1 FOR UPDATE
	`, d.UserID)
	if err != nil {
		return fmt.Errorf("ledger repository: lock balance row %w", err)
	}

	newAvailable := balance.Available + d.Available
	newFrozen := balance.Frozen + d.Frozen

	if newAvailable < -balanceEpsilon && !d.AllowOverdraft {
		return ErrInsufficientFunds
	}
	if newFrozen < -balanceEpsilon {
		return ErrNegativeFrozen
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_balances SET available = $2, frozen = $3, updated_at = NOW()
		WHERE user_id = $1
	`, d.UserID, newAvailable, newFrozen)
	if err != nil {
		return fmt.Errorf("ledger repository: update balance %w", err)
	}
	return nil
}

func (r *LedgerRepository) applyPlatformDelta(ctx context.Context, tx *sqlx.Tx, delta float64) error {
	var total float64
	err := tx.GetContext(ctx, &total, `SELECT total FROM platform_balance WHERE id = 1 FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("ledger repository: lock platform balance %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE platform_balance SET total = total + $1, updated_at = NOW() WHERE id = 1
	`, delta)
	if err != nil {
		return fmt.Errorf("ledger repository: update platform balance %w", err)
	}
	return nil
}

func (r *LedgerRepository) appendEntry(ctx context.Context, tx *sqlx.Tx, e escrow.Entry, refs Refs) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, admin_id, amount, direction, reason, purchase_id, request_id, dispute_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.UserID, refs.AdminID, e.Amount, e.Direction, e.Reason, refs.PurchaseID, refs.RequestID, refs.DisputeID, e.Description)
	if err != nil {
		return fmt.Errorf("ledger repository: append transaction %w", err)
	}
	return nil
}
