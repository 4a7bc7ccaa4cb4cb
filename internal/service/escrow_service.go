package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravtsov/marketplace-backend/internal/escrow"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
)

// LedgerRepository описывает зависимость эскроу-операций от леджера.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	GetPlatformBalance(ctx context.Context) (*models.PlatformBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount float64, description string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	ApplySettlement(ctx context.Context, tx *sqlx.Tx, s escrow.Settlement, refs repository.Refs) error
}

// EscrowService — единственная точка, через которую жизненные циклы и споры
// двигают деньги. Каждая операция применяется внутри транзакции вызывающего
// бизнес-события; сами по себе операции не идемпотентны, за однократность
// вызова отвечает проверка статуса в той же транзакции.
type EscrowService struct {
	ledger         LedgerRepository
	commissionRate float64
	penaltyRate    float64
}

// NewEscrowService создаёт сервис эскроу-операций с процессными ставками.
func NewEscrowService(ledger LedgerRepository, commissionRate, penaltyRate float64) *EscrowService {
	return &EscrowService{
		ledger:         ledger,
		commissionRate: commissionRate,
		penaltyRate:    penaltyRate,
	}
}

// Freeze замораживает средства плательщика под конкретную покупку или заявку.
func (s *EscrowService) Freeze(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.Freeze(payer, amount, flow), refs)
}

// Release закрывает эскроу в пользу исполнителя с удержанием комиссии.
func (s *EscrowService) Release(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.Release(payer, payee, amount, s.commissionRate, flow), refs)
}

// Refund возвращает замороженную сумму плательщику.
func (s *EscrowService) Refund(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.Refund(payer, amount), refs)
}

// DisputeRefund — полный возврат по решению администратора.
func (s *EscrowService) DisputeRefund(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.Refund(payer, amount).AsDisputeResolution(), refs)
}

// DisputePayProvider — выплата исполнителю по решению администратора.
func (s *EscrowService) DisputePayProvider(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.Release(payer, payee, amount, s.commissionRate, flow).AsDisputeResolution(), refs)
}

// DisputeSplit — раздел суммы пополам после комиссии.
func (s *EscrowService) DisputeSplit(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.Split(payer, payee, amount, s.commissionRate), refs)
}

// DisputeChargeBoth — штраф обеим сторонам в пользу площадки.
func (s *EscrowService) DisputeChargeBoth(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, refs repository.Refs) error {
	return s.apply(ctx, tx, escrow.ChargeBoth(payer, payee, amount, s.penaltyRate), refs)
}

func (s *EscrowService) apply(ctx context.Context, tx *sqlx.Tx, settlement escrow.Settlement, refs repository.Refs) error {
	if err := s.ledger.ApplySettlement(ctx, tx, settlement, refs); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return apperror.Wrap(err, apperror.ErrCodeInsufficientFunds, "недостаточно средств на балансе")
		}
		return err
	}
	return nil
}

// GetBalance возвращает баланс пользователя.
func (s *EscrowService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	return s.ledger.GetBalance(ctx, userID)
}

// GetPlatformBalance возвращает накопленный баланс площадки.
func (s *EscrowService) GetPlatformBalance(ctx context.Context) (*models.PlatformBalance, error) {
	return s.ledger.GetPlatformBalance(ctx)
}

// Deposit пополняет баланс.
func (s *EscrowService) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return s.ledger.Deposit(ctx, userID, amount, "Пополнение баланса")
}

// ListTransactions возвращает историю транзакций.
func (s *EscrowService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.ledger.ListTransactions(ctx, userID, limit, offset)
}
