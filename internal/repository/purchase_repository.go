package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravtsov/marketplace-backend/internal/models"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

type PurchaseRepository struct {
	db *sqlx.DB
}

func NewPurchaseRepository(db *sqlx.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create сохраняет покупку в статусе pending с зафиксированной ценой.
func (r *PurchaseRepository) Create(ctx context.Context, p *models.ServicePurchase) error {
	query := `
		INSERT INTO service_purchases (service_id, buyer_id, provider_id, price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.ServiceID, p.BuyerID, p.ProviderID, p.Price, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("purchase repository: create %w", err)
	}
	return nil
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServicePurchase, error) {
	var p models.ServicePurchase
	err := r.db.GetContext(ctx, &p, `SELECT * FROM service_purchases WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("purchase repository: get by id %w", err)
	}
	return &p, nil
}

// GetByIDForUpdate блокирует строку покупки до конца транзакции.
// Конкурирующие операции над той же покупкой выстраиваются в очередь.
func (r *PurchaseRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.ServicePurchase, error) {
	var p models.ServicePurchase
	err := tx.GetContext(ctx, &p, `SELECT * FROM service_purchases WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("purchase repository: lock %w", err)
	}
	return &p, nil
}

// UpdateStatus меняет статус внутри транзакции бизнес-события.
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE service_purchases SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("purchase repository: update status %w", err)
	}
	return nil
}

// ListByUser возвращает покупки, где пользователь — покупатель или исполнитель.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServicePurchase, error) {
	var purchases []models.ServicePurchase
	err := r.db.SelectContext(ctx, &purchases, `
		SELECT * FROM service_purchases
		WHERE buyer_id = $1 OR provider_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return purchases, err
}
