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

var ErrServiceNotFound = errors.New("service not found")

type ServiceRepository struct {
	db *sqlx.DB
}

func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, s *models.Service) error {
	query := `
		INSERT INTO services (provider_id, title, description, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, s.ProviderID, s.Title, s.Description, s.Price).
		Scan(&s.ID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("service repository: create %w", err)
	}
	return nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	err := r.db.GetContext(ctx, &service, `SELECT * FROM services WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("service repository: get by id %w", err)
	}
	return &service, nil
}

func (r *ServiceRepository) List(ctx context.Context, limit, offset int) ([]models.Service, error) {
	var services []models.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services WHERE is_active ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return services, err
}

func (r *ServiceRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Service, error) {
	var services []models.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services WHERE provider_id = $1 ORDER BY created_at DESC
	`, providerID)
	return services, err
}
