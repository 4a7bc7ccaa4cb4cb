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

var (
	ErrRequestNotFound = errors.New("custom request not found")
	ErrOfferNotFound   = errors.New("offer not found")
)

type RequestRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *models.CustomRequest) error {
	query := `
		INSERT INTO custom_requests (owner_id, title, description, budget, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, req.OwnerID, req.Title, req.Description, req.Budget, req.Status).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("request repository: create %w", err)
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CustomRequest, error) {
	var req models.CustomRequest
	err := r.db.GetContext(ctx, &req, `SELECT * FROM custom_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request repository: get by id %w", err)
	}
	return &req, nil
}

// GetByIDForUpdate блокирует строку заявки до конца транзакции.
func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.CustomRequest, error) {
	var req models.CustomRequest
	err := tx.GetContext(ctx, &req, `SELECT * FROM custom_requests WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request repository: lock %w", err)
	}
	return &req, nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE custom_requests SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("request repository: update status %w", err)
	}
	return nil
}

// SetAcceptedOffer фиксирует принятое предложение: заявка переходит в работу,
// выбранное предложение помечается accepted, остальные — rejected.
func (r *RequestRepository) SetAcceptedOffer(ctx context.Context, tx *sqlx.Tx, requestID, offerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE custom_requests SET accepted_offer_id = $2, status = $3, updated_at = NOW() WHERE id = $1
	`, requestID, offerID, models.RequestStatusInProgress)
	if err != nil {
		return fmt.Errorf("request repository: set accepted offer %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE custom_request_offers SET status = CASE WHEN id = $2 THEN 'accepted' ELSE 'rejected' END
		WHERE request_id = $1
	`, requestID, offerID)
	if err != nil {
		return fmt.Errorf("request repository: update offer statuses %w", err)
	}
	return nil
}

func (r *RequestRepository) CreateOffer(ctx context.Context, offer *models.CustomRequestOffer) error {
	query := `
		INSERT INTO custom_request_offers (request_id, provider_id, price, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, offer.RequestID, offer.ProviderID, offer.Price, offer.Message, offer.Status).
		Scan(&offer.ID, &offer.CreatedAt)
	if err != nil {
		return fmt.Errorf("request repository: create offer %w", err)
	}
	return nil
}

func (r *RequestRepository) GetOfferByID(ctx context.Context, id uuid.UUID) (*models.CustomRequestOffer, error) {
	var offer models.CustomRequestOffer
	err := r.db.GetContext(ctx, &offer, `SELECT * FROM custom_request_offers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request repository: get offer %w", err)
	}
	return &offer, nil
}

func (r *RequestRepository) ListOffers(ctx context.Context, requestID uuid.UUID) ([]models.CustomRequestOffer, error) {
	var offers []models.CustomRequestOffer
	err := r.db.SelectContext(ctx, &offers, `
		SELECT * FROM custom_request_offers WHERE request_id = $1 ORDER BY created_at
	`, requestID)
	return offers, err
}

func (r *RequestRepository) List(ctx context.Context, limit, offset int) ([]models.CustomRequest, error) {
	var requests []models.CustomRequest
	err := r.db.SelectContext(ctx, &requests, `
		SELECT * FROM custom_requests ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return requests, err
}

func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.CustomRequest, error) {
	var requests []models.CustomRequest
	err := r.db.SelectContext(ctx, &requests, `
		SELECT * FROM custom_requests WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	return requests, err
}
