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

var ErrDisputeNotFound = errors.New("dispute not found")

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create сохраняет спор внутри транзакции бизнес-события: спор создаётся
// одновременно со сменой статуса покупки или заявки.
func (r *DisputeRepository) Create(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (complainant_id, respondent_id, service_purchase_id, custom_request_id, description, complainant_note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRowContext(ctx, query,
		d.ComplainantID, d.RespondentID, d.ServicePurchaseID, d.CustomRequestID, d.Description, d.ComplainantNote, d.Status).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &d, nil
}

// GetByIDForUpdate блокирует строку спора до конца транзакции.
func (r *DisputeRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := tx.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: lock %w", err)
	}
	return &d, nil
}

// ActiveExists проверяет, есть ли незакрытый спор по покупке или заявке.
func (r *DisputeRepository) ActiveExists(ctx context.Context, tx *sqlx.Tx, purchaseID, requestID *uuid.UUID) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM disputes
		WHERE status <> 'resolved'
		  AND (($1::uuid IS NOT NULL AND service_purchase_id = $1)
		    OR ($2::uuid IS NOT NULL AND custom_request_id = $2))
	`, purchaseID, requestID)
	if err != nil {
		return false, fmt.Errorf("dispute repository: active exists %w", err)
	}
	return count > 0, nil
}

// Resolve записывает итог решения администратора.
func (r *DisputeRepository) Resolve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status, solution string, adminID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = $2, solution = $3, resolved_by_admin_id = $4, admin_decision_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, status, solution, adminID)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	return nil
}

// AddEvent добавляет запись таймлайна спора.
func (r *DisputeRepository) AddEvent(ctx context.Context, tx *sqlx.Tx, e *models.DisputeEvent) error {
	query := `
		INSERT INTO dispute_events (dispute_id, actor_id, action, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := tx.QueryRowContext(ctx, query, e.DisputeID, e.ActorID, e.Action, e.Note).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: add event %w", err)
	}
	return nil
}

func (r *DisputeRepository) ListEvents(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvent, error) {
	var events []models.DisputeEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM dispute_events WHERE dispute_id = $1 ORDER BY created_at
	`, disputeID)
	return events, err
}

// AddEvidence сохраняет метаданные приложенного файла в транзакции
// бизнес-события: вложение и запись таймлайна фиксируются вместе.
func (r *DisputeRepository) AddEvidence(ctx context.Context, tx *sqlx.Tx, e *models.DisputeEvidence) error {
	query := `
		INSERT INTO dispute_evidence (dispute_id, uploader_id, file_name, file_path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := tx.QueryRowContext(ctx, query,
		e.DisputeID, e.UploaderID, e.FileName, e.FilePath, e.MimeType, e.SizeBytes).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: add evidence %w", err)
	}
	return nil
}

func (r *DisputeRepository) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error) {
	var files []models.DisputeEvidence
	err := r.db.SelectContext(ctx, &files, `
		SELECT * FROM dispute_evidence WHERE dispute_id = $1 ORDER BY created_at
	`, disputeID)
	return files, err
}

// ListByUser возвращает споры, где пользователь — одна из сторон.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes
		WHERE complainant_id = $1 OR respondent_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return disputes, err
}

// ListOpen возвращает споры, ожидающие решения администратора.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE status <> 'resolved'
		ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	return disputes, err
}
