package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravtsov/marketplace-backend/internal/escrow"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
	"github.com/dkravtsov/marketplace-backend/internal/repository/common"
)

// RequestRepository описывает взаимодействие сервиса с хранилищем заявок.
type RequestRepository interface {
	Create(ctx context.Context, req *models.CustomRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CustomRequest, error)
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.CustomRequest, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error
	SetAcceptedOffer(ctx context.Context, tx *sqlx.Tx, requestID, offerID uuid.UUID) error
	CreateOffer(ctx context.Context, offer *models.CustomRequestOffer) error
	GetOfferByID(ctx context.Context, id uuid.UUID) (*models.CustomRequestOffer, error)
	ListOffers(ctx context.Context, requestID uuid.UUID) ([]models.CustomRequestOffer, error)
	List(ctx context.Context, limit, offset int) ([]models.CustomRequest, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.CustomRequest, error)
}

// RequestService реализует жизненный цикл заявки с принятым предложением.
// Денежные переходы повторяют цикл покупки, но сумма берётся из цены
// принятого предложения.
type RequestService struct {
	tx       common.TxRunner
	requests RequestRepository
	escrow   EscrowEngine
	hub      WSNotifier
}

// NewRequestService создаёт сервис заявок.
func NewRequestService(tx common.TxRunner, requests RequestRepository, escrowEngine EscrowEngine) *RequestService {
	return &RequestService{
		tx:       tx,
		requests: requests,
		escrow:   escrowEngine,
	}
}

// SetHub устанавливает WebSocket hub для уведомлений.
func (s *RequestService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreateRequest публикует заявку владельца.
func (s *RequestService) CreateRequest(ctx context.Context, ownerID uuid.UUID, title, description string, budget *float64) (*models.CustomRequest, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "заголовок заявки обязателен")
	}
	req := &models.CustomRequest{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Budget:      budget,
		Status:      models.RequestStatusOpen,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// CreateOffer — исполнитель предлагает цену по открытой заявке.
func (s *RequestService) CreateOffer(ctx context.Context, requestID, providerID uuid.UUID, price float64, message string) (*models.CustomRequestOffer, error) {
	if price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена предложения должна быть положительной")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "заявка не найдена")
	}
	if req.Status != models.RequestStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidStateTransition, "заявка не принимает предложения")
	}
	if req.OwnerID == providerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя предлагать услуги по собственной заявке")
	}

	offer := &models.CustomRequestOffer{
		RequestID:  requestID,
		ProviderID: providerID,
		Price:      price,
		Message:    message,
		Status:     models.OfferStatusPending,
	}
	if err := s.requests.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	if s.hub != nil {
		_ = s.hub.BroadcastToUser(req.OwnerID, "request.offer_received", map[string]interface{}{
			"request_id": req.ID,
			"offer_id":   offer.ID,
		})
	}
	return offer, nil
}

// AcceptOffer — владелец принимает предложение: его средства на цену
// предложения замораживаются, заявка переходит в работу, остальные
// предложения отклоняются. Всё — одна транзакция.
func (s *RequestService) AcceptOffer(ctx context.Context, requestID, offerID, ownerID uuid.UUID) (*models.CustomRequest, error) {
	var request *models.CustomRequest
	var providerID uuid.UUID

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetByIDForUpdate(ctx, tx, requestID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "заявка не найдена")
		}
		if req.OwnerID != ownerID {
			return apperror.ErrForbidden
		}
		if req.Status != models.RequestStatusOpen {
			return invalidRequestTransition(req.Status, models.RequestStatusInProgress)
		}

		offer, err := s.requests.GetOfferByID(ctx, offerID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "предложение не найдено")
		}
		if offer.RequestID != req.ID {
			return apperror.New(apperror.ErrCodeValidation, "предложение относится к другой заявке")
		}
		if offer.Status != models.OfferStatusPending {
			return apperror.New(apperror.ErrCodeInvalidStateTransition, "предложение уже обработано")
		}

		refs := repository.Refs{RequestID: &req.ID}
		if err := s.escrow.Freeze(ctx, tx, req.OwnerID, offer.Price, escrow.FlowRequest, refs); err != nil {
			return err
		}

		if err := s.requests.SetAcceptedOffer(ctx, tx, req.ID, offer.ID); err != nil {
			return err
		}

		req.Status = models.RequestStatusInProgress
		req.AcceptedOfferID = &offer.ID
		request = req
		providerID = offer.ProviderID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(request, providerID)
	return request, nil
}

// SubmitWork — исполнитель принятого предложения сдаёт работу.
func (s *RequestService) SubmitWork(ctx context.Context, requestID, providerID uuid.UUID) (*models.CustomRequest, error) {
	return s.transition(ctx, requestID, providerID, false, models.RequestStatusInProgress, models.RequestStatusSubmitted, nil)
}

// AcceptSubmission — владелец принимает работу: эскроу закрывается в пользу
// исполнителя с удержанием комиссии.
func (s *RequestService) AcceptSubmission(ctx context.Context, requestID, ownerID uuid.UUID) (*models.CustomRequest, error) {
	return s.transition(ctx, requestID, ownerID, true, models.RequestStatusSubmitted, models.RequestStatusCompleted,
		func(tx *sqlx.Tx, req *models.CustomRequest, offer *models.CustomRequestOffer) error {
			refs := repository.Refs{RequestID: &req.ID}
			return s.escrow.Release(ctx, tx, req.OwnerID, offer.ProviderID, offer.Price, escrow.FlowRequest, refs)
		})
}

// RejectSubmission — владелец отклоняет сданную работу. Средства остаются
// в эскроу до спора или нового решения.
func (s *RequestService) RejectSubmission(ctx context.Context, requestID, ownerID uuid.UUID) (*models.CustomRequest, error) {
	return s.transition(ctx, requestID, ownerID, true, models.RequestStatusSubmitted, models.RequestStatusOwnerRejected, nil)
}

// GetRequest возвращает заявку вместе с предложениями.
func (s *RequestService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.CustomRequest, []models.CustomRequestOffer, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "заявка не найдена")
	}
	offers, err := s.requests.ListOffers(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	return req, offers, nil
}

// ListRequests возвращает ленту заявок.
func (s *RequestService) ListRequests(ctx context.Context, limit, offset int) ([]models.CustomRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.requests.List(ctx, limit, offset)
}

// ListMyRequests возвращает заявки владельца.
func (s *RequestService) ListMyRequests(ctx context.Context, ownerID uuid.UUID) ([]models.CustomRequest, error) {
	return s.requests.ListByOwner(ctx, ownerID)
}

type requestMoneyFn func(tx *sqlx.Tx, req *models.CustomRequest, offer *models.CustomRequestOffer) error

// transition выполняет переход статуса заявки одной транзакцией. Для
// переходов исполнителя право проверяется по принятому предложению.
func (s *RequestService) transition(ctx context.Context, requestID, actorID uuid.UUID, actorIsOwner bool, from, to string, money requestMoneyFn) (*models.CustomRequest, error) {
	var request *models.CustomRequest
	var counterparty uuid.UUID

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetByIDForUpdate(ctx, tx, requestID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "заявка не найдена")
		}
		if req.AcceptedOfferID == nil {
			return apperror.New(apperror.ErrCodeInvalidStateTransition, "по заявке нет принятого предложения")
		}

		offer, err := s.requests.GetOfferByID(ctx, *req.AcceptedOfferID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "предложение не найдено")
		}

		if actorIsOwner {
			if req.OwnerID != actorID {
				return apperror.ErrForbidden
			}
			counterparty = offer.ProviderID
		} else {
			if offer.ProviderID != actorID {
				return apperror.ErrForbidden
			}
			counterparty = req.OwnerID
		}

		if req.Status != from || !models.CanTransitionRequest(req.Status, to) {
			return invalidRequestTransition(req.Status, to)
		}

		if money != nil {
			if err := money(tx, req, offer); err != nil {
				return err
			}
		}

		req.Status = to
		request = req
		return s.requests.UpdateStatus(ctx, tx, req.ID, to)
	})
	if err != nil {
		return nil, err
	}

	s.notify(request, counterparty)
	return request, nil
}

func (s *RequestService) notify(req *models.CustomRequest, providerID uuid.UUID) {
	if s.hub == nil || req == nil {
		return
	}
	payload := map[string]interface{}{
		"request_id": req.ID,
		"status":     req.Status,
	}
	_ = s.hub.BroadcastToUser(req.OwnerID, "request.status_changed", payload)
	if providerID != uuid.Nil {
		_ = s.hub.BroadcastToUser(providerID, "request.status_changed", payload)
	}
}

func invalidRequestTransition(from, to string) error {
	return apperror.New(apperror.ErrCodeInvalidStateTransition,
		fmt.Sprintf("переход заявки из статуса %q в %q недопустим", from, to))
}
