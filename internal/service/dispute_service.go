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

// DisputeRepository описывает хранилище споров, таймлайна и вложений.
type DisputeRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error)
	ActiveExists(ctx context.Context, tx *sqlx.Tx, purchaseID, requestID *uuid.UUID) (bool, error)
	Resolve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status, solution string, adminID uuid.UUID) error
	AddEvent(ctx context.Context, tx *sqlx.Tx, e *models.DisputeEvent) error
	ListEvents(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvent, error)
	AddEvidence(ctx context.Context, tx *sqlx.Tx, e *models.DisputeEvidence) error
	ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
}

// DisputeEscrow — денежные исходы спора.
type DisputeEscrow interface {
	DisputeRefund(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, refs repository.Refs) error
	DisputePayProvider(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error
	DisputeSplit(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, refs repository.Refs) error
	DisputeChargeBoth(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, refs repository.Refs) error
}

// EvidenceStorage сохраняет файл вложения и возвращает путь и MIME-тип.
type EvidenceStorage interface {
	Save(disputeID uuid.UUID, fileName string, data []byte) (path string, mimeType string, err error)
}

// DisputeService ведёт споры: открытие стороной сделки, решение
// администратором одним из шести действий, таймлайн и вложения.
type DisputeService struct {
	tx        common.TxRunner
	disputes  DisputeRepository
	purchases PurchaseRepository
	requests  RequestRepository
	escrow    DisputeEscrow
	storage   EvidenceStorage
	hub       WSNotifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(tx common.TxRunner, disputes DisputeRepository, purchases PurchaseRepository, requests RequestRepository, escrowEngine DisputeEscrow, storage EvidenceStorage) *DisputeService {
	return &DisputeService{
		tx:        tx,
		disputes:  disputes,
		purchases: purchases,
		requests:  requests,
		escrow:    escrowEngine,
		storage:   storage,
	}
}

// SetHub устанавливает WebSocket hub для уведомлений.
func (s *DisputeService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// OpenPurchaseDispute открывает спор по покупке. Инициатором может быть
// любая из сторон, покупка должна быть в работе или сдана. Повторный
// активный спор по той же покупке запрещён.
func (s *DisputeService) OpenPurchaseDispute(ctx context.Context, purchaseID, initiatorID uuid.UUID, description string) (*models.Dispute, error) {
	var dispute *models.Dispute
	var respondentID uuid.UUID

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.purchases.GetByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "покупка не найдена")
		}

		var disputedStatus string
		switch initiatorID {
		case p.BuyerID:
			disputedStatus = models.PurchaseStatusDisputedByBuyer
			respondentID = p.ProviderID
		case p.ProviderID:
			disputedStatus = models.PurchaseStatusDisputedByProvider
			respondentID = p.BuyerID
		default:
			return apperror.ErrForbidden
		}

		if !models.CanTransitionPurchase(p.Status, disputedStatus) {
			return apperror.New(apperror.ErrCodeInvalidStateTransition,
				fmt.Sprintf("спор по покупке в статусе %q невозможен", p.Status))
		}

		exists, err := s.disputes.ActiveExists(ctx, tx, &p.ID, nil)
		if err != nil {
			return err
		}
		if exists {
			return apperror.New(apperror.ErrCodeDuplicateDispute, "по покупке уже открыт спор")
		}

		d := &models.Dispute{
			ComplainantID:     initiatorID,
			RespondentID:      respondentID,
			ServicePurchaseID: &p.ID,
			Description:       description,
			Status:            models.DisputeStatusOpen,
		}
		if err := s.disputes.Create(ctx, tx, d); err != nil {
			return err
		}
		if err := s.purchases.UpdateStatus(ctx, tx, p.ID, disputedStatus); err != nil {
			return err
		}
		if err := s.disputes.AddEvent(ctx, tx, &models.DisputeEvent{
			DisputeID: d.ID,
			ActorID:   initiatorID,
			Action:    "opened",
		}); err != nil {
			return err
		}

		dispute = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(dispute, "dispute.opened")
	return dispute, nil
}

// OpenRequestDispute открывает спор по заявке. В отличие от покупки,
// спор допустим и после отклонения работы владельцем.
func (s *DisputeService) OpenRequestDispute(ctx context.Context, requestID, initiatorID uuid.UUID, description string) (*models.Dispute, error) {
	var dispute *models.Dispute

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

		var disputedStatus string
		var respondentID uuid.UUID
		switch initiatorID {
		case req.OwnerID:
			disputedStatus = models.RequestStatusDisputedByOwner
			respondentID = offer.ProviderID
		case offer.ProviderID:
			disputedStatus = models.RequestStatusDisputedByProvider
			respondentID = req.OwnerID
		default:
			return apperror.ErrForbidden
		}

		if !models.CanTransitionRequest(req.Status, disputedStatus) {
			return apperror.New(apperror.ErrCodeInvalidStateTransition,
				fmt.Sprintf("спор по заявке в статусе %q невозможен", req.Status))
		}

		exists, err := s.disputes.ActiveExists(ctx, tx, nil, &req.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.New(apperror.ErrCodeDuplicateDispute, "по заявке уже открыт спор")
		}

		d := &models.Dispute{
			ComplainantID:   initiatorID,
			RespondentID:    respondentID,
			CustomRequestID: &req.ID,
			Description:     description,
			Status:          models.DisputeStatusOpen,
		}
		if err := s.disputes.Create(ctx, tx, d); err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(ctx, tx, req.ID, disputedStatus); err != nil {
			return err
		}
		if err := s.disputes.AddEvent(ctx, tx, &models.DisputeEvent{
			DisputeID: d.ID,
			ActorID:   initiatorID,
			Action:    "opened",
		}); err != nil {
			return err
		}

		dispute = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(dispute, "dispute.opened")
	return dispute, nil
}

// Resolve применяет решение администратора. Денежный исход, новый статус
// спора и статус спорной сущности фиксируются одной транзакцией;
// ask_provider_to_redo оставляет спор открытым и возвращает работу
// исполнителю, остальные действия закрывают спор.
func (s *DisputeService) Resolve(ctx context.Context, disputeID, adminID uuid.UUID, action, solution string) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeActions[action]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестное действие %q", action))
	}

	var dispute *models.Dispute

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		d, err := s.disputes.GetByIDForUpdate(ctx, tx, disputeID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "спор не найден")
		}
		if !d.Active() {
			return apperror.New(apperror.ErrCodeInvalidStateTransition, "спор уже разрешён")
		}

		terminal := action != models.DisputeActionAskRedo

		switch {
		case d.ServicePurchaseID != nil:
			if err := s.resolvePurchase(ctx, tx, d, adminID, action, terminal); err != nil {
				return err
			}
		case d.CustomRequestID != nil:
			if err := s.resolveRequest(ctx, tx, d, adminID, action, terminal); err != nil {
				return err
			}
		default:
			return apperror.New(apperror.ErrCodeInternal, "спор не привязан к сделке")
		}

		newStatus := models.DisputeStatusUnderReview
		if terminal {
			newStatus = models.DisputeStatusResolved
		}
		if err := s.disputes.Resolve(ctx, tx, d.ID, newStatus, solution, adminID); err != nil {
			return err
		}

		note := solution
		if err := s.disputes.AddEvent(ctx, tx, &models.DisputeEvent{
			DisputeID: d.ID,
			ActorID:   adminID,
			Action:    action,
			Note:      &note,
		}); err != nil {
			return err
		}

		d.Status = newStatus
		d.Solution = &solution
		d.ResolvedByAdminID = &adminID
		dispute = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(dispute, "dispute.resolved")
	return dispute, nil
}

// purchaseResolvable сообщает, допускает ли статус покупки решение её
// активного спора. Кроме статусов спора сюда входят in_progress и submitted:
// действие ask_provider_to_redo возвращает покупку в работу, а спор остаётся
// активным до терминального действия.
func purchaseResolvable(status string) bool {
	return models.PurchaseDisputed(status) ||
		status == models.PurchaseStatusInProgress ||
		status == models.PurchaseStatusSubmitted
}

// requestResolvable — то же для заявки. После возврата на доработку заявка
// может пройти in_progress -> submitted -> owner_rejected, спор при этом
// остаётся активным.
func requestResolvable(status string) bool {
	return models.RequestDisputed(status) ||
		status == models.RequestStatusInProgress ||
		status == models.RequestStatusSubmitted ||
		status == models.RequestStatusOwnerRejected
}

// resolvePurchase применяет действие к спору по покупке. Плательщик —
// покупатель, получатель — исполнитель, сумма — цена покупки.
func (s *DisputeService) resolvePurchase(ctx context.Context, tx *sqlx.Tx, d *models.Dispute, adminID uuid.UUID, action string, terminal bool) error {
	p, err := s.purchases.GetByIDForUpdate(ctx, tx, *d.ServicePurchaseID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "покупка не найдена")
	}
	if !purchaseResolvable(p.Status) {
		return apperror.New(apperror.ErrCodeInvalidStateTransition,
			fmt.Sprintf("покупка в статусе %q не допускает решения спора", p.Status))
	}

	refs := repository.Refs{PurchaseID: &p.ID, DisputeID: &d.ID, AdminID: &adminID}

	switch action {
	case models.DisputeActionRefundBuyer:
		err = s.escrow.DisputeRefund(ctx, tx, p.BuyerID, p.Price, refs)
	case models.DisputeActionPayProvider:
		err = s.escrow.DisputePayProvider(ctx, tx, p.BuyerID, p.ProviderID, p.Price, escrow.FlowPurchase, refs)
	case models.DisputeActionSplit:
		err = s.escrow.DisputeSplit(ctx, tx, p.BuyerID, p.ProviderID, p.Price, refs)
	case models.DisputeActionChargeBoth:
		err = s.escrow.DisputeChargeBoth(ctx, tx, p.BuyerID, p.ProviderID, p.Price, refs)
	case models.DisputeActionAskRedo:
		// Без движения средств: эскроу остаётся замороженным.
	default:
		return apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("действие %q неприменимо к спору по покупке", action))
	}
	if err != nil {
		return err
	}

	next := models.PurchaseStatusInProgress
	if terminal {
		next = models.PurchaseStatusCompleted
	}
	return s.purchases.UpdateStatus(ctx, tx, p.ID, next)
}

// resolveRequest применяет действие к спору по заявке. Сумма берётся из
// цены принятого предложения.
func (s *DisputeService) resolveRequest(ctx context.Context, tx *sqlx.Tx, d *models.Dispute, adminID uuid.UUID, action string, terminal bool) error {
	req, err := s.requests.GetByIDForUpdate(ctx, tx, *d.CustomRequestID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "заявка не найдена")
	}
	if !requestResolvable(req.Status) {
		return apperror.New(apperror.ErrCodeInvalidStateTransition,
			fmt.Sprintf("заявка в статусе %q не допускает решения спора", req.Status))
	}
	if req.AcceptedOfferID == nil {
		return apperror.New(apperror.ErrCodeInternal, "по спорной заявке нет принятого предложения")
	}
	offer, err := s.requests.GetOfferByID(ctx, *req.AcceptedOfferID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "предложение не найдено")
	}

	refs := repository.Refs{RequestID: &req.ID, DisputeID: &d.ID, AdminID: &adminID}

	switch action {
	case models.DisputeActionRefundOwner:
		err = s.escrow.DisputeRefund(ctx, tx, req.OwnerID, offer.Price, refs)
	case models.DisputeActionPayProvider:
		err = s.escrow.DisputePayProvider(ctx, tx, req.OwnerID, offer.ProviderID, offer.Price, escrow.FlowRequest, refs)
	case models.DisputeActionSplit:
		err = s.escrow.DisputeSplit(ctx, tx, req.OwnerID, offer.ProviderID, offer.Price, refs)
	case models.DisputeActionChargeBoth:
		err = s.escrow.DisputeChargeBoth(ctx, tx, req.OwnerID, offer.ProviderID, offer.Price, refs)
	case models.DisputeActionAskRedo:
		// Без движения средств: эскроу остаётся замороженным.
	default:
		return apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("действие %q неприменимо к спору по заявке", action))
	}
	if err != nil {
		return err
	}

	next := models.RequestStatusInProgress
	if terminal {
		next = models.RequestStatusCompleted
	}
	return s.requests.UpdateStatus(ctx, tx, req.ID, next)
}

// AttachEvidence сохраняет файл вложения стороны спора.
func (s *DisputeService) AttachEvidence(ctx context.Context, disputeID, uploaderID uuid.UUID, fileName string, data []byte) (*models.DisputeEvidence, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "спор не найден")
	}
	if d.Status == models.DisputeStatusResolved {
		return nil, apperror.New(apperror.ErrCodeInvalidStateTransition, "спор уже разрешён")
	}
	if uploaderID != d.ComplainantID && uploaderID != d.RespondentID {
		return nil, apperror.ErrForbidden
	}

	path, mimeType, err := s.storage.Save(disputeID, fileName, data)
	if err != nil {
		return nil, err
	}

	evidence := &models.DisputeEvidence{
		DisputeID:  disputeID,
		UploaderID: uploaderID,
		FileName:   fileName,
		FilePath:   path,
		MimeType:   mimeType,
		SizeBytes:  int64(len(data)),
	}

	// Вложение и запись таймлайна фиксируются одной транзакцией.
	note := fileName
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.disputes.AddEvidence(ctx, tx, evidence); err != nil {
			return err
		}
		return s.disputes.AddEvent(ctx, tx, &models.DisputeEvent{
			DisputeID: disputeID,
			ActorID:   uploaderID,
			Action:    "evidence_attached",
			Note:      &note,
		})
	})
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

// GetDispute возвращает спор с таймлайном и вложениями. Доступ — стороны
// спора и администратор.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID, viewerID uuid.UUID, isAdmin bool) (*models.Dispute, []models.DisputeEvent, []models.DisputeEvidence, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, nil, nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "спор не найден")
	}
	if !isAdmin && viewerID != d.ComplainantID && viewerID != d.RespondentID {
		return nil, nil, nil, apperror.ErrForbidden
	}

	events, err := s.disputes.ListEvents(ctx, disputeID)
	if err != nil {
		return nil, nil, nil, err
	}
	evidence, err := s.disputes.ListEvidence(ctx, disputeID)
	if err != nil {
		return nil, nil, nil, err
	}
	return d, events, evidence, nil
}

// ListMyDisputes возвращает споры, в которых пользователь участвует.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

// ListOpenDisputes возвращает неразрешённые споры для администратора.
func (s *DisputeService) ListOpenDisputes(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.disputes.ListOpen(ctx, limit, offset)
}

func (s *DisputeService) notify(d *models.Dispute, event string) {
	if s.hub == nil || d == nil {
		return
	}
	payload := map[string]interface{}{
		"dispute_id": d.ID,
		"status":     d.Status,
	}
	_ = s.hub.BroadcastToUser(d.ComplainantID, event, payload)
	_ = s.hub.BroadcastToUser(d.RespondentID, event, payload)
}
