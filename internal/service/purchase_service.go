package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravtsov/marketplace-backend/internal/escrow"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
	"github.com/dkravtsov/marketplace-backend/internal/repository/common"
)

// PurchaseRepository описывает взаимодействие сервиса с хранилищем покупок.
type PurchaseRepository interface {
	Create(ctx context.Context, p *models.ServicePurchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServicePurchase, error)
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.ServicePurchase, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServicePurchase, error)
}

// ServiceCatalog — минимальный контракт каталога услуг.
type ServiceCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
}

// EscrowEngine — эскроу-операции, доступные жизненным циклам.
type EscrowEngine interface {
	Freeze(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error
	Release(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error
	Refund(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, refs repository.Refs) error
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// ErrAcceptWindowExpired возвращается при попытке принять просроченную
// покупку: статус уже переведён в refused_due_to_timeout той же операцией.
var ErrAcceptWindowExpired = apperror.New(apperror.ErrCodeInvalidStateTransition, "срок принятия покупки истёк")

// PurchaseService реализует жизненный цикл покупки услуги. Каждая операция —
// одна транзакция БД: блокировка строки покупки, проверка перехода,
// движение средств и смена статуса фиксируются вместе.
type PurchaseService struct {
	tx        common.TxRunner
	purchases PurchaseRepository
	catalog   ServiceCatalog
	escrow    EscrowEngine
	acceptTTL time.Duration
	hub       WSNotifier
}

// NewPurchaseService создаёт сервис покупок.
func NewPurchaseService(tx common.TxRunner, purchases PurchaseRepository, catalog ServiceCatalog, escrowEngine EscrowEngine, acceptTTL time.Duration) *PurchaseService {
	return &PurchaseService{
		tx:        tx,
		purchases: purchases,
		catalog:   catalog,
		escrow:    escrowEngine,
		acceptTTL: acceptTTL,
	}
}

// SetHub устанавливает WebSocket hub для уведомлений о смене статусов.
func (s *PurchaseService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreatePurchase оформляет покупку: цена услуги фиксируется на момент
// оформления. Средства на этом шаге не двигаются.
func (s *PurchaseService) CreatePurchase(ctx context.Context, buyerID, serviceID uuid.UUID) (*models.ServicePurchase, error) {
	service, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "услуга не найдена")
	}
	if !service.IsActive {
		return nil, apperror.New(apperror.ErrCodeValidation, "услуга недоступна для покупки")
	}
	if service.ProviderID == buyerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя купить собственную услугу")
	}

	purchase := &models.ServicePurchase{
		ServiceID:  service.ID,
		BuyerID:    buyerID,
		ProviderID: service.ProviderID,
		Price:      service.Price,
		Status:     models.PurchaseStatusPending,
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		return nil, err
	}

	s.notify(purchase)
	return purchase, nil
}

// Accept — исполнитель принимает покупку в работу. Просроченная покупка
// вместо принятия переводится в refused_due_to_timeout, и вызов завершается
// ошибкой; окно проверяется лениво, фоновой задачи нет.
func (s *PurchaseService) Accept(ctx context.Context, purchaseID, providerID uuid.UUID) (*models.ServicePurchase, error) {
	var purchase *models.ServicePurchase
	var timedOut bool

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.purchases.GetByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "покупка не найдена")
		}
		if p.ProviderID != providerID {
			return apperror.ErrForbidden
		}
		if p.Status != models.PurchaseStatusPending {
			return invalidPurchaseTransition(p.Status, models.PurchaseStatusInProgress)
		}

		if time.Since(p.CreatedAt) > s.acceptTTL {
			// Автоматический отказ: на шаге pending средства ещё не
			// заморожены, возвращать нечего.
			timedOut = true
			p.Status = models.PurchaseStatusRefusedByTimeout
			purchase = p
			return s.purchases.UpdateStatus(ctx, tx, p.ID, models.PurchaseStatusRefusedByTimeout)
		}

		refs := repository.Refs{PurchaseID: &p.ID}
		if err := s.escrow.Freeze(ctx, tx, p.BuyerID, p.Price, escrow.FlowPurchase, refs); err != nil {
			return err
		}

		p.Status = models.PurchaseStatusInProgress
		purchase = p
		return s.purchases.UpdateStatus(ctx, tx, p.ID, models.PurchaseStatusInProgress)
	})
	if err != nil {
		return nil, err
	}

	s.notify(purchase)
	if timedOut {
		return purchase, ErrAcceptWindowExpired
	}
	return purchase, nil
}

// Reject — исполнитель отказывается от покупки. Средства не двигаются.
func (s *PurchaseService) Reject(ctx context.Context, purchaseID, providerID uuid.UUID) (*models.ServicePurchase, error) {
	return s.providerTransition(ctx, purchaseID, providerID, models.PurchaseStatusPending, models.PurchaseStatusProviderRejected, nil)
}

// Submit — исполнитель отмечает работу выполненной.
func (s *PurchaseService) Submit(ctx context.Context, purchaseID, providerID uuid.UUID) (*models.ServicePurchase, error) {
	return s.providerTransition(ctx, purchaseID, providerID, models.PurchaseStatusInProgress, models.PurchaseStatusSubmitted, nil)
}

// AcceptSubmission — покупатель принимает работу: эскроу закрывается в пользу
// исполнителя, комиссия уходит площадке.
func (s *PurchaseService) AcceptSubmission(ctx context.Context, purchaseID, buyerID uuid.UUID) (*models.ServicePurchase, error) {
	return s.buyerTransition(ctx, purchaseID, buyerID, models.PurchaseStatusSubmitted, models.PurchaseStatusCompleted,
		func(tx *sqlx.Tx, p *models.ServicePurchase) error {
			refs := repository.Refs{PurchaseID: &p.ID}
			return s.escrow.Release(ctx, tx, p.BuyerID, p.ProviderID, p.Price, escrow.FlowPurchase, refs)
		})
}

// RejectSubmission — покупатель возвращает работу на доработку.
// Средства остаются в эскроу, исполнитель может отправить работу повторно.
func (s *PurchaseService) RejectSubmission(ctx context.Context, purchaseID, buyerID uuid.UUID) (*models.ServicePurchase, error) {
	return s.buyerTransition(ctx, purchaseID, buyerID, models.PurchaseStatusSubmitted, models.PurchaseStatusInProgress, nil)
}

// GetPurchase возвращает покупку участнику сделки.
func (s *PurchaseService) GetPurchase(ctx context.Context, purchaseID, userID uuid.UUID) (*models.ServicePurchase, error) {
	p, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "покупка не найдена")
	}
	if p.BuyerID != userID && p.ProviderID != userID {
		return nil, apperror.ErrForbidden
	}
	return p, nil
}

// ListMyPurchases возвращает покупки пользователя в любой роли.
func (s *PurchaseService) ListMyPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServicePurchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.purchases.ListByUser(ctx, userID, limit, offset)
}

type purchaseMoneyFn func(tx *sqlx.Tx, p *models.ServicePurchase) error

func (s *PurchaseService) providerTransition(ctx context.Context, purchaseID, actorID uuid.UUID, from, to string, money purchaseMoneyFn) (*models.ServicePurchase, error) {
	return s.transition(ctx, purchaseID, from, to, money, func(p *models.ServicePurchase) bool {
		return p.ProviderID == actorID
	})
}

func (s *PurchaseService) buyerTransition(ctx context.Context, purchaseID, actorID uuid.UUID, from, to string, money purchaseMoneyFn) (*models.ServicePurchase, error) {
	return s.transition(ctx, purchaseID, from, to, money, func(p *models.ServicePurchase) bool {
		return p.BuyerID == actorID
	})
}

// transition выполняет один переход статуса как атомарную единицу:
// блокировка строки, проверка прав и предусловия, движение средств, статус.
func (s *PurchaseService) transition(ctx context.Context, purchaseID uuid.UUID, from, to string, money purchaseMoneyFn, allowed func(*models.ServicePurchase) bool) (*models.ServicePurchase, error) {
	var purchase *models.ServicePurchase

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.purchases.GetByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "покупка не найдена")
		}
		if !allowed(p) {
			return apperror.ErrForbidden
		}
		if p.Status != from || !models.CanTransitionPurchase(p.Status, to) {
			return invalidPurchaseTransition(p.Status, to)
		}

		if money != nil {
			if err := money(tx, p); err != nil {
				return err
			}
		}

		p.Status = to
		purchase = p
		return s.purchases.UpdateStatus(ctx, tx, p.ID, to)
	})
	if err != nil {
		return nil, err
	}

	s.notify(purchase)
	return purchase, nil
}

func (s *PurchaseService) notify(p *models.ServicePurchase) {
	if s.hub == nil || p == nil {
		return
	}
	payload := map[string]interface{}{
		"purchase_id": p.ID,
		"status":      p.Status,
	}
	_ = s.hub.BroadcastToUser(p.BuyerID, "purchase.status_changed", payload)
	_ = s.hub.BroadcastToUser(p.ProviderID, "purchase.status_changed", payload)
}

func invalidPurchaseTransition(from, to string) error {
	return apperror.New(apperror.ErrCodeInvalidStateTransition,
		fmt.Sprintf("переход покупки из статуса %q в %q недопустим", from, to))
}
