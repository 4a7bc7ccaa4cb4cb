package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/dkravtsov/marketplace-backend/internal/escrow"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
	"github.com/dkravtsov/marketplace-backend/internal/repository/common"
)

// stubTx выполняет тело транзакции без БД: tx равен nil, репозитории
// в тестах замоканы и указатель не разыменовывают.
type stubTx struct{}

func (stubTx) WithinTx(_ context.Context, fn common.TxFunc) error {
	return fn(nil)
}

var _ common.TxRunner = stubTx{}

type MockPurchaseRepo struct {
	mock.Mock
}

func (m *MockPurchaseRepo) Create(ctx context.Context, p *models.ServicePurchase) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockPurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ServicePurchase, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.ServicePurchase), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseRepo) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.ServicePurchase, error) {
	args := m.Called(ctx, tx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.ServicePurchase), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockPurchaseRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServicePurchase, error) {
	args := m.Called(ctx, userID, limit, offset)
	if list := args.Get(0); list != nil {
		return list.([]models.ServicePurchase), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, req *models.CustomRequest) error {
	args := m.Called(ctx, req)
	if args.Error(0) == nil {
		req.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CustomRequest, error) {
	args := m.Called(ctx, id)
	if req := args.Get(0); req != nil {
		return req.(*models.CustomRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepo) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.CustomRequest, error) {
	args := m.Called(ctx, tx, id)
	if req := args.Get(0); req != nil {
		return req.(*models.CustomRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockRequestRepo) SetAcceptedOffer(ctx context.Context, tx *sqlx.Tx, requestID, offerID uuid.UUID) error {
	args := m.Called(ctx, tx, requestID, offerID)
	return args.Error(0)
}

func (m *MockRequestRepo) CreateOffer(ctx context.Context, offer *models.CustomRequestOffer) error {
	args := m.Called(ctx, offer)
	if args.Error(0) == nil {
		offer.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRequestRepo) GetOfferByID(ctx context.Context, id uuid.UUID) (*models.CustomRequestOffer, error) {
	args := m.Called(ctx, id)
	if offer := args.Get(0); offer != nil {
		return offer.(*models.CustomRequestOffer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepo) ListOffers(ctx context.Context, requestID uuid.UUID) ([]models.CustomRequestOffer, error) {
	args := m.Called(ctx, requestID)
	if list := args.Get(0); list != nil {
		return list.([]models.CustomRequestOffer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepo) List(ctx context.Context, limit, offset int) ([]models.CustomRequest, error) {
	args := m.Called(ctx, limit, offset)
	if list := args.Get(0); list != nil {
		return list.([]models.CustomRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.CustomRequest, error) {
	args := m.Called(ctx, ownerID)
	if list := args.Get(0); list != nil {
		return list.([]models.CustomRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDisputeRepo struct {
	mock.Mock
}

func (m *MockDisputeRepo) Create(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	args := m.Called(ctx, tx, d)
	if args.Error(0) == nil {
		d.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*models.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDisputeRepo) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, tx, id)
	if d := args.Get(0); d != nil {
		return d.(*models.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDisputeRepo) ActiveExists(ctx context.Context, tx *sqlx.Tx, purchaseID, requestID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, purchaseID, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDisputeRepo) Resolve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status, solution string, adminID uuid.UUID) error {
	args := m.Called(ctx, tx, id, status, solution, adminID)
	return args.Error(0)
}

func (m *MockDisputeRepo) AddEvent(ctx context.Context, tx *sqlx.Tx, e *models.DisputeEvent) error {
	args := m.Called(ctx, tx, e)
	return args.Error(0)
}

func (m *MockDisputeRepo) ListEvents(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvent, error) {
	args := m.Called(ctx, disputeID)
	if list := args.Get(0); list != nil {
		return list.([]models.DisputeEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDisputeRepo) AddEvidence(ctx context.Context, tx *sqlx.Tx, e *models.DisputeEvidence) error {
	args := m.Called(ctx, tx, e)
	if args.Error(0) == nil {
		e.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockDisputeRepo) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error) {
	args := m.Called(ctx, disputeID)
	if list := args.Get(0); list != nil {
		return list.([]models.DisputeEvidence), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDisputeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	if list := args.Get(0); list != nil {
		return list.([]models.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDisputeRepo) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, limit, offset)
	if list := args.Get(0); list != nil {
		return list.([]models.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCatalog покрывает оба контракта каталога: ServiceCatalog и CatalogRepository.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Create(ctx context.Context, svc *models.Service) error {
	args := m.Called(ctx, svc)
	if args.Error(0) == nil {
		svc.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	args := m.Called(ctx, id)
	if svc := args.Get(0); svc != nil {
		return svc.(*models.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) List(ctx context.Context, limit, offset int) ([]models.Service, error) {
	args := m.Called(ctx, limit, offset)
	if list := args.Get(0); list != nil {
		return list.([]models.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Service, error) {
	args := m.Called(ctx, providerID)
	if list := args.Get(0); list != nil {
		return list.([]models.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEscrow покрывает оба контракта: EscrowEngine и DisputeEscrow.
type MockEscrow struct {
	mock.Mock
}

func (m *MockEscrow) Freeze(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, amount, flow, refs)
	return args.Error(0)
}

func (m *MockEscrow) Release(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, payee, amount, flow, refs)
	return args.Error(0)
}

func (m *MockEscrow) Refund(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, amount, refs)
	return args.Error(0)
}

func (m *MockEscrow) DisputeRefund(ctx context.Context, tx *sqlx.Tx, payer uuid.UUID, amount float64, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, amount, refs)
	return args.Error(0)
}

func (m *MockEscrow) DisputePayProvider(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, flow escrow.Flow, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, payee, amount, flow, refs)
	return args.Error(0)
}

func (m *MockEscrow) DisputeSplit(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, payee, amount, refs)
	return args.Error(0)
}

func (m *MockEscrow) DisputeChargeBoth(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount float64, refs repository.Refs) error {
	args := m.Called(ctx, tx, payer, payee, amount, refs)
	return args.Error(0)
}

// recordingNotifier копит отправленные события вместо реального WebSocket.
type recordingNotifier struct {
	events []string
	users  []uuid.UUID
}

func (n *recordingNotifier) BroadcastToUser(userID uuid.UUID, event string, _ interface{}) error {
	n.users = append(n.users, userID)
	n.events = append(n.events, event)
	return nil
}

type MockEvidenceStorage struct {
	mock.Mock
}

func (m *MockEvidenceStorage) Save(disputeID uuid.UUID, fileName string, data []byte) (string, string, error) {
	args := m.Called(disputeID, fileName, data)
	return args.String(0), args.String(1), args.Error(2)
}
