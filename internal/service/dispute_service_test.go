package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dkravtsov/marketplace-backend/internal/escrow"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
)

type disputeFixture struct {
	svc       *DisputeService
	disputes  *MockDisputeRepo
	purchases *MockPurchaseRepo
	requests  *MockRequestRepo
	escrow    *MockEscrow
	storage   *MockEvidenceStorage
}

func newDisputeFixture() *disputeFixture {
	f := &disputeFixture{
		disputes:  new(MockDisputeRepo),
		purchases: new(MockPurchaseRepo),
		requests:  new(MockRequestRepo),
		escrow:    new(MockEscrow),
		storage:   new(MockEvidenceStorage),
	}
	f.svc = NewDisputeService(stubTx{}, f.disputes, f.purchases, f.requests, f.escrow, f.storage)
	return f
}

func TestOpenPurchaseDispute(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	buyerID := uuid.New()
	providerID := uuid.New()
	purchase := &models.ServicePurchase{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ProviderID: providerID,
		Status:     models.PurchaseStatusInProgress,
	}

	f.purchases.On("GetByIDForUpdate", ctx, mock.Anything, purchase.ID).Return(purchase, nil)
	f.disputes.On("ActiveExists", ctx, mock.Anything, &purchase.ID, (*uuid.UUID)(nil)).Return(false, nil)
	f.disputes.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Dispute")).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusDisputedByBuyer).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.OpenPurchaseDispute(ctx, purchase.ID, buyerID, "работа не соответствует описанию")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	assert.Equal(t, buyerID, d.ComplainantID)
	assert.Equal(t, providerID, d.RespondentID)
	f.disputes.AssertExpectations(t)
	f.purchases.AssertExpectations(t)
}

func TestOpenPurchaseDispute_ByProvider(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	purchase := &models.ServicePurchase{
		ID:         uuid.New(),
		BuyerID:    uuid.New(),
		ProviderID: uuid.New(),
		Status:     models.PurchaseStatusSubmitted,
	}

	f.purchases.On("GetByIDForUpdate", ctx, mock.Anything, purchase.ID).Return(purchase, nil)
	f.disputes.On("ActiveExists", ctx, mock.Anything, &purchase.ID, (*uuid.UUID)(nil)).Return(false, nil)
	f.disputes.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Dispute")).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusDisputedByProvider).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.OpenPurchaseDispute(ctx, purchase.ID, purchase.ProviderID, "покупатель не выходит на связь")

	assert.NoError(t, err)
	assert.Equal(t, purchase.ProviderID, d.ComplainantID)
	assert.Equal(t, purchase.BuyerID, d.RespondentID)
}

func TestOpenPurchaseDispute_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	buyerID := uuid.New()
	purchase := &models.ServicePurchase{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ProviderID: uuid.New(),
		Status:     models.PurchaseStatusInProgress,
	}

	f.purchases.On("GetByIDForUpdate", ctx, mock.Anything, purchase.ID).Return(purchase, nil)
	f.disputes.On("ActiveExists", ctx, mock.Anything, &purchase.ID, (*uuid.UUID)(nil)).Return(true, nil)

	_, err := f.svc.OpenPurchaseDispute(ctx, purchase.ID, buyerID, "повтор")

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeDuplicateDispute, appErr.Code)
}

func TestOpenPurchaseDispute_Outsider(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	purchase := &models.ServicePurchase{
		ID:         uuid.New(),
		BuyerID:    uuid.New(),
		ProviderID: uuid.New(),
		Status:     models.PurchaseStatusInProgress,
	}
	f.purchases.On("GetByIDForUpdate", ctx, mock.Anything, purchase.ID).Return(purchase, nil)

	_, err := f.svc.OpenPurchaseDispute(ctx, purchase.ID, uuid.New(), "я мимо проходил")

	assert.True(t, apperror.IsForbidden(err))
}

func TestOpenPurchaseDispute_PendingPurchase(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	buyerID := uuid.New()
	purchase := &models.ServicePurchase{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		ProviderID: uuid.New(),
		Status:     models.PurchaseStatusPending,
	}
	f.purchases.On("GetByIDForUpdate", ctx, mock.Anything, purchase.ID).Return(purchase, nil)

	// До принятия в работу спорить не о чем: средства не заморожены.
	_, err := f.svc.OpenPurchaseDispute(ctx, purchase.ID, buyerID, "рано")

	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestOpenRequestDispute_AfterOwnerRejected(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	ownerID := uuid.New()
	providerID := uuid.New()
	offerID := uuid.New()
	request := &models.CustomRequest{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Status:          models.RequestStatusOwnerRejected,
		AcceptedOfferID: &offerID,
	}
	offer := &models.CustomRequestOffer{
		ID:         offerID,
		RequestID:  request.ID,
		ProviderID: providerID,
		Price:      300,
	}

	f.requests.On("GetByIDForUpdate", ctx, mock.Anything, request.ID).Return(request, nil)
	f.requests.On("GetOfferByID", ctx, offerID).Return(offer, nil)
	f.disputes.On("ActiveExists", ctx, mock.Anything, (*uuid.UUID)(nil), &request.ID).Return(false, nil)
	f.disputes.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Dispute")).Return(nil)
	f.requests.On("UpdateStatus", ctx, mock.Anything, request.ID, models.RequestStatusDisputedByProvider).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.OpenRequestDispute(ctx, request.ID, providerID, "работа выполнена по ТЗ")

	assert.NoError(t, err)
	assert.Equal(t, providerID, d.ComplainantID)
	assert.Equal(t, ownerID, d.RespondentID)
	assert.Equal(t, &request.ID, d.CustomRequestID)
}

// resolveFixture готовит активный спор по покупке в статусе disputed_by_buyer.
func resolvePurchaseFixture(f *disputeFixture, ctx context.Context) (*models.Dispute, *models.ServicePurchase) {
	purchase := &models.ServicePurchase{
		ID:         uuid.New(),
		BuyerID:    uuid.New(),
		ProviderID: uuid.New(),
		Price:      100,
		Status:     models.PurchaseStatusDisputedByBuyer,
	}
	dispute := &models.Dispute{
		ID:                uuid.New(),
		ComplainantID:     purchase.BuyerID,
		RespondentID:      purchase.ProviderID,
		ServicePurchaseID: &purchase.ID,
		Status:            models.DisputeStatusOpen,
	}
	f.disputes.On("GetByIDForUpdate", ctx, mock.Anything, dispute.ID).Return(dispute, nil)
	f.purchases.On("GetByIDForUpdate", ctx, mock.Anything, purchase.ID).Return(purchase, nil)
	return dispute, purchase
}

func TestResolve_RefundBuyer(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, purchase := resolvePurchaseFixture(f, ctx)
	adminID := uuid.New()

	f.escrow.On("DisputeRefund", ctx, mock.Anything, purchase.BuyerID, 100.0, mock.Anything).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "возврат покупателю", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionRefundBuyer, "возврат покупателю")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, d.Status)
	assert.Equal(t, &adminID, d.ResolvedByAdminID)
	f.escrow.AssertExpectations(t)
}

func TestResolve_PayProvider(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, purchase := resolvePurchaseFixture(f, ctx)
	adminID := uuid.New()

	f.escrow.On("DisputePayProvider", ctx, mock.Anything, purchase.BuyerID, purchase.ProviderID, 100.0, escrow.FlowPurchase, mock.Anything).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "работа принята", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	_, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionPayProvider, "работа принята")

	assert.NoError(t, err)
	f.escrow.AssertExpectations(t)
}

func TestResolve_Split(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, purchase := resolvePurchaseFixture(f, ctx)
	adminID := uuid.New()

	f.escrow.On("DisputeSplit", ctx, mock.Anything, purchase.BuyerID, purchase.ProviderID, 100.0, mock.Anything).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "обе стороны правы", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	_, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionSplit, "обе стороны правы")

	assert.NoError(t, err)
	f.escrow.AssertExpectations(t)
}

func TestResolve_ChargeBoth(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, purchase := resolvePurchaseFixture(f, ctx)
	adminID := uuid.New()

	f.escrow.On("DisputeChargeBoth", ctx, mock.Anything, purchase.BuyerID, purchase.ProviderID, 100.0, mock.Anything).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "обе стороны нарушили", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	_, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionChargeBoth, "обе стороны нарушили")

	assert.NoError(t, err)
	f.escrow.AssertExpectations(t)
}

func TestResolve_AskRedo_KeepsDisputeActive(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, purchase := resolvePurchaseFixture(f, ctx)
	adminID := uuid.New()

	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusInProgress).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusUnderReview, "доработать", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionAskRedo, "доработать")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, d.Status)
	assert.True(t, d.Active())
	// Деньги не двигаются: эскроу остаётся замороженным.
	f.escrow.AssertNotCalled(t, "DisputeRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Полный цикл доработки: ask_provider_to_redo возвращает покупку в работу,
// спор остаётся активным, и терминальное действие остаётся применимым.
func TestResolve_TerminalAfterRedo(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, purchase := resolvePurchaseFixture(f, ctx)
	adminID := uuid.New()

	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusInProgress).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusUnderReview, "доработать", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionAskRedo, "доработать")
	assert.NoError(t, err)
	assert.True(t, d.Active())

	// Исполнитель получил работу назад, покупка снова в работе.
	purchase.Status = models.PurchaseStatusInProgress

	f.escrow.On("DisputeRefund", ctx, mock.Anything, purchase.BuyerID, 100.0, mock.Anything).Return(nil)
	f.purchases.On("UpdateStatus", ctx, mock.Anything, purchase.ID, models.PurchaseStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "возврат покупателю", adminID).Return(nil)

	d, err = f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionRefundBuyer, "возврат покупателю")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, d.Status)
	f.escrow.AssertExpectations(t)
}

// То же для заявки: после доработки исполнитель успел повторно сдать работу,
// но администратор всё равно может применить терминальное действие.
func TestResolve_RequestTerminalAfterRedo(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	ownerID := uuid.New()
	providerID := uuid.New()
	offerID := uuid.New()
	request := &models.CustomRequest{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Status:          models.RequestStatusDisputedByProvider,
		AcceptedOfferID: &offerID,
	}
	offer := &models.CustomRequestOffer{
		ID:         offerID,
		RequestID:  request.ID,
		ProviderID: providerID,
		Price:      300,
	}
	dispute := &models.Dispute{
		ID:              uuid.New(),
		ComplainantID:   providerID,
		RespondentID:    ownerID,
		CustomRequestID: &request.ID,
		Status:          models.DisputeStatusOpen,
	}
	adminID := uuid.New()

	f.disputes.On("GetByIDForUpdate", ctx, mock.Anything, dispute.ID).Return(dispute, nil)
	f.requests.On("GetByIDForUpdate", ctx, mock.Anything, request.ID).Return(request, nil)
	f.requests.On("GetOfferByID", ctx, offerID).Return(offer, nil)
	f.requests.On("UpdateStatus", ctx, mock.Anything, request.ID, models.RequestStatusInProgress).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusUnderReview, "доработать", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionAskRedo, "доработать")
	assert.NoError(t, err)
	assert.True(t, d.Active())

	request.Status = models.RequestStatusSubmitted

	f.escrow.On("DisputePayProvider", ctx, mock.Anything, ownerID, providerID, 300.0, escrow.FlowRequest, mock.Anything).Return(nil)
	f.requests.On("UpdateStatus", ctx, mock.Anything, request.ID, models.RequestStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "работа принята", adminID).Return(nil)

	d, err = f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionPayProvider, "работа принята")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, d.Status)
	f.escrow.AssertExpectations(t)
}

func TestResolve_RefundOwnerOnPurchase(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()
	dispute, _ := resolvePurchaseFixture(f, ctx)

	// refund_owner — действие для споров по заявкам, на покупку не ложится.
	_, err := f.svc.Resolve(ctx, dispute.ID, uuid.New(), models.DisputeActionRefundOwner, "ошиблись")

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
}

func TestResolve_UnknownAction(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.svc.Resolve(context.Background(), uuid.New(), uuid.New(), "explode", "")

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
}

func TestResolve_AlreadyResolved(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	purchaseID := uuid.New()
	dispute := &models.Dispute{
		ID:                uuid.New(),
		ServicePurchaseID: &purchaseID,
		Status:            models.DisputeStatusResolved,
	}
	f.disputes.On("GetByIDForUpdate", ctx, mock.Anything, dispute.ID).Return(dispute, nil)

	_, err := f.svc.Resolve(ctx, dispute.ID, uuid.New(), models.DisputeActionSplit, "повтор")

	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestResolve_RequestRefundOwner(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	ownerID := uuid.New()
	providerID := uuid.New()
	offerID := uuid.New()
	request := &models.CustomRequest{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Status:          models.RequestStatusDisputedByOwner,
		AcceptedOfferID: &offerID,
	}
	offer := &models.CustomRequestOffer{
		ID:         offerID,
		RequestID:  request.ID,
		ProviderID: providerID,
		Price:      300,
	}
	dispute := &models.Dispute{
		ID:              uuid.New(),
		ComplainantID:   ownerID,
		RespondentID:    providerID,
		CustomRequestID: &request.ID,
		Status:          models.DisputeStatusOpen,
	}
	adminID := uuid.New()

	f.disputes.On("GetByIDForUpdate", ctx, mock.Anything, dispute.ID).Return(dispute, nil)
	f.requests.On("GetByIDForUpdate", ctx, mock.Anything, request.ID).Return(request, nil)
	f.requests.On("GetOfferByID", ctx, offerID).Return(offer, nil)
	f.escrow.On("DisputeRefund", ctx, mock.Anything, ownerID, 300.0, mock.Anything).Return(nil)
	f.requests.On("UpdateStatus", ctx, mock.Anything, request.ID, models.RequestStatusCompleted).Return(nil)
	f.disputes.On("Resolve", ctx, mock.Anything, dispute.ID, models.DisputeStatusResolved, "возврат владельцу", adminID).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	d, err := f.svc.Resolve(ctx, dispute.ID, adminID, models.DisputeActionRefundOwner, "возврат владельцу")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, d.Status)
	f.escrow.AssertExpectations(t)
}

func TestAttachEvidence(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	dispute := &models.Dispute{
		ID:            uuid.New(),
		ComplainantID: uuid.New(),
		RespondentID:  uuid.New(),
		Status:        models.DisputeStatusOpen,
	}
	data := []byte("screenshot")

	f.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	f.storage.On("Save", dispute.ID, "screen.png", data).Return("disputes/x/screen.png", "image/png", nil)
	f.disputes.On("AddEvidence", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvidence")).Return(nil)
	f.disputes.On("AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent")).Return(nil)

	ev, err := f.svc.AttachEvidence(ctx, dispute.ID, dispute.ComplainantID, "screen.png", data)

	assert.NoError(t, err)
	assert.Equal(t, "image/png", ev.MimeType)
	assert.Equal(t, int64(len(data)), ev.SizeBytes)
	// Вложение оставляет след в таймлайне спора.
	f.disputes.AssertCalled(t, "AddEvent", ctx, mock.Anything, mock.AnythingOfType("*models.DisputeEvent"))
}

func TestAttachEvidence_ResolvedDispute(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	dispute := &models.Dispute{
		ID:            uuid.New(),
		ComplainantID: uuid.New(),
		Status:        models.DisputeStatusResolved,
	}
	f.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := f.svc.AttachEvidence(ctx, dispute.ID, dispute.ComplainantID, "late.png", []byte("x"))

	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestAttachEvidence_Outsider(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	dispute := &models.Dispute{
		ID:            uuid.New(),
		ComplainantID: uuid.New(),
		RespondentID:  uuid.New(),
		Status:        models.DisputeStatusOpen,
	}
	f.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := f.svc.AttachEvidence(ctx, dispute.ID, uuid.New(), "x.png", []byte("x"))

	assert.True(t, apperror.IsForbidden(err))
}

func TestGetDispute_Access(t *testing.T) {
	ctx := context.Background()
	f := newDisputeFixture()

	dispute := &models.Dispute{
		ID:            uuid.New(),
		ComplainantID: uuid.New(),
		RespondentID:  uuid.New(),
		Status:        models.DisputeStatusOpen,
	}
	f.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	f.disputes.On("ListEvents", ctx, dispute.ID).Return([]models.DisputeEvent{}, nil)
	f.disputes.On("ListEvidence", ctx, dispute.ID).Return([]models.DisputeEvidence{}, nil)

	_, _, _, err := f.svc.GetDispute(ctx, dispute.ID, dispute.RespondentID, false)
	assert.NoError(t, err)

	// Администратор видит чужой спор.
	_, _, _, err = f.svc.GetDispute(ctx, dispute.ID, uuid.New(), true)
	assert.NoError(t, err)

	// Посторонний — нет.
	_, _, _, err = f.svc.GetDispute(ctx, dispute.ID, uuid.New(), false)
	assert.True(t, apperror.IsForbidden(err))
}
