package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkravtsov/marketplace-backend/internal/http/handlers/common"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/service"
)

// purchaseAction — переход статуса покупки текущим пользователем.
type purchaseAction func(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.ServicePurchase, error)

// PurchaseHandler обслуживает жизненный цикл покупки услуги.
type PurchaseHandler struct {
	purchases *service.PurchaseService
}

// NewPurchaseHandler создаёт новый хэндлер.
func NewPurchaseHandler(purchases *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// CreatePurchase POST /services/:id/purchase
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	purchase, err := h.purchases.CreatePurchase(c.Request.Context(), userID, serviceID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, purchase)
}

// Accept POST /purchases/:id/accept
func (h *PurchaseHandler) Accept(c *gin.Context) {
	h.action(c, h.purchases.Accept)
}

// Reject POST /purchases/:id/reject
func (h *PurchaseHandler) Reject(c *gin.Context) {
	h.action(c, h.purchases.Reject)
}

// Submit POST /purchases/:id/submit
func (h *PurchaseHandler) Submit(c *gin.Context) {
	h.action(c, h.purchases.Submit)
}

// ApproveSubmission POST /purchases/:id/approve
func (h *PurchaseHandler) ApproveSubmission(c *gin.Context) {
	h.action(c, h.purchases.AcceptSubmission)
}

// RequestChanges POST /purchases/:id/request-changes
func (h *PurchaseHandler) RequestChanges(c *gin.Context) {
	h.action(c, h.purchases.RejectSubmission)
}

// GetPurchase GET /purchases/:id
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	h.action(c, h.purchases.GetPurchase)
}

// ListMyPurchases GET /purchases
func (h *PurchaseHandler) ListMyPurchases(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	purchases, err := h.purchases.ListMyPurchases(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

func (h *PurchaseHandler) action(c *gin.Context, fn purchaseAction) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	purchaseID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	purchase, err := fn(c.Request.Context(), purchaseID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, purchase)
}
