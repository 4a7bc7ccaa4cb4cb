package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkravtsov/marketplace-backend/internal/dto"
	"github.com/dkravtsov/marketplace-backend/internal/http/handlers/common"
	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/service"
)

// requestAction — переход статуса заявки текущим пользователем.
type requestAction func(ctx context.Context, requestID, actorID uuid.UUID) (*models.CustomRequest, error)

// RequestHandler обслуживает заявки и предложения по ним.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler создаёт новый хэндлер.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// CreateRequest POST /requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateCustomRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "ошибка валидации запроса")
		return
	}

	created, err := h.requests.CreateRequest(c.Request.Context(), userID, req.Title, req.Description, req.Budget)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// ListRequests GET /requests
func (h *RequestHandler) ListRequests(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	requests, err := h.requests.ListRequests(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListMyRequests GET /requests/mine
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requests, err := h.requests.ListMyRequests(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetRequest GET /requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, offers, err := h.requests.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.RequestDetailResponse{
		CustomRequest: request,
		Offers:        offers,
	})
}

// CreateOffer POST /requests/:id/offers
func (h *RequestHandler) CreateOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "ошибка валидации запроса")
		return
	}

	offer, err := h.requests.CreateOffer(c.Request.Context(), requestID, userID, req.Price, req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

// AcceptOffer POST /requests/:id/offers/:offerId/accept
func (h *RequestHandler) AcceptOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offerID, err := common.ParseUUIDParam(c, "offerId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.requests.AcceptOffer(c.Request.Context(), requestID, offerID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// SubmitWork POST /requests/:id/submit
func (h *RequestHandler) SubmitWork(c *gin.Context) {
	h.action(c, h.requests.SubmitWork)
}

// ApproveSubmission POST /requests/:id/approve
func (h *RequestHandler) ApproveSubmission(c *gin.Context) {
	h.action(c, h.requests.AcceptSubmission)
}

// RejectSubmission POST /requests/:id/reject
func (h *RequestHandler) RejectSubmission(c *gin.Context) {
	h.action(c, h.requests.RejectSubmission)
}

func (h *RequestHandler) action(c *gin.Context, fn requestAction) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := fn(c.Request.Context(), requestID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, request)
}
