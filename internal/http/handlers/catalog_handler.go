package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkravtsov/marketplace-backend/internal/dto"
	"github.com/dkravtsov/marketplace-backend/internal/http/handlers/common"
	"github.com/dkravtsov/marketplace-backend/internal/service"
)

// CatalogHandler обслуживает каталог услуг.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler создаёт новый хэндлер.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateService POST /services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "ошибка валидации запроса")
		return
	}

	svc, err := h.catalog.CreateService(c.Request.Context(), userID, req.Title, req.Description, req.Price)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, svc)
}

// GetService GET /services/:id
func (h *CatalogHandler) GetService(c *gin.Context) {
	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	svc, err := h.catalog.GetService(c.Request.Context(), serviceID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, svc)
}

// ListServices GET /services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	services, err := h.catalog.ListServices(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": services})
}

// ListMyServices GET /services/mine
func (h *CatalogHandler) ListMyServices(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	services, err := h.catalog.ListMyServices(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": services})
}
