package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkravtsov/marketplace-backend/internal/dto"
	"github.com/dkravtsov/marketplace-backend/internal/http/handlers/common"
	"github.com/dkravtsov/marketplace-backend/internal/service"
)

// BalanceHandler обслуживает балансы и историю транзакций.
type BalanceHandler struct {
	escrow *service.EscrowService
}

// NewBalanceHandler создаёт новый хэндлер.
func NewBalanceHandler(escrow *service.EscrowService) *BalanceHandler {
	return &BalanceHandler{escrow: escrow}
}

// GetBalance GET /balance
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.escrow.GetBalance(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// Deposit POST /balance/deposit
func (h *BalanceHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма должна быть положительной")
		return
	}

	transaction, err := h.escrow.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, transaction)
}

// ListTransactions GET /balance/transactions
func (h *BalanceHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	transactions, err := h.escrow.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetPlatformBalance GET /admin/platform-balance
func (h *BalanceHandler) GetPlatformBalance(c *gin.Context) {
	balance, err := h.escrow.GetPlatformBalance(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, balance)
}
