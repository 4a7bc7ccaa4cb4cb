package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dkravtsov/marketplace-backend/internal/logger"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно. Ошибки apperror
// переводятся в свой HTTP-статус и код, остальные маскируются как
// внутренние.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": appErr.Message,
				"code":  string(appErr.Code),
			})
			return
		}

		switch {
		case errors.Is(err, repository.ErrUserNotFound),
			errors.Is(err, repository.ErrServiceNotFound),
			errors.Is(err, repository.ErrPurchaseNotFound),
			errors.Is(err, repository.ErrRequestNotFound),
			errors.Is(err, repository.ErrOfferNotFound),
			errors.Is(err, repository.ErrDisputeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrInsufficientFunds):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "недостаточно средств на балансе"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
		}
	}
}
