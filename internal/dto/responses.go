package dto

import (
	"github.com/dkravtsov/marketplace-backend/internal/models"
)

// ErrorResponse — единый формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse — единый формат успешного ответа с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse возвращается при регистрации, входе и обновлении токенов.
type AuthResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// RequestDetailResponse — заявка вместе с предложениями.
type RequestDetailResponse struct {
	*models.CustomRequest
	Offers []models.CustomRequestOffer `json:"offers"`
}

// DisputeDetailResponse — спор с таймлайном и вложениями.
type DisputeDetailResponse struct {
	*models.Dispute
	Events   []models.DisputeEvent    `json:"events"`
	Evidence []models.DisputeEvidence `json:"evidence"`
}
