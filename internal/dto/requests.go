package dto

// RegisterRequest — тело запроса регистрации.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// DepositRequest — пополнение доступного баланса.
type DepositRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CreateServiceRequest — публикация услуги исполнителем.
type CreateServiceRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}

// CreateCustomRequestRequest — публикация заявки владельцем.
type CreateCustomRequestRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Budget      *float64 `json:"budget"`
}

// CreateOfferRequest — предложение исполнителя по заявке.
type CreateOfferRequest struct {
	Price   float64 `json:"price" binding:"required,gt=0"`
	Message string  `json:"message"`
}

// OpenDisputeRequest — открытие спора стороной сделки.
type OpenDisputeRequest struct {
	Description string `json:"description" binding:"required"`
}

// ResolveDisputeRequest — решение администратора по спору.
type ResolveDisputeRequest struct {
	Action   string `json:"action" binding:"required"`
	Solution string `json:"solution" binding:"required"`
}
