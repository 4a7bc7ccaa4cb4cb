package models

import (
	"time"

	"github.com/google/uuid"
)

// Направления движения средств в леджере.
const (
	TransactionDirectionCredit = "credit"
	TransactionDirectionDebit  = "debit"
)

// Основания транзакций
const (
	TransactionReasonDeposit              = "deposit"
	TransactionReasonServicePayment       = "service_payment"
	TransactionReasonServiceIncome        = "service_income"
	TransactionReasonPlatformCommission   = "platform_commission"
	TransactionReasonFundRelease          = "fund_release"
	TransactionReasonCustomRequestPayment = "custom_request_payment"
	TransactionReasonCustomRequestIncome  = "custom_request_income"
	TransactionReasonDisputeResolution    = "dispute_resolution"
)

// UserBalance представляет баланс пользователя.
// Available — свободные средства, Frozen — средства в активных эскроу.
// Оба поля никогда не опускаются ниже нуля, кроме штрафа исполнителю
// при решении спора charge_both.
type UserBalance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Available float64   `db:"available" json:"available"`
	Frozen    float64   `db:"frozen" json:"frozen"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PlatformBalance — единственная запись с накопленной комиссией площадки.
type PlatformBalance struct {
	ID        int       `db:"id" json:"-"`
	Total     float64   `db:"total" json:"total"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction — неизменяемая запись леджера. UserID равный nil означает
// счёт площадки. Записи никогда не обновляются и не удаляются.
type Transaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	AdminID     *uuid.UUID `db:"admin_id" json:"admin_id,omitempty"`
	Amount      float64    `db:"amount" json:"amount"`
	Direction   string     `db:"direction" json:"direction"`
	Reason      string     `db:"reason" json:"reason"`
	PurchaseID  *uuid.UUID `db:"purchase_id" json:"purchase_id,omitempty"`
	RequestID   *uuid.UUID `db:"request_id" json:"request_id,omitempty"`
	DisputeID   *uuid.UUID `db:"dispute_id" json:"dispute_id,omitempty"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Signed возвращает сумму транзакции со знаком направления.
func (t *Transaction) Signed() float64 {
	if t.Direction == TransactionDirectionDebit {
		return -t.Amount
	}
	return t.Amount
}
