package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы покупки услуги
const (
	PurchaseStatusPending            = "pending"
	PurchaseStatusInProgress         = "in_progress"
	PurchaseStatusSubmitted          = "submitted"
	PurchaseStatusCompleted          = "completed"
	PurchaseStatusProviderRejected   = "provider_rejected"
	PurchaseStatusRefusedByTimeout   = "refused_due_to_timeout"
	PurchaseStatusDisputedByBuyer    = "disputed_by_buyer"
	PurchaseStatusDisputedByProvider = "disputed_by_provider"
)

// purchaseTransitions — единственное место, где описаны допустимые переходы
// статусов покупки. Переход submitted -> in_progress соответствует возврату
// работы на доработку, переходы из disputed_* выполняет только решение спора.
var purchaseTransitions = map[string]map[string]struct{}{
	PurchaseStatusPending: {
		PurchaseStatusInProgress:       {},
		PurchaseStatusProviderRejected: {},
		PurchaseStatusRefusedByTimeout: {},
	},
	PurchaseStatusInProgress: {
		PurchaseStatusSubmitted:          {},
		PurchaseStatusDisputedByBuyer:    {},
		PurchaseStatusDisputedByProvider: {},
	},
	PurchaseStatusSubmitted: {
		PurchaseStatusCompleted:          {},
		PurchaseStatusInProgress:         {},
		PurchaseStatusDisputedByBuyer:    {},
		PurchaseStatusDisputedByProvider: {},
	},
	PurchaseStatusDisputedByBuyer: {
		PurchaseStatusCompleted:  {},
		PurchaseStatusInProgress: {},
	},
	PurchaseStatusDisputedByProvider: {
		PurchaseStatusCompleted:  {},
		PurchaseStatusInProgress: {},
	},
}

// CanTransitionPurchase сообщает, допустим ли переход статуса покупки.
func CanTransitionPurchase(from, to string) bool {
	next, ok := purchaseTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// PurchaseDisputed сообщает, находится ли покупка в споре.
func PurchaseDisputed(status string) bool {
	return status == PurchaseStatusDisputedByBuyer || status == PurchaseStatusDisputedByProvider
}

// ServicePurchase описывает покупку услуги. Цена и исполнитель фиксируются
// в момент покупки и далее не зависят от изменений каталога.
type ServicePurchase struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ServiceID  uuid.UUID `db:"service_id" json:"service_id"`
	BuyerID    uuid.UUID `db:"buyer_id" json:"buyer_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Price      float64   `db:"price" json:"price"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
