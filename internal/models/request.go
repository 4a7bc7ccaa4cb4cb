package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы пользовательской заявки
const (
	RequestStatusOpen               = "open"
	RequestStatusInProgress         = "in_progress"
	RequestStatusSubmitted          = "submitted"
	RequestStatusCompleted          = "completed"
	RequestStatusOwnerRejected      = "owner_rejected"
	RequestStatusDisputedByOwner    = "disputed_by_owner"
	RequestStatusDisputedByProvider = "disputed_by_provider"
)

// Статусы предложений по заявке
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

var requestTransitions = map[string]map[string]struct{}{
	RequestStatusOpen: {
		RequestStatusInProgress: {},
	},
	RequestStatusInProgress: {
		RequestStatusSubmitted:          {},
		RequestStatusDisputedByOwner:    {},
		RequestStatusDisputedByProvider: {},
	},
	RequestStatusSubmitted: {
		RequestStatusCompleted:          {},
		RequestStatusOwnerRejected:      {},
		RequestStatusDisputedByOwner:    {},
		RequestStatusDisputedByProvider: {},
	},
	// Отклонённая владельцем работа остаётся оспариваемой исполнителем.
	RequestStatusOwnerRejected: {
		RequestStatusDisputedByOwner:    {},
		RequestStatusDisputedByProvider: {},
	},
	RequestStatusDisputedByOwner: {
		RequestStatusCompleted:  {},
		RequestStatusInProgress: {},
	},
	RequestStatusDisputedByProvider: {
		RequestStatusCompleted:  {},
		RequestStatusInProgress: {},
	},
}

// CanTransitionRequest сообщает, допустим ли переход статуса заявки.
func CanTransitionRequest(from, to string) bool {
	next, ok := requestTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// RequestDisputed сообщает, находится ли заявка в споре.
func RequestDisputed(status string) bool {
	return status == RequestStatusDisputedByOwner || status == RequestStatusDisputedByProvider
}

// CustomRequest описывает заявку владельца на нестандартную работу.
// Экономической суммой жизненного цикла становится цена принятого предложения.
type CustomRequest struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	OwnerID         uuid.UUID  `db:"owner_id" json:"owner_id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	Budget          *float64   `db:"budget" json:"budget,omitempty"`
	Status          string     `db:"status" json:"status"`
	AcceptedOfferID *uuid.UUID `db:"accepted_offer_id" json:"accepted_offer_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CustomRequestOffer — предложение исполнителя по заявке.
type CustomRequestOffer struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RequestID  uuid.UUID `db:"request_id" json:"request_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Price      float64   `db:"price" json:"price"`
	Message    string    `db:"message" json:"message"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
