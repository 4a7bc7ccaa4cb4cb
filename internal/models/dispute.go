package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
)

// Действия администратора при решении спора
const (
	DisputeActionRefundBuyer = "refund_buyer"
	DisputeActionRefundOwner = "refund_owner"
	DisputeActionPayProvider = "pay_provider"
	DisputeActionSplit       = "split"
	DisputeActionChargeBoth  = "charge_both"
	DisputeActionAskRedo     = "ask_provider_to_redo"
)

// ValidDisputeActions — допустимые значения admin_action.
var ValidDisputeActions = map[string]struct{}{
	DisputeActionRefundBuyer: {},
	DisputeActionRefundOwner: {},
	DisputeActionPayProvider: {},
	DisputeActionSplit:       {},
	DisputeActionChargeBoth:  {},
	DisputeActionAskRedo:     {},
}

// Dispute привязан ровно к одной покупке или одной заявке.
type Dispute struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	ComplainantID     uuid.UUID  `db:"complainant_id" json:"complainant_id"`
	RespondentID      uuid.UUID  `db:"respondent_id" json:"respondent_id"`
	ServicePurchaseID *uuid.UUID `db:"service_purchase_id" json:"service_purchase_id,omitempty"`
	CustomRequestID   *uuid.UUID `db:"custom_request_id" json:"custom_request_id,omitempty"`
	Description       string     `db:"description" json:"description"`
	ComplainantNote   *string    `db:"complainant_note" json:"complainant_note,omitempty"`
	Status            string     `db:"status" json:"status"`
	Solution          *string    `db:"solution" json:"solution,omitempty"`
	ResolvedByAdminID *uuid.UUID `db:"resolved_by_admin_id" json:"resolved_by_admin_id,omitempty"`
	AdminDecisionAt   *time.Time `db:"admin_decision_at" json:"admin_decision_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Active сообщает, открыт ли спор для действий администратора.
func (d *Dispute) Active() bool {
	return d.Status == DisputeStatusOpen || d.Status == DisputeStatusUnderReview
}

// DisputeEvent — запись таймлайна спора. Каждое решение администратора,
// денежное или нет, оставляет здесь след.
type DisputeEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DisputeID uuid.UUID `db:"dispute_id" json:"dispute_id"`
	ActorID   uuid.UUID `db:"actor_id" json:"actor_id"`
	Action    string    `db:"action" json:"action"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DisputeEvidence — файл, приложенный стороной спора.
type DisputeEvidence struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DisputeID  uuid.UUID `db:"dispute_id" json:"dispute_id"`
	UploaderID uuid.UUID `db:"uploader_id" json:"uploader_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	FilePath   string    `db:"file_path" json:"file_path"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
