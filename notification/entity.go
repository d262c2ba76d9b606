package notification

import (
	"github.com/fundwit/go-commons/types"
)

type Type string

const (
	TypeApprovalNeeded   Type = "approval_needed"
	TypeApproved         Type = "approved"
	TypeRejected         Type = "rejected"
	TypeChangesRequested Type = "changes_requested"
)

// Record describes who should be informed of a request-state change.
// Delivery itself is the dispatcher's concern, the engine only writes rows.
type Record struct {
	ID          types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	RequestID   types.ID `json:"requestId" gorm:"index:idx_request" sql:"type:BIGINT UNSIGNED NOT NULL"`
	RecipientID types.ID `json:"recipientId" gorm:"index:idx_recipient" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Type Type `json:"type"`

	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	Dispatched   bool            `json:"dispatched"`
	DispatchTime types.Timestamp `json:"dispatchTime" sql:"type:DATETIME(6)"`
}

func (r *Record) TableName() string {
	return "approval_notifications"
}
