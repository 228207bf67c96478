package model

import (
	"time"

	"github.com/google/uuid"
)

// ItemRequest status values. A request starts pending and transitions
// exactly once, to approved or rejected. There is no way back.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// ItemRequest is a STEMbassador's ask for stock. ItemID is a weak reference:
// deleting the inventory item leaves it dangling on purpose, and display
// falls back to the ItemName snapshot taken at submission time. Requests are
// never deleted; they are the audit trail of fulfillment.
type ItemRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID      *uuid.UUID `gorm:"type:uuid;index" json:"item_id"`
	ItemName    string     `gorm:"type:varchar(255)" json:"item_name"`
	Quantity    int        `gorm:"type:int;not null" json:"quantity"`
	Note        string     `gorm:"type:text" json:"note"`
	RequestedBy string     `gorm:"type:varchar(255);not null;index" json:"requested_by"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedAt time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	DecidedBy   string     `gorm:"type:varchar(255)" json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}
