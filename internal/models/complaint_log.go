package models

import "time"

// Action labels written to the audit trail.
const (
	ActionSubmitted     = "Submitted"
	ActionAssigned      = "Assigned"
	ActionResolved      = "Resolved"
	ActionDeleted       = "Deleted"
	ActionEscalated     = "Escalated"
	ActionAutoEscalated = "Auto-Escalated"
	ActionRoleUpdated   = "User Role Updated"
)

// ComplaintLog is an append-only audit entry. ComplaintID is nil for actions that are
// not about a complaint. It has no foreign key: the "Deleted" entry outlives its complaint.
type ComplaintLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID *uint     `gorm:"index" json:"complaint_id"`
	ActionTaken string    `gorm:"type:varchar(50);not null" json:"action_taken"`
	PerformedBy uint      `gorm:"not null" json:"performed_by"`
	ActionRole  string    `gorm:"type:varchar(20);not null" json:"action_role"`
	Remarks     string    `gorm:"type:text" json:"remarks"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Complaint{},
		&Escalation{},
		&Resolution{},
		&Evidence{},
		&ComplaintLog{},
	}
}
