package models

import "time"

// Escalation records one hand-over of a complaint to an admin. Immutable once written.
type Escalation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ComplaintID   uint      `gorm:"not null;index" json:"complaint_id"`
	Reason        string    `gorm:"type:text;not null" json:"reason"`
	EscalatedFrom *uint     `json:"escalated_from"`
	EscalatedTo   uint      `gorm:"not null;index" json:"escalated_to"`
	CreatedAt     time.Time `json:"created_at"`
}
