package models

import "time"

// Resolution is written once, when a complaint moves to Resolved.
type Resolution struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID uint      `gorm:"not null;uniqueIndex" json:"complaint_id"`
	ResolvedBy  uint      `gorm:"not null" json:"resolved_by"`
	ActionTaken string    `gorm:"type:text;not null" json:"action_taken"`
	Remarks     string    `gorm:"type:text" json:"remarks"`
	ResolvedAt  time.Time `gorm:"autoCreateTime" json:"resolved_at"`
}
