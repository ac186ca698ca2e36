package models

import "time"

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusEscalated  Status = "Escalated"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

// Complaint is a grievance filed by a complainant. AssignedTo is set exactly when the
// status is In Progress, Resolved or Escalated. Deadline is fixed at submission.
type Complaint struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ComplainantID uint      `gorm:"not null;index" json:"complainant_id"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	Category      string    `gorm:"type:varchar(100);not null" json:"category"`
	Urgency       Urgency   `gorm:"type:varchar(10);not null" json:"urgency"`
	Status        Status    `gorm:"type:varchar(20);not null;default:'Pending';index:idx_status_deadline" json:"status"`
	AssignedTo    *uint     `gorm:"index" json:"assigned_to"`
	Deadline      time.Time `gorm:"not null;index:idx_status_deadline" json:"deadline"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Escalations []Escalation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Resolution  *Resolution  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Evidence    []Evidence   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// AssignableStatuses are the states an assignment may start from.
var AssignableStatuses = []Status{StatusPending, StatusEscalated}

func (c *Complaint) IsAssignable() bool {
	return c.Status == StatusPending || c.Status == StatusEscalated
}
