package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Role string

const (
	RoleStudent Role = "Student"
	RoleStaff   Role = "Staff"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether r is one of the fixed roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleStaff || r == RoleAdmin
}

type Gender string

const (
	GenderFemale Gender = "Female"
	GenderMale   Gender = "Male"
	GenderOther  Gender = "Other"
)

// Capability is a fine-grained permission carried by a user independently of the role.
type Capability string

const (
	CapSubmitGrievance Capability = "submit_grievance"
	CapCommitteeMember Capability = "committee_member"
	CapAdmin           Capability = "admin"
)

// Capabilities is the tagged set of capabilities held by a user. It is stored as a
// PostgreSQL text[] column.
type Capabilities []Capability

// Has reports whether the set contains c.
func (c Capabilities) Has(capability Capability) bool {
	for _, v := range c {
		if v == capability {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (c Capabilities) Value() (driver.Value, error) {
	arr := make(pq.StringArray, 0, len(c))
	for _, v := range c {
		arr = append(arr, string(v))
	}
	return arr.Value()
}

// Scan implements sql.Scanner.
func (c *Capabilities) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan capabilities: %w", err)
	}
	out := make(Capabilities, 0, len(arr))
	for _, v := range arr {
		out = append(out, Capability(v))
	}
	*c = out
	return nil
}

// GormDBDataType picks a native array column on PostgreSQL and plain text elsewhere.
func (Capabilities) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// DeriveCapabilities maps a role/gender/membership combination to the capability set.
// Only female students and staff may file grievances; only staff may sit on the committee.
func DeriveCapabilities(role Role, gender Gender, committeeMember bool) Capabilities {
	caps := Capabilities{}
	if gender == GenderFemale && (role == RoleStudent || role == RoleStaff) {
		caps = append(caps, CapSubmitGrievance)
	}
	if committeeMember && role == RoleStaff {
		caps = append(caps, CapCommitteeMember)
	}
	if role == RoleAdmin {
		caps = append(caps, CapAdmin)
	}
	return caps
}

// User представляє користувача в системі: complainant, committee member or admin.
type User struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:varchar(100);not null" json:"name"`
	Email        string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	Gender       Gender       `gorm:"type:varchar(10)" json:"gender"`
	Role         Role         `gorm:"type:varchar(10);not null;index" json:"user_role"`
	Capabilities Capabilities `json:"capabilities"`
	RollNo       *string      `gorm:"type:varchar(50);uniqueIndex" json:"roll_no,omitempty"`
	Designation  string       `gorm:"type:varchar(100)" json:"designation,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Capabilities.Has(CapAdmin)
}

func (u *User) IsCommitteeMember() bool {
	return u.Capabilities.Has(CapCommitteeMember)
}

func (u *User) CanSubmitGrievance() bool {
	return u.Capabilities.Has(CapSubmitGrievance)
}

// HasPermission matches either the role name ("Admin") or a capability tag ("committee_member").
func (u *User) HasPermission(permission string) bool {
	if string(u.Role) == permission {
		return true
	}
	return u.Capabilities.Has(Capability(permission))
}
