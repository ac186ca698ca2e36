// Package notify delivers lifecycle notifications. Delivery is best effort: callers log
// failures and never roll back on them.
package notify

import (
	"context"
	"errors"
	"grievance/backend/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSubmissionConfirmed Kind = "submission-confirmed"
	KindAssignedToUser      Kind = "assigned-to-user"
	KindAssignedToMember    Kind = "assigned-to-member"
	KindResolved            Kind = "resolved"
	KindEscalated           Kind = "escalated"
	KindWelcome             Kind = "welcome"
	KindOTP                 Kind = "otp"
)

// TemplateKey is the localization key prefix for the kind ("assigned-to-user" -> "assigned_to_user").
func (k Kind) TemplateKey() string {
	return strings.ReplaceAll(string(k), "-", "_")
}

// MailOnly reports whether messages of this kind carry a secret and may only go out by mail.
func (k Kind) MailOnly() bool {
	return k == KindOTP
}

// Message is one notification addressed to one user.
type Message struct {
	ID             string            `json:"id"`
	Kind           Kind              `json:"kind"`
	RecipientID    uint              `json:"recipient_id"`
	RecipientName  string            `json:"recipient_name"`
	RecipientEmail string            `json:"-"`
	ComplaintID    uint              `json:"complaint_id,omitempty"`
	Title          string            `json:"title,omitempty"`
	Deadline       time.Time         `json:"deadline"`
	Extra          map[string]string `json:"extra,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// New builds a message of the given kind for recipient.
func New(kind Kind, recipient *models.User) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		Extra:     map[string]string{},
		CreatedAt: time.Now(),
	}
	if recipient != nil {
		msg.RecipientID = recipient.ID
		msg.RecipientName = recipient.Name
		msg.RecipientEmail = recipient.Email
	}
	return msg
}

// ForComplaint fills the complaint fields.
func (m Message) ForComplaint(c *models.Complaint) Message {
	m.ComplaintID = c.ID
	m.Title = c.Title
	m.Deadline = c.Deadline
	return m
}

// With sets one Extra field.
func (m Message) With(key, value string) Message {
	extra := make(map[string]string, len(m.Extra)+1)
	for k, v := range m.Extra {
		extra[k] = v
	}
	extra[key] = value
	m.Extra = extra
	return m
}

type Dispatcher interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every dispatcher and joins their errors.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
