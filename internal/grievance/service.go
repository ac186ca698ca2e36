// Package grievance is the complaint lifecycle engine: submit, assign, resolve, escalate
// and delete. Every operation re-reads the complaint and performs a conditional status
// update inside one transaction together with its audit log entry; notifications go out
// after commit and never affect the result.
package grievance

import (
	"context"
	"errors"
	"fmt"
	"grievance/backend/internal/analysis"
	"grievance/backend/internal/config"
	"grievance/backend/internal/deadline"
	"grievance/backend/internal/models"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/storage"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

const notifyTimeout = 30 * time.Second

// EvidenceStore keeps submission attachments and returns their URL.
type EvidenceStore interface {
	Upload(ctx context.Context, complaintID uint, fileName, contentType string, size int64, body io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}

type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type SubmitInput struct {
	Title       string
	Description string
	Category    string
	Attachment  *Attachment
}

type Service struct {
	Storage  storage.Storage
	Notifier notify.Dispatcher
	Evidence EvidenceStore
	Now      func() time.Time

	wg sync.WaitGroup
}

// NewService wires the engine. notifier and evidence may be nil.
func NewService(s storage.Storage, notifier notify.Dispatcher, evidence EvidenceStore) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		Storage:  s,
		Notifier: notifier,
		Evidence: evidence,
		Now:      time.Now,
	}
}

// Wait blocks until every notification dispatched so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Submit(ctx context.Context, complainant *models.User, in SubmitInput) (*models.Complaint, error) {
	if complainant == nil || !complainant.CanSubmitGrievance() {
		return nil, forbidden("user is not allowed to submit grievances")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Category == "" || strings.TrimSpace(in.Description) == "" {
		return nil, invalid("title, description and category are required")
	}

	tier := analysis.Classify(in.Category)
	complaint := &models.Complaint{
		ComplainantID: complainant.ID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Urgency:       models.Urgency(tier.Urgency),
		Status:        models.StatusPending,
		Deadline:      deadline.Compute(s.Now(), tier.SLAHours),
	}

	var uploaded string
	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		if err := tx.CreateComplaint(ctx, complaint); err != nil {
			return storeErr("create complaint", err)
		}
		var err error
		uploaded, err = s.attach(ctx, tx, complaint.ID, complainant.ID, in.Attachment)
		if err != nil {
			return err
		}
		return appendLog(ctx, tx, complaint.ID, models.ActionSubmitted, complainant.ID, string(complainant.Role),
			fmt.Sprintf("Urgency %s, due %s", tier.Urgency, complaint.Deadline.In(deadline.Location).Format(time.RFC3339)))
	})
	if err != nil {
		if uploaded != "" {
			s.discardEvidence(ctx, uploaded)
		}
		return nil, txErr(err)
	}

	log.Printf("INFO: Complaint %d submitted by user %d (%s, deadline %s)", complaint.ID, complainant.ID, complaint.Urgency, complaint.Deadline)
	s.send(notify.New(notify.KindSubmissionConfirmed, complainant).ForComplaint(complaint).
		With("category", complaint.Category).
		With("resolve_in", tier.ResolveIn))
	return complaint, nil
}

// attach uploads the attachment and records it. The URL is returned whenever the
// object was stored, even if recording it failed.
func (s *Service) attach(ctx context.Context, tx storage.Storage, complaintID, uploaderID uint, a *Attachment) (string, error) {
	if a == nil || s.Evidence == nil {
		return "", nil
	}
	url, err := s.Evidence.Upload(ctx, complaintID, a.FileName, a.ContentType, a.Size, a.Body)
	if err != nil {
		return "", fmt.Errorf("%w: upload evidence: %w", ErrPersistence, err)
	}
	ev := &models.Evidence{ComplaintID: complaintID, FileName: a.FileName, FileURL: url, UploadedBy: uploaderID}
	if err := tx.CreateEvidence(ctx, ev); err != nil {
		return url, storeErr("save evidence", err)
	}
	return url, nil
}

// discardEvidence removes an object whose complaint was rolled back.
func (s *Service) discardEvidence(ctx context.Context, url string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.Evidence.Remove(ctx, url); err != nil {
		log.Printf("ERROR: Orphaned evidence object %s: %v", url, err)
	}
}

func (s *Service) Assign(ctx context.Context, complaintID, targetMemberID uint, actor *models.User) (*models.Complaint, error) {
	if actor == nil {
		return nil, forbidden("assignment requires an actor")
	}

	var complaint *models.Complaint
	var member *models.User
	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return storeErr("load complaint", err)
		}
		if !c.IsAssignable() {
			return invalid("complaint %d is %s and cannot be assigned", c.ID, c.Status)
		}
		if targetMemberID == c.ComplainantID {
			return invalid("complaint %d cannot be assigned to its complainant", c.ID)
		}
		m, err := tx.GetUserByID(ctx, targetMemberID)
		if err != nil {
			return storeErr("load member", err)
		}
		if !m.IsCommitteeMember() {
			return invalid("user %d is not a committee member", m.ID)
		}

		ok, err := tx.TransitionComplaint(ctx, c.ID, models.AssignableStatuses, models.StatusInProgress, &m.ID)
		if err != nil {
			return storeErr("assign complaint", err)
		}
		if !ok {
			return conflict(c.ID)
		}
		c.Status = models.StatusInProgress
		c.AssignedTo = &m.ID
		complaint, member = c, m

		return appendLog(ctx, tx, c.ID, models.ActionAssigned, actor.ID, string(actor.Role),
			fmt.Sprintf("Assigned to %s", m.Name))
	})
	if err != nil {
		return nil, txErr(err)
	}

	log.Printf("INFO: Complaint %d assigned to user %d by %d", complaint.ID, member.ID, actor.ID)
	s.notifyUser(complaint.ComplainantID, notify.KindAssignedToUser, func(m notify.Message) notify.Message {
		return m.ForComplaint(complaint).With("member", member.Name)
	})
	s.send(notify.New(notify.KindAssignedToMember, member).ForComplaint(complaint))
	return complaint, nil
}

func (s *Service) Resolve(ctx context.Context, complaintID uint, actor *models.User, actionTaken, remarks string) (*models.Resolution, error) {
	if actor == nil {
		return nil, forbidden("resolution requires an actor")
	}
	if strings.TrimSpace(actionTaken) == "" {
		return nil, invalid("action taken is required")
	}

	var complaint *models.Complaint
	resolution := &models.Resolution{
		ComplaintID: complaintID,
		ResolvedBy:  actor.ID,
		ActionTaken: actionTaken,
		Remarks:     remarks,
	}
	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return storeErr("load complaint", err)
		}
		if c.Status != models.StatusInProgress {
			return invalid("complaint %d is %s, only In Progress complaints can be resolved", c.ID, c.Status)
		}
		isAssignee := c.AssignedTo != nil && *c.AssignedTo == actor.ID
		if !isAssignee && !actor.IsAdmin() {
			return forbidden("user %d is neither the assignee nor an admin", actor.ID)
		}

		ok, err := tx.TransitionComplaint(ctx, c.ID, []models.Status{models.StatusInProgress}, models.StatusResolved, nil)
		if err != nil {
			return storeErr("resolve complaint", err)
		}
		if !ok {
			return conflict(c.ID)
		}
		c.Status = models.StatusResolved
		complaint = c

		if err := tx.CreateResolution(ctx, resolution); err != nil {
			return storeErr("save resolution", err)
		}
		return appendLog(ctx, tx, c.ID, models.ActionResolved, actor.ID, string(actor.Role), remarks)
	})
	if err != nil {
		return nil, txErr(err)
	}

	log.Printf("INFO: Complaint %d resolved by user %d", complaint.ID, actor.ID)
	s.notifyUser(complaint.ComplainantID, notify.KindResolved, func(m notify.Message) notify.Message {
		return m.ForComplaint(complaint).With("action_taken", actionTaken).With("remarks", remarks)
	})
	return resolution, nil
}

// Escalate hands an In Progress complaint over to an admin.
func (s *Service) Escalate(ctx context.Context, complaintID uint, reason string, toAdminID uint) (*models.Escalation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("escalation reason is required")
	}
	return s.escalate(ctx, complaintID, reason, toAdminID, models.ActionEscalated)
}

// AutoEscalate is Escalate with the missed-deadline reason, used by the sweeper.
func (s *Service) AutoEscalate(ctx context.Context, complaintID, toAdminID uint) (*models.Escalation, error) {
	return s.escalate(ctx, complaintID, config.AutoEscalationReason, toAdminID, models.ActionAutoEscalated)
}

func (s *Service) escalate(ctx context.Context, complaintID uint, reason string, toAdminID uint, action string) (*models.Escalation, error) {
	var complaint *models.Complaint
	var admin *models.User
	var fromName string
	escalation := &models.Escalation{ComplaintID: complaintID, Reason: reason, EscalatedTo: toAdminID}

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return storeErr("load complaint", err)
		}
		if c.Status != models.StatusInProgress {
			return invalid("complaint %d is %s, only In Progress complaints can be escalated", c.ID, c.Status)
		}
		a, err := tx.GetUserByID(ctx, toAdminID)
		if err != nil {
			return storeErr("load admin", err)
		}
		if !a.IsAdmin() {
			return invalid("user %d is not an admin", a.ID)
		}
		if c.AssignedTo != nil {
			from, err := tx.GetUserByID(ctx, *c.AssignedTo)
			switch {
			case err == nil:
				fromName = from.Name
			case !errors.Is(err, storage.ErrNotFound):
				return storeErr("load assignee", err)
			}
		}

		ok, err := tx.TransitionComplaint(ctx, c.ID, []models.Status{models.StatusInProgress}, models.StatusEscalated, nil)
		if err != nil {
			return storeErr("escalate complaint", err)
		}
		if !ok {
			return conflict(c.ID)
		}
		c.Status = models.StatusEscalated
		complaint, admin = c, a

		escalation.EscalatedFrom = c.AssignedTo
		if err := tx.CreateEscalation(ctx, escalation); err != nil {
			return storeErr("save escalation", err)
		}
		return appendLog(ctx, tx, c.ID, action, a.ID, config.SystemActorRole, reason)
	})
	if err != nil {
		return nil, txErr(err)
	}

	log.Printf("INFO: Complaint %d escalated to admin %d (%s)", complaint.ID, admin.ID, action)
	if fromName == "" {
		fromName = "N/A"
	}
	s.send(notify.New(notify.KindEscalated, admin).ForComplaint(complaint).
		With("reason", reason).
		With("escalated_from", fromName))
	return escalation, nil
}

// Delete removes a complaint. The "Deleted" log entry is written first and survives the row.
func (s *Service) Delete(ctx context.Context, complaintID uint, actor *models.User) error {
	if actor == nil || !actor.IsAdmin() {
		return forbidden("only admins can delete complaints")
	}

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		if err := appendLog(ctx, tx, complaintID, models.ActionDeleted, actor.ID, string(actor.Role), ""); err != nil {
			return err
		}
		deleted, err := tx.DeleteComplaint(ctx, complaintID)
		if err != nil {
			return storeErr("delete complaint", err)
		}
		if !deleted {
			return fmt.Errorf("%w: complaint %d", ErrNotFound, complaintID)
		}
		return nil
	})
	if err != nil {
		return txErr(err)
	}

	log.Printf("INFO: Complaint %d deleted by admin %d", complaintID, actor.ID)
	return nil
}

func appendLog(ctx context.Context, tx storage.Storage, complaintID uint, action string, by uint, role, remarks string) error {
	id := complaintID
	entry := &models.ComplaintLog{
		ComplaintID: &id,
		ActionTaken: action,
		PerformedBy: by,
		ActionRole:  role,
		Remarks:     remarks,
	}
	if err := tx.AppendLog(ctx, entry); err != nil {
		return storeErr("append log", err)
	}
	return nil
}

// send dispatches msg in the background.
func (s *Service) send(msg notify.Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.Notifier.Notify(ctx, msg); err != nil {
			log.Printf("WARN: %v: %s for complaint %d to user %d: %v", ErrNotification, msg.Kind, msg.ComplaintID, msg.RecipientID, err)
		}
	}()
}

// notifyUser looks the recipient up in the background and then dispatches.
func (s *Service) notifyUser(userID uint, kind notify.Kind, build func(notify.Message) notify.Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		user, err := s.Storage.GetUserByID(ctx, userID)
		if err != nil {
			log.Printf("WARN: %v: %s: recipient %d: %v", ErrNotification, kind, userID, err)
			return
		}
		msg := build(notify.New(kind, user))
		if err := s.Notifier.Notify(ctx, msg); err != nil {
			log.Printf("WARN: %v: %s for complaint %d to user %d: %v", ErrNotification, kind, msg.ComplaintID, userID, err)
		}
	}()
}
