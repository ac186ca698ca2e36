package grievance

import (
	"context"
	"errors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

// Details is everything shown when tracking a single complaint.
type Details struct {
	Complaint   *models.Complaint     `json:"complaint"`
	Logs        []models.ComplaintLog `json:"logs"`
	Evidence    []models.Evidence     `json:"evidence"`
	Escalations []models.Escalation   `json:"escalations"`
	Resolution  *models.Resolution    `json:"resolution,omitempty"`
}

// Admin listing views.
const (
	ViewAll        = "all"
	ViewUnassigned = "unassigned"
	ViewAssigned   = "assigned"
	ViewEscalated  = "escalated"
)

// Track returns a complaint with its trail. Only the complainant, the assignee and admins may see it.
func (s *Service) Track(ctx context.Context, complaintID uint, viewer *models.User) (*Details, error) {
	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, storeErr("load complaint", err)
	}
	if viewer == nil {
		return nil, forbidden("anonymous viewer")
	}
	isAssignee := c.AssignedTo != nil && *c.AssignedTo == viewer.ID
	if c.ComplainantID != viewer.ID && !isAssignee && !viewer.IsAdmin() {
		return nil, forbidden("user %d may not view complaint %d", viewer.ID, c.ID)
	}

	d := &Details{Complaint: c}
	if d.Logs, err = s.Storage.ListLogs(ctx, c.ID); err != nil {
		return nil, storeErr("list logs", err)
	}
	if d.Evidence, err = s.Storage.ListEvidence(ctx, c.ID); err != nil {
		return nil, storeErr("list evidence", err)
	}
	if d.Escalations, err = s.Storage.ListEscalations(ctx, c.ID); err != nil {
		return nil, storeErr("list escalations", err)
	}
	res, err := s.Storage.GetResolutionByComplaintID(ctx, c.ID)
	switch {
	case err == nil:
		d.Resolution = res
	case !errors.Is(err, storage.ErrNotFound):
		return nil, storeErr("load resolution", err)
	}
	return d, nil
}

// History lists the complaints filed by user.
func (s *Service) History(ctx context.Context, user *models.User) ([]models.Complaint, error) {
	complaints, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{ComplainantID: &user.ID})
	if err != nil {
		return nil, storeErr("list history", err)
	}
	return complaints, nil
}

// Assigned lists the complaints assigned to member.
func (s *Service) Assigned(ctx context.Context, member *models.User) ([]models.Complaint, error) {
	complaints, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{AssignedTo: &member.ID})
	if err != nil {
		return nil, storeErr("list assigned", err)
	}
	return complaints, nil
}

// AvailableMembers lists committee members that may take the complaint (everyone but its complainant).
func (s *Service) AvailableMembers(ctx context.Context, complaintID uint) ([]models.User, error) {
	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, storeErr("load complaint", err)
	}
	members, err := s.Storage.FindCommitteeMembers(ctx, c.ComplainantID)
	if err != nil {
		return nil, storeErr("list committee members", err)
	}
	return members, nil
}

// List returns complaints for one of the admin views.
func (s *Service) List(ctx context.Context, view string) ([]models.Complaint, error) {
	var filter storage.ComplaintFilter
	switch view {
	case ViewAll, "":
	case ViewUnassigned:
		filter.Statuses = []models.Status{models.StatusPending}
		filter.Unassigned = true
	case ViewAssigned:
		filter.Statuses = []models.Status{models.StatusInProgress}
	case ViewEscalated:
		filter.Statuses = []models.Status{models.StatusEscalated}
	default:
		return nil, invalid("unknown view %q", view)
	}

	complaints, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, storeErr("list complaints", err)
	}
	return complaints, nil
}
