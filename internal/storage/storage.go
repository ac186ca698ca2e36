package storage

import (
	"context"
	"errors"
	"fmt"
	"grievance/backend/internal/models"
	"log"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ComplaintFilter narrows ListComplaints. Zero values mean "no constraint".
type ComplaintFilter struct {
	ComplainantID *uint
	AssignedTo    *uint
	Statuses      []models.Status
	Unassigned    bool
}

// Storage is the persistence boundary for users, complaints and the action log.
// Methods called on the value passed to Transaction run inside that transaction.
type Storage interface {
	Transaction(ctx context.Context, fn func(tx Storage) error) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByRollNo(ctx context.Context, rollNo string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id uint, role models.Role, caps models.Capabilities) (bool, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) (bool, error)
	FindFirstAdmin(ctx context.Context) (*models.User, error)
	FindCommitteeMembers(ctx context.Context, excludeID uint) ([]models.User, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	TransitionComplaint(ctx context.Context, id uint, from []models.Status, to models.Status, assignedTo *uint) (bool, error)
	DeleteComplaint(ctx context.Context, id uint) (bool, error)
	FindOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error)

	CreateEscalation(ctx context.Context, escalation *models.Escalation) error
	ListEscalations(ctx context.Context, complaintID uint) ([]models.Escalation, error)
	CreateResolution(ctx context.Context, resolution *models.Resolution) error
	GetResolutionByComplaintID(ctx context.Context, complaintID uint) (*models.Resolution, error)
	CreateEvidence(ctx context.Context, evidence *models.Evidence) error
	ListEvidence(ctx context.Context, complaintID uint) ([]models.Evidence, error)

	AppendLog(ctx context.Context, entry *models.ComplaintLog) error
	ListLogs(ctx context.Context, complaintID uint) ([]models.ComplaintLog, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Migrate creates or updates every table used by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Transaction runs fn in a database transaction. Any error returned by fn, or a
// panic, rolls back every write made through tx.
func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func wrapNotFound(err error, what string, key interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, key, ErrNotFound)
	}
	return err
}

// --- Users ---

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	return s.db(ctx).Create(user).Error
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, id).Error; err != nil {
		return nil, wrapNotFound(err, "user", id)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrapNotFound(err, "user", email)
	}
	return &user, nil
}

func (s *Service) GetUserByRollNo(ctx context.Context, rollNo string) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).Where("roll_no = ?", rollNo).First(&user).Error; err != nil {
		return nil, wrapNotFound(err, "user with roll no", rollNo)
	}
	return &user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db(ctx).Order("created_at desc").Find(&users).Error; err != nil {
		log.Printf("ERROR: Failed to list users: %v", err)
		return nil, err
	}
	return users, nil
}

// UpdateUserRole перезаписує роль та набір capabilities користувача.
func (s *Service) UpdateUserRole(ctx context.Context, id uint, role models.Role, caps models.Capabilities) (bool, error) {
	res := s.db(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":         role,
			"capabilities": caps,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Service) UpdatePassword(ctx context.Context, email, passwordHash string) (bool, error) {
	res := s.db(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("password_hash", passwordHash)
	return res.RowsAffected > 0, res.Error
}

// FindFirstAdmin returns the admin with the lowest id.
func (s *Service) FindFirstAdmin(ctx context.Context) (*models.User, error) {
	var admin models.User
	err := s.db(ctx).Where("role = ?", models.RoleAdmin).Order("id asc").First(&admin).Error
	if err != nil {
		return nil, wrapNotFound(err, "admin", "any")
	}
	return &admin, nil
}

// FindCommitteeMembers returns committee members other than excludeID (0 excludes nobody).
func (s *Service) FindCommitteeMembers(ctx context.Context, excludeID uint) ([]models.User, error) {
	var staff []models.User
	q := s.db(ctx).Where("role = ?", models.RoleStaff)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("name asc").Find(&staff).Error; err != nil {
		return nil, err
	}

	members := make([]models.User, 0, len(staff))
	for _, u := range staff {
		if u.IsCommitteeMember() {
			members = append(members, u)
		}
	}
	return members, nil
}

// --- Complaints ---

// CreateComplaint inserts a complaint. Deadlines are stored in UTC.
func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	complaint.Deadline = complaint.Deadline.UTC()
	if complaint.Status == "" {
		complaint.Status = models.StatusPending
	}
	if err := s.db(ctx).Create(complaint).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint for user %d: %v", complaint.ComplainantID, err)
		return err
	}
	return nil
}

func (s *Service) GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.db(ctx).First(&complaint, id).Error; err != nil {
		return nil, wrapNotFound(err, "complaint", id)
	}
	return &complaint, nil
}

func (s *Service) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	q := s.db(ctx).Model(&models.Complaint{})
	if filter.ComplainantID != nil {
		q = q.Where("complainant_id = ?", *filter.ComplainantID)
	}
	if filter.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Unassigned {
		q = q.Where("assigned_to IS NULL")
	}

	var complaints []models.Complaint
	if err := q.Order("created_at desc").Find(&complaints).Error; err != nil {
		log.Printf("ERROR: Failed to list complaints: %v", err)
		return nil, err
	}
	return complaints, nil
}

// TransitionComplaint moves a complaint to status `to` only if its current status is one
// of `from`. assignedTo, when non-nil, replaces the assignee. It reports whether a row
// changed; false means the complaint is gone or another transition won.
func (s *Service) TransitionComplaint(ctx context.Context, id uint, from []models.Status, to models.Status, assignedTo *uint) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if assignedTo != nil {
		updates["assigned_to"] = *assignedTo
	}
	res := s.db(ctx).Model(&models.Complaint{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		log.Printf("ERROR: Failed to move complaint %d to %s: %v", id, to, res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) DeleteComplaint(ctx context.Context, id uint) (bool, error) {
	res := s.db(ctx).Delete(&models.Complaint{}, id)
	return res.RowsAffected > 0, res.Error
}

// FindOverdueComplaints returns In Progress complaints whose deadline is before now.
func (s *Service) FindOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.db(ctx).
		Where("status = ? AND deadline < ?", models.StatusInProgress, now.UTC()).
		Order("deadline asc").
		Find(&complaints).Error
	if err != nil {
		log.Printf("ERROR: Failed to find overdue complaints: %v", err)
		return nil, err
	}
	return complaints, nil
}

// --- Escalations, resolutions, evidence ---

func (s *Service) CreateEscalation(ctx context.Context, escalation *models.Escalation) error {
	return s.db(ctx).Create(escalation).Error
}

func (s *Service) ListEscalations(ctx context.Context, complaintID uint) ([]models.Escalation, error) {
	var escalations []models.Escalation
	err := s.db(ctx).Where("complaint_id = ?", complaintID).Order("created_at asc").Find(&escalations).Error
	return escalations, err
}

func (s *Service) CreateResolution(ctx context.Context, resolution *models.Resolution) error {
	return s.db(ctx).Create(resolution).Error
}

func (s *Service) GetResolutionByComplaintID(ctx context.Context, complaintID uint) (*models.Resolution, error) {
	var resolution models.Resolution
	if err := s.db(ctx).Where("complaint_id = ?", complaintID).First(&resolution).Error; err != nil {
		return nil, wrapNotFound(err, "resolution for complaint", complaintID)
	}
	return &resolution, nil
}

func (s *Service) CreateEvidence(ctx context.Context, evidence *models.Evidence) error {
	return s.db(ctx).Create(evidence).Error
}

func (s *Service) ListEvidence(ctx context.Context, complaintID uint) ([]models.Evidence, error) {
	var evidence []models.Evidence
	err := s.db(ctx).Where("complaint_id = ?", complaintID).Find(&evidence).Error
	return evidence, err
}

// --- Action log ---

func (s *Service) AppendLog(ctx context.Context, entry *models.ComplaintLog) error {
	if err := s.db(ctx).Create(entry).Error; err != nil {
		log.Printf("ERROR: Failed to append %q log entry: %v", entry.ActionTaken, err)
		return err
	}
	return nil
}

func (s *Service) ListLogs(ctx context.Context, complaintID uint) ([]models.ComplaintLog, error) {
	var logs []models.ComplaintLog
	err := s.db(ctx).Where("complaint_id = ?", complaintID).Order("created_at asc, id asc").Find(&logs).Error
	return logs, err
}
