// Package users handles accounts: registration, OTP login, password reset and admin
// role management.
package users

import (
	"context"
	"errors"
	"fmt"
	"grievance/backend/internal/models"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/otp"
	"grievance/backend/internal/storage"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 10
	minPasswordLength = 6

	purposeLogin = "login"
	purposeReset = "password reset"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicate          = errors.New("already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoCapability       = errors.New("account has no role or capability assigned")
	ErrNotFound           = storage.ErrNotFound
)

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Gender      models.Gender
	Role        models.Role
	RollNo      string
	Designation string
}

type Service struct {
	Storage  storage.Storage
	OTP      otp.Store
	Notifier notify.Dispatcher
	OTPTTL   time.Duration

	wg sync.WaitGroup
}

func NewService(s storage.Storage, codes otp.Store, notifier notify.Dispatcher, otpTTL time.Duration) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{Storage: s, OTP: codes, Notifier: notifier, OTPTTL: otpTTL}
}

// Wait blocks until background notifications are done.
func (s *Service) Wait() {
	s.wg.Wait()
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Register creates a Student or Staff account. Male staff join the committee by default.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.RollNo = strings.TrimSpace(in.RollNo)

	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("please enter a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}
	if in.Role != models.RoleStudent && in.Role != models.RoleStaff {
		return nil, invalid("invalid user role for registration")
	}
	if in.Role == models.RoleStudent && in.RollNo == "" {
		return nil, invalid("roll number is required for students")
	}

	if _, err := s.Storage.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email %s", ErrDuplicate, in.Email)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if in.RollNo != "" {
		if _, err := s.Storage.GetUserByRollNo(ctx, in.RollNo); err == nil {
			return nil, fmt.Errorf("%w: roll number %s", ErrDuplicate, in.RollNo)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	committee := in.Role == models.RoleStaff && in.Gender == models.GenderMale
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Gender:       in.Gender,
		Role:         in.Role,
		Capabilities: models.DeriveCapabilities(in.Role, in.Gender, committee),
	}
	if in.Role == models.RoleStudent {
		user.RollNo = &in.RollNo
	} else {
		user.Designation = in.Designation
	}

	if err := s.Storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("INFO: Registered user %d (%s)", user.ID, user.Role)

	s.send(notify.New(notify.KindWelcome, user))
	return user, nil
}

// Login checks the password and mails a one-time code; VerifyLogin completes the login.
func (s *Service) Login(ctx context.Context, email, password string) error {
	user, err := s.Storage.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	if !user.Role.Valid() {
		return ErrNoCapability
	}
	return s.issueCode(ctx, user, purposeLogin)
}

// VerifyLogin consumes the login code and returns the user.
func (s *Service) VerifyLogin(ctx context.Context, email, code string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.OTP.Verify(ctx, purposeLogin+":"+email, strings.TrimSpace(code)); err != nil {
		return nil, err
	}
	user, err := s.Storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.CanSubmitGrievance() && !user.IsCommitteeMember() && !user.IsAdmin() {
		return nil, ErrNoCapability
	}
	return user, nil
}

// ForgotPassword mails a reset code to a registered address.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Storage.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	return s.issueCode(ctx, user, purposeReset)
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(newPassword) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}
	if err := s.OTP.Verify(ctx, purposeReset+":"+email, strings.TrimSpace(code)); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := s.Storage.UpdatePassword(ctx, email, string(hash))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	log.Printf("INFO: Password reset for %s", email)
	return nil
}

// issueCode stores a fresh code and mails it. The mail is sent inline: without it the
// user cannot continue.
func (s *Service) issueCode(ctx context.Context, user *models.User, purpose string) error {
	code, err := otp.Generate()
	if err != nil {
		return err
	}
	if err := s.OTP.Save(ctx, purpose+":"+user.Email, code, s.OTPTTL); err != nil {
		return fmt.Errorf("save %s code: %w", purpose, err)
	}

	msg := notify.New(notify.KindOTP, user).
		With("otp", code).
		With("purpose", purpose).
		With("ttl", s.OTPTTL.String())
	if err := s.Notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("send %s code: %w", purpose, err)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Storage.ListUsers(ctx)
}

// UpdateRoleAndMembership changes a user's role and committee membership and records a
// "User Role Updated" log entry in the same transaction. Only Staff may sit on the committee.
func (s *Service) UpdateRoleAndMembership(ctx context.Context, userID uint, role models.Role, committee bool, actor *models.User) (*models.User, error) {
	if !role.Valid() {
		return nil, invalid("invalid user role %q", role)
	}
	if committee && role != models.RoleStaff {
		return nil, invalid(`only users with the role "Staff" can be made committee members`)
	}

	var updated *models.User
	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		caps := models.DeriveCapabilities(role, user.Gender, committee)
		if _, err := tx.UpdateUserRole(ctx, user.ID, role, caps); err != nil {
			return err
		}
		user.Role, user.Capabilities = role, caps
		updated = user

		return tx.AppendLog(ctx, &models.ComplaintLog{
			ActionTaken: models.ActionRoleUpdated,
			PerformedBy: actor.ID,
			ActionRole:  string(actor.Role),
			Remarks: fmt.Sprintf("Updated role of user %s (ID: %d) to %s, Committee Member: %t",
				user.Name, user.ID, role, committee),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) send(msg notify.Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Notifier.Notify(ctx, msg); err != nil {
			log.Printf("WARN: Failed to send %s notification to user %d: %v", msg.Kind, msg.RecipientID, err)
		}
	}()
}
