// Package escalation periodically hands overdue complaints over to an admin.
package escalation

import (
	"context"
	"errors"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"log"
	"time"
)

// Store is the part of storage the sweeper reads.
type Store interface {
	FindFirstAdmin(ctx context.Context) (*models.User, error)
	FindOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error)
}

// Escalator performs one missed-deadline escalation.
type Escalator interface {
	AutoEscalate(ctx context.Context, complaintID, toAdminID uint) (*models.Escalation, error)
}

type Sweeper struct {
	Store     Store
	Escalator Escalator
	Now       func() time.Time
}

func NewSweeper(store Store, escalator Escalator) *Sweeper {
	return &Sweeper{Store: store, Escalator: escalator, Now: time.Now}
}

// Sweep escalates every In Progress complaint past its deadline to the first admin and
// returns how many succeeded. A failing complaint is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	admin, err := s.Store.FindFirstAdmin(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("WARN: Escalation sweep skipped: no admin available")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	overdue, err := s.Store.FindOverdueComplaints(ctx, s.Now())
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, c := range overdue {
		if ctx.Err() != nil {
			return escalated, ctx.Err()
		}
		if _, err := s.Escalator.AutoEscalate(ctx, c.ID, admin.ID); err != nil {
			log.Printf("ERROR: Failed to escalate complaint %d: %v", c.ID, err)
			continue
		}
		escalated++
	}

	if len(overdue) > 0 {
		log.Printf("INFO: Escalation sweep: %d of %d overdue complaint(s) escalated to admin %d", escalated, len(overdue), admin.ID)
	}
	return escalated, nil
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval falls back
// to config.DefaultEscalationInterval.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Printf("WARN: Escalation interval %s is not positive, using %s", interval, config.DefaultEscalationInterval)
		interval = config.DefaultEscalationInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("INFO: Escalation sweeper started (every %s)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO: Escalation sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Printf("ERROR: Escalation sweep failed: %v", err)
			}
		}
	}
}
