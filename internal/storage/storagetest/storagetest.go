// Package storagetest provides an in-memory SQLite database with the grievance schema
// for tests that need real transactions.
package storagetest

import (
	"context"
	"fmt"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh in-memory database. A single connection serialises
// transactions, which is what makes the concurrency tests deterministic.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return db
}

// NewStorage wraps NewDB in a storage.Service.
func NewStorage(t testing.TB) *storage.Service {
	return storage.NewStorageService(NewDB(t))
}

// SeedUser inserts a user with capabilities derived from role, gender and membership.
func SeedUser(t testing.TB, s storage.Storage, name string, role models.Role, gender models.Gender, committee bool) *models.User {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.org", name),
		PasswordHash: "x",
		Gender:       gender,
		Role:         role,
		Capabilities: models.DeriveCapabilities(role, gender, committee),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// SeedComplaint inserts a complaint in the given state.
func SeedComplaint(t testing.TB, s storage.Storage, complainantID uint, status models.Status, assignedTo *uint, deadline time.Time) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		ComplainantID: complainantID,
		Title:         "Seeded",
		Description:   "seeded complaint",
		Category:      "Other",
		Urgency:       models.UrgencyLow,
		Status:        status,
		AssignedTo:    assignedTo,
		Deadline:      deadline,
	}
	require.NoError(t, s.CreateComplaint(context.Background(), c))
	return c
}
