package storage_test

import (
	"context"
	"errors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/storage/storagetest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLookups(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()

	alice := storagetest.SeedUser(t, s, "alice", models.RoleStudent, models.GenderFemale, false)

	got, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", got.Email)
	assert.True(t, got.CanSubmitGrievance(), "capabilities must survive a round trip through the column")

	got, err = s.GetUserByEmail(ctx, "alice@example.org")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = s.GetUserByID(ctx, 9999)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = s.GetUserByEmail(ctx, "nobody@example.org")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestFindFirstAdmin(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()

	_, err := s.FindFirstAdmin(ctx)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	storagetest.SeedUser(t, s, "student", models.RoleStudent, models.GenderFemale, false)
	first := storagetest.SeedUser(t, s, "root", models.RoleAdmin, models.GenderMale, false)
	storagetest.SeedUser(t, s, "root2", models.RoleAdmin, models.GenderFemale, false)

	admin, err := s.FindFirstAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, admin.ID)
}

func TestFindCommitteeMembers(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()

	m1 := storagetest.SeedUser(t, s, "bob", models.RoleStaff, models.GenderMale, true)
	m2 := storagetest.SeedUser(t, s, "carol", models.RoleStaff, models.GenderFemale, true)
	storagetest.SeedUser(t, s, "dave", models.RoleStaff, models.GenderMale, false)
	storagetest.SeedUser(t, s, "erin", models.RoleStudent, models.GenderFemale, false)

	all, err := s.FindCommitteeMembers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	others, err := s.FindCommitteeMembers(ctx, m2.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, m1.ID, others[0].ID)
}

func TestUpdateUserRole(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()
	u := storagetest.SeedUser(t, s, "frank", models.RoleStudent, models.GenderMale, false)

	caps := models.DeriveCapabilities(models.RoleStaff, models.GenderMale, true)
	ok, err := s.UpdateUserRole(ctx, u.ID, models.RoleStaff, caps)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, got.Role)
	assert.True(t, got.IsCommitteeMember())

	ok, err = s.UpdateUserRole(ctx, 4242, models.RoleStaff, caps)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransitionComplaintIsConditional(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()
	owner := storagetest.SeedUser(t, s, "gina", models.RoleStudent, models.GenderFemale, false)
	member := storagetest.SeedUser(t, s, "hank", models.RoleStaff, models.GenderMale, true)
	c := storagetest.SeedComplaint(t, s, owner.ID, models.StatusPending, nil, time.Now().Add(time.Hour))

	ok, err := s.TransitionComplaint(ctx, c.ID, models.AssignableStatuses, models.StatusInProgress, &member.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// a second assignment from the same expected state must not apply
	ok, err = s.TransitionComplaint(ctx, c.ID, models.AssignableStatuses, models.StatusInProgress, &owner.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, member.ID, *got.AssignedTo)
}

func TestFindOverdueComplaints(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()
	owner := storagetest.SeedUser(t, s, "ivy", models.RoleStudent, models.GenderFemale, false)
	member := storagetest.SeedUser(t, s, "jack", models.RoleStaff, models.GenderMale, true)

	now := time.Now()
	overdue := storagetest.SeedComplaint(t, s, owner.ID, models.StatusInProgress, &member.ID, now.Add(-2*time.Hour))
	storagetest.SeedComplaint(t, s, owner.ID, models.StatusInProgress, &member.ID, now.Add(2*time.Hour))
	storagetest.SeedComplaint(t, s, owner.ID, models.StatusPending, nil, now.Add(-2*time.Hour))
	storagetest.SeedComplaint(t, s, owner.ID, models.StatusEscalated, &member.ID, now.Add(-2*time.Hour))

	got, err := s.FindOverdueComplaints(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}

func TestListComplaintsFilter(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()
	owner := storagetest.SeedUser(t, s, "kate", models.RoleStudent, models.GenderFemale, false)
	member := storagetest.SeedUser(t, s, "liam", models.RoleStaff, models.GenderMale, true)
	deadline := time.Now().Add(time.Hour)

	storagetest.SeedComplaint(t, s, owner.ID, models.StatusPending, nil, deadline)
	storagetest.SeedComplaint(t, s, owner.ID, models.StatusInProgress, &member.ID, deadline)
	storagetest.SeedComplaint(t, s, owner.ID, models.StatusEscalated, &member.ID, deadline)

	all, err := s.ListComplaints(ctx, storage.ComplaintFilter{ComplainantID: &owner.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	unassigned, err := s.ListComplaints(ctx, storage.ComplaintFilter{Statuses: []models.Status{models.StatusPending}, Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, unassigned, 1)

	mine, err := s.ListComplaints(ctx, storage.ComplaintFilter{AssignedTo: &member.ID, Statuses: []models.Status{models.StatusInProgress}})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestTransactionRollsBack(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()
	owner := storagetest.SeedUser(t, s, "mia", models.RoleStudent, models.GenderFemale, false)
	c := storagetest.SeedComplaint(t, s, owner.ID, models.StatusPending, nil, time.Now())

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx storage.Storage) error {
		require.NoError(t, tx.AppendLog(ctx, &models.ComplaintLog{
			ComplaintID: &c.ID, ActionTaken: models.ActionDeleted, PerformedBy: owner.ID, ActionRole: "Admin",
		}))
		deleted, err := tx.DeleteComplaint(ctx, c.ID)
		require.NoError(t, err)
		require.True(t, deleted)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetComplaintByID(ctx, c.ID)
	assert.NoError(t, err, "complaint must survive a rolled back delete")
	logs, err := s.ListLogs(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDeletedLogOutlivesComplaint(t *testing.T) {
	s := storagetest.NewStorage(t)
	ctx := context.Background()
	owner := storagetest.SeedUser(t, s, "nora", models.RoleStudent, models.GenderFemale, false)
	c := storagetest.SeedComplaint(t, s, owner.ID, models.StatusPending, nil, time.Now())

	err := s.Transaction(ctx, func(tx storage.Storage) error {
		if err := tx.AppendLog(ctx, &models.ComplaintLog{
			ComplaintID: &c.ID, ActionTaken: models.ActionDeleted, PerformedBy: owner.ID, ActionRole: "Admin",
		}); err != nil {
			return err
		}
		_, err := tx.DeleteComplaint(ctx, c.ID)
		return err
	})
	require.NoError(t, err)

	logs, err := s.ListLogs(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionDeleted, logs[0].ActionTaken)

	deleted, err := s.DeleteComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
