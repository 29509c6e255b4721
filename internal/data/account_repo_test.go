package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/testutil"
)

func newTestAccountRepo(db *sql.DB) (*AccountRepo, *FixedTimeProvider) {
	clock := NewFixedTimeProvider(testutil.TestTime())
	repo := NewAccountRepo(db)
	repo.TimeProvider = clock
	return repo, clock
}

func TestAccountRepo_EnsureAccount(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo, clock := newTestAccountRepo(db)
		ctx := context.Background()

		acct, err := repo.EnsureAccount(ctx, model.EnsureAccountRequest{
			UID: " u-1 ", Email: "ama@example.org", FirstName: "Ama", LastName: "Owusu",
		})
		require.NoError(t, err)
		assert.Equal(t, "u-1", acct.UID)
		assert.Equal(t, domainauth.DefaultRole, acct.Role)
		assert.True(t, acct.Active)
		require.NotNil(t, acct.LastLoginAt)
		assert.True(t, acct.LastLoginAt.Equal(testutil.TestTime()))

		_, err = repo.UpdateRole(ctx, "u-1", domainauth.RoleTreasury)
		require.NoError(t, err)

		clock.AddTime(time.Hour)
		again, err := repo.EnsureAccount(ctx, model.EnsureAccountRequest{
			UID: "u-1", Email: "ama.owusu@example.org", FirstName: "Ama",
		})
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleTreasury, again.Role, "login must not reset the stored role")
		assert.Equal(t, "ama.owusu@example.org", again.Email)
		assert.True(t, again.LastLoginAt.Equal(testutil.TestTime().Add(time.Hour)))
		assert.True(t, again.CreatedAt.Equal(acct.CreatedAt))
	})
}

func TestAccountRepo_EnsureAccount_Validation(t *testing.T) {
	repo := NewAccountRepo(nil)
	_, err := repo.EnsureAccount(context.Background(), model.EnsureAccountRequest{UID: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAccountRepo_EmailConflict(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo, _ := newTestAccountRepo(db)
		ctx := context.Background()

		_, err := repo.EnsureAccount(ctx, model.EnsureAccountRequest{UID: "u-1", Email: "Dup@example.org"})
		require.NoError(t, err)
		_, err = repo.EnsureAccount(ctx, model.EnsureAccountRequest{UID: "u-2", Email: "dup@example.org"})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestAccountRepo_NotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo, _ := newTestAccountRepo(db)
		ctx := context.Background()

		_, err := repo.GetByUID(ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))
		_, err = repo.UpdateRole(ctx, "missing", domainauth.RoleAdmin)
		assert.True(t, apperrors.IsNotFound(err))
		_, err = repo.SetActive(ctx, "missing", false)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestAccountRepo_UnknownStoredRoleReadsBack(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		testutil.InsertAccount(t, db, testutil.AccountFixture{UID: "legacy", Role: "pastor", Active: true})

		acct, err := NewAccountRepo(db).GetByUID(context.Background(), "legacy")
		require.NoError(t, err)
		assert.Equal(t, domainauth.Role("pastor"), acct.Role)
		assert.False(t, acct.Role.Valid())
	})
}

func TestAccountRepo_ListAndCount(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		for _, f := range []testutil.AccountFixture{
			{UID: "a", Email: "abena@example.org", Role: domainauth.RoleSuperAdmin, Active: true},
			{UID: "b", Email: "bright@example.org", Role: domainauth.RoleAdmin, Active: true},
			{UID: "c", Email: "comfort@example.org", Role: domainauth.RoleAdmin, Active: true},
			{UID: "d", Email: "dede@example.org", Role: domainauth.RoleAdmin, Active: false},
			{UID: "e", Email: "esi_100%@example.org", Role: domainauth.RoleUser, Active: true},
		} {
			testutil.InsertAccount(t, db, f)
		}
		repo := NewAccountRepo(db)
		ctx := context.Background()

		all, err := repo.List(ctx, model.AccountListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "a", all[0].UID, "ordered by email")

		admin := domainauth.RoleAdmin
		admins, err := repo.List(ctx, model.AccountListOptions{Role: &admin, Active: testutil.BoolPtr(true)})
		require.NoError(t, err)
		assert.Len(t, admins, 2)

		page, err := repo.List(ctx, model.AccountListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "c", page[0].UID)

		literal, err := repo.List(ctx, model.AccountListOptions{Q: testutil.StringPtr("_100%")})
		require.NoError(t, err)
		require.Len(t, literal, 1)
		assert.Equal(t, "e", literal[0].UID)

		counts, err := repo.CountByRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[domainauth.Role]int{
			domainauth.RoleSuperAdmin: 1,
			domainauth.RoleAdmin:      2,
			domainauth.RoleUser:       1,
		}, counts)
	})
}

func TestAccountRepo_SetActive(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		testutil.InsertAccount(t, db, testutil.AccountFixture{UID: "u", Active: true})
		repo, clock := newTestAccountRepo(db)
		clock.AddTime(time.Minute)

		acct, err := repo.SetActive(context.Background(), "u", false)
		require.NoError(t, err)
		assert.False(t, acct.Active)
		assert.True(t, acct.UpdatedAt.Equal(testutil.TestTime().Add(time.Minute)))
	})
}

func TestAccountRepo_ApplyChange(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		testutil.InsertAccount(t, db, testutil.AccountFixture{UID: "b", Role: domainauth.RoleUser, Active: true})
		repo, _ := newTestAccountRepo(db)
		ctx := context.Background()

		role := domainauth.RoleAdmin
		record := &model.RoleChange{
			Event: model.RoleChangeAssigned, ActorUID: "a", TargetUID: "b",
			PreviousRole: domainauth.RoleUser, NewRole: role,
		}
		acct, err := repo.ApplyChange(ctx, model.AccountChange{UID: "b", Role: &role, Record: record})
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleAdmin, acct.Role)
		assert.NotEmpty(t, record.ID)

		changes, err := NewRoleAuditRepo(db).List(ctx, model.RoleChangeListOptions{})
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, record.ID, changes[0].ID)
	})
}

func TestAccountRepo_ApplyChange_AuditFailureRollsBack(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		testutil.InsertAccount(t, db, testutil.AccountFixture{UID: "b", Role: domainauth.RoleUser, Active: true})
		repo, _ := newTestAccountRepo(db)
		ctx := context.Background()

		existing := &model.RoleChange{
			Event: model.RoleChangeReactivated, ActorUID: "a", TargetUID: "b",
			PreviousRole: domainauth.RoleUser, NewRole: domainauth.RoleUser,
		}
		require.NoError(t, NewRoleAuditRepo(db).Record(ctx, existing))

		// Reusing the audit ID fails the insert after the update has run.
		role := domainauth.RoleSuperAdmin
		_, err := repo.ApplyChange(ctx, model.AccountChange{
			UID:  "b",
			Role: &role,
			Record: &model.RoleChange{
				ID: existing.ID, Event: model.RoleChangeAssigned, ActorUID: "a", TargetUID: "b",
				PreviousRole: domainauth.RoleUser, NewRole: role,
			},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))

		acct, err := repo.GetByUID(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleUser, acct.Role, "role write must roll back with the audit insert")
	})
}

func TestAccountRepo_ApplyChange_Validation(t *testing.T) {
	repo := NewAccountRepo(nil)
	role := domainauth.RoleAdmin
	active := false
	record := &model.RoleChange{ActorUID: "a", TargetUID: "b"}

	tests := []struct {
		name   string
		change model.AccountChange
	}{
		{name: "missing uid", change: model.AccountChange{Role: &role, Record: record}},
		{name: "no field", change: model.AccountChange{UID: "b", Record: record}},
		{name: "both fields", change: model.AccountChange{UID: "b", Role: &role, Active: &active, Record: record}},
		{name: "missing record", change: model.AccountChange{UID: "b", Role: &role}},
		{name: "record without actor", change: model.AccountChange{UID: "b", Role: &role, Record: &model.RoleChange{TargetUID: "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.ApplyChange(context.Background(), tt.change)
			require.Error(t, err)
		})
	}
}
