package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/ports"
)

func TestMockAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state, _, err = provider.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Equal(t, "state-2", state)
}

func TestMockAuthProvider_Exchange_Defaults(t *testing.T) {
	identity, err := NewMockAuthProvider().Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", identity.UserID)
	assert.Equal(t, "mock-refresh-token", identity.Credential)
	assert.True(t, identity.ExpiresAt.After(time.Now()))
}

func TestMockAuthProvider_RevokeRecordsCredentials(t *testing.T) {
	provider := NewMockAuthProvider()
	require.NoError(t, provider.Revoke(context.Background(), "a"))
	require.NoError(t, provider.Revoke(context.Background(), "b"))
	assert.Equal(t, []string{"a", "b"}, provider.Revoked())
}

func TestMemorySessionStore_SaveGetDelete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := domainauth.Session{ID: "s-1", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, domainauth.Session{}))
	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAccountRepository_EnsureAccountKeepsRole(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	acct, err := repo.EnsureAccount(ctx, model.EnsureAccountRequest{UID: "u-1", Email: "a@example.org"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, acct.Role)
	assert.True(t, acct.Active)

	_, err = repo.UpdateRole(ctx, "u-1", domainauth.RoleTreasury)
	require.NoError(t, err)

	acct, err = repo.EnsureAccount(ctx, model.EnsureAccountRequest{UID: "u-1", Email: "new@example.org"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTreasury, acct.Role)
	assert.Equal(t, "new@example.org", acct.Email)

	_, err = repo.GetByUID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryAccountRepository_ListAndCount(t *testing.T) {
	repo := NewMemoryAccountRepository()
	repo.Put(model.Account{UID: "1", Email: "b@example.org", Role: domainauth.RoleAdmin, Active: true})
	repo.Put(model.Account{UID: "2", Email: "a@example.org", Role: domainauth.RoleUser, Active: true})
	repo.Put(model.Account{UID: "3", Email: "c@example.org", Role: domainauth.RoleAdmin, Active: false})

	all, err := repo.List(context.Background(), model.AccountListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a@example.org", all[0].Email)

	admin := domainauth.RoleAdmin
	admins, err := repo.List(context.Background(), model.AccountListOptions{Role: &admin})
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[domainauth.Role]int{domainauth.RoleAdmin: 1, domainauth.RoleUser: 1}, counts)
}

func TestMemoryRoleAuditRepository_NewestFirst(t *testing.T) {
	repo := &MemoryRoleAuditRepository{}
	ctx := context.Background()
	require.NoError(t, repo.Record(ctx, &model.RoleChange{ID: "1", TargetUID: "u-1"}))
	require.NoError(t, repo.Record(ctx, &model.RoleChange{ID: "2", TargetUID: "u-2"}))

	out, err := repo.List(ctx, model.RoleChangeListOptions{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].ID)

	target := "u-1"
	out, err = repo.List(ctx, model.RoleChangeListOptions{TargetUID: &target})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)
}

func TestMemoryAccountRepository_ApplyChangeIsAtomic(t *testing.T) {
	repo := NewMemoryAccountRepository()
	repo.Put(model.Account{UID: "u-1", Role: domainauth.RoleUser, Active: true})
	ctx := context.Background()
	role := domainauth.RoleAdmin

	repo.Audit.Err = errors.New("audit down")
	_, err := repo.ApplyChange(ctx, model.AccountChange{UID: "u-1", Role: &role, Record: &model.RoleChange{ID: "1"}})
	require.Error(t, err)
	acct, _ := repo.GetByUID(ctx, "u-1")
	assert.Equal(t, domainauth.RoleUser, acct.Role)

	repo.Audit.Err = nil
	acct, err = repo.ApplyChange(ctx, model.AccountChange{UID: "u-1", Role: &role, Record: &model.RoleChange{ID: "2"}})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, acct.Role)
	out, err := repo.Audit.List(ctx, model.RoleChangeListOptions{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].ID)
}
