package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shepherd-church/shepherd/config"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/migrate"
	"github.com/shepherd-church/shepherd/internal/service"
)

func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() {
		os.Stdout = oldStdout
	}()
	os.Stdout = w

	require.NoError(t, fn())

	require.NoError(t, w.Close())
	os.Stdout = oldStdout
	output, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return string(output)
}

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	out := captureStdout(t, printUsage)

	require.Contains(t, out, "Usage: shepherd-admin <command> [flags]")
	for name := range commands() {
		require.Contains(t, out, name)
	}
	assert.Less(t, bytes.Index([]byte(out), []byte("assign-role")), bytes.Index([]byte(out), []byte("bootstrap-super-admin")))
}

func TestPrintMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMatrix(&buf, domainauth.DefaultEvaluator()))

	out := buf.String()
	require.Contains(t, out, "Role")
	require.Contains(t, out, string(domainauth.ResourceMembers))
	require.Contains(t, out, string(domainauth.RoleSuperAdmin))
	require.Contains(t, out, "super_admin peer modification: allowed")
}

func TestPrintMatrixJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMatrixJSON(&buf, domainauth.DefaultEvaluator()))

	var decoded struct {
		Roles []struct {
			Key    string              `json:"key"`
			Grants map[string][]string `json:"grants"`
		} `json:"roles"`
		Policy string `json:"super_admin_peer_policy"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Roles, len(domainauth.Roles()))
	assert.Equal(t, string(domainauth.RoleSuperAdmin), decoded.Roles[0].Key)
	assert.Contains(t, decoded.Roles[0].Grants[string(domainauth.ResourceRoles)], string(domainauth.ActionAssign))
	assert.Equal(t, "allowed", decoded.Policy)
}

func TestFormatActions(t *testing.T) {
	assert.Equal(t, "-", formatActions(nil))
	assert.Equal(t, "view,create", formatActions([]domainauth.Action{domainauth.ActionView, domainauth.ActionCreate}))
}

type fakeAccounts map[string]*model.Account

func (f fakeAccounts) Get(_ context.Context, uid string) (*service.AccountView, error) {
	a, ok := f[uid]
	if !ok {
		return nil, apperrors.NotFound("account not found")
	}
	return &service.AccountView{Account: a, RoleInfo: a.Role.Info()}, nil
}

func TestActorPrincipal(t *testing.T) {
	accounts := fakeAccounts{
		"admin":    {UID: "admin", Email: "a@example.com", FirstName: "Ada", LastName: "Obi", Role: domainauth.RoleSuperAdmin, Active: true},
		"inactive": {UID: "inactive", Email: "i@example.com", Role: domainauth.RoleAdmin},
		"legacy":   {UID: "legacy", Email: "l@example.com", Role: "owner", Active: true},
	}

	p, err := actorPrincipal(context.Background(), accounts, "admin")
	require.NoError(t, err)
	assert.Equal(t, domainauth.Principal{
		UserID:      "admin",
		Email:       "a@example.com",
		DisplayName: "Ada Obi",
		Role:        domainauth.RoleSuperAdmin,
	}, *p)

	_, err = actorPrincipal(context.Background(), accounts, "inactive")
	require.ErrorIs(t, err, errActorUnusable)

	_, err = actorPrincipal(context.Background(), accounts, "legacy")
	require.ErrorIs(t, err, errActorUnusable)

	_, err = actorPrincipal(context.Background(), accounts, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPrintAssignment(t *testing.T) {
	acct := &model.Account{UID: "u1", Email: "u1@example.com", Role: domainauth.RoleAdmin, Active: true}

	var buf bytes.Buffer
	require.NoError(t, printAssignment(&buf, &service.AssignmentResult{Account: acct, Changed: true}))
	assert.Equal(t, "Updated u1@example.com (u1): role=admin active=true.\n", buf.String())

	buf.Reset()
	require.NoError(t, printAssignment(&buf, &service.AssignmentResult{Account: acct}))
	assert.Contains(t, buf.String(), "No change")
}

func TestPrintRoleChanges(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRoleChanges(&buf, nil))
	assert.Equal(t, "No role changes recorded.\n", buf.String())

	buf.Reset()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, printRoleChanges(&buf, []*model.RoleChange{
		{ID: "c1", Event: model.RoleChangeBootstrap, ActorUID: model.BootstrapActorUID, TargetUID: "u1", NewRole: domainauth.RoleSuperAdmin, At: at},
	}))
	out := buf.String()
	assert.Contains(t, out, "2026-03-01T09:30:00Z")
	assert.Contains(t, out, "system:bootstrap")
	assert.Contains(t, out, "super_admin")
}

func TestRequireFlag(t *testing.T) {
	require.NoError(t, requireFlag("uid", "u1"))
	err := requireFlag("uid", "")
	require.ErrorIs(t, err, errMissingFlag)
	assert.Contains(t, err.Error(), "--uid")
}

func TestHasRedisConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.RedisConfig
		want bool
	}{
		{name: "nil", cfg: nil, want: false},
		{name: "direct uri", cfg: &config.RedisConfig{URI: "localhost:6379"}, want: true},
		{name: "direct blank", cfg: &config.RedisConfig{}, want: false},
		{name: "sentinel nodes", cfg: &config.RedisConfig{UseSentinel: true, SentinelNodes: []string{"s:26379"}}, want: true},
		{name: "sentinel without nodes", cfg: &config.RedisConfig{UseSentinel: true, URI: "x"}, want: false},
		{name: "cluster falls back to uri", cfg: &config.RedisConfig{UseCluster: true, URI: "c:6379"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasRedisConfig(tt.cfg))
		})
	}
}

func TestCommandsRejectMissingFlags(t *testing.T) {
	ctx := &commandContext{Ctx: context.Background(), Config: config.AppConfig{}}
	for _, name := range []string{"bootstrap-super-admin", "assign-role", "set-active", "revoke-sessions"} {
		t.Run(name, func(t *testing.T) {
			err := commands()[name].run(ctx, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errMissingFlag))
		})
	}
}

func TestPrintMigrationStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, printMigrationStatus(&buf, []migrate.Migration{
		{Version: "0001_accounts", AppliedAt: &at},
		{Version: "0002_role_audit"},
	}))
	out := buf.String()
	assert.Contains(t, out, "0001_accounts")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
	assert.Contains(t, out, "pending")
}
