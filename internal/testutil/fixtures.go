package testutil

import (
	"context"
	"database/sql"
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

// AccountFixture describes a row to insert directly into accounts.
type AccountFixture struct {
	UID    string
	Email  string
	Role   domainauth.Role
	Active bool
}

// InsertAccount writes f bypassing the repository, so tests can seed any
// stored role, including values outside the registry.
func InsertAccount(t TestingTB, db *sql.DB, f AccountFixture) {
	t.Helper()
	if f.Email == "" {
		f.Email = f.UID + "@example.org"
	}
	if f.Role == "" {
		f.Role = domainauth.DefaultRole
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx,
		`INSERT INTO accounts (uid, email, role, active) VALUES ($1, $2, $3, $4)`,
		f.UID, f.Email, string(f.Role), f.Active)
	if err != nil {
		t.Fatalf("insert account %s: %v", f.UID, err)
	}
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
