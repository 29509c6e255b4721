// Package mocks provides mock implementations for testing the shepherd authorization service.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	accounts := mocks.NewMockAccountRepository(ctrl)
//	accounts.EXPECT().GetByUID(gomock.Any(), "u-1").Return(acct, nil)
package mocks

// Generate mock for AccountRepository interface from internal/core package.
// Methods: GetByUID, EnsureAccount, UpdateRole, SetActive, ApplyChange, List, CountByRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_repository_mock.go github.com/shepherd-church/shepherd/internal/core AccountRepository

// Generate mock for RoleAuditRepository interface from internal/core package.
// Methods: Record, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_audit_repository_mock.go github.com/shepherd-church/shepherd/internal/core RoleAuditRepository
