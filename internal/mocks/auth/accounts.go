package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shepherd-church/shepherd/internal/core"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/ports"
)

var (
	_ core.AccountRepository   = (*MemoryAccountRepository)(nil)
	_ core.RoleAuditRepository = (*MemoryRoleAuditRepository)(nil)
	_ ports.RoleChangeSink     = (*RecordingSink)(nil)
)

// MemoryAccountRepository keeps accounts in a map. Stored roles are written
// verbatim so tests can seed values outside the registry. ApplyChange records
// into Audit.
type MemoryAccountRepository struct {
	Audit *MemoryRoleAuditRepository

	mu       sync.RWMutex
	accounts map[string]model.Account
	now      func() time.Time
}

// NewMemoryAccountRepository creates an empty repository with its own audit log.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		Audit:    &MemoryRoleAuditRepository{},
		accounts: make(map[string]model.Account),
		now:      time.Now,
	}
}

// Put stores acct as-is, replacing any existing record with the same UID.
func (m *MemoryAccountRepository) Put(acct model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.UID] = acct
}

func (m *MemoryAccountRepository) GetByUID(_ context.Context, uid string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[uid]
	if !ok {
		return nil, apperrors.NotFoundf("account %q not found", uid)
	}
	return &acct, nil
}

func (m *MemoryAccountRepository) EnsureAccount(_ context.Context, req model.EnsureAccountRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	acct, ok := m.accounts[req.UID]
	if !ok {
		acct = model.Account{UID: req.UID, Role: domainauth.DefaultRole, Active: true, CreatedAt: now}
	}
	acct.Email = req.Email
	acct.FirstName = req.FirstName
	acct.LastName = req.LastName
	acct.LastLoginAt = &now
	acct.UpdatedAt = now
	m.accounts[req.UID] = acct
	return &acct, nil
}

func (m *MemoryAccountRepository) UpdateRole(_ context.Context, uid string, role domainauth.Role) (*model.Account, error) {
	return m.update(uid, func(a *model.Account) { a.Role = role })
}

func (m *MemoryAccountRepository) SetActive(_ context.Context, uid string, active bool) (*model.Account, error) {
	return m.update(uid, func(a *model.Account) { a.Active = active })
}

// ApplyChange stores the account only if the audit record was accepted.
func (m *MemoryAccountRepository) ApplyChange(ctx context.Context, change model.AccountChange) (*model.Account, error) {
	if change.Record == nil {
		return nil, apperrors.Validation("role change is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[change.UID]
	if !ok {
		return nil, apperrors.NotFoundf("account %q not found", change.UID)
	}
	change.Apply(&acct)
	acct.UpdatedAt = m.now()
	if err := m.Audit.Record(ctx, change.Record); err != nil {
		return nil, err
	}
	m.accounts[change.UID] = acct
	return &acct, nil
}

func (m *MemoryAccountRepository) update(uid string, fn func(*model.Account)) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[uid]
	if !ok {
		return nil, apperrors.NotFoundf("account %q not found", uid)
	}
	fn(&acct)
	acct.UpdatedAt = m.now()
	m.accounts[uid] = acct
	return &acct, nil
}

func (m *MemoryAccountRepository) List(_ context.Context, opts model.AccountListOptions) ([]*model.Account, error) {
	opts.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if opts.Role != nil && a.Role != *opts.Role {
			continue
		}
		if opts.Active != nil && a.Active != *opts.Active {
			continue
		}
		if opts.Q != nil && !strings.Contains(strings.ToLower(a.Email+" "+a.DisplayName()), strings.ToLower(*opts.Q)) {
			continue
		}
		acct := a
		out = append(out, &acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	if opts.Offset >= len(out) {
		return []*model.Account{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryAccountRepository) CountByRole(_ context.Context) (map[domainauth.Role]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domainauth.Role]int)
	for _, a := range m.accounts {
		if a.Active {
			counts[a.Role]++
		}
	}
	return counts, nil
}

// MemoryRoleAuditRepository appends audit records in memory. When Err is set
// every Record fails with it.
type MemoryRoleAuditRepository struct {
	Err error

	mu      sync.Mutex
	changes []model.RoleChange
}

func (m *MemoryRoleAuditRepository) Record(_ context.Context, change *model.RoleChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.changes = append(m.changes, *change)
	return nil
}

// List returns newest records first.
func (m *MemoryRoleAuditRepository) List(_ context.Context, opts model.RoleChangeListOptions) ([]*model.RoleChange, error) {
	opts.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.RoleChange, 0, len(m.changes))
	for i := len(m.changes) - 1; i >= 0; i-- {
		c := m.changes[i]
		if opts.TargetUID != nil && c.TargetUID != *opts.TargetUID {
			continue
		}
		if opts.ActorUID != nil && c.ActorUID != *opts.ActorUID {
			continue
		}
		out = append(out, &c)
	}
	if opts.Offset >= len(out) {
		return []*model.RoleChange{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// RecordingSink captures committed role changes announced to it.
type RecordingSink struct {
	mu      sync.Mutex
	changes []model.RoleChange
}

func (s *RecordingSink) RoleChanged(_ context.Context, change model.RoleChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, change)
}

// Changes returns a copy of the captured records.
func (s *RecordingSink) Changes() []model.RoleChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RoleChange(nil), s.changes...)
}
