package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/shepherd-church/shepherd/internal/core"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
)

// AccountDirectoryOptions groups dependencies for AccountDirectory.
type AccountDirectoryOptions struct {
	Accounts core.AccountRepository
}

// AccountDirectory serves read-only account listings for the role admin screens.
type AccountDirectory struct {
	accounts core.AccountRepository
}

// NewAccountDirectory constructs an AccountDirectory.
func NewAccountDirectory(opts AccountDirectoryOptions) *AccountDirectory {
	return &AccountDirectory{accounts: opts.Accounts}
}

// AccountView is an account decorated with display metadata for its role.
type AccountView struct {
	*model.Account
	RoleInfo domainauth.RoleInfo `json:"role_info"`
}

// RoleCount is the number of active accounts holding a role.
type RoleCount struct {
	Role  domainauth.RoleInfo `json:"role"`
	Count int                 `json:"count"`
}

// AccountPage is one page of accounts plus per-role totals.
type AccountPage struct {
	Accounts []AccountView `json:"accounts"`
	Counts   []RoleCount   `json:"counts"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}

// List fetches the page and the role totals concurrently.
func (d *AccountDirectory) List(ctx context.Context, opts model.AccountListOptions) (*AccountPage, error) {
	opts.Normalize()

	var (
		accounts []*model.Account
		counts   map[domainauth.Role]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = d.accounts.List(gctx, opts)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = d.accounts.CountByRole(gctx)
		if err != nil {
			return fmt.Errorf("count accounts by role: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &AccountPage{
		Accounts: make([]AccountView, 0, len(accounts)),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	for _, a := range accounts {
		page.Accounts = append(page.Accounts, AccountView{Account: a, RoleInfo: domainauth.LookupRole(string(a.Role))})
	}
	// Registry roles first in hierarchy order, then anything unrecognised.
	for _, info := range domainauth.Roles() {
		page.Counts = append(page.Counts, RoleCount{Role: info, Count: counts[info.Key]})
		delete(counts, info.Key)
	}
	for role, n := range counts {
		page.Counts = append(page.Counts, RoleCount{Role: domainauth.LookupRole(string(role)), Count: n})
	}
	return page, nil
}

// Get returns a single account view.
func (d *AccountDirectory) Get(ctx context.Context, uid string) (*AccountView, error) {
	a, err := d.accounts.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &AccountView{Account: a, RoleInfo: domainauth.LookupRole(string(a.Role))}, nil
}
