package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/shepherd-church/shepherd/internal/core"
	"github.com/shepherd-church/shepherd/internal/data/database"
	"github.com/shepherd-church/shepherd/internal/data/pgxutil"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
)

const accountColumns = `uid, email, first_name, last_name, role, active, last_login_at, created_at, updated_at`

// AccountRepo persists accounts in Postgres.
type AccountRepo struct {
	DB           *sql.DB
	TimeProvider TimeProvider
}

var _ core.AccountRepository = (*AccountRepo)(nil)

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db, TimeProvider: &RealTimeProvider{}}
}

func (r *AccountRepo) GetByUID(ctx context.Context, uid string) (*model.Account, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperrors.ValidationField("uid", "uid is required")
	}
	return r.queryOne(ctx, accountQuery{
		sql:  `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1`,
		args: []any{uid},
		uid:  uid,
		op:   "get account",
	})
}

// EnsureAccount inserts a new account with the default role or refreshes the
// profile of an existing one. The role column is not part of the update set.
func (r *AccountRepo) EnsureAccount(ctx context.Context, req model.EnsureAccountRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	now := r.TimeProvider.Now()
	return r.queryOne(ctx, accountQuery{
		sql: `
		INSERT INTO accounts (uid, email, first_name, last_name, role, active, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6, $6)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_login_at = EXCLUDED.last_login_at,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + accountColumns,
		args: []any{req.UID, req.Email, req.FirstName, req.LastName, string(domainauth.DefaultRole), now},
		uid:  req.UID,
		op:   "ensure account",
	})
}

func (r *AccountRepo) UpdateRole(ctx context.Context, uid string, role domainauth.Role) (*model.Account, error) {
	return r.queryOne(ctx, accountQuery{
		sql: `UPDATE accounts SET role = $2, updated_at = $3 WHERE uid = $1
		RETURNING ` + accountColumns,
		args: []any{uid, string(role), r.TimeProvider.Now()},
		uid:  uid,
		op:   "update role",
	})
}

func (r *AccountRepo) SetActive(ctx context.Context, uid string, active bool) (*model.Account, error) {
	return r.queryOne(ctx, accountQuery{
		sql: `UPDATE accounts SET active = $2, updated_at = $3 WHERE uid = $1
		RETURNING ` + accountColumns,
		args: []any{uid, active, r.TimeProvider.Now()},
		uid:  uid,
		op:   "set active",
	})
}

// ApplyChange updates the role or active flag and inserts the audit record
// in one transaction.
func (r *AccountRepo) ApplyChange(ctx context.Context, change model.AccountChange) (*model.Account, error) {
	set, arg, err := changeColumn(change)
	if err != nil {
		return nil, err
	}
	now := r.TimeProvider.Now()
	if err := prepareRoleChange(change.Record, now); err != nil {
		return nil, err
	}

	var acct model.Account
	err = pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `UPDATE accounts SET `+set+` = $2, updated_at = $3 WHERE uid = $1
		RETURNING `+accountColumns, change.UID, arg, now)
		if err != nil {
			return err
		}
		if acct, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account]); err != nil {
			return err
		}
		return insertRoleChange(ctx, tx, change.Record)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("account %q not found", change.UID)
	}
	if err != nil {
		return nil, fmt.Errorf("apply account change: %w", apperrors.MapDBError(err))
	}
	return &acct, nil
}

// changeColumn picks the single column an AccountChange writes.
func changeColumn(change model.AccountChange) (string, any, error) {
	switch {
	case change.UID == "":
		return "", nil, apperrors.ValidationField("uid", "uid is required")
	case change.Role != nil && change.Active != nil:
		return "", nil, apperrors.Validation("change must set either role or active")
	case change.Role != nil:
		return "role", string(*change.Role), nil
	case change.Active != nil:
		return "active", *change.Active, nil
	default:
		return "", nil, apperrors.Validation("change must set either role or active")
	}
}

func (r *AccountRepo) List(ctx context.Context, opts model.AccountListOptions) ([]*model.Account, error) {
	opts.Normalize()
	query, args := database.BuildListQuery(buildAccountQueryOptions(opts))

	var out []*model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Account])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

func (r *AccountRepo) CountByRole(ctx context.Context) (map[domainauth.Role]int, error) {
	counts := make(map[domainauth.Role]int)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT role, COUNT(*) FROM accounts WHERE active GROUP BY role`)
		if err != nil {
			return err
		}
		var (
			role string
			n    int
		)
		_, err = pgx.ForEachRow(rows, []any{&role, &n}, func() error {
			counts[domainauth.Role(role)] = n
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("count accounts by role: %w", apperrors.MapDBError(err))
	}
	return counts, nil
}

type accountQuery struct {
	sql  string
	args []any
	uid  string
	op   string
}

func (r *AccountRepo) queryOne(ctx context.Context, q accountQuery) (*model.Account, error) {
	var acct model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q.sql, q.args...)
		if err != nil {
			return err
		}
		acct, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("account %q not found", q.uid)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.op, apperrors.MapDBError(err))
	}
	return &acct, nil
}

func buildAccountQueryOptions(opts model.AccountListOptions) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(strings.Split(strings.ReplaceAll(accountColumns, " ", ""), ",")...),
		database.WithOrderBy("email", "ASC"),
		database.WithLimit(opts.Limit),
		database.WithOffset(opts.Offset),
	}
	if opts.Role != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("role", database.Equal, string(*opts.Role)),
		))
	}
	if opts.Active != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("active", database.Equal, *opts.Active),
		))
	}
	if opts.Q != nil {
		pattern := "%" + escapeLike(*opts.Q) + "%"
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereRawCond("(email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1)", pattern),
		))
	}
	return database.NewListQueryOptions("accounts", queryOpts...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
