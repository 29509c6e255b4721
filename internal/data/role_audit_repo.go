package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shepherd-church/shepherd/internal/core"
	"github.com/shepherd-church/shepherd/internal/data/database"
	"github.com/shepherd-church/shepherd/internal/data/pgxutil"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
)

// RoleAuditRepo stores account change records in the role_audit_log table.
// Records are append-only; there is no update or delete.
type RoleAuditRepo struct {
	DB           *sql.DB
	TimeProvider TimeProvider
}

var _ core.RoleAuditRepository = (*RoleAuditRepo)(nil)

// NewRoleAuditRepo creates a new RoleAuditRepo.
func NewRoleAuditRepo(db *sql.DB) *RoleAuditRepo {
	return &RoleAuditRepo{DB: db, TimeProvider: &RealTimeProvider{}}
}

// Record inserts change. A missing ID is generated and a zero At is set to
// the current time; both are written back onto change.
func (r *RoleAuditRepo) Record(ctx context.Context, change *model.RoleChange) error {
	if err := prepareRoleChange(change, r.TimeProvider.Now()); err != nil {
		return err
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return insertRoleChange(ctx, conn, change)
	})
	if err != nil {
		return fmt.Errorf("record role change: %w", apperrors.MapDBError(err))
	}
	return nil
}

// execer is satisfied by *pgx.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func prepareRoleChange(change *model.RoleChange, now time.Time) error {
	if change == nil {
		return errors.New("role change is required")
	}
	if change.TargetUID == "" || change.ActorUID == "" {
		return apperrors.Validation("role change requires actor and target")
	}
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.At.IsZero() {
		change.At = now
	}
	return nil
}

func insertRoleChange(ctx context.Context, db execer, change *model.RoleChange) error {
	_, err := db.Exec(ctx, `
	INSERT INTO role_audit_log
		(id, event, actor_uid, actor_email, target_uid, target_email, previous_role, new_role, at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		change.ID, string(change.Event), change.ActorUID, change.ActorEmail,
		change.TargetUID, change.TargetEmail, string(change.PreviousRole), string(change.NewRole), change.At,
	)
	return err
}

// List returns records newest first.
func (r *RoleAuditRepo) List(ctx context.Context, opts model.RoleChangeListOptions) ([]*model.RoleChange, error) {
	opts.Normalize()

	queryOpts := []database.ListQueryOption{
		database.WithColumns(
			"id::text AS id", "event", "actor_uid", "actor_email", "target_uid",
			"target_email", "previous_role", "new_role", "at",
		),
		database.WithOrderBy("at", "DESC"),
		database.WithLimit(opts.Limit),
		database.WithOffset(opts.Offset),
	}
	if opts.TargetUID != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("target_uid", database.Equal, *opts.TargetUID),
		))
	}
	if opts.ActorUID != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("actor_uid", database.Equal, *opts.ActorUID),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("role_audit_log", queryOpts...))

	var out []*model.RoleChange
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.RoleChange])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list role changes: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
