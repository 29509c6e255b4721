package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name  string
		opts  *ListQueryOptions
		query string
		args  []any
	}{
		{
			name:  "basic select",
			opts:  NewListQueryOptions("accounts"),
			query: `SELECT * FROM "accounts"`,
		},
		{
			name:  "qualified columns",
			opts:  NewListQueryOptions("accounts", WithColumns("accounts.uid", "email")),
			query: `SELECT "accounts"."uid", "email" FROM "accounts"`,
		},
		{
			name:  "cast and alias",
			opts:  NewListQueryOptions("role_audit_log", WithColumns("id::text AS id", "at")),
			query: `SELECT "id"::text AS "id", "at" FROM "role_audit_log"`,
		},
		{
			name:  "unsafe cast dropped",
			opts:  NewListQueryOptions("t", WithColumns("id::text; drop table t", "a")),
			query: `SELECT "a" FROM "t"`,
		},
		{
			name: "count only ignores paging",
			opts: NewListQueryOptions("accounts",
				WithCountOnly(),
				WithCondition(WhereCond("active", Equal, true)),
				WithLimit(10),
			),
			query: `SELECT COUNT(*) FROM "accounts" WHERE "active" = $1`,
			args:  []any{true},
		},
		{
			name: "conditions order and paging",
			opts: NewListQueryOptions("accounts",
				WithCondition(WhereCond("role", Equal, "admin")),
				WithCondition(WhereCond("active", Equal, true)),
				WithOrderBy("email", "asc"),
				WithLimit(50),
				WithOffset(0),
			),
			query: `SELECT * FROM "accounts" WHERE "role" = $1 AND "active" = $2 ORDER BY "email" ASC LIMIT $3 OFFSET $4`,
			args:  []any{"admin", true, 50, 0},
		},
		{
			name: "invalid direction omitted",
			opts: NewListQueryOptions("accounts",
				WithOrderBy("email", "sideways"),
			),
			query: `SELECT * FROM "accounts" ORDER BY "email"`,
		},
		{
			name: "in condition",
			opts: NewListQueryOptions("accounts",
				WithCondition(WhereCond("role", In, []string{"admin", "user"})),
			),
			query: `SELECT * FROM "accounts" WHERE "role" IN ($1, $2)`,
			args:  []any{"admin", "user"},
		},
		{
			name: "empty in skipped",
			opts: NewListQueryOptions("accounts",
				WithCondition(WhereCond("role", In, []string{})),
			),
			query: `SELECT * FROM "accounts"`,
		},
		{
			name: "raw condition renumbered with repeat",
			opts: NewListQueryOptions("accounts",
				WithCondition(WhereCond("active", Equal, true)),
				WithCondition(WhereRawCond("(email ILIKE $1 OR last_name ILIKE $1)", "%ama%")),
				WithLimit(5),
			),
			query: `SELECT * FROM "accounts" WHERE "active" = $1 AND (email ILIKE $2 OR last_name ILIKE $2) LIMIT $3`,
			args:  []any{true, "%ama%", 5},
		},
		{
			name: "raw condition without params",
			opts: NewListQueryOptions("accounts",
				WithCondition(WhereRawCond("last_login_at IS NULL")),
			),
			query: `SELECT * FROM "accounts" WHERE last_login_at IS NULL`,
		},
		{
			name:  "quoted identifiers escape",
			opts:  NewListQueryOptions(`acc"ounts`),
			query: `SELECT * FROM "acc""ounts"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := BuildListQuery(tt.opts)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildListQuery_Nil(t *testing.T) {
	query, args := BuildListQuery(nil)
	assert.Empty(t, query)
	assert.Nil(t, args)
}

func TestWhereCond_CustomPanics(t *testing.T) {
	assert.Panics(t, func() { WhereCond("x", Custom, 1) })
}
