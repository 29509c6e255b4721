// Package database builds sanitized list queries for the repositories.
package database

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	ILike              ConditionType = "ILIKE"
	In                 ConditionType = "IN"
	Custom             ConditionType = "CUSTOM"

	unset = -1
)

var (
	reAlias       = regexp.MustCompile(`(?i)\s+AS\s+`)
	reCast        = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)::([a-z][a-z0-9_ ]*)$`)
	rePlaceholder = regexp.MustCompile(`\$(\d+)`)
)

// Condition is one AND-ed term of a WHERE clause.
type Condition struct {
	Field    string
	Type     ConditionType
	Value    any
	rawQuery string
}

// WhereCond compares a column against a bound value.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		//nolint:forbidigo // custom SQL must go through WhereRawCond
		panic("Use WhereRawCond for Custom type")
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond adds a hand-written predicate. Placeholders $1..$n refer to
// params and are renumbered to fit the surrounding query; a placeholder may
// repeat. The SQL text itself is not sanitized.
func WhereRawCond(rawQuery string, params ...any) Condition {
	return Condition{Type: Custom, rawQuery: rawQuery, Value: params}
}

type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{Table: table, Limit: unset, Offset: unset}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select. Each entry is a column name,
// optionally qualified, optionally cast ("id::text") and aliased ("x AS y").
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// BuildListQuery renders options into SQL and positional arguments.
//
//	query, args := BuildListQuery(NewListQueryOptions("accounts",
//		WithColumns("uid", "email"),
//		WithCondition(WhereCond("role", Equal, "admin")),
//		WithOrderBy("email", "ASC"),
//		WithLimit(50),
//	))
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var q strings.Builder
	q.WriteString(selectClause(options))
	q.WriteString("FROM ")
	q.WriteString(ident(options.Table))

	where, args := whereClause(options.Conditions)
	if where != "" {
		q.WriteString(" ")
		q.WriteString(where)
	}
	if options.CountOnly {
		return q.String(), args
	}

	if options.OrderBy != "" {
		q.WriteString(" ORDER BY ")
		q.WriteString(ident(options.OrderBy))
		if dir := strings.ToUpper(options.OrderDir); dir == "ASC" || dir == "DESC" {
			q.WriteString(" " + dir)
		}
	}
	if options.Limit != unset {
		args = append(args, options.Limit)
		fmt.Fprintf(&q, " LIMIT $%d", len(args))
	}
	if options.Offset != unset {
		args = append(args, options.Offset)
		fmt.Fprintf(&q, " OFFSET $%d", len(args))
	}
	return q.String(), args
}

// ident quotes a possibly qualified identifier.
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func selectClause(options *ListQueryOptions) string {
	if options.CountOnly {
		return "SELECT COUNT(*) "
	}
	if len(options.Columns) == 0 {
		return "SELECT * "
	}
	cols := make([]string, 0, len(options.Columns))
	for _, c := range options.Columns {
		if col := columnSpec(c); col != "" {
			cols = append(cols, col)
		}
	}
	return "SELECT " + strings.Join(cols, ", ") + " "
}

func columnSpec(spec string) string {
	expr, alias := strings.TrimSpace(spec), ""
	if parts := reAlias.Split(expr, 2); len(parts) == 2 {
		expr, alias = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	out := ident(expr)
	if m := reCast.FindStringSubmatch(expr); m != nil {
		out = ident(m[1]) + "::" + m[2]
	} else if strings.Contains(expr, "::") {
		// Anything else with a cast is not something we can quote safely.
		return ""
	}
	if alias != "" {
		out += " AS " + ident(alias)
	}
	return out
}

func whereClause(conds []Condition) (string, []any) {
	var (
		terms []string
		args  []any
	)
	for _, c := range conds {
		term, next := condition(c, args)
		if term != "" {
			terms = append(terms, term)
			args = next
		}
	}
	if len(terms) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(terms, " AND "), args
}

// condition renders c with placeholders numbered after args and returns the
// extended argument list.
func condition(c Condition, args []any) (string, []any) {
	switch c.Type {
	case Custom:
		return customCondition(c, args)
	case In:
		if c.Field == "" {
			return "", args
		}
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return "", args
		}
		ph := make([]string, rv.Len())
		for i := range rv.Len() {
			args = append(args, rv.Index(i).Interface())
			ph[i] = "$" + strconv.Itoa(len(args))
		}
		return fmt.Sprintf("%s IN (%s)", ident(c.Field), strings.Join(ph, ", ")), args
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual, ILike:
		if c.Field == "" {
			return "", args
		}
		args = append(args, c.Value)
		return fmt.Sprintf("%s %s $%d", ident(c.Field), c.Type, len(args)), args
	}
	return "", args
}

func customCondition(c Condition, args []any) (string, []any) {
	if c.rawQuery == "" {
		return "", args
	}
	params, _ := c.Value.([]any)
	renumbered := make(map[int]int)
	sql := rePlaceholder.ReplaceAllStringFunc(c.rawQuery, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if _, ok := renumbered[n]; !ok {
			args = append(args, params[n-1])
			renumbered[n] = len(args)
		}
		return "$" + strconv.Itoa(renumbered[n])
	})
	return sql, args
}
