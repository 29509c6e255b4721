package errors

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField pulls the column out of "Key (email)=(x) already exists.".
var reKeyField = regexp.MustCompile(`Key \((?:lower\()?([a-z_]+)\)?\)=`)

// knownConstraint describes how a named schema constraint surfaces to callers.
type knownConstraint struct {
	code    ErrorCode
	field   string
	message string
}

// knownConstraints covers every named constraint in internal/migrate/migrations.
var knownConstraints = map[string]knownConstraint{
	"accounts_pkey": {
		code: ErrCodeConflict, field: "uid",
		message: "An account with this uid already exists.",
	},
	"accounts_email_key": {
		code: ErrCodeConflict, field: "email",
		message: "Another account already uses this email address.",
	},
	"accounts_role_not_blank": {
		code: ErrCodeValidation, field: "role",
		message: "Role must not be blank.",
	},
	"role_audit_log_pkey": {
		code:    ErrCodeConflict,
		message: "This role change was already recorded.",
	},
	"role_audit_log_target_uid_fkey": {
		code: ErrCodeForeignKey, field: "target_uid",
		message: "The account being changed does not exist.",
	},
}

// MapDBError maps driver and Postgres errors to AppError values:
//
//   - context deadline and cancellation become timeout and canceled
//   - pgx.ErrNoRows becomes not_found
//   - named constraints from our schema get their own field and message
//   - other unique, foreign key, check and not-null violations map by class
//
// Anything else is returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if kc, ok := knownConstraints[pgErr.ConstraintName]; ok {
		return &AppError{Code: kc.code, Message: kc.message, Field: kc.field, Cause: pgErr}
	}
	return mapPgError(pgErr)
}

func mapPgError(pgErr *pgconn.PgError) error {
	appErr := &AppError{Cause: pgErr, Field: pgErr.ColumnName}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		appErr.Code = ErrCodeConflict
		appErr.Message = "This value already exists."
		if appErr.Field == "" {
			appErr.Field = keyField(pgErr.Detail)
		}
	case pgerrcode.ForeignKeyViolation:
		appErr.Code = ErrCodeForeignKey
		appErr.Message = "The referenced record does not exist or is still in use."
	case pgerrcode.CheckViolation:
		appErr.Code = ErrCodeValidation
		appErr.Message = "Invalid data. Please check your input."
	case pgerrcode.NotNullViolation:
		appErr.Code = ErrCodeValidation
		appErr.Message = "Required field is missing."
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
	return appErr
}

func keyField(detail string) string {
	if m := reKeyField.FindStringSubmatch(detail); len(m) == 2 {
		return m[1]
	}
	return ""
}
