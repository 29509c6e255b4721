// Package validation checks request parameters before they reach a service.
package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validator returns an error message for v, or "" when v is acceptable.
type Validator func(v string) string

// Optional accepts an empty value or one of at most maxLen characters.
func Optional(fieldName string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if utf8.RuneCountInString(v) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters", fieldName, maxLen)
		}
		return ""
	}
}

// OneOf accepts an empty value or an exact match of one of options.
// Role keys are case-sensitive, so no folding is done.
func OneOf(fieldName string, options []string) Validator {
	return func(v string) string {
		if v == "" {
			return ""
		}
		for _, opt := range options {
			if v == opt {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of: %s", fieldName, strings.Join(options, ", "))
	}
}

// Bool accepts an empty value or anything strconv.ParseBool understands.
func Bool(fieldName string) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		if _, err := strconv.ParseBool(strings.TrimSpace(v)); err != nil {
			return fieldName + " must be true or false"
		}
		return ""
	}
}

// NoControl rejects values carrying control characters.
func NoControl(fieldName string) Validator {
	return func(v string) string {
		for _, r := range v {
			if r < 0x20 || r == 0x7f {
				return fieldName + " contains invalid characters"
			}
		}
		return ""
	}
}

// FieldValidator collects the first failure per field.
type FieldValidator struct {
	errors map[string]string
}

// New creates a new FieldValidator instance.
func New() *FieldValidator {
	return &FieldValidator{errors: make(map[string]string)}
}

// Validate runs validators against value, stopping at the first failure.
func (fv *FieldValidator) Validate(field, value string, validators ...Validator) *FieldValidator {
	for _, v := range validators {
		if msg := v(value); msg != "" {
			fv.errors[field] = msg
			break
		}
	}
	return fv
}

// Errors returns the accumulated validation errors keyed by field.
func (fv *FieldValidator) Errors() map[string]string {
	return fv.errors
}

// First returns the alphabetically first failing field and its message, so
// responses are stable when several fields fail.
func (fv *FieldValidator) First() (field, msg string, ok bool) {
	if len(fv.errors) == 0 {
		return "", "", false
	}
	fields := make([]string, 0, len(fv.errors))
	for f := range fv.errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields[0], fv.errors[fields[0]], true
}
