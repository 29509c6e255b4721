package oidc

import (
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/ports"
)

// ClaimExpressions holds the JMESPath expressions used to pull identity
// fields out of a provider's claim set. Empty fields fall back to the
// defaults in DefaultClaimExpressions.
type ClaimExpressions struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// DefaultClaimExpressions covers standard OIDC claims with AD/ADFS fallbacks.
func DefaultClaimExpressions() ClaimExpressions {
	return ClaimExpressions{
		UserID:    "samaccountname || sub",
		Email:     "email || mail",
		FirstName: "given_name || firstname",
		LastName:  "family_name || lastname",
	}
}

// JMESPathClaimMapper implements ports.ClaimMapper with configurable expressions.
type JMESPathClaimMapper struct {
	exprs ClaimExpressions
}

var _ ports.ClaimMapper = (*JMESPathClaimMapper)(nil)

// NewClaimMapper compiles every expression up front so a bad configuration
// fails at startup rather than on the first login.
func NewClaimMapper(exprs ClaimExpressions) (*JMESPathClaimMapper, error) {
	def := DefaultClaimExpressions()
	exprs.UserID = firstNonEmpty(strings.TrimSpace(exprs.UserID), def.UserID)
	exprs.Email = firstNonEmpty(strings.TrimSpace(exprs.Email), def.Email)
	exprs.FirstName = firstNonEmpty(strings.TrimSpace(exprs.FirstName), def.FirstName)
	exprs.LastName = firstNonEmpty(strings.TrimSpace(exprs.LastName), def.LastName)

	var errs []error
	for name, expr := range map[string]string{
		"uid":        exprs.UserID,
		"email":      exprs.Email,
		"first_name": exprs.FirstName,
		"last_name":  exprs.LastName,
	} {
		if _, err := jmespath.Compile(expr); err != nil {
			errs = append(errs, fmt.Errorf("claim expression %s (%q): %w", name, expr, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &JMESPathClaimMapper{exprs: exprs}, nil
}

// Map extracts an Identity from claims. A missing user id is an error; other
// fields are left empty when their expression yields nothing.
func (m *JMESPathClaimMapper) Map(claims ports.Claims) (domainauth.Identity, error) {
	data := map[string]any(claims)

	uid, err := searchString(m.exprs.UserID, data)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("map uid: %w", err)
	}
	if uid == "" {
		return domainauth.Identity{}, errors.New("claims do not contain a user id")
	}

	id := domainauth.Identity{UserID: uid}
	if id.Email, err = searchString(m.exprs.Email, data); err != nil {
		return domainauth.Identity{}, fmt.Errorf("map email: %w", err)
	}
	if id.FirstName, err = searchString(m.exprs.FirstName, data); err != nil {
		return domainauth.Identity{}, fmt.Errorf("map first name: %w", err)
	}
	if id.LastName, err = searchString(m.exprs.LastName, data); err != nil {
		return domainauth.Identity{}, fmt.Errorf("map last name: %w", err)
	}
	return id, nil
}

func searchString(expr string, data map[string]any) (string, error) {
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case float64, bool:
		return fmt.Sprint(t), nil
	default:
		return "", fmt.Errorf("expression %q yielded %T, want string", expr, v)
	}
}
