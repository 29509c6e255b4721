package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shepherd-church/shepherd/internal/core"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/ports"
)

// AuthStores groups the persistence ports AuthService reads and writes.
type AuthStores struct {
	Sessions ports.SessionStore
	Accounts core.AccountRepository
}

// AuthServiceConfig holds tunables for AuthService.
type AuthServiceConfig struct {
	SessionTTL time.Duration // capped to domainauth.SessionWindow
	Logger     *slog.Logger
	Now        func() time.Time
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Stores   AuthStores
	Config   AuthServiceConfig
}

// AuthService orchestrates login, session resolution and logout. It binds a
// browser session to an identity and reads the account role fresh on every
// resolution.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	accounts core.AccountRepository
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

var (
	errSessionExpired  = errors.New("session expired")
	errAccountInactive = errors.New("account is deactivated")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Provider == nil || opts.Stores.Sessions == nil || opts.Stores.Accounts == nil {
		panic("service: AuthService requires provider, session store and account repository")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Stores.Sessions,
		accounts: opts.Stores.Accounts,
		ttl:      clampSessionTTL(opts.Config.SessionTTL),
		logger:   logger.With("component", "auth"),
		now:      now,
	}
}

func clampSessionTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > domainauth.SessionWindow {
		return domainauth.SessionWindow
	}
	return ttl
}

// SessionTTL reports the effective session lifetime.
func (s *AuthService) SessionTTL() time.Duration { return s.ttl }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
	Account *model.Account
}

// CompleteLogin exchanges the authorization code for an identity, makes sure
// an account exists for it and persists a new session. First-time users get
// the default role; an existing account keeps whatever role it has.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	acct, err := s.accounts.EnsureAccount(ctx, model.EnsureAccountRequest{
		UID:       identity.UserID,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	if !acct.Active {
		s.revokeQuietly(ctx, identity.Credential)
		s.logger.WarnContext(ctx, "login rejected for deactivated account", "uid", acct.UID)
		return nil, apperrors.Wrap(errAccountInactive, apperrors.ErrCodeUnauthenticated, "account is deactivated")
	}

	now := s.now()
	session := domainauth.Session{
		ID:         generateSessionID(),
		UserID:     acct.UID,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Email:      identity.Email,
		Credential: identity.Credential,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	s.logger.InfoContext(ctx, "login completed", "uid", acct.UID, "role", acct.Role)
	return &CompleteLoginResult{Session: session, Account: acct}, nil
}

// GetSession retrieves a session by ID. Expired sessions are deleted and
// reported as errors.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// ResolvePrincipal turns a session id into the acting principal. Any failure
// to verify the session, a missing or deactivated account, and a stored role
// outside the registry all yield an unauthenticated error.
func (s *AuthService) ResolvePrincipal(ctx context.Context, sessionID string) (*domainauth.Principal, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "authentication required")
	}

	acct, err := s.accounts.GetByUID(ctx, session.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "authentication required")
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !acct.Active {
		return nil, apperrors.Wrap(errAccountInactive, apperrors.ErrCodeUnauthenticated, "account is deactivated")
	}

	role, ok := domainauth.ParseRole(string(acct.Role))
	if !ok {
		s.logger.WarnContext(ctx, "account has unrecognised role", "uid", acct.UID, "role", acct.Role)
		return nil, apperrors.Unauthenticated("authentication required")
	}

	return &domainauth.Principal{
		UserID:      acct.UID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName(),
		Role:        role,
	}, nil
}

// Logout removes a session and revokes the upstream credential captured at
// login. Revocation failures are logged, not returned.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}

	var credential string
	if sess, err := s.sessions.Get(ctx, sessionID); err == nil {
		credential = sess.Credential
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.revokeQuietly(ctx, credential)
	return nil
}

func (s *AuthService) revokeQuietly(ctx context.Context, credential string) {
	if credential == "" {
		return
	}
	if err := s.provider.Revoke(ctx, credential); err != nil {
		s.logger.WarnContext(ctx, "upstream credential revocation failed", "error", err)
	}
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	// Use UUID for session ID - it's URL-safe and has good entropy
	return uuid.New().String()
}
