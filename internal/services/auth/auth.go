// Package services contains sign in, session refresh and token
// authentication of staff accounts.
package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/jwt"
	"github.com/magabrotheeeer/warranty-service/internal/lib/password"
	"github.com/magabrotheeeer/warranty-service/internal/lib/ratelimit"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/metrics"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the shape of an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// UserRepository is the account storage used by AuthService.
type UserRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CheckUserStatus(ctx context.Context, email string) (models.UserStatus, error)
	LogLoginAttempt(ctx context.Context, a models.LoginAttempt) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// SessionStore remembers revoked session ids.
type SessionStore interface {
	RevokeSession(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// Config holds the sign in settings.
type Config struct {
	RefreshThreshold  time.Duration
	AttemptsPerMinute int
	Burst             int
}

// ClientInfo describes where a sign in comes from, for the audit log.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// AuthService signs staff in and validates their session tokens.
type AuthService struct {
	users     UserRepository
	sessions  SessionStore
	jwtMaker  jwt.Maker
	metrics   metrics.Recorder
	limiter   *ratelimit.Keyed
	threshold time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(users UserRepository, sessions SessionStore, jwtMaker jwt.Maker, rec metrics.Recorder, log *slog.Logger, cfg Config) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.AttemptsPerMinute
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		jwtMaker:  jwtMaker,
		metrics:   rec,
		limiter:   ratelimit.NewKeyed(ratelimit.PerMinute(cfg.AttemptsPerMinute), cfg.Burst),
		threshold: cfg.RefreshThreshold,
		log:       log,
		now:       time.Now,
	}
}

// Limiter exposes the per-email limiter so that the caller can prune it.
func (s *AuthService) Limiter() *ratelimit.Keyed {
	return s.limiter
}

func authError(op, code string) error {
	return apperr.New(apperr.KindAuth, op, code)
}

// Login checks the credentials and issues a session token. Every attempt
// past the local input checks is written to the audit log.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, client ClientInfo) (models.Session, error) {
	const op = "services.auth.Login"

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !ValidEmail(email) {
		return models.Session{}, apperr.Validation(op, "email", i18n.CodeInvalidEmail)
	}
	if req.Password == "" {
		return models.Session{}, apperr.Validation(op, "password", i18n.CodePasswordRequired)
	}

	attempt := models.LoginAttempt{Email: email, IP: client.IP, UserAgent: client.UserAgent}
	fail := func(err error, reason string) (models.Session, error) {
		attempt.Reason = reason
		s.audit(ctx, attempt)
		return models.Session{}, err
	}

	if !s.limiter.Allow(email) {
		return fail(apperr.New(apperr.KindRateLimited, op, i18n.CodeTooManyRequests), "rate_limited")
	}

	status, err := s.users.CheckUserStatus(ctx, email)
	if err != nil {
		return fail(err, "status_check_failed")
	}
	switch {
	case !status.Exists:
		return fail(authError(op, i18n.CodeInvalidCredentials), "unknown_email")
	case !status.IsActive:
		return fail(authError(op, i18n.CodeAccountInactive), "inactive")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return fail(authError(op, i18n.CodeInvalidCredentials), "unknown_email")
		}
		return fail(err, "lookup_failed")
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return fail(authError(op, i18n.CodeInvalidCredentials), "bad_password")
	}

	session, err := s.issue(user)
	if err != nil {
		return fail(apperr.Wrap(apperr.KindServer, op, err), "token_failed")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to update last login", slog.String("user_id", user.ID.String()), sl.Err(err))
	}
	attempt.Success = true
	s.audit(ctx, attempt)

	s.log.Info("user signed in", slog.String("user_id", user.ID.String()))
	return session, nil
}

func (s *AuthService) audit(ctx context.Context, a models.LoginAttempt) {
	a.At = s.now().UTC()
	s.metrics.RecordLoginAttempt(a.Success)
	if err := s.users.LogLoginAttempt(ctx, a); err != nil {
		s.log.Warn("failed to record login attempt", slog.String("email", a.Email), sl.Err(err))
	}
}

func (s *AuthService) issue(user models.User) (models.Session, error) {
	sessionID := uuid.New()
	token, expiresAt, err := s.jwtMaker.GenerateToken(user.ID, user.Email, user.Role, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{Token: token, SessionID: sessionID, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate validates a bearer token and returns the caller. Revoked
// sessions, deleted accounts and inactive accounts are rejected. The role is
// read from the account, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	p, _, err := s.authenticate(ctx, token)
	return p, err
}

func (s *AuthService) authenticate(ctx context.Context, token string) (models.Principal, models.User, error) {
	const op = "services.auth.Authenticate"

	token = strings.TrimSpace(token)
	if token == "" {
		return models.Principal{}, models.User{}, authError(op, i18n.CodeTokenMissing)
	}

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		code := i18n.CodeUnauthorized
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			code = i18n.CodeSessionExpired
		}
		return models.Principal{}, models.User{}, &apperr.Error{Kind: apperr.KindAuth, Op: op, Code: code, Err: err}
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.Principal{}, models.User{}, authError(op, i18n.CodeUnauthorized)
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return models.Principal{}, models.User{}, authError(op, i18n.CodeUnauthorized)
	}

	revoked, err := s.sessions.IsSessionRevoked(ctx, sessionID)
	if err != nil {
		// Redis outages do not sign everybody out.
		s.log.Warn("failed to check session revocation", slog.String("session_id", sessionID.String()), sl.Err(err))
	}
	if revoked {
		return models.Principal{}, models.User{}, authError(op, i18n.CodeSessionExpired)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return models.Principal{}, models.User{}, authError(op, i18n.CodeProfileLoadFailed)
		}
		return models.Principal{}, models.User{}, err
	}
	if !user.IsActive {
		return models.Principal{}, models.User{}, authError(op, i18n.CodeAccountInactive)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return models.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	}, user, nil
}

// Refresh exchanges a valid token for a new one and revokes the old session.
func (s *AuthService) Refresh(ctx context.Context, token string) (models.Session, error) {
	const op = "services.auth.Refresh"

	p, user, err := s.authenticate(ctx, token)
	if err != nil {
		return models.Session{}, err
	}
	session, err := s.issue(user)
	if err != nil {
		return models.Session{}, apperr.Wrap(apperr.KindServer, op, err)
	}
	if err := s.sessions.RevokeSession(ctx, p.SessionID, p.ExpiresAt); err != nil {
		s.log.Warn("failed to revoke refreshed session", slog.String("session_id", p.SessionID.String()), sl.Err(err))
	}
	return session, nil
}

// Logout revokes the session of token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, token string) (models.Principal, error) {
	const op = "services.auth.Logout"

	claims, err := s.jwtMaker.ParseToken(strings.TrimSpace(token))
	if err != nil {
		return models.Principal{}, &apperr.Error{Kind: apperr.KindAuth, Op: op, Code: i18n.CodeUnauthorized, Err: err}
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return models.Principal{}, authError(op, i18n.CodeUnauthorized)
	}
	userID, _ := claims.UserID()

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.sessions.RevokeSession(ctx, sessionID, expiresAt); err != nil {
		return models.Principal{}, apperr.Wrap(apperr.KindServer, op, err)
	}
	return models.Principal{UserID: userID, Email: claims.Email, Role: claims.Role, SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

// Session describes a token. An unusable token gives Valid false, not an
// error; only backend failures are returned.
func (s *AuthService) Session(ctx context.Context, token string) (models.SessionInfo, error) {
	p, user, err := s.authenticate(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			return models.SessionInfo{Valid: false}, nil
		}
		return models.SessionInfo{}, err
	}

	remaining := p.ExpiresAt.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return models.SessionInfo{
		Valid:            true,
		User:             &user,
		ExpiresAt:        p.ExpiresAt,
		RemainingSeconds: int64(remaining / time.Second),
		ShouldRefresh:    remaining < s.threshold,
	}, nil
}
