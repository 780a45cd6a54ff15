package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	customjwt "github.com/magabrotheeeer/warranty-service/internal/lib/jwt"
	"github.com/magabrotheeeer/warranty-service/internal/lib/password"
	"github.com/magabrotheeeer/warranty-service/internal/models"
	services "github.com/magabrotheeeer/warranty-service/internal/services/auth"
)

const secret = "0123456789abcdef0123456789abcdef"

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepoMock) CheckUserStatus(ctx context.Context, email string) (models.UserStatus, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.UserStatus), args.Error(1)
}

func (m *UserRepoMock) LogLoginAttempt(ctx context.Context, a models.LoginAttempt) error {
	return m.Called(ctx, a).Error(0)
}

func (m *UserRepoMock) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type memorySessions struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time
	err     error
}

func (s *memorySessions) RevokeSession(_ context.Context, id uuid.UUID, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked == nil {
		s.revoked = make(map[uuid.UUID]time.Time)
	}
	s.revoked[id] = exp
	return nil
}

func (s *memorySessions) IsSessionRevoked(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.revoked[id]
	return ok, nil
}

type loginRecorder struct {
	mu       sync.Mutex
	success  int
	failures int
}

func (r *loginRecorder) RecordCertificateIssued(int)       {}
func (r *loginRecorder) RecordEventPublished(string, bool) {}
func (r *loginRecorder) RecordExpiryNotices(int)           {}
func (r *loginRecorder) RecordLoginAttempt(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.success++
	} else {
		r.failures++
	}
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	users    *UserRepoMock
	sessions *memorySessions
	rec      *loginRecorder
	svc      *services.AuthService
	user     models.User
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	hash, err := password.GetHash("Admin@12345")
	require.NoError(t, err)

	f := &fixture{
		users:    &UserRepoMock{},
		sessions: &memorySessions{},
		rec:      &loginRecorder{},
		user: models.User{
			ID:           uuid.New(),
			Email:        "admin@alsweed.local",
			FullName:     "مدير النظام",
			Role:         models.RoleAdmin,
			IsActive:     true,
			PasswordHash: hash,
		},
	}
	f.svc = services.NewAuthService(f.users, f.sessions, customjwt.NewJWTMaker(secret, ttl), f.rec, newNoopLogger(),
		services.Config{RefreshThreshold: 10 * time.Minute, AttemptsPerMinute: 5, Burst: 3})
	return f
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.users.On("CheckUserStatus", mock.Anything, "admin@alsweed.local").Return(models.UserStatus{Exists: true, IsActive: true}, nil)
	f.users.On("GetUserByEmail", mock.Anything, "admin@alsweed.local").Return(f.user, nil)
	f.users.On("TouchLastLogin", mock.Anything, f.user.ID).Return(nil).Once()
	f.users.On("LogLoginAttempt", mock.Anything, mock.MatchedBy(func(a models.LoginAttempt) bool {
		return a.Success && a.Email == "admin@alsweed.local" && a.IP == "10.0.0.1"
	})).Return(nil).Once()

	session, err := f.svc.Login(context.Background(),
		models.LoginRequest{Email: "  Admin@Alsweed.LOCAL ", Password: "Admin@12345"},
		services.ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, f.user.ID, session.User.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
	assert.Equal(t, 1, f.rec.success)

	f.users.On("GetUserByID", mock.Anything, f.user.ID).Return(f.user, nil)
	p, err := f.svc.Authenticate(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, p.SessionID)
	assert.True(t, p.IsAdmin())
	f.users.AssertExpectations(t)
}

func TestAuthService_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		req      models.LoginRequest
		setup    func(f *fixture)
		wantKind apperr.Kind
		wantCode string
		audited  bool
	}{
		{
			name:     "malformed email",
			req:      models.LoginRequest{Email: "admin", Password: "x"},
			wantKind: apperr.KindValidation,
			wantCode: "invalid_email",
		},
		{
			name:     "empty password",
			req:      models.LoginRequest{Email: "admin@alsweed.local"},
			wantKind: apperr.KindValidation,
			wantCode: "password_required",
		},
		{
			name: "unknown email",
			req:  models.LoginRequest{Email: "ghost@alsweed.local", Password: "x"},
			setup: func(f *fixture) {
				f.users.On("CheckUserStatus", mock.Anything, "ghost@alsweed.local").Return(models.UserStatus{}, nil)
			},
			wantKind: apperr.KindAuth,
			wantCode: "invalid_credentials",
			audited:  true,
		},
		{
			name: "inactive account",
			req:  models.LoginRequest{Email: "admin@alsweed.local", Password: "Admin@12345"},
			setup: func(f *fixture) {
				f.users.On("CheckUserStatus", mock.Anything, "admin@alsweed.local").Return(models.UserStatus{Exists: true}, nil)
			},
			wantKind: apperr.KindAuth,
			wantCode: "account_inactive",
			audited:  true,
		},
		{
			name: "wrong password",
			req:  models.LoginRequest{Email: "admin@alsweed.local", Password: "wrong"},
			setup: func(f *fixture) {
				f.users.On("CheckUserStatus", mock.Anything, "admin@alsweed.local").Return(models.UserStatus{Exists: true, IsActive: true}, nil)
				f.users.On("GetUserByEmail", mock.Anything, "admin@alsweed.local").Return(f.user, nil)
			},
			wantKind: apperr.KindAuth,
			wantCode: "invalid_credentials",
			audited:  true,
		},
		{
			name: "status check failure",
			req:  models.LoginRequest{Email: "admin@alsweed.local", Password: "x"},
			setup: func(f *fixture) {
				f.users.On("CheckUserStatus", mock.Anything, "admin@alsweed.local").
					Return(models.UserStatus{}, apperr.Backend("storage.CheckUserStatus", errors.New("db down")))
			},
			wantKind: apperr.KindServer,
			audited:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Hour)
			if tt.setup != nil {
				tt.setup(f)
			}
			f.users.On("LogLoginAttempt", mock.Anything, mock.MatchedBy(func(a models.LoginAttempt) bool {
				return !a.Success && a.Reason != ""
			})).Return(nil)

			_, err := f.svc.Login(context.Background(), tt.req, services.ClientInfo{})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
			}
			if tt.audited {
				f.users.AssertCalled(t, "LogLoginAttempt", mock.Anything, mock.Anything)
				assert.Equal(t, 1, f.rec.failures)
			} else {
				f.users.AssertNotCalled(t, "LogLoginAttempt", mock.Anything, mock.Anything)
			}
			f.users.AssertNotCalled(t, "TouchLastLogin", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Login_RateLimited(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.users.On("CheckUserStatus", mock.Anything, "admin@alsweed.local").Return(models.UserStatus{Exists: true, IsActive: true}, nil)
	f.users.On("GetUserByEmail", mock.Anything, "admin@alsweed.local").Return(f.user, nil)
	f.users.On("LogLoginAttempt", mock.Anything, mock.Anything).Return(nil)

	req := models.LoginRequest{Email: "admin@alsweed.local", Password: "wrong"}
	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(context.Background(), req, services.ClientInfo{})
		assert.Equal(t, "invalid_credentials", apperr.CodeOf(err))
	}

	_, err := f.svc.Login(context.Background(), req, services.ClientInfo{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
	assert.Equal(t, "too_many_requests", apperr.CodeOf(err))
	f.users.AssertNumberOfCalls(t, "CheckUserStatus", 3)

	// Another address is not affected.
	f.users.On("CheckUserStatus", mock.Anything, "other@alsweed.local").Return(models.UserStatus{}, nil)
	_, err = f.svc.Login(context.Background(), models.LoginRequest{Email: "other@alsweed.local", Password: "x"}, services.ClientInfo{})
	assert.Equal(t, "invalid_credentials", apperr.CodeOf(err))
}

func issueToken(t *testing.T, f *fixture, ttl time.Duration) (string, uuid.UUID) {
	t.Helper()
	sessionID := uuid.New()
	token, _, err := customjwt.NewJWTMaker(secret, ttl).GenerateToken(f.user.ID, f.user.Email, f.user.Role, sessionID)
	require.NoError(t, err)
	return token, sessionID
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		_, err := f.svc.Authenticate(context.Background(), " ")
		assert.Equal(t, "token_missing", apperr.CodeOf(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		_, err := f.svc.Authenticate(context.Background(), "not.a.jwt")
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
		assert.Equal(t, "unauthorized", apperr.CodeOf(err))
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		token, _ := issueToken(t, f, -time.Minute)
		_, err := f.svc.Authenticate(context.Background(), token)
		assert.Equal(t, "session_expired", apperr.CodeOf(err))
	})

	t.Run("revoked session", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		token, sessionID := issueToken(t, f, time.Hour)
		require.NoError(t, f.sessions.RevokeSession(context.Background(), sessionID, time.Now().Add(time.Hour)))
		_, err := f.svc.Authenticate(context.Background(), token)
		assert.Equal(t, "session_expired", apperr.CodeOf(err))
	})

	t.Run("deleted account", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		token, _ := issueToken(t, f, time.Hour)
		f.users.On("GetUserByID", mock.Anything, f.user.ID).
			Return(models.User{}, apperr.NotFound("storage.GetUserByID", "user_not_found"))
		_, err := f.svc.Authenticate(context.Background(), token)
		assert.Equal(t, "profile_load_failed", apperr.CodeOf(err))
	})

	t.Run("deactivated account", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		token, _ := issueToken(t, f, time.Hour)
		inactive := f.user
		inactive.IsActive = false
		f.users.On("GetUserByID", mock.Anything, f.user.ID).Return(inactive, nil)
		_, err := f.svc.Authenticate(context.Background(), token)
		assert.Equal(t, "account_inactive", apperr.CodeOf(err))
	})

	t.Run("role comes from the account", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		token, _ := issueToken(t, f, time.Hour)
		demoted := f.user
		demoted.Role = models.RoleUser
		f.users.On("GetUserByID", mock.Anything, f.user.ID).Return(demoted, nil)
		p, err := f.svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.False(t, p.IsAdmin())
	})

	t.Run("revocation store down", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		f.sessions.err = errors.New("redis down")
		token, _ := issueToken(t, f, time.Hour)
		f.users.On("GetUserByID", mock.Anything, f.user.ID).Return(f.user, nil)
		_, err := f.svc.Authenticate(context.Background(), token)
		assert.NoError(t, err)
	})
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	f := newFixture(t, time.Hour)
	token, oldSession := issueToken(t, f, time.Hour)
	f.users.On("GetUserByID", mock.Anything, f.user.ID).Return(f.user, nil)

	refreshed, err := f.svc.Refresh(context.Background(), token)
	require.NoError(t, err)
	assert.NotEqual(t, oldSession, refreshed.SessionID)

	_, err = f.svc.Authenticate(context.Background(), token)
	assert.Equal(t, "session_expired", apperr.CodeOf(err), "the refreshed token is revoked")

	p, err := f.svc.Logout(context.Background(), refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, p.UserID)

	_, err = f.svc.Authenticate(context.Background(), refreshed.Token)
	assert.Equal(t, "session_expired", apperr.CodeOf(err))

	_, err = f.svc.Logout(context.Background(), "garbage")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestAuthService_Session(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.users.On("GetUserByID", mock.Anything, f.user.ID).Return(f.user, nil)

	long, _ := issueToken(t, f, time.Hour)
	info, err := f.svc.Session(context.Background(), long)
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.False(t, info.ShouldRefresh)
	assert.InDelta(t, 3600, info.RemainingSeconds, 5)
	require.NotNil(t, info.User)
	assert.Equal(t, f.user.Email, info.User.Email)

	short, _ := issueToken(t, f, 5*time.Minute)
	info, err = f.svc.Session(context.Background(), short)
	require.NoError(t, err)
	assert.True(t, info.ShouldRefresh)

	info, err = f.svc.Session(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, info.Valid)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, services.ValidEmail("a@b.co"))
	assert.False(t, services.ValidEmail("a@b"))
	assert.False(t, services.ValidEmail("a b@c.com"))
	assert.False(t, services.ValidEmail(""))
}
