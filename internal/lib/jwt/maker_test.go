package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_1234567890_abcdef"

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker(testSecret, 60*time.Minute)

	tests := []struct {
		name  string
		email string
		role  string
	}{
		{"admin user", "admin@example.com", "admin"},
		{"regular user", "staff@example.com", "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, sessionID := uuid.New(), uuid.New()
			token, expiresAt, err := maker.GenerateToken(userID, tt.email, tt.role, sessionID)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(60*time.Minute), expiresAt, time.Second)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			gotUser, err := claims.UserID()
			require.NoError(t, err)
			gotSession, err := claims.SessionID()
			require.NoError(t, err)

			assert.Equal(t, userID, gotUser)
			assert.Equal(t, sessionID, gotSession)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.role, claims.Role)
			assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	maker := NewJWTMaker(testSecret, 15*time.Minute)

	valid, _, err := maker.GenerateToken(uuid.New(), "a@b.co", "user", uuid.New())
	require.NoError(t, err)

	expired := func() string {
		m := NewJWTMaker(testSecret, -time.Hour)
		tok, _, err := m.GenerateToken(uuid.New(), "a@b.co", "user", uuid.New())
		require.NoError(t, err)
		return tok
	}()

	wrongSecret := func() string {
		m := NewJWTMaker("another_secret_key_1234567890_xyz", 15*time.Minute)
		tok, _, err := m.GenerateToken(uuid.New(), "a@b.co", "user", uuid.New())
		require.NoError(t, err)
		return tok
	}()

	noneAlg := func() string {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
		})
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		return s
	}()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "invalid.token.here"},
		{"expired token", expired},
		{"wrong secret key", wrongSecret},
		{"tampered token", valid + "tampered"},
		{"none algorithm", noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_ClockControlsExpiry(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute)
	start := time.Now()
	maker.now = func() time.Time { return start }

	token, _, err := maker.GenerateToken(uuid.New(), "a@b.co", "user", uuid.New())
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	maker.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = maker.ParseToken(token)
	assert.Error(t, err)
	assert.Equal(t, time.Minute, maker.TTL())
}
