// Package jwt issues and parses the HS256 session tokens of the service.
package jwt

import (
	"time"

	"github.com/google/uuid"
)

// Maker issues and parses session tokens.
type Maker interface {
	// GenerateToken signs a token for the user bound to sessionID and
	// returns it with its expiry.
	GenerateToken(userID uuid.UUID, email, role string, sessionID uuid.UUID) (string, time.Time, error)
	// ParseToken verifies the signature and expiry of tokenStr.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl signs tokens with a shared secret and a fixed lifetime.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker returns a MakerImpl using secretKey and ttl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// TTL returns the lifetime of newly issued tokens.
func (j *MakerImpl) TTL() time.Duration { return j.tokenTTL }
