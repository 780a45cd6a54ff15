package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/models"
	authsvc "github.com/magabrotheeeer/warranty-service/internal/services/auth"
)

// State is the sign in state of a Session.
type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

const (
	// SessionTimeout bounds the session check of Init.
	SessionTimeout = 5 * time.Second
	// ProfileTimeout bounds loading the account once the session is known
	// to be valid.
	ProfileTimeout = 10 * time.Second
	// RefreshThreshold is the remaining lifetime below which a token is
	// exchanged for a new one.
	RefreshThreshold = 10 * time.Minute
)

// Session tracks who is signed in through a Client. It starts in
// StateLoading until Init or SignIn settles it.
type Session struct {
	client *Client

	sessionTimeout time.Duration
	profileTimeout time.Duration
	threshold      time.Duration

	mu        sync.Mutex
	state     State
	user      *models.User
	expiresAt time.Time
	listeners []func(State)
}

// NewSession creates a Session in StateLoading.
func NewSession(c *Client) *Session {
	return &Session{
		client:         c,
		sessionTimeout: SessionTimeout,
		profileTimeout: ProfileTimeout,
		threshold:      RefreshThreshold,
		state:          StateLoading,
	}
}

// OnChange registers fn to be called after every state transition.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the signed in account.
func (s *Session) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// ExpiresAt returns when the current token expires.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) set(state State, user *models.User, expiresAt time.Time) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.user = user
	s.expiresAt = expiresAt
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(state)
		}
	}
}

func (s *Session) adopt(sess models.Session) {
	s.client.Tokens().Save(sess.Token)
	user := sess.User
	s.set(StateAuthenticated, &user, sess.ExpiresAt)
}

func (s *Session) expire() {
	s.client.Tokens().Clear()
	s.set(StateUnauthenticated, nil, time.Time{})
}

// Init restores the stored token. A network failure leaves the token in
// place so that a later Init can try again.
func (s *Session) Init(ctx context.Context) error {
	const op = "client.Session.Init"

	if s.client.Tokens().Load() == "" {
		s.set(StateUnauthenticated, nil, time.Time{})
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.sessionTimeout)
	info, err := s.client.SessionInfo(sctx)
	cancel()
	if err != nil {
		if apperr.Classify(err) == apperr.KindNetwork {
			s.set(StateUnauthenticated, nil, time.Time{})
			return err
		}
		s.expire()
		return err
	}
	if !info.Valid {
		s.expire()
		return nil
	}

	if info.ShouldRefresh {
		pctx, cancel := context.WithTimeout(ctx, s.profileTimeout)
		sess, err := s.client.Refresh(pctx)
		cancel()
		if err != nil {
			s.expire()
			return err
		}
		s.adopt(sess)
		return nil
	}

	if info.User == nil {
		s.expire()
		return apperr.New(apperr.KindAuth, op, i18n.CodeProfileLoadFailed)
	}
	s.set(StateAuthenticated, info.User, info.ExpiresAt)
	return nil
}

// SignIn checks the input locally, then signs in on the server.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	const op = "client.Session.SignIn"

	email = strings.ToLower(strings.TrimSpace(email))
	if !authsvc.ValidEmail(email) {
		return apperr.Validation(op, "email", i18n.CodeInvalidEmail)
	}
	if password == "" {
		return apperr.Validation(op, "password", i18n.CodePasswordRequired)
	}

	sess, err := s.client.Login(ctx, email, password)
	if err != nil {
		if s.State() == StateLoading {
			s.set(StateUnauthenticated, nil, time.Time{})
		}
		return err
	}
	s.adopt(sess)
	return nil
}

// SignOut revokes the session on the server and always forgets it locally.
// The server error, if any, is returned.
func (s *Session) SignOut(ctx context.Context) error {
	var err error
	if s.client.Tokens().Load() != "" {
		err = s.client.Logout(ctx)
	}
	s.expire()
	return err
}

// Check is one round of the session monitor: an invalid session signs out,
// a session close to expiry is refreshed and a failed refresh signs out.
// Network failures of the check itself keep the current state.
func (s *Session) Check(ctx context.Context) error {
	if s.State() != StateAuthenticated {
		return nil
	}

	info, err := s.client.SessionInfo(ctx)
	if err != nil {
		if apperr.Classify(err) == apperr.KindNetwork {
			return err
		}
		s.expire()
		return err
	}
	if !info.Valid {
		s.expire()
		return nil
	}

	remaining := time.Duration(info.RemainingSeconds) * time.Second
	if remaining >= s.threshold {
		if info.User != nil {
			s.set(StateAuthenticated, info.User, info.ExpiresAt)
		}
		return nil
	}

	sess, err := s.client.Refresh(ctx)
	if err != nil {
		_ = s.SignOut(ctx)
		return err
	}
	s.adopt(sess)
	return nil
}
