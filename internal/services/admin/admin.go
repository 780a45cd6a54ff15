// Package services implements the admin dashboard: aggregate counters and
// staff account management.
package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/cache"
	"github.com/magabrotheeeer/warranty-service/internal/events"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/password"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sanitize"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/lib/validation"
	"github.com/magabrotheeeer/warranty-service/internal/models"
	"github.com/magabrotheeeer/warranty-service/internal/storage/repository"
)

// Repository is the storage used by AdminService.
type Repository interface {
	CountUsers(ctx context.Context) (int, error)
	CountActiveUsers(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
	CountWarranties(ctx context.Context) (int, error)
	CountCustomers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req models.UpdateUserRequest) (models.User, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) (models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Disconnector closes the live connections of a user.
type Disconnector interface {
	DisconnectUser(userID uuid.UUID)
}

// Invalidator drops cached read models. Cached warranty lists embed the
// name and email of their authors.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// AdminService implements the admin operations. Callers are expected to
// have checked the admin role already.
type AdminService struct {
	repo         Repository
	publisher    events.Publisher
	disconnector Disconnector
	cache        Invalidator
	validate     *validator.Validate
	sanitizer    *sanitize.Sanitizer
	log          *slog.Logger
}

// NewAdminService creates an AdminService. disconnector and invalidator may
// be nil.
func NewAdminService(repo Repository, publisher events.Publisher, disconnector Disconnector, invalidator Invalidator, log *slog.Logger) *AdminService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &AdminService{
		repo:         repo,
		publisher:    publisher,
		disconnector: disconnector,
		cache:        invalidator,
		validate:     validation.New(),
		sanitizer:    sanitize.New(200),
		log:          log,
	}
}

// Stats reads every counter concurrently. The first failure cancels the rest.
func (s *AdminService) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	g, ctx := errgroup.WithContext(ctx)

	counters := []struct {
		dst  *int
		read func(context.Context) (int, error)
	}{
		{&st.TotalUsers, s.repo.CountUsers},
		{&st.ActiveUsers, s.repo.CountActiveUsers},
		{&st.Admins, s.repo.CountAdmins},
		{&st.TotalWarranties, s.repo.CountWarranties},
		{&st.TotalCustomers, s.repo.CountCustomers},
		{&st.TotalProducts, s.repo.CountProducts},
	}
	for _, c := range counters {
		g.Go(func() error {
			n, err := c.read(ctx)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Stats{}, err
	}
	return st, nil
}

// ListUsers returns every staff account.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleUser
}

// CreateUser adds an active staff account.
func (s *AdminService) CreateUser(ctx context.Context, actorID uuid.UUID, req models.CreateUserRequest) (models.User, error) {
	const op = "services.admin.CreateUser"

	email := s.sanitizer.Email(strings.TrimSpace(req.Email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return models.User{}, apperr.Validation(op, "email", i18n.CodeInvalidEmail)
	}
	if err := password.CheckStrength(req.Password); err != nil {
		return models.User{}, &apperr.Error{Kind: apperr.KindValidation, Op: op, Field: "password", Code: i18n.CodeWeakPassword, Err: err}
	}
	name := s.sanitizer.Text(req.FullName)
	if utf8.RuneCountInString(name) < 2 {
		return models.User{}, apperr.Validation(op, "full_name", i18n.CodeNameTooShort)
	}
	if !validRole(req.Role) {
		return models.User{}, apperr.Validation(op, "role", i18n.CodeRoleInvalid)
	}

	hash, err := password.GetHash(req.Password)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindServer, op, err)
	}
	user, err := s.repo.CreateUser(ctx, models.User{
		Email:        email,
		FullName:     name,
		Role:         req.Role,
		IsActive:     true,
		PasswordHash: hash,
	})
	if err != nil {
		if apperr.CodeOf(err) == repository.ConstraintUserEmail {
			return models.User{}, &apperr.Error{Kind: apperr.KindConflict, Op: op, Field: "email", Code: i18n.CodeEmailTaken, Err: err}
		}
		return models.User{}, err
	}

	_ = s.publisher.Publish(ctx, events.New(events.Created, events.EntityUser, user.ID).By(actorID))
	s.log.Info("user created", slog.String("user_id", user.ID.String()), slog.String("role", user.Role))
	return user, nil
}

// UpdateUser changes the name and/or role of an account. An admin cannot
// demote themselves.
func (s *AdminService) UpdateUser(ctx context.Context, actorID, id uuid.UUID, req models.UpdateUserRequest) (models.User, error) {
	const op = "services.admin.UpdateUser"

	if req.FullName == nil && req.Role == nil {
		return models.User{}, apperr.Validation(op, "", i18n.CodeNothingToUpdate)
	}
	if req.FullName != nil {
		name := s.sanitizer.Text(*req.FullName)
		if utf8.RuneCountInString(name) < 2 {
			return models.User{}, apperr.Validation(op, "full_name", i18n.CodeNameTooShort)
		}
		req.FullName = &name
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return models.User{}, apperr.Validation(op, "role", i18n.CodeRoleInvalid)
		}
		if id == actorID && *req.Role != models.RoleAdmin {
			return models.User{}, apperr.New(apperr.KindForbidden, op, i18n.CodeSelfAction)
		}
	}

	user, err := s.repo.UpdateUser(ctx, id, req)
	if err != nil {
		return models.User{}, err
	}
	if req.FullName != nil {
		s.invalidateWarranties(ctx)
	}
	_ = s.publisher.Publish(ctx, events.New(events.Updated, events.EntityUser, user.ID).By(actorID))
	return user, nil
}

// ChangeRole sets the role of an account.
func (s *AdminService) ChangeRole(ctx context.Context, actorID, id uuid.UUID, role string) (models.User, error) {
	return s.UpdateUser(ctx, actorID, id, models.UpdateUserRequest{Role: &role})
}

// ToggleUserStatus activates an inactive account and deactivates an active
// one. Deactivated users lose their live connections at once and their
// tokens on the next request.
func (s *AdminService) ToggleUserStatus(ctx context.Context, actorID, id uuid.UUID) (models.User, error) {
	const op = "services.admin.ToggleUserStatus"
	if id == actorID {
		return models.User{}, apperr.New(apperr.KindForbidden, op, i18n.CodeSelfAction)
	}

	current, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.repo.SetUserActive(ctx, id, !current.IsActive)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive && s.disconnector != nil {
		s.disconnector.DisconnectUser(user.ID)
	}

	_ = s.publisher.Publish(ctx, events.New(events.Updated, events.EntityUser, user.ID).By(actorID))
	s.log.Info("user status changed", slog.String("user_id", user.ID.String()), slog.Bool("active", user.IsActive))
	return user, nil
}

// DeleteUser removes an account. An admin cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	const op = "services.admin.DeleteUser"
	if id == actorID {
		return apperr.New(apperr.KindForbidden, op, i18n.CodeSelfAction)
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidateWarranties(ctx)
	if s.disconnector != nil {
		s.disconnector.DisconnectUser(id)
	}
	_ = s.publisher.Publish(ctx, events.New(events.Deleted, events.EntityUser, id).By(actorID))
	s.log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

func (s *AdminService) invalidateWarranties(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KeyWarranties); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cache.KeyWarranties), sl.Err(err))
	}
}
