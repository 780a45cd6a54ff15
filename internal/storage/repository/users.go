package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

const userColumns = `id, email, full_name, role, is_active, password_hash, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.IsActive, &u.PasswordHash,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

// CreateUser stores a staff account. The email is stored lower case.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	const op = "storage.CreateUser"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	created, err := scanUser(s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, full_name, role, is_active, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		strings.ToLower(u.Email), u.FullName, u.Role, u.IsActive, u.PasswordHash))
	if err != nil {
		return models.User{}, apperr.Backend(op, err)
	}
	return created, nil
}

// GetUserByID returns one account.
func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "storage.GetUserByID"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, notFound(op, "user_not_found", err)
	}
	return u, nil
}

// GetUserByEmail returns the account registered with email, case
// insensitively.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return models.User{}, notFound(op, "user_not_found", err)
	}
	return u, nil
}

// ListUsers returns every account, newest first.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, apperr.Backend(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Backend(op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Backend(op, err)
	}
	return result, nil
}

// UpdateUser changes the name and/or role of an account.
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, req models.UpdateUserRequest) (models.User, error) {
	const op = "storage.UpdateUser"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET
			full_name = COALESCE($2, full_name),
			role = COALESCE($3, role),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, req.FullName, req.Role))
	if err != nil {
		return models.User{}, notFound(op, "user_not_found", err)
	}
	return u, nil
}

// SetUserActive enables or disables an account.
func (s *Storage) SetUserActive(ctx context.Context, id uuid.UUID, active bool) (models.User, error) {
	const op = "storage.SetUserActive"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
		id, active))
	if err != nil {
		return models.User{}, notFound(op, "user_not_found", err)
	}
	return u, nil
}

// DeleteUser removes an account. Warranties it authored keep a NULL author.
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteUser"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.Backend(op, err)
	}
	return expectRows(res, op, "user_not_found")
}

// CheckUserStatus reports whether an account exists for email and is active.
func (s *Storage) CheckUserStatus(ctx context.Context, email string) (models.UserStatus, error) {
	const op = "storage.CheckUserStatus"
	if err := ctxDone(ctx, op); err != nil {
		return models.UserStatus{}, err
	}

	var active bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT is_active FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserStatus{}, nil
	}
	if err != nil {
		return models.UserStatus{}, apperr.Backend(op, err)
	}
	return models.UserStatus{Exists: true, IsActive: active}, nil
}

// LogLoginAttempt appends to the login audit log.
func (s *Storage) LogLoginAttempt(ctx context.Context, a models.LoginAttempt) error {
	const op = "storage.LogLoginAttempt"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO login_attempts (email, success, reason, ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5)`,
		strings.ToLower(strings.TrimSpace(a.Email)), a.Success, a.Reason, a.IP, a.UserAgent)
	return apperr.Backend(op, err)
}

// TouchLastLogin records a successful sign in.
func (s *Storage) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	const op = "storage.TouchLastLogin"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return apperr.Backend(op, err)
}

// CountUsers returns the number of accounts.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "storage.CountUsers", `SELECT COUNT(*) FROM users`)
}

// CountActiveUsers returns the number of enabled accounts.
func (s *Storage) CountActiveUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "storage.CountActiveUsers", `SELECT COUNT(*) FROM users WHERE is_active`)
}

// CountAdmins returns the number of admin accounts.
func (s *Storage) CountAdmins(ctx context.Context) (int, error) {
	return s.count(ctx, "storage.CountAdmins", `SELECT COUNT(*) FROM users WHERE role = 'admin'`)
}
