package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"curbside/internal/domain"
)

// Identity is the caller of an operation: who they are and what role they
// hold. It is passed explicitly into every engine operation; there is no
// ambient session state.
type Identity struct {
	UserID string
	Role   string
}

// UnauthorizedError indicates a missing caller identity.
type UnauthorizedError struct{}

func (UnauthorizedError) Error() string { return "authentication required" }

// ForbiddenError indicates an insufficient role or an ownership mismatch.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.Reason == "" {
		return "permission denied"
	}
	return e.Reason
}

var roleRank = map[string]int{
	domain.RoleCitizen: 0,
	domain.RoleDriver:  1,
	domain.RoleAdmin:   2,
}

// HasMinimumRole reports whether role meets or exceeds required.
func HasMinimumRole(role, required string) bool {
	r, ok := roleRank[role]
	if !ok {
		return false
	}
	return r >= roleRank[required]
}

// RequireUser returns the identity or an UnauthorizedError when it is empty.
func RequireUser(id Identity) (Identity, error) {
	if id.UserID == "" {
		return Identity{}, UnauthorizedError{}
	}
	return id, nil
}

// RequireRole enforces the minimum-role contract.
func RequireRole(id Identity, required string) (Identity, error) {
	if _, err := RequireUser(id); err != nil {
		return Identity{}, err
	}
	if !HasMinimumRole(id.Role, required) {
		return Identity{}, ForbiddenError{Reason: fmt.Sprintf("role %s required", required)}
	}
	return id, nil
}

// Service resolves roles from the store.
type Service struct {
	DB *sql.DB
}

// UserRole returns the stored role for a user, or citizen when none exists.
func (s Service) UserRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.DB.QueryRowContext(ctx, `SELECT role FROM user_role WHERE user_id=?`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return domain.RoleCitizen, nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// SetUserRole writes a user's role, replacing any existing assignment.
func (s Service) SetUserRole(ctx context.Context, userID, role string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.DB.ExecContext(ctx, `INSERT INTO user_role(user_id, role, created_at, updated_at) VALUES (?,?,?,?)
ON CONFLICT(user_id) DO UPDATE SET role=excluded.role, updated_at=excluded.updated_at`,
		userID, role, now, now)
	return err
}

// EnsureUserRole inserts the default citizen role for unseen users and
// returns the effective role.
func (s Service) EnsureUserRole(ctx context.Context, userID string) (string, error) {
	role, err := s.UserRole(ctx, userID)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO user_role(user_id, role, created_at, updated_at) VALUES (?,?,?,?)`,
		userID, role, now, now)
	return role, err
}
