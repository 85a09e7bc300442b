// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/secureflow/secureflow/internal/models"
)

// ListRoles returns the role catalog.
func (r *Repository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, `SELECT * FROM roles ORDER BY id`); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRoleByName retrieves a role by its name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.GetContext(ctx, &role, `SELECT * FROM roles WHERE name = ?`, name); err != nil {
		return nil, wrapErr(err)
	}
	return &role, nil
}

// GetRolesForUser returns the roles assigned to a user.
func (r *Repository) GetRolesForUser(ctx context.Context, userID int64) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.SelectContext(ctx, &roles,
		`SELECT r.id, r.name, r.description
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ?
		 ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// AssignRole assigns a role to a user. Assigning an already-held role is a no-op.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`,
		userID, roleID)
	return err
}

// RevokeRole removes a role from a user.
func (r *Repository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`, userID, roleID)
	return err
}

// UserHasRole checks whether a user holds the named role.
func (r *Repository) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = ? AND r.name = ?
		)`, userID, roleName)
	return exists, err
}
