package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/models"
)

// RBACRepository handles database operations for roles and grants
type RBACRepository struct {
	q Querier
}

// NewRBACRepository creates a new RBAC repository
func NewRBACRepository(q Querier) *RBACRepository {
	return &RBACRepository{q: q}
}

// GrantMatches reports whether the user holds any role whose permissions
// cover (resource, action) at the given scope. A nil resourceID matches
// global-scope grant rows only.
func (r *RBACRepository) GrantMatches(ctx context.Context, userID string, resource models.ResourceType, action models.Action, resourceID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM user_role ur
			INNER JOIN role_permission rp ON rp.role_id = ur.role_id
			INNER JOIN permission p ON p.id = rp.permission_id
			WHERE ur.user_id = $1
			  AND ur.resource_type = $2
			  AND p.resource = $2
			  AND p.action = $3
			  AND (
			      ($4::uuid IS NULL AND ur.resource_id IS NULL)
			      OR ur.resource_id = $4
			  )
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query, userID, resource, action, resourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to match grant: %w", err)
	}

	return exists, nil
}

// AccessibleResourceIDs lists every resource id the user holds a
// resource-specific grant for covering (resource, action).
func (r *RBACRepository) AccessibleResourceIDs(ctx context.Context, userID string, resource models.ResourceType, action models.Action) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT ur.resource_id
		FROM user_role ur
		INNER JOIN role_permission rp ON rp.role_id = ur.role_id
		INNER JOIN permission p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		  AND ur.resource_type = $2
		  AND p.resource = $2
		  AND p.action = $3
		  AND ur.resource_id IS NOT NULL
	`

	rows, err := r.q.Query(ctx, query, userID, resource, action)
	if err != nil {
		return nil, fmt.Errorf("failed to list accessible resources: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource ids: %w", err)
	}

	return ids, nil
}

// UserRoleExists checks whether the exact composite-key grant row exists
func (r *RBACRepository) UserRoleExists(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM user_role
			WHERE user_id = $1 AND role_id = $2 AND resource_type = $3
			  AND (
			      ($4::uuid IS NULL AND resource_id IS NULL)
			      OR resource_id = $4
			  )
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query, userID, roleID, resource, resourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check grant existence: %w", err)
	}

	return exists, nil
}

// UserRoleExistsForType checks whether any grant row exists for
// (user, role, resource type) regardless of resource id
func (r *RBACRepository) UserRoleExistsForType(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM user_role
			WHERE user_id = $1 AND role_id = $2 AND resource_type = $3
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query, userID, roleID, resource).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check grant existence for type: %w", err)
	}

	return exists, nil
}

// InsertUserRole inserts a new grant row
func (r *RBACRepository) InsertUserRole(ctx context.Context, grant *models.UserRole) error {
	query := `
		INSERT INTO user_role (user_id, role_id, resource_type, resource_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		grant.UserID,
		grant.RoleID,
		grant.ResourceType,
		grant.ResourceID,
	).Scan(&grant.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}

	return nil
}

// DeleteUserRole removes the exact composite-key grant row. No-op when
// the row is absent.
func (r *RBACRepository) DeleteUserRole(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) error {
	query := `
		DELETE FROM user_role
		WHERE user_id = $1 AND role_id = $2 AND resource_type = $3
		  AND (
		      ($4::uuid IS NULL AND resource_id IS NULL)
		      OR resource_id = $4
		  )
	`

	if _, err := r.q.Exec(ctx, query, userID, roleID, resource, resourceID); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	return nil
}

// RoleIDByName resolves a seeded role name to its id
func (r *RBACRepository) RoleIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	query := `SELECT id FROM role WHERE name = $1`

	var id uuid.UUID
	if err := r.q.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return uuid.Nil, notFound(err, "failed to resolve role %q", name)
	}

	return id, nil
}

// ListUserRoles retrieves every grant row a user holds
func (r *RBACRepository) ListUserRoles(ctx context.Context, userID string) ([]*models.UserRole, error) {
	query := `
		SELECT user_id, role_id, resource_type, resource_id, created_at
		FROM user_role
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*models.UserRole
	for rows.Next() {
		grant := &models.UserRole{}
		err := rows.Scan(
			&grant.UserID,
			&grant.RoleID,
			&grant.ResourceType,
			&grant.ResourceID,
			&grant.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}

	return grants, nil
}
