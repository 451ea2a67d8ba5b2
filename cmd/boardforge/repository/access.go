package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/models"
)

// AccessRepository handles database operations for group-level access
// grants
type AccessRepository struct {
	q Querier
}

// NewAccessRepository creates a new access repository
func NewAccessRepository(q Querier) *AccessRepository {
	return &AccessRepository{q: q}
}

// CreateAccess inserts a new group-level grant and fills the assigned
// identity
func (r *AccessRepository) CreateAccess(ctx context.Context, access *models.Access) error {
	query := `
		INSERT INTO access (group_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		access.GroupID,
		access.Name,
	).Scan(&access.ID, &access.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create access: %w", err)
	}

	return nil
}

// GetAccessByGroup retrieves the grant covering a prototype group
func (r *AccessRepository) GetAccessByGroup(ctx context.Context, groupID uuid.UUID) (*models.Access, error) {
	query := `
		SELECT id, group_id, name, created_at
		FROM access
		WHERE group_id = $1
		LIMIT 1
	`

	access := &models.Access{}
	err := r.q.QueryRow(ctx, query, groupID).Scan(
		&access.ID,
		&access.GroupID,
		&access.Name,
		&access.CreatedAt,
	)

	if err != nil {
		return nil, notFound(err, "failed to get access for group %s", groupID)
	}

	return access, nil
}

// CreateUserAccess links a user to a group-level grant
func (r *AccessRepository) CreateUserAccess(ctx context.Context, userAccess *models.UserAccess) error {
	query := `
		INSERT INTO user_access (user_id, access_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, access_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, userAccess.UserID, userAccess.AccessID); err != nil {
		return fmt.Errorf("failed to create user access: %w", err)
	}

	return nil
}

// ListUserAccesses retrieves every group-level grant a user holds
func (r *AccessRepository) ListUserAccesses(ctx context.Context, userID string) ([]*models.Access, error) {
	query := `
		SELECT a.id, a.group_id, a.name, a.created_at
		FROM access a
		INNER JOIN user_access ua ON ua.access_id = a.id
		WHERE ua.user_id = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user accesses: %w", err)
	}
	defer rows.Close()

	var accesses []*models.Access
	for rows.Next() {
		access := &models.Access{}
		err := rows.Scan(
			&access.ID,
			&access.GroupID,
			&access.Name,
			&access.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access: %w", err)
		}
		accesses = append(accesses, access)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accesses: %w", err)
	}

	return accesses, nil
}
