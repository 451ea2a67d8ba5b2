package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boardforge/boardforge/common/models"
)

// PrototypeRepository handles database operations for projects,
// prototypes and versions
type PrototypeRepository struct {
	q Querier
}

// NewPrototypeRepository creates a new prototype repository
func NewPrototypeRepository(q Querier) *PrototypeRepository {
	return &PrototypeRepository{q: q}
}

// CreateProject inserts a new project and fills the assigned identity
func (r *PrototypeRepository) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO project (name, owner_user_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		project.Name,
		project.OwnerUserID,
	).Scan(&project.ID, &project.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject retrieves a project by its ID
func (r *PrototypeRepository) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
		SELECT id, name, owner_user_id, created_at
		FROM project
		WHERE id = $1
	`

	project := &models.Project{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.OwnerUserID,
		&project.CreatedAt,
	)

	if err != nil {
		return nil, notFound(err, "failed to get project %s", id)
	}

	return project, nil
}

// CreatePrototype inserts a new prototype and fills the assigned identity
func (r *PrototypeRepository) CreatePrototype(ctx context.Context, proto *models.Prototype) error {
	query := `
		INSERT INTO prototype (project_id, group_id, owner_user_id, name, variant, min_players, max_players)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		proto.ProjectID,
		proto.GroupID,
		proto.OwnerUserID,
		proto.Name,
		proto.Variant,
		proto.MinPlayers,
		proto.MaxPlayers,
	).Scan(&proto.ID, &proto.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create prototype: %w", err)
	}

	return nil
}

// GetPrototype retrieves a prototype by its ID
func (r *PrototypeRepository) GetPrototype(ctx context.Context, id uuid.UUID) (*models.Prototype, error) {
	query := `
		SELECT id, project_id, group_id, owner_user_id, name, variant, min_players, max_players, created_at
		FROM prototype
		WHERE id = $1
	`

	proto := &models.Prototype{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&proto.ID,
		&proto.ProjectID,
		&proto.GroupID,
		&proto.OwnerUserID,
		&proto.Name,
		&proto.Variant,
		&proto.MinPlayers,
		&proto.MaxPlayers,
		&proto.CreatedAt,
	)

	if err != nil {
		return nil, notFound(err, "failed to get prototype %s", id)
	}

	return proto, nil
}

// ListPrototypes retrieves all prototypes, newest first
func (r *PrototypeRepository) ListPrototypes(ctx context.Context) ([]*models.Prototype, error) {
	query := `
		SELECT id, project_id, group_id, owner_user_id, name, variant, min_players, max_players, created_at
		FROM prototype
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list prototypes: %w", err)
	}
	defer rows.Close()

	return scanPrototypes(rows)
}

// ListPrototypesByIDs retrieves the prototypes with the given IDs
func (r *PrototypeRepository) ListPrototypesByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Prototype, error) {
	query := `
		SELECT id, project_id, group_id, owner_user_id, name, variant, min_players, max_players, created_at
		FROM prototype
		WHERE id = ANY($1)
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list prototypes by ids: %w", err)
	}
	defer rows.Close()

	return scanPrototypes(rows)
}

func scanPrototypes(rows pgx.Rows) ([]*models.Prototype, error) {
	var protos []*models.Prototype
	for rows.Next() {
		proto := &models.Prototype{}
		err := rows.Scan(
			&proto.ID,
			&proto.ProjectID,
			&proto.GroupID,
			&proto.OwnerUserID,
			&proto.Name,
			&proto.Variant,
			&proto.MinPlayers,
			&proto.MaxPlayers,
			&proto.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prototype: %w", err)
		}
		protos = append(protos, proto)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prototypes: %w", err)
	}

	return protos, nil
}

// UpdatePrototypeFields updates the prototype's mutable fields
func (r *PrototypeRepository) UpdatePrototypeFields(ctx context.Context, id uuid.UUID, name string, minPlayers, maxPlayers int) error {
	query := `
		UPDATE prototype
		SET name = $2, min_players = $3, max_players = $4
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, name, minPlayers, maxPlayers)
	if err != nil {
		return fmt.Errorf("failed to update prototype: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows,"failed to update prototype %s", id)
	}

	return nil
}

// DeletePrototype removes a prototype; versions, players, parts and
// properties go with it through the cascade
func (r *PrototypeRepository) DeletePrototype(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM prototype WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete prototype: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows,"failed to delete prototype %s", id)
	}

	return nil
}

// CreateVersion inserts a new version and fills the assigned identity
func (r *PrototypeRepository) CreateVersion(ctx context.Context, version *models.PrototypeVersion) error {
	query := `
		INSERT INTO prototype_version (prototype_id, version_number, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		version.PrototypeID,
		version.VersionNumber,
		version.Description,
	).Scan(&version.ID, &version.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	return nil
}

// GetVersion retrieves a version by its ID
func (r *PrototypeRepository) GetVersion(ctx context.Context, id uuid.UUID) (*models.PrototypeVersion, error) {
	query := `
		SELECT id, prototype_id, version_number, description, created_at
		FROM prototype_version
		WHERE id = $1
	`

	version := &models.PrototypeVersion{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&version.ID,
		&version.PrototypeID,
		&version.VersionNumber,
		&version.Description,
		&version.CreatedAt,
	)

	if err != nil {
		return nil, notFound(err, "failed to get version %s", id)
	}

	return version, nil
}

// ListVersions retrieves a prototype's versions, newest first
func (r *PrototypeRepository) ListVersions(ctx context.Context, prototypeID uuid.UUID) ([]*models.PrototypeVersion, error) {
	query := `
		SELECT id, prototype_id, version_number, description, created_at
		FROM prototype_version
		WHERE prototype_id = $1
		ORDER BY version_number DESC
	`

	rows, err := r.q.Query(ctx, query, prototypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.PrototypeVersion
	for rows.Next() {
		version := &models.PrototypeVersion{}
		err := rows.Scan(
			&version.ID,
			&version.PrototypeID,
			&version.VersionNumber,
			&version.Description,
			&version.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

// LatestVersion retrieves the prototype's highest-numbered version
func (r *PrototypeRepository) LatestVersion(ctx context.Context, prototypeID uuid.UUID) (*models.PrototypeVersion, error) {
	query := `
		SELECT id, prototype_id, version_number, description, created_at
		FROM prototype_version
		WHERE prototype_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`

	version := &models.PrototypeVersion{}
	err := r.q.QueryRow(ctx, query, prototypeID).Scan(
		&version.ID,
		&version.PrototypeID,
		&version.VersionNumber,
		&version.Description,
		&version.CreatedAt,
	)

	if err != nil {
		return nil, notFound(err, "failed to get latest version of %s", prototypeID)
	}

	return version, nil
}

// NextVersionNumber computes the next free version number
func (r *PrototypeRepository) NextVersionNumber(ctx context.Context, prototypeID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(version_number), -1) + 1
		FROM prototype_version
		WHERE prototype_id = $1
	`

	var next int
	if err := r.q.QueryRow(ctx, query, prototypeID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next version number: %w", err)
	}

	return next, nil
}
