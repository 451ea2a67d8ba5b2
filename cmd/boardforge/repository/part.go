package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boardforge/boardforge/common/models"
)

// PartRepository handles database operations for parts and their
// per-side properties
type PartRepository struct {
	q Querier
}

// NewPartRepository creates a new part repository
func NewPartRepository(q Querier) *PartRepository {
	return &PartRepository{q: q}
}

// CreatePart inserts a new part and fills the assigned identity
func (r *PartRepository) CreatePart(ctx context.Context, part *models.Part) error {
	query := `
		INSERT INTO part (
			version_id, kind, parent_id, owner_id,
			pos_x, pos_y, width, height, z_order,
			is_reversible, is_flipped, can_reverse_card_on_deck, original_part_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		part.VersionID,
		part.Kind,
		part.ParentID,
		part.OwnerID,
		part.PosX,
		part.PosY,
		part.Width,
		part.Height,
		part.ZOrder,
		part.IsReversible,
		part.IsFlipped,
		part.CanReverseCardOnDeck,
		part.OriginalPartID,
	).Scan(&part.ID, &part.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create part: %w", err)
	}

	return nil
}

// GetPart retrieves a part by its ID
func (r *PartRepository) GetPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	query := `
		SELECT
			id, version_id, kind, parent_id, owner_id,
			pos_x, pos_y, width, height, z_order,
			is_reversible, is_flipped, can_reverse_card_on_deck, original_part_id, created_at
		FROM part
		WHERE id = $1
	`

	part := &models.Part{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&part.ID,
		&part.VersionID,
		&part.Kind,
		&part.ParentID,
		&part.OwnerID,
		&part.PosX,
		&part.PosY,
		&part.Width,
		&part.Height,
		&part.ZOrder,
		&part.IsReversible,
		&part.IsFlipped,
		&part.CanReverseCardOnDeck,
		&part.OriginalPartID,
		&part.CreatedAt,
	)

	if err != nil {
		return nil, notFound(err, "failed to get part %s", id)
	}

	return part, nil
}

// ListParts retrieves a version's parts in z order
func (r *PartRepository) ListParts(ctx context.Context, versionID uuid.UUID) ([]*models.Part, error) {
	query := `
		SELECT
			id, version_id, kind, parent_id, owner_id,
			pos_x, pos_y, width, height, z_order,
			is_reversible, is_flipped, can_reverse_card_on_deck, original_part_id, created_at
		FROM part
		WHERE version_id = $1
		ORDER BY z_order ASC, created_at ASC
	`

	rows, err := r.q.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	defer rows.Close()

	var parts []*models.Part
	for rows.Next() {
		part := &models.Part{}
		err := rows.Scan(
			&part.ID,
			&part.VersionID,
			&part.Kind,
			&part.ParentID,
			&part.OwnerID,
			&part.PosX,
			&part.PosY,
			&part.Width,
			&part.Height,
			&part.ZOrder,
			&part.IsReversible,
			&part.IsFlipped,
			&part.CanReverseCardOnDeck,
			&part.OriginalPartID,
			&part.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		parts = append(parts, part)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parts: %w", err)
	}

	return parts, nil
}

// UpdatePart rewrites the part's mutable columns
func (r *PartRepository) UpdatePart(ctx context.Context, part *models.Part) error {
	query := `
		UPDATE part
		SET parent_id = $2, owner_id = $3,
		    pos_x = $4, pos_y = $5, width = $6, height = $7, z_order = $8,
		    is_flipped = $9
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		part.ID,
		part.ParentID,
		part.OwnerID,
		part.PosX,
		part.PosY,
		part.Width,
		part.Height,
		part.ZOrder,
		part.IsFlipped,
	)
	if err != nil {
		return fmt.Errorf("failed to update part: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "failed to update part %s", part.ID)
	}

	return nil
}

// SetPartParent rewires the part's parent edge
func (r *PartRepository) SetPartParent(ctx context.Context, partID, parentID uuid.UUID) error {
	query := `UPDATE part SET parent_id = $2 WHERE id = $1`

	result, err := r.q.Exec(ctx, query, partID, parentID)
	if err != nil {
		return fmt.Errorf("failed to set part parent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "failed to set parent of part %s", partID)
	}

	return nil
}

// SetPartOwner rewires the part's owner edge
func (r *PartRepository) SetPartOwner(ctx context.Context, partID, ownerID uuid.UUID) error {
	query := `UPDATE part SET owner_id = $2 WHERE id = $1`

	result, err := r.q.Exec(ctx, query, partID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to set part owner: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "failed to set owner of part %s", partID)
	}

	return nil
}

// DeletePart removes a part; its properties cascade, its children are
// detached to the top level
func (r *PartRepository) DeletePart(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM part WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete part: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "failed to delete part %s", id)
	}

	return nil
}

// CreateProperty inserts a new property row
func (r *PartRepository) CreateProperty(ctx context.Context, prop *models.PartProperty) error {
	query := `
		INSERT INTO part_property (part_id, side, name, description, color, text_color, image_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		prop.PartID,
		prop.Side,
		prop.Name,
		prop.Description,
		prop.Color,
		prop.TextColor,
		prop.ImageID,
	)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	return nil
}

// GetProperty retrieves one side's property row
func (r *PartRepository) GetProperty(ctx context.Context, partID uuid.UUID, side models.PropertySide) (*models.PartProperty, error) {
	query := `
		SELECT part_id, side, name, description, color, text_color, image_id
		FROM part_property
		WHERE part_id = $1 AND side = $2
	`

	prop := &models.PartProperty{}
	err := r.q.QueryRow(ctx, query, partID, side).Scan(
		&prop.PartID,
		&prop.Side,
		&prop.Name,
		&prop.Description,
		&prop.Color,
		&prop.TextColor,
		&prop.ImageID,
	)

	if err != nil {
		return nil, notFound(err, "failed to get property (%s, %s)", partID, side)
	}

	return prop, nil
}

// ListProperties retrieves every property row of a version's parts
func (r *PartRepository) ListProperties(ctx context.Context, versionID uuid.UUID) ([]*models.PartProperty, error) {
	query := `
		SELECT pp.part_id, pp.side, pp.name, pp.description, pp.color, pp.text_color, pp.image_id
		FROM part_property pp
		INNER JOIN part p ON p.id = pp.part_id
		WHERE p.version_id = $1
		ORDER BY pp.part_id, pp.side
	`

	rows, err := r.q.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var props []*models.PartProperty
	for rows.Next() {
		prop := &models.PartProperty{}
		err := rows.Scan(
			&prop.PartID,
			&prop.Side,
			&prop.Name,
			&prop.Description,
			&prop.Color,
			&prop.TextColor,
			&prop.ImageID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		props = append(props, prop)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return props, nil
}

// UpsertProperty writes one side's property row, inserting or replacing
func (r *PartRepository) UpsertProperty(ctx context.Context, prop *models.PartProperty) error {
	query := `
		INSERT INTO part_property (part_id, side, name, description, color, text_color, image_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (part_id, side) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    color = EXCLUDED.color,
		    text_color = EXCLUDED.text_color,
		    image_id = EXCLUDED.image_id
	`

	_, err := r.q.Exec(ctx, query,
		prop.PartID,
		prop.Side,
		prop.Name,
		prop.Description,
		prop.Color,
		prop.TextColor,
		prop.ImageID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert property: %w", err)
	}

	return nil
}
