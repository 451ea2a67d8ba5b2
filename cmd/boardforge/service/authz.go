package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/logger"
	"github.com/boardforge/boardforge/common/models"
)

// PermissionStore is the persistence surface the authorization engine
// needs. Implemented by the RBAC repository against Postgres and by an
// in-memory store in tests. There is no caching layer in front of it: a
// grant written by one call is visible to the very next check.
type PermissionStore interface {
	// GrantMatches reports whether the user holds any role whose
	// permissions cover (resource, action) at the given scope. A nil
	// resourceID matches global-scope grants only.
	GrantMatches(ctx context.Context, userID string, resource models.ResourceType, action models.Action, resourceID *uuid.UUID) (bool, error)

	// AccessibleResourceIDs lists every resource id the user holds a
	// resource-specific grant for covering (resource, action).
	AccessibleResourceIDs(ctx context.Context, userID string, resource models.ResourceType, action models.Action) ([]uuid.UUID, error)

	// UserRoleExists reports whether the exact composite-key grant row
	// exists.
	UserRoleExists(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) (bool, error)

	// UserRoleExistsForType reports whether any grant row exists for
	// (user, role, resourceType) regardless of resource id.
	UserRoleExistsForType(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType) (bool, error)

	InsertUserRole(ctx context.Context, grant *models.UserRole) error
	DeleteUserRole(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) error

	// RoleIDByName resolves a seeded role name to its id.
	RoleIDByName(ctx context.Context, name string) (uuid.UUID, error)
}

// PrototypeReader is the slice of the content graph the engine reads
// while resolving delegated checks.
type PrototypeReader interface {
	GetPrototype(ctx context.Context, id uuid.UUID) (*models.Prototype, error)
}

// AuthzEngine decides whether a user may perform an action on a
// resource instance. Every mutation in the service passes through it.
type AuthzEngine struct {
	store       PermissionStore
	prototypes  PrototypeReader
	delegations map[delegationKey]delegationResolver
	log         *logger.Logger
}

// NewAuthzEngine creates the engine and registers the delegation table.
func NewAuthzEngine(store PermissionStore, prototypes PrototypeReader, log *logger.Logger) *AuthzEngine {
	e := &AuthzEngine{
		store:      store,
		prototypes: prototypes,
		log:        log,
	}
	e.delegations = delegationTable(e)
	return e
}

// HasPermission reports whether the user may perform action on the
// resource instance. Resolution order: delegation table, then
// resource-specific grants, then global-scope grants. Unknown
// resource/action pairs match nothing and deny by default.
func (e *AuthzEngine) HasPermission(ctx context.Context, userID string, resource models.ResourceType, action models.Action, resourceID *uuid.UUID) (bool, error) {
	if resolver, ok := e.delegations[delegationKey{Resource: resource, Action: action}]; ok {
		return resolver(ctx, userID, resourceID)
	}
	return e.checkDirect(ctx, userID, resource, action, resourceID)
}

// checkDirect is the two-step scope fallback without delegation.
func (e *AuthzEngine) checkDirect(ctx context.Context, userID string, resource models.ResourceType, action models.Action, resourceID *uuid.UUID) (bool, error) {
	allowed, err := e.store.GrantMatches(ctx, userID, resource, action, resourceID)
	if err != nil {
		return false, fmt.Errorf("failed to match grant: %w", err)
	}
	if allowed {
		return true, nil
	}

	// Fall back to global scope when a specific resource was asked for.
	if resourceID != nil {
		allowed, err = e.store.GrantMatches(ctx, userID, resource, action, nil)
		if err != nil {
			return false, fmt.Errorf("failed to match global grant: %w", err)
		}
		if allowed {
			return true, nil
		}
	}

	return false, nil
}

// AssignRole grants a role to a user at the given scope. Idempotent.
func (e *AuthzEngine) AssignRole(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) error {
	exists, err := e.store.UserRoleExists(ctx, userID, roleID, resource, resourceID)
	if err != nil {
		return fmt.Errorf("failed to check grant: %w", err)
	}
	if exists {
		return nil
	}

	// Compatibility quirk: a grant for the same (user, role, resource
	// type) on a *different* resource also blocks the insert. Kept to
	// match existing callers; do not copy this pattern elsewhere.
	existsForType, err := e.store.UserRoleExistsForType(ctx, userID, roleID, resource)
	if err != nil {
		return fmt.Errorf("failed to check grants for type: %w", err)
	}
	if existsForType {
		e.log.Warn("assign role skipped, user already holds role for resource type",
			"user_id", userID,
			"role_id", roleID,
			"resource_type", resource,
		)
		return nil
	}

	grant := &models.UserRole{
		UserID:       userID,
		RoleID:       roleID,
		ResourceType: resource,
		ResourceID:   resourceID,
	}
	if err := e.store.InsertUserRole(ctx, grant); err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}

	e.log.Info("role assigned",
		"user_id", userID,
		"role_id", roleID,
		"resource_type", resource,
	)
	return nil
}

// AssignRoleByName resolves a seeded role name and assigns it.
func (e *AuthzEngine) AssignRoleByName(ctx context.Context, userID, roleName string, resource models.ResourceType, resourceID *uuid.UUID) error {
	roleID, err := e.store.RoleIDByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("failed to resolve role %q: %w", roleName, err)
	}
	return e.AssignRole(ctx, userID, roleID, resource, resourceID)
}

// RemoveRoleByName resolves a seeded role name and removes the grant.
func (e *AuthzEngine) RemoveRoleByName(ctx context.Context, userID, roleName string, resource models.ResourceType, resourceID *uuid.UUID) error {
	roleID, err := e.store.RoleIDByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("failed to resolve role %q: %w", roleName, err)
	}
	return e.RemoveRole(ctx, userID, roleID, resource, resourceID)
}

// RemoveRole deletes the exact composite-key grant row. No-op if the
// row is absent.
func (e *AuthzEngine) RemoveRole(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) error {
	if err := e.store.DeleteUserRole(ctx, userID, roleID, resource, resourceID); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// AccessibleResourceIDs lists every resource id the user may perform
// action on through a resource-specific grant. Global grants are not
// expanded here; callers that want "everything" check the global scope
// separately.
func (e *AuthzEngine) AccessibleResourceIDs(ctx context.Context, userID string, resource models.ResourceType, action models.Action) ([]uuid.UUID, error) {
	ids, err := e.store.AccessibleResourceIDs(ctx, userID, resource, action)
	if err != nil {
		return nil, fmt.Errorf("failed to list accessible resources: %w", err)
	}
	return ids, nil
}
