package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/logger"
	"github.com/boardforge/boardforge/common/models"
)

// GrantStore lists the grants a user holds, both role grants and
// group-level access grants.
type GrantStore interface {
	ListUserRoles(ctx context.Context, userID string) ([]*models.UserRole, error)
	ListUserAccesses(ctx context.Context, userID string) ([]*models.Access, error)
}

// GrantRoleInput names the grant a manager wants to create or remove.
type GrantRoleInput struct {
	UserID       string              `json:"user_id"`
	Role         string              `json:"role"`
	ResourceType models.ResourceType `json:"resource_type"`
	ResourceID   *uuid.UUID          `json:"resource_id"`
}

// UserGrants is everything a user holds: role grants plus group-level
// access grants.
type UserGrants struct {
	Roles    []*models.UserRole `json:"roles"`
	Accesses []*models.Access   `json:"accesses"`
}

// AccessService handles sharing: who may do what on which resource.
type AccessService struct {
	authz *AuthzEngine
	store GrantStore
	log   *logger.Logger
}

// NewAccessService creates a new access service
func NewAccessService(authz *AuthzEngine, store GrantStore, log *logger.Logger) *AccessService {
	return &AccessService{
		authz: authz,
		store: store,
		log:   log,
	}
}

// authorizeManage requires the caller to hold manage on the target.
func (s *AccessService) authorizeManage(ctx context.Context, callerID string, resource models.ResourceType, resourceID *uuid.UUID) error {
	allowed, err := s.authz.HasPermission(ctx, callerID, resource, models.ActionManage, resourceID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("manage %s: %w", resource, ErrForbidden)
	}
	return nil
}

// GrantRole assigns a role to another user. The caller needs manage on
// the target resource.
func (s *AccessService) GrantRole(ctx context.Context, callerID string, input GrantRoleInput) error {
	if input.UserID == "" || input.Role == "" || input.ResourceType == "" {
		return fmt.Errorf("user_id, role and resource_type are required: %w", ErrValidation)
	}

	if err := s.authorizeManage(ctx, callerID, input.ResourceType, input.ResourceID); err != nil {
		return err
	}

	if err := s.authz.AssignRoleByName(ctx, input.UserID, input.Role, input.ResourceType, input.ResourceID); err != nil {
		return err
	}

	s.log.Info("role granted",
		"caller_id", callerID,
		"user_id", input.UserID,
		"role", input.Role,
		"resource_type", input.ResourceType,
	)
	return nil
}

// RevokeRole removes a role grant. The caller needs manage on the
// target resource.
func (s *AccessService) RevokeRole(ctx context.Context, callerID string, input GrantRoleInput) error {
	if input.UserID == "" || input.Role == "" || input.ResourceType == "" {
		return fmt.Errorf("user_id, role and resource_type are required: %w", ErrValidation)
	}

	if err := s.authorizeManage(ctx, callerID, input.ResourceType, input.ResourceID); err != nil {
		return err
	}

	if err := s.authz.RemoveRoleByName(ctx, input.UserID, input.Role, input.ResourceType, input.ResourceID); err != nil {
		return err
	}

	s.log.Info("role revoked",
		"caller_id", callerID,
		"user_id", input.UserID,
		"role", input.Role,
		"resource_type", input.ResourceType,
	)
	return nil
}

// MyGrants returns everything the caller holds.
func (s *AccessService) MyGrants(ctx context.Context, userID string) (*UserGrants, error) {
	roles, err := s.store.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	accesses, err := s.store.ListUserAccesses(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []*models.UserRole{}
	}
	if accesses == nil {
		accesses = []*models.Access{}
	}
	return &UserGrants{Roles: roles, Accesses: accesses}, nil
}
