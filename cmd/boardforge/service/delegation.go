package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/models"
)

// delegationKey identifies a (resource, action) pair whose checks do
// not resolve against the resource's own grants.
type delegationKey struct {
	Resource models.ResourceType
	Action   models.Action
}

// delegationResolver answers a delegated permission check.
type delegationResolver func(ctx context.Context, userID string, resourceID *uuid.UUID) (bool, error)

// delegationTable is the single place delegated checks are declared.
// Adding a rule here is the only supported way to reroute a permission;
// call sites never special-case resource types inline.
func delegationTable(e *AuthzEngine) map[delegationKey]delegationResolver {
	return map[delegationKey]delegationResolver{
		{Resource: models.ResourcePrototype, Action: models.ActionInteract}: e.resolvePrototypeInteract,
	}
}

// resolvePrototypeInteract answers "may this user sit down at this
// prototype". Only derived room copies are joinable, and the grants
// that matter live on the owning project, not on the prototype itself.
func (e *AuthzEngine) resolvePrototypeInteract(ctx context.Context, userID string, resourceID *uuid.UUID) (bool, error) {
	if resourceID == nil {
		return false, nil
	}

	proto, err := e.prototypes.GetPrototype(ctx, *resourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load prototype for delegated check: %w", err)
	}

	if !proto.IsInstance() {
		// The editable master copy is never joinable, whatever grants
		// the user holds.
		return false, nil
	}

	return e.checkDirect(ctx, userID, models.ResourceProject, models.ActionInteract, &proto.ProjectID)
}
