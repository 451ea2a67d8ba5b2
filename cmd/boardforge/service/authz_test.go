package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardforge/boardforge/common/models"
)

type permPair struct {
	resource models.ResourceType
	action   models.Action
}

type grantRow struct {
	userID     string
	roleID     uuid.UUID
	resource   models.ResourceType
	resourceID *uuid.UUID
}

// fakePermissionStore is an in-memory PermissionStore seeded through
// addRole and grant.
type fakePermissionStore struct {
	roles     map[string]uuid.UUID
	rolePerms map[uuid.UUID][]permPair
	grants    []grantRow
}

func newFakePermissionStore() *fakePermissionStore {
	return &fakePermissionStore{
		roles:     make(map[string]uuid.UUID),
		rolePerms: make(map[uuid.UUID][]permPair),
	}
}

func (s *fakePermissionStore) addRole(name string, perms ...permPair) uuid.UUID {
	id := uuid.New()
	s.roles[name] = id
	s.rolePerms[id] = perms
	return id
}

func (s *fakePermissionStore) grant(userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) {
	s.grants = append(s.grants, grantRow{userID, roleID, resource, resourceID})
}

func scopeMatches(rowID, wantID *uuid.UUID) bool {
	if wantID == nil {
		return rowID == nil
	}
	return rowID != nil && *rowID == *wantID
}

func (s *fakePermissionStore) roleCovers(roleID uuid.UUID, resource models.ResourceType, action models.Action) bool {
	for _, p := range s.rolePerms[roleID] {
		if p.resource == resource && p.action == action {
			return true
		}
	}
	return false
}

func (s *fakePermissionStore) GrantMatches(ctx context.Context, userID string, resource models.ResourceType, action models.Action, resourceID *uuid.UUID) (bool, error) {
	for _, g := range s.grants {
		if g.userID != userID || g.resource != resource || !scopeMatches(g.resourceID, resourceID) {
			continue
		}
		if s.roleCovers(g.roleID, resource, action) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePermissionStore) AccessibleResourceIDs(ctx context.Context, userID string, resource models.ResourceType, action models.Action) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, g := range s.grants {
		if g.userID != userID || g.resource != resource || g.resourceID == nil {
			continue
		}
		if !s.roleCovers(g.roleID, resource, action) || seen[*g.resourceID] {
			continue
		}
		seen[*g.resourceID] = true
		ids = append(ids, *g.resourceID)
	}
	return ids, nil
}

func (s *fakePermissionStore) UserRoleExists(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) (bool, error) {
	for _, g := range s.grants {
		if g.userID == userID && g.roleID == roleID && g.resource == resource && scopeMatches(g.resourceID, resourceID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePermissionStore) UserRoleExistsForType(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType) (bool, error) {
	for _, g := range s.grants {
		if g.userID == userID && g.roleID == roleID && g.resource == resource {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePermissionStore) InsertUserRole(ctx context.Context, grant *models.UserRole) error {
	s.grants = append(s.grants, grantRow{grant.UserID, grant.RoleID, grant.ResourceType, grant.ResourceID})
	return nil
}

func (s *fakePermissionStore) DeleteUserRole(ctx context.Context, userID string, roleID uuid.UUID, resource models.ResourceType, resourceID *uuid.UUID) error {
	out := s.grants[:0]
	for _, g := range s.grants {
		if g.userID == userID && g.roleID == roleID && g.resource == resource && scopeMatches(g.resourceID, resourceID) {
			continue
		}
		out = append(out, g)
	}
	s.grants = out
	return nil
}

func (s *fakePermissionStore) RoleIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	id, ok := s.roles[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("role %q: %w", name, ErrNotFound)
	}
	return id, nil
}

type fakePrototypeReader struct {
	prototypes map[uuid.UUID]*models.Prototype
}

func (r *fakePrototypeReader) GetPrototype(ctx context.Context, id uuid.UUID) (*models.Prototype, error) {
	p, ok := r.prototypes[id]
	if !ok {
		return nil, fmt.Errorf("prototype %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func newAuthzFixture() (*AuthzEngine, *fakePermissionStore, *fakePrototypeReader) {
	store := newFakePermissionStore()
	reader := &fakePrototypeReader{prototypes: make(map[uuid.UUID]*models.Prototype)}
	engine := NewAuthzEngine(store, reader, testLogger())
	return engine, store, reader
}

func TestHasPermission_ExactGrant(t *testing.T) {
	engine, store, _ := newAuthzFixture()
	editor := store.addRole(models.RoleEditor, permPair{models.ResourcePrototype, models.ActionWrite})

	protoID := uuid.New()
	store.grant("alice", editor, models.ResourcePrototype, &protoID)

	allowed, err := engine.HasPermission(context.Background(), "alice", models.ResourcePrototype, models.ActionWrite, &protoID)
	require.NoError(t, err)
	assert.True(t, allowed)

	otherID := uuid.New()
	allowed, err = engine.HasPermission(context.Background(), "alice", models.ResourcePrototype, models.ActionWrite, &otherID)
	require.NoError(t, err)
	assert.False(t, allowed, "grant on one resource does not leak to another")
}

func TestHasPermission_GlobalFallback(t *testing.T) {
	engine, store, _ := newAuthzFixture()
	admin := store.addRole(models.RoleAdmin, permPair{models.ResourcePrototype, models.ActionDelete})

	store.grant("root", admin, models.ResourcePrototype, nil)

	protoID := uuid.New()
	allowed, err := engine.HasPermission(context.Background(), "root", models.ResourcePrototype, models.ActionDelete, &protoID)
	require.NoError(t, err)
	assert.True(t, allowed, "global grant covers any specific resource")
}

func TestHasPermission_DeniedByDefault(t *testing.T) {
	engine, _, _ := newAuthzFixture()

	protoID := uuid.New()
	allowed, err := engine.HasPermission(context.Background(), "nobody", models.ResourcePrototype, models.ActionRead, &protoID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAssignRole_Idempotent(t *testing.T) {
	engine, store, _ := newAuthzFixture()
	editor := store.addRole(models.RoleEditor)

	protoID := uuid.New()
	require.NoError(t, engine.AssignRole(context.Background(), "alice", editor, models.ResourcePrototype, &protoID))
	require.NoError(t, engine.AssignRole(context.Background(), "alice", editor, models.ResourcePrototype, &protoID))

	assert.Len(t, store.grants, 1, "re-assigning the same grant is a no-op")
}

func TestAssignRole_SkipsWhenRoleHeldForType(t *testing.T) {
	engine, store, _ := newAuthzFixture()
	editor := store.addRole(models.RoleEditor)

	firstID := uuid.New()
	secondID := uuid.New()
	require.NoError(t, engine.AssignRole(context.Background(), "alice", editor, models.ResourcePrototype, &firstID))
	require.NoError(t, engine.AssignRole(context.Background(), "alice", editor, models.ResourcePrototype, &secondID))

	require.Len(t, store.grants, 1)
	assert.Equal(t, firstID, *store.grants[0].resourceID, "a held role for the type blocks further inserts")
}

func TestRemoveRole(t *testing.T) {
	engine, store, _ := newAuthzFixture()
	editor := store.addRole(models.RoleEditor)

	protoID := uuid.New()
	require.NoError(t, engine.AssignRole(context.Background(), "alice", editor, models.ResourcePrototype, &protoID))
	require.NoError(t, engine.RemoveRole(context.Background(), "alice", editor, models.ResourcePrototype, &protoID))

	assert.Empty(t, store.grants)

	// Removing an absent grant is a no-op.
	require.NoError(t, engine.RemoveRole(context.Background(), "alice", editor, models.ResourcePrototype, &protoID))
}

func TestAccessibleResourceIDs(t *testing.T) {
	engine, store, _ := newAuthzFixture()
	viewer := store.addRole(models.RoleViewer, permPair{models.ResourcePrototype, models.ActionRead})

	first := uuid.New()
	second := uuid.New()
	store.grant("alice", viewer, models.ResourcePrototype, &first)
	store.grant("alice", viewer, models.ResourcePrototype, &second)
	store.grant("alice", viewer, models.ResourcePrototype, nil)

	ids, err := engine.AccessibleResourceIDs(context.Background(), "alice", models.ResourcePrototype, models.ActionRead)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids, "global grants are not expanded into ids")
}

func TestHasPermission_InteractDelegatesToProject(t *testing.T) {
	engine, store, reader := newAuthzFixture()
	player := store.addRole(models.RolePlayer, permPair{models.ResourceProject, models.ActionInteract})

	projectID := uuid.New()
	instance := &models.Prototype{
		ID:        uuid.New(),
		ProjectID: projectID,
		Variant:   models.VariantInstance,
	}
	reader.prototypes[instance.ID] = instance
	store.grant("dave", player, models.ResourceProject, &projectID)

	allowed, err := engine.HasPermission(context.Background(), "dave", models.ResourcePrototype, models.ActionInteract, &instance.ID)
	require.NoError(t, err)
	assert.True(t, allowed, "interact resolves against the owning project's grants")
}

func TestHasPermission_InteractOnEditableCopyDenied(t *testing.T) {
	engine, store, reader := newAuthzFixture()
	player := store.addRole(models.RolePlayer, permPair{models.ResourceProject, models.ActionInteract})

	projectID := uuid.New()
	editable := &models.Prototype{
		ID:        uuid.New(),
		ProjectID: projectID,
		Variant:   models.VariantEdit,
	}
	reader.prototypes[editable.ID] = editable
	store.grant("dave", player, models.ResourceProject, &projectID)

	allowed, err := engine.HasPermission(context.Background(), "dave", models.ResourcePrototype, models.ActionInteract, &editable.ID)
	require.NoError(t, err)
	assert.False(t, allowed, "the master copy is never joinable")
}

func TestHasPermission_InteractOnMissingPrototypeDenied(t *testing.T) {
	engine, _, _ := newAuthzFixture()

	missing := uuid.New()
	allowed, err := engine.HasPermission(context.Background(), "dave", models.ResourcePrototype, models.ActionInteract, &missing)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = engine.HasPermission(context.Background(), "dave", models.ResourcePrototype, models.ActionInteract, nil)
	require.NoError(t, err)
	assert.False(t, allowed, "interact has no global scope")
}

func TestAssignRoleByName_UnknownRole(t *testing.T) {
	engine, _, _ := newAuthzFixture()

	err := engine.AssignRoleByName(context.Background(), "alice", "archduke", models.ResourcePrototype, nil)
	require.ErrorIs(t, err, ErrNotFound)
}
