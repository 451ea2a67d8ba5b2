package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardforge/boardforge/common/cache"
	"github.com/boardforge/boardforge/common/models"
	"github.com/boardforge/boardforge/common/queue"
	"github.com/boardforge/boardforge/common/validation"
)

// prototypeFixture wires a PrototypeService over the fake store. The
// fake store doubles as the prototype reader so prototypes created
// during a test are visible to the interact delegation.
type prototypeFixture struct {
	svc   *PrototypeService
	store *fakeStore
	perms *fakePermissionStore
	cache cache.Cache
	pub   *queue.MemoryPublisher
}

func newPrototypeFixture(t *testing.T) *prototypeFixture {
	t.Helper()
	log := testLogger()

	store := newFakeStore()
	perms := newFakePermissionStore()
	perms.addRole(models.RoleEditor,
		permPair{models.ResourcePrototype, models.ActionRead},
		permPair{models.ResourcePrototype, models.ActionWrite},
		permPair{models.ResourcePrototype, models.ActionDelete},
	)
	perms.addRole(models.RolePlayer, permPair{models.ResourceProject, models.ActionInteract})

	authz := NewAuthzEngine(perms, store, log)
	graphCache := cache.NewMemoryCache(log)
	pub := queue.NewMemoryPublisher(log)

	svc := NewPrototypeService(&PrototypeServiceOpts{
		Store:      store,
		Engine:     testEngine(store),
		Authz:      authz,
		Validator:  validation.NewRuleValidator(),
		GraphCache: graphCache,
		Notifier:   NewNotifier(pub, "test:events", log),
		Logger:     log,
	})

	return &prototypeFixture{svc: svc, store: store, perms: perms, cache: graphCache, pub: pub}
}

// grantEditor gives the user the editor role scoped to one prototype.
func (f *prototypeFixture) grantEditor(userID string, prototypeID uuid.UUID) {
	f.perms.grant(userID, f.perms.roles[models.RoleEditor], models.ResourcePrototype, &prototypeID)
}

func TestCreate_GrantsCreatorRoles(t *testing.T) {
	f := newPrototypeFixture(t)

	proto, err := f.svc.Create(context.Background(), "alice", CreatePrototypeInput{
		Name:       "deckbuilder",
		MinPlayers: 2,
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VariantEdit, proto.Variant)

	allowed, err := f.svc.authz.HasPermission(context.Background(), "alice", models.ResourcePrototype, models.ActionWrite, &proto.ID)
	require.NoError(t, err)
	assert.True(t, allowed, "the creator can edit what they created")

	held, err := f.perms.UserRoleExists(context.Background(), "alice", f.perms.roles[models.RolePlayer], models.ResourceProject, &proto.ProjectID)
	require.NoError(t, err)
	assert.True(t, held, "the creator holds the player role on the project")
}

func TestCreate_RejectsBadPlayerBounds(t *testing.T) {
	f := newPrototypeFixture(t)

	_, err := f.svc.Create(context.Background(), "alice", CreatePrototypeInput{
		Name:       "deckbuilder",
		MinPlayers: 5,
		MaxPlayers: 2,
	})
	var ruleErr *validation.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "player_bounds_order", ruleErr.Rule)
	assert.Empty(t, f.store.prototypes, "nothing is persisted on a rejected payload")
}

func TestList_ScopedToGrants(t *testing.T) {
	f := newPrototypeFixture(t)
	mine, _ := seedPrototype(f.store, models.VariantEdit, 2)
	seedPrototype(f.store, models.VariantEdit, 2)
	f.grantEditor("alice", mine.ID)

	protos, err := f.svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, protos, 1)
	assert.Equal(t, mine.ID, protos[0].ID)

	none, err := f.svc.List(context.Background(), "stranger")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none, "no grants means an empty list, not an error")
}

func TestList_GlobalGrantSeesEverything(t *testing.T) {
	f := newPrototypeFixture(t)
	seedPrototype(f.store, models.VariantEdit, 2)
	seedPrototype(f.store, models.VariantEdit, 2)
	f.perms.grant("root", f.perms.roles[models.RoleEditor], models.ResourcePrototype, nil)

	protos, err := f.svc.List(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, protos, 2)
}

func TestGetVersionGraph_ServesFromCache(t *testing.T) {
	f := newPrototypeFixture(t)
	proto, version := seedPrototype(f.store, models.VariantEdit, 2)
	seedPart(f.store, version.ID, models.PartCard, 0, nil, nil)
	f.grantEditor("alice", proto.ID)

	first, err := f.svc.GetVersionGraph(context.Background(), "alice", version.ID)
	require.NoError(t, err)
	require.Len(t, first.Parts, 1)

	// A write behind the cache's back is not visible until the TTL.
	seedPart(f.store, version.ID, models.PartCard, 1, nil, nil)

	second, err := f.svc.GetVersionGraph(context.Background(), "alice", version.ID)
	require.NoError(t, err)
	assert.Len(t, second.Parts, 1, "reads within the TTL come from the cache")
}

func TestCreateVersion_DefaultsToLatest(t *testing.T) {
	f := newPrototypeFixture(t)
	proto, version := seedPrototype(f.store, models.VariantEdit, 2)
	seedPart(f.store, version.ID, models.PartCard, 0, nil, nil)
	f.grantEditor("alice", proto.ID)

	created, err := f.svc.CreateVersion(context.Background(), "alice", proto.ID, CreateVersionInput{
		Description: "before the rules rework",
	})
	require.NoError(t, err)
	assert.Equal(t, version.VersionNumber+1, created.VersionNumber)

	parts, err := f.store.ListParts(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, parts, 1, "the snapshot carries the latest version's content")
}

func TestCreateVersion_RejectsForeignSource(t *testing.T) {
	f := newPrototypeFixture(t)
	proto, _ := seedPrototype(f.store, models.VariantEdit, 2)
	_, foreignVersion := seedPrototype(f.store, models.VariantEdit, 2)
	f.grantEditor("alice", proto.ID)

	_, err := f.svc.CreateVersion(context.Background(), "alice", proto.ID, CreateVersionInput{
		SourceVersionID: &foreignVersion.ID,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDuplicate_DefaultNameAndOwnership(t *testing.T) {
	f := newPrototypeFixture(t)
	proto, version := seedPrototype(f.store, models.VariantEdit, 3)
	seedPart(f.store, version.ID, models.PartCard, 0, nil, nil)

	// Read access only. Holding the editor role on the source would make
	// the role assignment on the copy a no-op under the same-type guard.
	viewer := f.perms.addRole(models.RoleViewer, permPair{models.ResourcePrototype, models.ActionRead})
	f.perms.grant("bob", viewer, models.ResourcePrototype, &proto.ID)

	dup, err := f.svc.Duplicate(context.Background(), "bob", proto.ID, "")
	require.NoError(t, err)
	assert.Equal(t, proto.Name+" (copy)", dup.Name)
	assert.Equal(t, "bob", dup.OwnerUserID)
	assert.NotEqual(t, proto.ProjectID, dup.ProjectID, "the copy lives in its own project")
	assert.NotEqual(t, proto.GroupID, dup.GroupID)

	allowed, err := f.svc.authz.HasPermission(context.Background(), "bob", models.ResourcePrototype, models.ActionWrite, &dup.ID)
	require.NoError(t, err)
	assert.True(t, allowed, "the duplicator can edit the copy")
}

func TestCreateInstance_RejectsInstanceSource(t *testing.T) {
	f := newPrototypeFixture(t)
	room, _ := seedPrototype(f.store, models.VariantInstance, 2)
	f.grantEditor("alice", room.ID)

	_, err := f.svc.CreateInstance(context.Background(), "alice", room.ID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateInstance_SharesProjectAndGroup(t *testing.T) {
	f := newPrototypeFixture(t)
	proto, _ := seedPrototype(f.store, models.VariantEdit, 2)
	f.grantEditor("alice", proto.ID)

	room, err := f.svc.CreateInstance(context.Background(), "alice", proto.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VariantInstance, room.Variant)
	assert.Equal(t, proto.ProjectID, room.ProjectID)
	assert.Equal(t, proto.GroupID, room.GroupID)
}

func TestJoin_ClaimsSeatThroughProjectGrant(t *testing.T) {
	f := newPrototypeFixture(t)
	room, version := seedPrototype(f.store, models.VariantInstance, 2)
	seedPlayer(f.store, version.ID, 0, nil)
	seedPlayer(f.store, version.ID, 1, nil)
	f.perms.grant("dave", f.perms.roles[models.RolePlayer], models.ResourceProject, &room.ProjectID)

	seat, err := f.svc.Join(context.Background(), "dave", version.ID)
	require.NoError(t, err)
	require.NotNil(t, seat.UserID)
	assert.Equal(t, "dave", *seat.UserID)
	assert.Equal(t, 0, seat.SeatOrder, "the lowest free seat goes first")

	again, err := f.svc.Join(context.Background(), "dave", version.ID)
	require.NoError(t, err)
	assert.Equal(t, seat.ID, again.ID, "rejoining returns the held seat")
}

func TestJoin_MasterCopyForbidden(t *testing.T) {
	f := newPrototypeFixture(t)
	proto, version := seedPrototype(f.store, models.VariantEdit, 2)
	seedPlayer(f.store, version.ID, 0, nil)
	f.perms.grant("dave", f.perms.roles[models.RolePlayer], models.ResourceProject, &proto.ProjectID)

	_, err := f.svc.Join(context.Background(), "dave", version.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestJoin_InvalidatesGraphCache(t *testing.T) {
	f := newPrototypeFixture(t)
	room, version := seedPrototype(f.store, models.VariantInstance, 2)
	seedPlayer(f.store, version.ID, 0, nil)
	f.grantEditor("alice", room.ID)
	f.perms.grant("dave", f.perms.roles[models.RolePlayer], models.ResourceProject, &room.ProjectID)

	before, err := f.svc.GetVersionGraph(context.Background(), "alice", version.ID)
	require.NoError(t, err)
	require.Nil(t, before.Players[0].UserID)

	_, err = f.svc.Join(context.Background(), "dave", version.ID)
	require.NoError(t, err)

	after, err := f.svc.GetVersionGraph(context.Background(), "alice", version.ID)
	require.NoError(t, err)
	require.NotNil(t, after.Players[0].UserID, "the join is visible immediately, not after the TTL")
	assert.Equal(t, "dave", *after.Players[0].UserID)
}
